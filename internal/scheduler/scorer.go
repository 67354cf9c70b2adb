package scheduler

import (
	"math"
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
)

// noExamSentinel orders subjects without any exam after every dated one.
const noExamSentinel = 1_000_000_000

// ScoreWeights are the coefficients of the linear candidate score.
type ScoreWeights struct {
	Urgency       float64
	Priority      float64
	CompletionGap float64
	Difficulty    float64
	Window        float64
	Mode          float64
	Concentration float64
	Streak        float64
}

// DefaultScoreWeights returns the documented weight defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Urgency:       0.35,
		Priority:      0.20,
		CompletionGap: 0.15,
		Difficulty:    0.10,
		Window:        0.10,
		Mode:          0.05,
		Concentration: 0.05,
		Streak:        0.15,
	}
}

// Features are the per-subject scoring inputs, expected in comparable ranges
// (the engine does no normalization of its own).
type Features struct {
	Urgency              float64 `json:"urgency"`
	Priority             float64 `json:"priority"`
	CompletionGap        float64 `json:"completion_gap"`
	Difficulty           float64 `json:"difficulty"`
	WindowPressure       float64 `json:"window_pressure"`
	ModeAlignment        float64 `json:"mode_alignment"`
	ConcentrationPenalty float64 `json:"concentration_penalty"`
	StreakPenalty        float64 `json:"streak_penalty"`
}

// ComputeScore evaluates the weighted score formula. Larger is better;
// concentration and streak terms subtract.
func ComputeScore(f Features, w ScoreWeights) float64 {
	return w.Urgency*f.Urgency +
		w.Priority*f.Priority +
		w.CompletionGap*f.CompletionGap +
		w.Difficulty*f.Difficulty +
		w.Window*f.WindowPressure +
		w.Mode*f.ModeAlignment -
		w.Concentration*f.ConcentrationPenalty -
		w.Streak*f.StreakPenalty
}

// TieBreakKey is the sole ordering used when scores tie. Its three components
// give a total order over subjects, so output never depends on map iteration.
type TieBreakKey struct {
	DaysToExam  int
	NegPriority int
	SubjectID   string
}

// Less orders by nearest exam, then higher priority, then subject ID.
func (k TieBreakKey) Less(other TieBreakKey) bool {
	if k.DaysToExam != other.DaysToExam {
		return k.DaysToExam < other.DaysToExam
	}
	if k.NegPriority != other.NegPriority {
		return k.NegPriority < other.NegPriority
	}
	return k.SubjectID < other.SubjectID
}

// TieBreak builds the deterministic tie-break key for a subject relative to a
// reference day. The day string must be valid; callers validate dates
// upstream, so a parse failure panics.
func TieBreak(subject domain.Subject, referenceDay string) TieBreakKey {
	ref := domain.MustDay(referenceDay)

	daysToExam := noExamSentinel
	if nearest := subject.NearestExamDay(); nearest != nil {
		daysToExam = maxInt(0, domain.DaysBetween(ref, *nearest))
	}

	return TieBreakKey{
		DaysToExam:  daysToExam,
		NegPriority: -subject.Priority,
		SubjectID:   subject.SubjectID,
	}
}

// ContinuityPenalty computes the recent-continuity penalty for a subject on a
// reference day from the in-run history. Two independent contributions:
// consecutive-day streak beyond the threshold, and rolling-window minute
// share beyond the threshold. Their sum is capped at MaxPenalty. Disabled
// configs always yield zero.
func ContinuityPenalty(subjectID string, referenceDay time.Time, hist *History, cfg config.ContinuityConfig) float64 {
	if !cfg.Enabled {
		return 0
	}

	var penalty float64

	streak := hist.StreakDays(subjectID, referenceDay, cfg.LookbackDays)
	if cfg.StreakThresholdDays > 0 && streak > cfg.StreakThresholdDays {
		penalty += float64(streak-cfg.StreakThresholdDays) * cfg.StreakPenaltyFactor
	}

	if cfg.RollingWindowDays > 0 {
		share := hist.RollingShare(subjectID, referenceDay, cfg.RollingWindowDays)
		if cfg.RollingShareThreshold > 0 && share > cfg.RollingShareThreshold {
			penalty += (share - cfg.RollingShareThreshold) * cfg.RollingPenaltyFactor
		}
	}

	if cfg.MaxPenalty > 0 {
		penalty = math.Min(penalty, cfg.MaxPenalty)
	}
	return penalty
}
