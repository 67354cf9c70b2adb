package scheduler

import (
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
)

// DeriveFeatures builds the static per-subject score features evaluated once
// before allocation. Dynamic features (streak penalty) start at zero and are
// filled in by the allocator as the run progresses.
func DeriveFeatures(
	subjects []domain.Subject,
	workloads map[string]Workload,
	cfgBySubject map[string]config.SubjectConfig,
	global config.GlobalConfig,
	referenceDay time.Time,
) map[string]Features {
	maxPriority := 0
	maxDifficulty := 0.0
	for _, subject := range subjects {
		if subject.Priority > maxPriority {
			maxPriority = subject.Priority
		}
		if d := subject.EffectiveDifficulty(); d > maxDifficulty {
			maxDifficulty = d
		}
	}

	features := make(map[string]Features, len(subjects))
	for _, subject := range subjects {
		sid := subject.SubjectID
		examDay := subject.ExamDay()
		daysToExam := maxInt(0, domain.DaysBetween(referenceDay, examDay))

		f := Features{
			Urgency:       1.0 / (1.0 + float64(daysToExam)/7.0),
			CompletionGap: clampUnit(1.0 - subject.CompletionInitial),
		}
		if maxPriority > 0 {
			f.Priority = clampUnit(float64(subject.Priority) / float64(maxPriority))
		}
		if maxDifficulty > 0 {
			f.Difficulty = clampUnit(subject.EffectiveDifficulty() / maxDifficulty)
		}

		f.WindowPressure = windowPressure(subject, workloads[sid], global, referenceDay)

		f.ModeAlignment = 0.5
		cfg, ok := cfgBySubject[sid]
		if !ok || cfg.StrategyMode == "" || domain.ParseStrategyMode(cfg.StrategyMode) == domain.ParseStrategyMode(global.DefaultStrategyMode) {
			f.ModeAlignment = 1.0
		}

		features[sid] = f
	}
	return features
}

// windowPressure compares the subject's target demand with the theoretical
// capacity of its remaining window at the daily cap.
func windowPressure(subject domain.Subject, workload Workload, global config.GlobalConfig, referenceDay time.Time) float64 {
	window := subject.Window()
	deadline := window.ExamDay
	if window.EndBy != nil && (deadline == nil || window.EndBy.Before(*deadline)) {
		deadline = window.EndBy
	}
	dailyMax := global.DailyCapMinutes + global.DailyCapToleranceMinutes
	if deadline == nil || dailyMax <= 0 {
		return 0
	}
	start := referenceDay
	if window.StartAt != nil && window.StartAt.After(start) {
		start = *window.StartAt
	}
	windowDays := domain.DaysBetween(start, *deadline) + 1
	if windowDays <= 0 {
		return 1.0
	}
	capacity := float64(windowDays * dailyMax)
	if capacity <= 0 {
		return 1.0
	}
	return clampUnit(float64(workload.TargetMinutes()) / capacity)
}
