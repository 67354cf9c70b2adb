package scheduler

import (
	"sort"
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/trace"
)

// Rule tags recorded in the decision trace.
const (
	RuleBaseBeforeBuffer      = "RULE_BASE_BEFORE_BUFFER"
	RuleScoreOrder            = "RULE_SCORE_ORDER"
	RuleTieBreakDeterministic = "RULE_TIE_BREAK_DETERMINISTIC"
	RuleLimitConsecutive      = "RULE_LIMIT_CONSECUTIVE_BLOCKS"
	RuleConcentrationMode     = "RULE_CONCENTRATION_MODE_PER_SUBJECT"
	RulePreExamBuffer         = "RULE_PRE_EXAM_BUFFER"
	RuleGapFillBuffer         = "RULE_GAP_FILL_BUFFER"
	RuleGapFillSlack          = "RULE_GAP_FILL_SLACK"
	RuleStrategyForward       = "RULE_STRATEGY_MODE_FORWARD"
	RuleStrategyBackward      = "RULE_STRATEGY_MODE_BACKWARD"
	RuleStrategyHybrid        = "RULE_STRATEGY_MODE_HYBRID"

	BlockedNoEligibleSubject = "NO_ELIGIBLE_SUBJECT"
)

// AllocateInput carries everything one allocation run consumes. The allocator
// never mutates its input collections.
type AllocateInput struct {
	Slots             []domain.Slot
	Subjects          []domain.Subject
	WorkloadBySubject map[string]Workload
	// EffectiveDoneMinutes per subject is subtracted from base demand
	// before allocation (manual-session progress).
	EffectiveDoneMinutes map[string]int
	SessionMinutes       int
	FeaturesBySubject    map[string]Features
	Weights              *ScoreWeights
	Continuity           config.ContinuityConfig
	// ConfigBySubject supplies per-subject strategy, concentration and
	// distribution settings; missing subjects fall back to Global.
	ConfigBySubject map[string]config.SubjectConfig
	Global          config.GlobalConfig
	// ConcentrationModeBySubject takes precedence over the per-subject
	// config entry, mirroring the request-level override map.
	ConcentrationModeBySubject map[string]string
	Trace                      *trace.Collector
}

// AllocateResult is the allocator's output. Unmet demand stays as positive
// remainders; it is never an error.
type AllocateResult struct {
	Allocations            []domain.Allocation
	RemainingBaseMinutes   map[string]int
	RemainingBufferMinutes map[string]int
}

// distributionLimits are the per-subject anti-monotony settings after mode
// resolution.
type distributionLimits struct {
	Mode              domain.DistributionMode
	PenaltyMultiplier float64
	MaxStreakDays     int
	MaxSameDayBlocks  int
	TargetVariety     int
}

const unboundedLimit = 1_000_000

func limitsForMode(mode domain.DistributionMode) distributionLimits {
	switch mode {
	case domain.DistributionStrict:
		return distributionLimits{Mode: mode, PenaltyMultiplier: 2.0, MaxStreakDays: 2, MaxSameDayBlocks: 2, TargetVariety: 3}
	case domain.DistributionBalanced:
		return distributionLimits{Mode: mode, PenaltyMultiplier: 1.0, MaxStreakDays: 3, MaxSameDayBlocks: 3, TargetVariety: 2}
	default:
		return distributionLimits{Mode: domain.DistributionOff, PenaltyMultiplier: 0.0, MaxStreakDays: unboundedLimit, MaxSameDayBlocks: unboundedLimit, TargetVariety: 1}
	}
}

func resolveDistribution(cfg config.SubjectConfig) distributionLimits {
	mode := domain.ParseDistributionMode(cfg.HumanDistributionMode)
	limits := limitsForMode(mode)
	// Explicit positive values override the mode defaults; zero or negative
	// means "not configured" and keeps the fallback.
	if cfg.MaxSameSubjectStreakDays > 0 {
		limits.MaxStreakDays = cfg.MaxSameSubjectStreakDays
	}
	if cfg.MaxSameSubjectConsecutiveBlocks > 0 {
		limits.MaxSameDayBlocks = cfg.MaxSameSubjectConsecutiveBlocks
	}
	if cfg.TargetDailySubjectVariety > 0 {
		limits.TargetVariety = cfg.TargetDailySubjectVariety
	}
	return limits
}

// strategyWeight maps days-to-exam into a multiplicative bias. Forward favors
// slots far from the exam, backward favors slots close to it, hybrid stays
// near neutral with a slight late acceleration.
func strategyWeight(day, examDay time.Time, mode domain.StrategyMode) float64 {
	distance := float64(maxInt(0, domain.DaysBetween(day, examDay)))
	nearRatio := 1.0 / (1.0 + distance)
	farRatio := distance / (distance + 2.0)

	switch mode {
	case domain.StrategyForward:
		return 1.0 + 0.40*farRatio
	case domain.StrategyBackward:
		return 1.0 + 0.45*nearRatio
	default:
		return 1.0 + 0.15*nearRatio
	}
}

func strategyRule(mode domain.StrategyMode) string {
	switch mode {
	case domain.StrategyForward:
		return RuleStrategyForward
	case domain.StrategyBackward:
		return RuleStrategyBackward
	default:
		return RuleStrategyHybrid
	}
}

func concentrationMultiplier(mode domain.ConcentrationMode) float64 {
	if mode == domain.ConcentrationConcentrated {
		return 1.03
	}
	return 1.0
}

func concentrationBias(mode domain.ConcentrationMode) float64 {
	if mode == domain.ConcentrationConcentrated {
		return 0.01
	}
	return 0.0
}

// concentrationAdjusted halves the concentration penalty for concentrated
// subjects before scoring.
func concentrationAdjusted(f Features, mode domain.ConcentrationMode) Features {
	if mode == domain.ConcentrationConcentrated {
		f.ConcentrationPenalty *= 0.5
	}
	return f
}

type candidate struct {
	score   float64
	tie     TieBreakKey
	subject domain.Subject
}

func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tie.Less(candidates[j].tie)
	})
}

func candidateIDs(candidates []candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.subject.SubjectID
	}
	return ids
}

func candidateScores(candidates []candidate) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.subject.SubjectID] = c.score
	}
	return scores
}

// allocState is the mutable run state shared by the three phases.
type allocState struct {
	input       AllocateInput
	weights     ScoreWeights
	slots       []domain.Slot
	subjects    []domain.Subject
	remBase     map[string]int
	remBuffer   map[string]int
	examDay     map[string]time.Time
	strategy    map[string]domain.StrategyMode
	distro      map[string]distributionLimits
	conc        map[string]domain.ConcentrationMode
	concSource  map[string]string
	history     *History
	allocations []domain.Allocation
	slackBySlot map[string]int
}

// Allocate runs the three-phase deterministic placement: forward base
// allocation, pre-exam buffer refinement, gap fill. Slots are processed in
// (date, slot_id) order and subjects enumerate in subject_id order; candidate
// selection uses (score desc, tie-break asc) only.
func Allocate(input AllocateInput) AllocateResult {
	st := newAllocState(input)
	st.phaseForwardBase()
	st.phasePreExamBuffer()
	st.phaseGapFill()
	return AllocateResult{
		Allocations:            st.allocations,
		RemainingBaseMinutes:   st.remBase,
		RemainingBufferMinutes: st.remBuffer,
	}
}

func newAllocState(input AllocateInput) *allocState {
	slots := append([]domain.Slot(nil), input.Slots...)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].SlotID < slots[j].SlotID
	})

	subjects := append([]domain.Subject(nil), input.Subjects...)
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].SubjectID < subjects[j].SubjectID
	})

	weights := DefaultScoreWeights()
	if input.Weights != nil {
		weights = *input.Weights
	}

	globalConc := domain.ParseConcentrationMode(input.Global.DefaultConcentrationMode, domain.ConcentrationDiffuse)

	st := &allocState{
		input:       input,
		weights:     weights,
		slots:       slots,
		subjects:    subjects,
		remBase:     make(map[string]int, len(subjects)),
		remBuffer:   make(map[string]int, len(subjects)),
		examDay:     make(map[string]time.Time, len(subjects)),
		strategy:    make(map[string]domain.StrategyMode, len(subjects)),
		distro:      make(map[string]distributionLimits, len(subjects)),
		conc:        make(map[string]domain.ConcentrationMode, len(subjects)),
		concSource:  make(map[string]string, len(subjects)),
		history:     NewHistory(),
		slackBySlot: make(map[string]int, len(slots)),
	}

	for _, subject := range subjects {
		sid := subject.SubjectID
		workload := input.WorkloadBySubject[sid]
		base := workload.BaseMinutes() - input.EffectiveDoneMinutes[sid]
		st.remBase[sid] = maxInt(0, base)
		st.remBuffer[sid] = workload.BufferMinutes()
		st.examDay[sid] = subject.ExamDay()

		cfg, hasCfg := input.ConfigBySubject[sid]
		if !hasCfg {
			cfg = config.SubjectConfig{GlobalConfig: input.Global, StrategyMode: input.Global.DefaultStrategyMode}
		}
		st.strategy[sid] = domain.ParseStrategyMode(cfg.StrategyMode)
		st.distro[sid] = resolveDistribution(cfg)

		explicit := cfg.ConcentrationMode
		if fromMap, ok := input.ConcentrationModeBySubject[sid]; ok {
			explicit = fromMap
		}
		if explicit == "" {
			st.conc[sid] = globalConc
			st.concSource[sid] = "global_fallback"
		} else {
			st.conc[sid] = domain.ParseConcentrationMode(explicit, globalConc)
			st.concSource[sid] = "subject"
		}
	}

	return st
}

func (st *allocState) sessionMinutes() int {
	if st.input.SessionMinutes > 0 {
		return st.input.SessionMinutes
	}
	return 30
}

func (st *allocState) commit(slot domain.Slot, subjectID string, minutes int, bucket domain.Bucket) {
	if minutes <= 0 {
		return
	}
	st.allocations = append(st.allocations, domain.Allocation{
		SlotID:    slot.SlotID,
		Date:      slot.Date,
		SubjectID: subjectID,
		Minutes:   minutes,
		Bucket:    bucket,
	})
}

// blocksLimitExceeded reports whether picking the subject next would exceed
// its same-day consecutive-block cap. Off-mode subjects are never limited.
func (st *allocState) blocksLimitExceeded(subjectID, date string) bool {
	limits := st.distro[subjectID]
	if limits.Mode == domain.DistributionOff {
		return false
	}
	return st.history.NextSameDayBlocks(date, subjectID) > limits.MaxSameDayBlocks
}

// Phase 1: while a slot has a session quantum free, score every subject with
// remaining base demand and commit the top candidate.
func (st *allocState) phaseForwardBase() {
	session := st.sessionMinutes()

	for _, slot := range st.slots {
		available := slot.MaxMinutes
		day := domain.MustDay(slot.Date)

		for available >= session {
			candidates := st.phaseOneCandidates(slot, day)
			if len(candidates) == 0 {
				break
			}
			sortCandidates(candidates)

			chosen := candidates[0].subject
			forcedSecondChoice := false
			note := "Top-score selection with deterministic tie-break."

			if st.blocksLimitExceeded(chosen.SubjectID, slot.Date) {
				replaced := false
				for _, alternative := range candidates[1:] {
					if !st.blocksLimitExceeded(alternative.subject.SubjectID, slot.Date) {
						chosen = alternative.subject
						forcedSecondChoice = true
						replaced = true
						note = "Same-subject consecutive block limit exceeded: applied first valid alternative."
						break
					}
				}
				if !replaced {
					note = "Consecutive block limit exception: no valid alternative without violating hard constraints."
				}
			}

			sid := chosen.SubjectID
			concentrationInfluenced := st.concSource[sid] == "subject"
			if concentrationInfluenced {
				note += " Per-subject concentration mode influenced candidate evaluation."
			}

			chunk := minInt(session, minInt(available, st.remBase[sid]))
			st.commit(slot, sid, chunk, domain.BucketBase)

			if st.input.Trace != nil {
				rules := []string{RuleBaseBeforeBuffer, RuleScoreOrder, RuleTieBreakDeterministic, strategyRule(st.strategy[sid])}
				if forcedSecondChoice {
					rules = append(rules, RuleLimitConsecutive)
				}
				if concentrationInfluenced {
					rules = append(rules, RuleConcentrationMode)
				}
				st.input.Trace.Record(trace.Decision{
					SlotID:            slot.SlotID,
					CandidateSubjects: candidateIDs(candidates),
					ScoresBySubject:   candidateScores(candidates),
					SelectedSubjectID: sid,
					AppliedRules:      rules,
					TradeoffNote:      note,
					ConfidenceImpact:  0.01,
				})
			}

			st.remBase[sid] -= chunk
			available -= chunk
			st.history.Record(slot.Date, sid, chunk)
		}

		st.slackBySlot[slot.SlotID] = available
	}
}

// phaseOneCandidates scores every eligible subject for one pick. The variety
// soft penalty and streak checks read history already updated by earlier
// picks in the same slot; that online view is deliberate.
func (st *allocState) phaseOneCandidates(slot domain.Slot, day time.Time) []candidate {
	var candidates []candidate
	for _, subject := range st.subjects {
		sid := subject.SubjectID
		if st.remBase[sid] <= 0 {
			continue
		}

		limits := st.distro[sid]
		if limits.Mode == domain.DistributionBalanced || limits.Mode == domain.DistributionStrict {
			if st.history.StreakDays(sid, day, 0) >= limits.MaxStreakDays {
				continue
			}
		}

		continuityPenalty := ContinuityPenalty(sid, day, st.history, st.input.Continuity)
		varietyMissing := maxInt(0, limits.TargetVariety-st.history.DistinctSubjects(slot.Date, sid))
		softPenalty := limits.PenaltyMultiplier * float64(varietyMissing) * 0.25

		mode := st.conc[sid]
		features := concentrationAdjusted(st.input.FeaturesBySubject[sid], mode)
		features.StreakPenalty = continuityPenalty + softPenalty
		baseScore := ComputeScore(features, st.weights)

		strategyMode := st.strategy[sid]
		weight := strategyWeight(day, st.examDay[sid], strategyMode)
		if strategyMode == domain.StrategyHybrid {
			// Keep Phase 1 mostly neutral for hybrid.
			weight = 1.0 + (weight-1.0)*0.25
		}

		score := (baseScore + concentrationBias(mode)) * weight * concentrationMultiplier(mode)
		candidates = append(candidates, candidate{
			score:   score,
			tie:     TieBreak(subject, slot.Date),
			subject: subject,
		})
	}
	return candidates
}

// Phase 2: buffer refinement before each subject's exam. Buffer is only ever
// considered once the subject's base is fully exhausted.
func (st *allocState) phasePreExamBuffer() {
	session := st.sessionMinutes()

	for _, slot := range st.slots {
		free := st.slackBySlot[slot.SlotID]
		if free < session {
			continue
		}
		day := domain.MustDay(slot.Date)

		candidates := st.bufferCandidates(slot, day, free, false)
		sortCandidates(candidates)

		for _, c := range candidates {
			sid := c.subject.SubjectID
			if free < session {
				break
			}
			chunk := minInt(session, minInt(free, st.remBuffer[sid]))
			st.commit(slot, sid, chunk, domain.BucketBuffer)
			if st.input.Trace != nil && chunk > 0 {
				st.input.Trace.Record(trace.Decision{
					SlotID:            slot.SlotID,
					CandidateSubjects: candidateIDs(candidates),
					ScoresBySubject:   candidateScores(candidates),
					SelectedSubjectID: sid,
					AppliedRules:      []string{RulePreExamBuffer, RuleBaseBeforeBuffer, strategyRule(st.strategy[sid])},
					TradeoffNote:      "Allocated buffer for subject with completed base before its exam.",
					ConfidenceImpact:  0.005,
				})
			}
			st.remBuffer[sid] -= chunk
			free -= chunk
			st.history.Record(slot.Date, sid, chunk)
		}

		st.slackBySlot[slot.SlotID] = free
	}
}

// Phase 3: fill gaps with any remaining buffer, then mark what is left as
// explicit slack.
func (st *allocState) phaseGapFill() {
	session := st.sessionMinutes()

	for _, slot := range st.slots {
		free := st.slackBySlot[slot.SlotID]
		if free <= 0 {
			continue
		}
		day := domain.MustDay(slot.Date)

		candidates := st.bufferCandidates(slot, day, free, true)
		sortCandidates(candidates)

		for _, c := range candidates {
			sid := c.subject.SubjectID
			if free < session {
				continue
			}
			chunk := minInt(session, minInt(free, st.remBuffer[sid]))
			st.commit(slot, sid, chunk, domain.BucketBuffer)
			if st.input.Trace != nil && chunk > 0 {
				st.input.Trace.Record(trace.Decision{
					SlotID:            slot.SlotID,
					CandidateSubjects: candidateIDs(candidates),
					ScoresBySubject:   candidateScores(candidates),
					SelectedSubjectID: sid,
					AppliedRules:      []string{RuleGapFillBuffer, RuleBaseBeforeBuffer, strategyRule(st.strategy[sid])},
					TradeoffNote:      "Filled gap with available buffer.",
					ConfidenceImpact:  0.002,
				})
			}
			st.remBuffer[sid] -= chunk
			free -= chunk
			st.history.Record(slot.Date, sid, chunk)
		}

		if free > 0 {
			st.commit(slot, domain.SlackSubjectID, free, domain.BucketSlack)
			if st.input.Trace != nil {
				st.input.Trace.Record(trace.Decision{
					SlotID:             slot.SlotID,
					CandidateSubjects:  []string{},
					ScoresBySubject:    map[string]float64{},
					SelectedSubjectID:  domain.SlackSubjectID,
					AppliedRules:       []string{RuleGapFillSlack},
					BlockedConstraints: []string{BlockedNoEligibleSubject},
					TradeoffNote:       "Remaining minutes marked as explicit slack.",
					ConfidenceImpact:   -0.01,
				})
			}
			st.slackBySlot[slot.SlotID] = 0
		}
	}
}

// bufferCandidates lists subjects eligible for buffer on a slot: base fully
// exhausted, buffer remaining, and the exam not yet passed. Ranking uses the
// strategy weight only, with the standard tie-break.
func (st *allocState) bufferCandidates(slot domain.Slot, day time.Time, free int, gapFill bool) []candidate {
	session := st.sessionMinutes()
	var candidates []candidate
	for _, subject := range st.subjects {
		sid := subject.SubjectID
		if st.remBase[sid] > 0 {
			// Never invert base -> buffer.
			continue
		}
		if st.remBuffer[sid] <= 0 {
			continue
		}
		if gapFill {
			if free < session {
				continue
			}
		} else if day.After(st.examDay[sid]) {
			// Pre-exam refinement only places buffer before the exam;
			// gap fill may use any remaining capacity.
			continue
		}
		candidates = append(candidates, candidate{
			score:   strategyWeight(day, st.examDay[sid], st.strategy[sid]),
			tie:     TieBreak(subject, slot.Date),
			subject: subject,
		})
	}
	return candidates
}
