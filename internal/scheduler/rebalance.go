package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/metrics"
	"github.com/J-ANet/prototipo/internal/trace"
)

// Rule tags recorded by the rebalancer.
const (
	RuleRebalanceSwap         = "RULE_REBALANCE_SWAP"
	RuleRebalanceFallbackSwap = "RULE_REBALANCE_FALLBACK_SWAP"
)

// RebalanceInput drives one post-allocation rebalancing pass.
type RebalanceInput struct {
	Allocations       []domain.Allocation
	Slots             []domain.Slot
	Subjects          []domain.Subject
	Global            config.GlobalConfig
	ConfigBySubject   map[string]config.SubjectConfig
	LockedAllocations []domain.Allocation
	// PastCutoff freezes every allocation strictly before it.
	PastCutoff *time.Time
	Trace      *trace.Collector
}

type swapCandidate struct {
	key  [6]string
	idxA int
	idxB int
}

type humanityVector struct {
	mono    float64
	streak  float64
	variety float64
}

func humanityOf(allocations []domain.Allocation) humanityVector {
	m := metrics.ComputeHumanity(allocations)
	return humanityVector{
		mono:    m.MonoDayRatio,
		streak:  float64(m.MaxSameSubjectStreakDays),
		variety: m.SubjectVarietyIndex,
	}
}

// improvesOver reports whether after strictly improves at least one humanity
// component, naming the improved components.
func (after humanityVector) improvesOver(before humanityVector) (bool, string) {
	var improved []string
	if after.mono < before.mono {
		improved = append(improved, "mono_day_ratio")
	}
	if after.streak < before.streak {
		improved = append(improved, "streak_days")
	}
	if after.variety > before.variety {
		improved = append(improved, "subject_variety")
	}
	return len(improved) > 0, strings.Join(improved, ", ")
}

// notWorseThan reports whether no humanity component regressed.
func (after humanityVector) notWorseThan(before humanityVector) bool {
	return after.mono <= before.mono && after.streak <= before.streak && after.variety >= before.variety
}

// Rebalance runs a bounded deterministic local search over subject-only
// swaps. Feasibility must never regress beyond the configured tolerance, and
// each accepted swap must improve at least one humanity component. When the
// strict search exhausts and fallback is enabled, a single not-worse swap may
// still be applied before the pass terminates.
func Rebalance(input RebalanceInput) []domain.Allocation {
	working := append([]domain.Allocation(nil), input.Allocations...)
	if len(working) < 2 {
		return working
	}

	global := input.Global
	maxSubjectsPerDay := maxInt(1, global.MaxSubjectsPerDay)
	maxSwaps := maxInt(0, minInt(100, global.RebalanceMaxSwaps))
	maxIterations := global.RebalanceMaxIterations
	if maxIterations <= 0 {
		maxIterations = maxSwaps
	}
	nearWindow := maxInt(0, global.RebalanceNearDaysWindow)

	lockedSlotIDs := make(map[string]struct{}, len(input.LockedAllocations))
	lockedDates := make(map[string]struct{})
	for _, locked := range input.LockedAllocations {
		lockedSlotIDs[locked.SlotID] = struct{}{}
		if strings.HasPrefix(locked.SlotID, domain.ManualSlotPrefix) {
			lockedDates[locked.Date] = struct{}{}
		}
	}

	windows := subjectSwapWindows(input.Subjects)
	allowed := allowedMinutesByDay(input.Slots)
	strategies := strategyModesBySubject(input.Subjects, global, input.ConfigBySubject)

	immutable := func(alloc domain.Allocation) bool {
		if _, ok := lockedSlotIDs[alloc.SlotID]; ok {
			return true
		}
		if _, ok := lockedDates[alloc.Date]; ok {
			return true
		}
		if alloc.Bucket == domain.BucketManualLocked || strings.HasPrefix(alloc.SlotID, domain.ManualSlotPrefix) {
			return true
		}
		if alloc.LockedByUser || alloc.Pinned {
			return true
		}
		if input.PastCutoff != nil {
			if day, err := domain.ParseDay(alloc.Date); err == nil && day.Before(*input.PastCutoff) {
				return true
			}
		}
		return false
	}

	accepted := 0
	iterations := 0
	fallbackAvailable := global.RebalanceFallbackEnabled

	for accepted < maxSwaps && iterations < maxIterations {
		iterations++
		baseFeasibility := feasibilityScore(working, allowed, windows)
		before := humanityOf(working)

		candidates := enumerateSwapCandidates(working, windows, strategies, nearWindow, immutable)
		if len(candidates) == 0 {
			break
		}

		improved := false
		for _, cand := range candidates {
			proposal := swapProposal(working, cand)
			if !respectsMaxSubjectsPerDay(proposal, maxSubjectsPerDay) {
				continue
			}
			proposalFeasibility := feasibilityScore(proposal, allowed, windows)
			if proposalFeasibility+global.FeasibilityRegressionTolerance < baseFeasibility {
				continue
			}
			after := humanityOf(proposal)
			improves, improvedComponents := after.improvesOver(before)
			if !improves {
				continue
			}

			subjectA := working[cand.idxA].SubjectID
			subjectB := working[cand.idxB].SubjectID
			working = proposal
			accepted++
			improved = true
			recordSwap(input.Trace, working, cand, subjectA, subjectB, RuleRebalanceSwap,
				fmt.Sprintf("Swap accepted: improves %s; feasibility %.3f->%.3f.", improvedComponents, baseFeasibility, proposalFeasibility),
				swapConfidence(baseFeasibility, proposalFeasibility))
			break
		}

		if improved {
			continue
		}

		// Strict improvement exhausted. One not-worse fallback swap may
		// still unstick the plan, then the pass ends.
		if fallbackAvailable && accepted < maxSwaps {
			for _, cand := range candidates {
				proposal := swapProposal(working, cand)
				if !respectsMaxSubjectsPerDay(proposal, maxSubjectsPerDay) {
					continue
				}
				proposalFeasibility := feasibilityScore(proposal, allowed, windows)
				if proposalFeasibility+global.FeasibilityRegressionTolerance < baseFeasibility {
					continue
				}
				if !humanityOf(proposal).notWorseThan(before) {
					continue
				}

				subjectA := working[cand.idxA].SubjectID
				subjectB := working[cand.idxB].SubjectID
				working = proposal
				accepted++
				recordSwap(input.Trace, working, cand, subjectA, subjectB, RuleRebalanceFallbackSwap,
					fmt.Sprintf("Fallback swap accepted: no humanity regression; feasibility %.3f->%.3f.", baseFeasibility, proposalFeasibility),
					0.001)
				break
			}
		}
		break
	}

	sort.Slice(working, func(i, j int) bool {
		if working[i].Date != working[j].Date {
			return working[i].Date < working[j].Date
		}
		if working[i].SlotID != working[j].SlotID {
			return working[i].SlotID < working[j].SlotID
		}
		return working[i].SubjectID < working[j].SubjectID
	})
	return working
}

func swapProposal(working []domain.Allocation, cand swapCandidate) []domain.Allocation {
	proposal := append([]domain.Allocation(nil), working...)
	proposal[cand.idxA].SubjectID, proposal[cand.idxB].SubjectID = proposal[cand.idxB].SubjectID, proposal[cand.idxA].SubjectID
	return proposal
}

func swapConfidence(before, after float64) float64 {
	if after == before {
		return 0.002
	}
	return 0.003
}

func recordSwap(collector *trace.Collector, working []domain.Allocation, cand swapCandidate, subjectA, subjectB, rule, note string, confidence float64) {
	if collector == nil {
		return
	}
	collector.Record(trace.Decision{
		SlotID:            working[cand.idxA].SlotID + "|" + working[cand.idxB].SlotID,
		CandidateSubjects: []string{subjectA, subjectB},
		ScoresBySubject:   map[string]float64{subjectA: 0.0, subjectB: 0.0},
		SelectedSubjectID: "swap:" + subjectA + "<->" + subjectB,
		AppliedRules:      []string{rule},
		TradeoffNote:      note,
		ConfidenceImpact:  confidence,
	})
}

// enumerateSwapCandidates lists every compatible pair in deterministic key
// order. Compatibility: mutable, distinct non-slack subjects sharing strategy
// group and bucket, within the near-days window, and both subjects valid on
// the other's day.
func enumerateSwapCandidates(
	working []domain.Allocation,
	windows map[string]swapWindow,
	strategies map[string]domain.StrategyMode,
	nearWindow int,
	immutable func(domain.Allocation) bool,
) []swapCandidate {
	var candidates []swapCandidate
	for idxA, allocA := range working {
		sidA := allocA.SubjectID
		if sidA == "" || sidA == domain.SlackSubjectID || immutable(allocA) {
			continue
		}
		dayA, err := domain.ParseDay(allocA.Date)
		if err != nil {
			continue
		}
		for idxB := idxA + 1; idxB < len(working); idxB++ {
			allocB := working[idxB]
			sidB := allocB.SubjectID
			if sidB == "" || sidB == domain.SlackSubjectID || sidA == sidB {
				continue
			}
			if strategies[sidA] != strategies[sidB] {
				continue
			}
			if immutable(allocB) {
				continue
			}
			dayB, err := domain.ParseDay(allocB.Date)
			if err != nil {
				continue
			}
			if absInt(domain.DaysBetween(dayB, dayA)) > nearWindow {
				continue
			}
			if allocA.Bucket != allocB.Bucket {
				continue
			}
			if !windows[sidA].admits(dayB) || !windows[sidB].admits(dayA) {
				continue
			}
			candidates = append(candidates, swapCandidate{
				key:  [6]string{allocA.Date, sidA, allocA.SlotID, allocB.Date, sidB, allocB.SlotID},
				idxA: idxA,
				idxB: idxB,
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		for k := 0; k < 6; k++ {
			if candidates[i].key[k] != candidates[j].key[k] {
				return candidates[i].key[k] < candidates[j].key[k]
			}
		}
		return false
	})
	return candidates
}

// swapWindow is the [start_at, min(end_by, exam)] validity interval used for
// swap admission.
type swapWindow struct {
	startAt  *time.Time
	endBy    *time.Time
	examDate *time.Time
}

func (w swapWindow) admits(day time.Time) bool {
	if w.startAt != nil && day.Before(*w.startAt) {
		return false
	}
	if w.endBy != nil && day.After(*w.endBy) {
		return false
	}
	if w.examDate != nil && day.After(*w.examDate) {
		return false
	}
	return true
}

func subjectSwapWindows(subjects []domain.Subject) map[string]swapWindow {
	windows := make(map[string]swapWindow, len(subjects))
	for _, subject := range subjects {
		if subject.SubjectID == "" {
			continue
		}
		var exams []time.Time
		if subject.SelectedExamDate != "" {
			if day, err := domain.ParseDay(subject.SelectedExamDate); err == nil {
				exams = append(exams, day)
			}
		}
		for _, raw := range subject.ExamDates {
			if day, err := domain.ParseDay(raw); err == nil {
				exams = append(exams, day)
			}
		}

		window := swapWindow{}
		if subject.StartAt != "" {
			if day, err := domain.ParseDay(subject.StartAt); err == nil {
				window.startAt = &day
			}
		}
		var endBy *time.Time
		if subject.EndBy != "" {
			if day, err := domain.ParseDay(subject.EndBy); err == nil {
				endBy = &day
			}
		}
		if len(exams) > 0 {
			earliest := exams[0]
			for _, day := range exams[1:] {
				if day.Before(earliest) {
					earliest = day
				}
			}
			window.examDate = &earliest
			if endBy == nil || earliest.Before(*endBy) {
				endBy = &earliest
			}
		}
		window.endBy = endBy
		windows[subject.SubjectID] = window
	}
	return windows
}

func allowedMinutesByDay(slots []domain.Slot) map[string]int {
	allowed := make(map[string]int)
	for _, slot := range slots {
		if slot.Date == "" {
			continue
		}
		allowed[slot.Date] += maxInt(0, slot.CapMinutes) + maxInt(0, slot.ToleranceMinutes)
	}
	return allowed
}

func strategyModesBySubject(subjects []domain.Subject, global config.GlobalConfig, cfgBySubject map[string]config.SubjectConfig) map[string]domain.StrategyMode {
	modes := make(map[string]domain.StrategyMode, len(subjects))
	defaultMode := domain.ParseStrategyMode(global.DefaultStrategyMode)
	for _, subject := range subjects {
		if subject.SubjectID == "" {
			continue
		}
		mode := defaultMode
		if cfg, ok := cfgBySubject[subject.SubjectID]; ok && cfg.StrategyMode != "" {
			mode = domain.ParseStrategyMode(cfg.StrategyMode)
		}
		modes[subject.SubjectID] = mode
	}
	return modes
}

// feasibilityScore maps hard-constraint violations into (0, 1]. A violation
// is a window breach or a day used beyond its allowed cap plus tolerance.
func feasibilityScore(allocations []domain.Allocation, allowed map[string]int, windows map[string]swapWindow) float64 {
	violations := 0
	usedByDay := make(map[string]int)

	for _, alloc := range allocations {
		if alloc.SubjectID == "" || alloc.SubjectID == domain.SlackSubjectID {
			continue
		}
		usedByDay[alloc.Date] += maxInt(0, alloc.Minutes)
		day, err := domain.ParseDay(alloc.Date)
		if err != nil {
			continue
		}
		window := windows[alloc.SubjectID]
		if window.startAt != nil && day.Before(*window.startAt) {
			violations++
		}
		if window.endBy != nil && day.After(*window.endBy) {
			violations++
		}
		if window.examDate != nil && day.After(*window.examDate) {
			violations++
		}
	}
	for day, used := range usedByDay {
		if used > allowed[day] {
			violations++
		}
	}
	return 1.0 / (1.0 + float64(violations))
}

func respectsMaxSubjectsPerDay(allocations []domain.Allocation, maxSubjects int) bool {
	subjectsByDay := make(map[string]map[string]struct{})
	for _, alloc := range allocations {
		if alloc.SubjectID == "" || alloc.SubjectID == domain.SlackSubjectID {
			continue
		}
		day := subjectsByDay[alloc.Date]
		if day == nil {
			day = make(map[string]struct{})
			subjectsByDay[alloc.Date] = day
		}
		day[alloc.SubjectID] = struct{}{}
	}
	for _, subjects := range subjectsByDay {
		if len(subjects) > maxSubjects {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
