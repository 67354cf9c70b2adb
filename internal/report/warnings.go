// Package report assembles output payloads: warnings, suggestions and the
// final plan envelope.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/metrics"
	"github.com/J-ANet/prototipo/internal/scheduler"
)

// Warning codes emitted on a successful plan.
const (
	WarnManualCompressesCapacity    = "WARN_MANUAL_COMPRESSES_CAPACITY"
	WarnManualOverTarget            = "WARN_MANUAL_OVER_TARGET"
	WarnEndByNotFeasible            = "WARN_END_BY_NOT_FEASIBLE"
	WarnConsecutiveWeeklySaturation = "WARN_CONSECUTIVE_WEEKLY_SATURATION"
	WarnBufferNotAllocable          = "WARN_BUFFER_NOT_ALLOCABLE"
	WarnRiskExamDynamic             = "WARN_RISK_EXAM_DYNAMIC"
	WarnPlanMonotonous              = "WARN_PLAN_MONOTONOUS"
)

// Suggestion codes paired with the warnings above.
const (
	SuggestMoveManualSessions = "SUGGEST_MOVE_MANUAL_SESSIONS"
	SuggestReviewCap          = "SUGGEST_REVIEW_CAP"
	SuggestReduceBuffer       = "SUGGEST_REDUCE_BUFFER"
	SuggestIncreaseVariety    = "SUGGEST_INCREASE_VARIETY"
)

// Warning is a non-blocking signal about plan quality or feasibility.
type Warning struct {
	Code             string  `json:"code"`
	Severity         string  `json:"severity"`
	SubjectID        string  `json:"subject_id,omitempty"`
	Message          string  `json:"message"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	RiskExam         float64 `json:"risk_exam,omitempty"`
	DaysToExam       int     `json:"days_to_exam,omitempty"`
	HumanityScore    float64 `json:"humanity_score,omitempty"`
	Threshold        float64 `json:"threshold,omitempty"`
}

// Suggestion is an actionable hint tied to one or more warnings.
type Suggestion struct {
	Code      string `json:"code"`
	SubjectID string `json:"subject_id,omitempty"`
	Message   string `json:"message"`
}

// WarningsInput gathers everything warning generation inspects.
type WarningsInput struct {
	Subjects               []domain.Subject
	ManualSessions         []domain.ManualSession
	SlotsInWindow          []domain.Slot
	Allocations            []domain.Allocation
	WorkloadBySubject      map[string]scheduler.Workload
	RemainingBaseMinutes   map[string]int
	RemainingBufferMinutes map[string]int
	// HumanityScore, when nil, is recomputed from the allocations.
	HumanityScore     *float64
	HumanityThreshold float64
}

// BuildWarnings generates the mandatory warning set and its deduplicated
// suggestions. Output order is deterministic: rules run in a fixed sequence
// and per-subject rules iterate sorted subject ids.
func BuildWarnings(input WarningsInput) ([]Warning, []Suggestion) {
	var warnings []Warning
	var suggestions []Suggestion

	referenceDay := referenceDayOf(input.SlotsInWindow)
	capacityByDay := make(map[string]int)
	for _, slot := range input.SlotsInWindow {
		capacityByDay[slot.Date] += maxInt(0, slot.MaxMinutes)
	}

	plannedBySubject := make(map[string]int)
	for _, alloc := range input.Allocations {
		if alloc.SubjectID != "" && !alloc.IsSlack() {
			plannedBySubject[alloc.SubjectID] += alloc.Minutes
		}
	}

	humanity := 1.0
	if input.HumanityScore != nil {
		humanity = clamp01(*input.HumanityScore)
	} else {
		humanity = metrics.ComputeHumanity(input.Allocations).HumanityScore
	}

	// Locked manual sessions compressing near-term capacity.
	capNext7 := 0
	for i := 0; i < 7; i++ {
		capNext7 += capacityByDay[domain.DayString(referenceDay.AddDate(0, 0, i))]
	}
	lockedNext7 := 0
	for _, session := range input.ManualSessions {
		if !session.Locked() {
			continue
		}
		day, err := domain.ParseDay(session.Date)
		if err != nil {
			continue
		}
		offset := domain.DaysBetween(referenceDay, day)
		if offset >= 0 && offset < 7 {
			lockedNext7 += session.PlannedMinutes
		}
	}
	compression := float64(lockedNext7) / float64(maxInt(1, capNext7))
	if compression >= 0.35 {
		warnings = append(warnings, Warning{
			Code:             WarnManualCompressesCapacity,
			Severity:         "warning",
			Message:          "Locked manual sessions compress the available future capacity.",
			CompressionRatio: round4(clamp01(compression)),
		})
		suggestions = append(suggestions, Suggestion{
			Code:    SuggestMoveManualSessions,
			Message: "Move or unlock part of the manual sessions in the next 7 days.",
		})
	}

	// Manual minutes exceeding a subject's target.
	manualBySubject := make(map[string]int)
	for _, session := range input.ManualSessions {
		manualBySubject[session.SubjectID] += maxInt(0, session.PlannedMinutes)
	}
	for _, sid := range sortedKeys(manualBySubject) {
		target := input.WorkloadBySubject[sid].TargetMinutes()
		if manualBySubject[sid] > target && target > 0 {
			warnings = append(warnings, Warning{
				Code:      WarnManualOverTarget,
				Severity:  "warning",
				SubjectID: sid,
				Message:   "Manual sessions exceed the subject's target demand.",
			})
			suggestions = append(suggestions, Suggestion{
				Code:      SuggestMoveManualSessions,
				SubjectID: sid,
				Message:   "Move excess manual sessions to subjects with a deficit.",
			})
		}
	}

	// End-by feasibility against remaining base demand.
	for _, subject := range input.Subjects {
		sid := subject.SubjectID
		endBy := referenceDay
		if subject.EndBy != "" {
			if day, err := domain.ParseDay(subject.EndBy); err == nil {
				endBy = day
			}
		}
		allocable := 0
		for date, minutes := range capacityByDay {
			if day, err := domain.ParseDay(date); err == nil && !day.After(endBy) {
				allocable += minutes
			}
		}
		if input.RemainingBaseMinutes[sid] > allocable {
			warnings = append(warnings, Warning{
				Code:      WarnEndByNotFeasible,
				Severity:  "warning",
				SubjectID: sid,
				Message:   "Cannot respect the end_by date with the available capacity.",
			})
			suggestions = append(suggestions, Suggestion{
				Code:      SuggestReviewCap,
				SubjectID: sid,
				Message:   "Increase daily cap/tolerance or bring sessions forward to respect end_by.",
			})
		}
	}

	if saturatedConsecutiveWeeks(input.Allocations, capacityByDay, referenceDay) {
		warnings = append(warnings, Warning{
			Code:     WarnConsecutiveWeeklySaturation,
			Severity: "warning",
			Message:  "High weekly saturation across consecutive weeks.",
		})
		suggestions = append(suggestions, Suggestion{
			Code:    SuggestReduceBuffer,
			Message: "Reduce buffer percent on lower-risk subjects to lower saturation.",
		})
	}

	// Base complete but buffer stranded.
	for _, sid := range sortedKeys(input.RemainingBaseMinutes) {
		if input.RemainingBaseMinutes[sid] == 0 && maxInt(0, input.RemainingBufferMinutes[sid]) > 0 {
			warnings = append(warnings, Warning{
				Code:      WarnBufferNotAllocable,
				Severity:  "warning",
				SubjectID: sid,
				Message:   "Base study completable but buffer not allocable for lack of usable slots.",
			})
			suggestions = append(suggestions, Suggestion{
				Code:      SuggestReduceBuffer,
				SubjectID: sid,
				Message:   "Reduce the subject's buffer or add capacity on pre-exam days.",
			})
		}
	}

	// Dynamic exam risk.
	for _, subject := range input.Subjects {
		sid := subject.SubjectID
		daysToExam := daysToExam(referenceDay, subject)
		remaining := maxInt(0, input.RemainingBaseMinutes[sid])
		deficitRatio := float64(remaining) / float64(maxInt(1, plannedBySubject[sid]+remaining))
		timePressure := 1.0 / math.Sqrt(float64(maxInt(1, daysToExam)))
		risk := clamp01(0.7*deficitRatio + 0.3*timePressure)
		if risk >= riskThreshold(daysToExam) {
			warnings = append(warnings, Warning{
				Code:       WarnRiskExamDynamic,
				Severity:   "warning",
				SubjectID:  sid,
				RiskExam:   round4(risk),
				DaysToExam: daysToExam,
				Message:    "Exam risk above the dynamic threshold.",
			})
			suggestions = append(suggestions, Suggestion{
				Code:      SuggestReviewCap,
				SubjectID: sid,
				Message:   "Review the daily cap and subject priority to lower exam risk.",
			})
		}
	}

	threshold := clamp01(input.HumanityThreshold)
	if humanity < threshold {
		warnings = append(warnings, Warning{
			Code:          WarnPlanMonotonous,
			Severity:      "warning",
			HumanityScore: round4(humanity),
			Threshold:     round4(threshold),
			Message:       "Plan distribution too monotonous against the human variety threshold.",
		})
		suggestions = append(suggestions, Suggestion{
			Code:    SuggestIncreaseVariety,
			Message: "Bring forward 1-2 blocks of a secondary subject on the most concentrated days to improve variety and rhythm.",
		})
	}

	return warnings, dedupeSuggestions(suggestions)
}

// saturatedConsecutiveWeeks reports whether two or more consecutive ISO weeks
// used more minutes than their capacity.
func saturatedConsecutiveWeeks(allocations []domain.Allocation, capacityByDay map[string]int, referenceDay time.Time) bool {
	type week struct {
		year int
		num  int
	}
	usedByDay := make(map[string]int)
	for _, alloc := range allocations {
		if alloc.IsSlack() {
			continue
		}
		usedByDay[alloc.Date] += alloc.Minutes
	}

	weeklyCap := make(map[week]int)
	weeklyUsed := make(map[week]int)
	for date, cap := range capacityByDay {
		day, err := domain.ParseDay(date)
		if err != nil {
			day = referenceDay
		}
		year, num := day.ISOWeek()
		key := week{year, num}
		weeklyCap[key] += cap
		weeklyUsed[key] += usedByDay[date]
	}

	weeks := make([]week, 0, len(weeklyCap))
	for key := range weeklyCap {
		weeks = append(weeks, key)
	}
	sort.Slice(weeks, func(i, j int) bool {
		if weeks[i].year != weeks[j].year {
			return weeks[i].year < weeks[j].year
		}
		return weeks[i].num < weeks[j].num
	})

	consecutive := 0
	for _, key := range weeks {
		saturation := float64(weeklyUsed[key]) / float64(maxInt(1, weeklyCap[key]))
		if saturation > 1.0 {
			consecutive++
			if consecutive >= 2 {
				return true
			}
		} else {
			consecutive = 0
		}
	}
	return false
}

func dedupeSuggestions(suggestions []Suggestion) []Suggestion {
	type suggestionKey struct {
		code    string
		subject string
	}
	seen := make(map[suggestionKey]struct{}, len(suggestions))
	unique := make([]Suggestion, 0, len(suggestions))
	for _, item := range suggestions {
		key := suggestionKey{item.Code, item.SubjectID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

func referenceDayOf(slots []domain.Slot) time.Time {
	var earliest *time.Time
	for _, slot := range slots {
		day, err := domain.ParseDay(slot.Date)
		if err != nil {
			continue
		}
		if earliest == nil || day.Before(*earliest) {
			earliest = &day
		}
	}
	if earliest != nil {
		return *earliest
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// daysToExam uses the selected exam date, else the first listed one, with a
// floor of one day.
func daysToExam(reference time.Time, subject domain.Subject) int {
	raw := subject.SelectedExamDate
	if raw == "" && len(subject.ExamDates) > 0 {
		raw = subject.ExamDates[0]
	}
	examDay := reference
	if raw != "" {
		if day, err := domain.ParseDay(raw); err == nil {
			examDay = day
		}
	}
	return maxInt(1, domain.DaysBetween(reference, examDay))
}

func riskThreshold(daysToExam int) float64 {
	switch {
	case daysToExam > 30:
		return 0.60
	case daysToExam > 14:
		return 0.45
	default:
		return 0.30
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
