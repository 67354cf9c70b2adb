package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/scheduler"
)

func warningCodes(warnings []Warning) []string {
	codes := make([]string, len(warnings))
	for i, w := range warnings {
		codes[i] = w.Code
	}
	return codes
}

func suggestionCodes(suggestions []Suggestion) []string {
	codes := make([]string, len(suggestions))
	for i, s := range suggestions {
		codes[i] = s.Code
	}
	return codes
}

func weekSlots(minutes int, dates ...string) []domain.Slot {
	slots := make([]domain.Slot, 0, len(dates))
	for _, date := range dates {
		slots = append(slots, domain.Slot{SlotID: "slot-" + date, Date: date, MaxMinutes: minutes})
	}
	return slots
}

func TestBuildWarnings_CleanPlanStaysSilent(t *testing.T) {
	warnings, suggestions := BuildWarnings(WarningsInput{
		Subjects: []domain.Subject{{SubjectID: "math", SelectedExamDate: "2026-02-15"}},
		SlotsInWindow: weekSlots(210,
			"2026-01-01", "2026-01-02"),
		Allocations: []domain.Allocation{
			{SlotID: "s1", Date: "2026-01-01", SubjectID: "math", Minutes: 60, Bucket: domain.BucketBase},
			{SlotID: "s1", Date: "2026-01-01", SubjectID: "physics", Minutes: 60, Bucket: domain.BucketBase},
			{SlotID: "s2", Date: "2026-01-02", SubjectID: "math", Minutes: 60, Bucket: domain.BucketBase},
			{SlotID: "s2", Date: "2026-01-02", SubjectID: "physics", Minutes: 60, Bucket: domain.BucketBase},
		},
		RemainingBaseMinutes: map[string]int{"math": 0},
		HumanityThreshold:    0.45,
	})

	assert.Empty(t, warnings)
	assert.Empty(t, suggestions)
}

func TestBuildWarnings_MonotonousPlan(t *testing.T) {
	warnings, suggestions := BuildWarnings(WarningsInput{
		SlotsInWindow: weekSlots(60, "2026-01-01", "2026-01-02", "2026-01-03"),
		Allocations: []domain.Allocation{
			{Date: "2026-01-01", SubjectID: "math", Minutes: 60, Bucket: domain.BucketBase},
			{Date: "2026-01-02", SubjectID: "math", Minutes: 60, Bucket: domain.BucketBase},
			{Date: "2026-01-03", SubjectID: "math", Minutes: 60, Bucket: domain.BucketBase},
		},
		HumanityThreshold: 0.45,
	})

	require.Contains(t, warningCodes(warnings), WarnPlanMonotonous)
	assert.Contains(t, suggestionCodes(suggestions), SuggestIncreaseVariety)

	for _, w := range warnings {
		if w.Code == WarnPlanMonotonous {
			assert.InDelta(t, 0.4167, w.HumanityScore, 0.0005)
			assert.InDelta(t, 0.45, w.Threshold, 1e-9)
		}
	}
}

func TestBuildWarnings_LockedManualSessionsCompressCapacity(t *testing.T) {
	warnings, suggestions := BuildWarnings(WarningsInput{
		SlotsInWindow: weekSlots(100,
			"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05", "2026-01-06", "2026-01-07"),
		ManualSessions: []domain.ManualSession{
			{SubjectID: "math", Date: "2026-01-02", PlannedMinutes: 300, Pinned: true},
			{SubjectID: "math", Date: "2026-01-20", PlannedMinutes: 500, Pinned: true}, // outside the 7-day window
		},
		HumanityThreshold: 0.0,
	})

	require.Contains(t, warningCodes(warnings), WarnManualCompressesCapacity)
	assert.Contains(t, suggestionCodes(suggestions), SuggestMoveManualSessions)

	for _, w := range warnings {
		if w.Code == WarnManualCompressesCapacity {
			assert.InDelta(t, 0.4286, w.CompressionRatio, 0.0005)
		}
	}
}

func TestBuildWarnings_ManualOverTarget(t *testing.T) {
	warnings, _ := BuildWarnings(WarningsInput{
		SlotsInWindow: weekSlots(210, "2026-01-01"),
		ManualSessions: []domain.ManualSession{
			{SubjectID: "math", Date: "2026-01-01", PlannedMinutes: 120},
		},
		WorkloadBySubject: map[string]scheduler.Workload{"math": {HoursTarget: 1}},
		HumanityThreshold: 0.0,
	})

	codes := warningCodes(warnings)
	require.Contains(t, codes, WarnManualOverTarget)
}

func TestBuildWarnings_BufferNotAllocable(t *testing.T) {
	warnings, suggestions := BuildWarnings(WarningsInput{
		SlotsInWindow:          weekSlots(210, "2026-01-01"),
		RemainingBaseMinutes:   map[string]int{"math": 0},
		RemainingBufferMinutes: map[string]int{"math": 60},
		HumanityThreshold:      0.0,
	})

	require.Contains(t, warningCodes(warnings), WarnBufferNotAllocable)
	assert.Contains(t, suggestionCodes(suggestions), SuggestReduceBuffer)
}

func TestBuildWarnings_DynamicExamRisk(t *testing.T) {
	warnings, _ := BuildWarnings(WarningsInput{
		Subjects:             []domain.Subject{{SubjectID: "math", SelectedExamDate: "2026-01-10"}},
		SlotsInWindow:        weekSlots(210, "2026-01-01"),
		RemainingBaseMinutes: map[string]int{"math": 600},
		HumanityThreshold:    0.0,
	})

	require.Contains(t, warningCodes(warnings), WarnRiskExamDynamic)
	for _, w := range warnings {
		if w.Code == WarnRiskExamDynamic {
			assert.Equal(t, "math", w.SubjectID)
			assert.Equal(t, 9, w.DaysToExam)
			assert.InDelta(t, 0.8, w.RiskExam, 0.0005) // full deficit plus 0.3/sqrt(9)
		}
	}
}

func TestBuildWarnings_FarExamWithNoDeficitCarriesNoRisk(t *testing.T) {
	warnings, _ := BuildWarnings(WarningsInput{
		Subjects:             []domain.Subject{{SubjectID: "math", SelectedExamDate: "2026-02-15"}},
		SlotsInWindow:        weekSlots(210, "2026-01-01"),
		RemainingBaseMinutes: map[string]int{"math": 0},
		HumanityThreshold:    0.0,
	})

	assert.NotContains(t, warningCodes(warnings), WarnRiskExamDynamic)
}

func TestBuildWarnings_ConsecutiveWeeklySaturation(t *testing.T) {
	// 2026-01-05 and 2026-01-12 are Mondays of consecutive ISO weeks.
	warnings, suggestions := BuildWarnings(WarningsInput{
		SlotsInWindow: weekSlots(100, "2026-01-05", "2026-01-12"),
		Allocations: []domain.Allocation{
			{Date: "2026-01-05", SubjectID: "math", Minutes: 150, Bucket: domain.BucketBase},
			{Date: "2026-01-12", SubjectID: "math", Minutes: 150, Bucket: domain.BucketBase},
		},
		HumanityThreshold: 0.0,
	})

	require.Contains(t, warningCodes(warnings), WarnConsecutiveWeeklySaturation)
	assert.Contains(t, suggestionCodes(suggestions), SuggestReduceBuffer)
}

func TestBuildWarnings_SuggestionsDeduplicated(t *testing.T) {
	// end_by infeasibility and exam risk both suggest reviewing the cap for
	// the same subject; only one suggestion must survive.
	_, suggestions := BuildWarnings(WarningsInput{
		Subjects: []domain.Subject{{
			SubjectID:        "math",
			SelectedExamDate: "2026-01-10",
			EndBy:            "2026-01-02",
		}},
		SlotsInWindow:        weekSlots(60, "2026-01-01", "2026-01-02"),
		RemainingBaseMinutes: map[string]int{"math": 600},
		HumanityThreshold:    0.0,
	})

	reviewCap := 0
	for _, s := range suggestions {
		if s.Code == SuggestReviewCap && s.SubjectID == "math" {
			reviewCap++
		}
	}
	assert.Equal(t, 1, reviewCap)
}
