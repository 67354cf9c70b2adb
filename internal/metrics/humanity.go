// Package metrics derives plan-level quality indicators from finished
// allocation lists.
package metrics

import (
	"sort"

	"github.com/J-ANet/prototipo/internal/domain"
)

// HumanityMetrics quantify how sustainable a plan feels: low monotony, short
// same-subject streaks, good daily variety.
type HumanityMetrics struct {
	MonoDayRatio             float64 `json:"mono_day_ratio"`
	MaxSameSubjectStreakDays int     `json:"max_same_subject_streak_days"`
	SubjectVarietyIndex      float64 `json:"subject_variety_index"`
	HumanityScore            float64 `json:"humanity_score"`
}

// ComputeHumanity inspects non-slack allocations. An empty plan scores as
// fully humane: nothing monotonous happened.
func ComputeHumanity(allocations []domain.Allocation) HumanityMetrics {
	subjectsByDay := make(map[string]map[string]struct{})
	daysBySubject := make(map[string]map[string]struct{})
	allSubjects := make(map[string]struct{})

	for _, alloc := range allocations {
		if alloc.IsSlack() || alloc.SubjectID == "" || alloc.Minutes <= 0 {
			continue
		}
		day := subjectsByDay[alloc.Date]
		if day == nil {
			day = make(map[string]struct{})
			subjectsByDay[alloc.Date] = day
		}
		day[alloc.SubjectID] = struct{}{}

		dates := daysBySubject[alloc.SubjectID]
		if dates == nil {
			dates = make(map[string]struct{})
			daysBySubject[alloc.SubjectID] = dates
		}
		dates[alloc.Date] = struct{}{}
		allSubjects[alloc.SubjectID] = struct{}{}
	}

	if len(subjectsByDay) == 0 {
		return HumanityMetrics{SubjectVarietyIndex: 1.0, HumanityScore: 1.0}
	}

	monoDays := 0
	varietySum := 0.0
	total := float64(len(allSubjects))
	for _, subjects := range subjectsByDay {
		if len(subjects) == 1 {
			monoDays++
		}
		varietySum += float64(len(subjects)) / total
	}
	studyDays := float64(len(subjectsByDay))
	mono := float64(monoDays) / studyDays
	variety := varietySum / studyDays

	maxStreak := 0
	for _, dates := range daysBySubject {
		if streak := longestDayStreak(dates); streak > maxStreak {
			maxStreak = streak
		}
	}

	score := 0.45*(1.0-mono) + 0.35*variety + 0.20/(1.0+float64(maxExcessStreak(maxStreak)))
	return HumanityMetrics{
		MonoDayRatio:             mono,
		MaxSameSubjectStreakDays: maxStreak,
		SubjectVarietyIndex:      variety,
		HumanityScore:            clamp01(score),
	}
}

func maxExcessStreak(streak int) int {
	if streak > 1 {
		return streak - 1
	}
	return 0
}

// longestDayStreak returns the longest run of consecutive calendar days in
// the set.
func longestDayStreak(dates map[string]struct{}) int {
	if len(dates) == 0 {
		return 0
	}
	ordered := make([]string, 0, len(dates))
	for date := range dates {
		ordered = append(ordered, date)
	}
	sort.Strings(ordered)

	best, current := 1, 1
	previous := domain.MustDay(ordered[0])
	for _, raw := range ordered[1:] {
		day := domain.MustDay(raw)
		if domain.DaysBetween(previous, day) == 1 {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
		previous = day
	}
	return best
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
