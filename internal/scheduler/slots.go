package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
)

// BuildDailySlots produces one capacity slot per calendar day in
// [start, end], ascending. For each day: sleep hours are resolved with
// date > weekday > default precedence; cap_override constraints replace the
// global cap with the minimum override (most restrictive wins); blocked
// constraints subtract their minutes after the awake-time ceiling is applied.
// Every intermediate value is clamped to [0, awake minutes].
func BuildDailySlots(start, end time.Time, global config.GlobalConfig, constraints []domain.CalendarConstraint) []domain.Slot {
	ordered := append([]domain.CalendarConstraint(nil), constraints...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.ConstraintID != b.ConstraintID {
			return a.ConstraintID < b.ConstraintID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Weekday < b.Weekday
	})

	var slots []domain.Slot
	for _, day := range domain.IterDays(start, end) {
		sleepHours := global.ResolveSleepHours(day)
		awakeMinutes := int(math.Round((24 - sleepHours) * 60))
		if awakeMinutes < 0 {
			awakeMinutes = 0
		}

		var capOverrides []int
		blockedMinutes := 0
		var blockedIDs []string
		for _, constraint := range ordered {
			if !constraintApplies(constraint, day) {
				continue
			}
			switch constraint.Type {
			case domain.ConstraintCapOverride:
				capOverrides = append(capOverrides, constraint.CapOverrideMinutes)
			case domain.ConstraintBlocked:
				blockedMinutes += constraint.BlockedMinutes
				blockedIDs = append(blockedIDs, constraint.ConstraintID)
			}
		}

		capPreSleep := global.DailyCapMinutes
		var capOverride *int
		if len(capOverrides) > 0 {
			minOverride := capOverrides[0]
			for _, v := range capOverrides[1:] {
				if v < minOverride {
					minOverride = v
				}
			}
			capPreSleep = minOverride
			capOverride = &minOverride
		}

		capWithSleep := clampRange(capPreSleep, 0, awakeMinutes)
		totalWithTolerance := clampRange(capPreSleep+global.DailyCapToleranceMinutes, 0, awakeMinutes)

		effectiveCap := maxInt(0, capWithSleep-blockedMinutes)
		effectiveTotal := maxInt(0, totalWithTolerance-blockedMinutes)
		effectiveTolerance := maxInt(0, effectiveTotal-effectiveCap)

		slots = append(slots, domain.Slot{
			SlotID:             "slot-" + domain.DayString(day),
			Date:               domain.DayString(day),
			CapMinutes:         effectiveCap,
			ToleranceMinutes:   effectiveTolerance,
			MaxMinutes:         effectiveCap + effectiveTolerance,
			SleepHours:         sleepHours,
			BlockedMinutes:     blockedMinutes,
			BlockedConstraints: blockedIDs,
			CapOverrideMinutes: capOverride,
		})
	}

	return slots
}

func constraintApplies(c domain.CalendarConstraint, day time.Time) bool {
	if c.Date != "" && c.Date == domain.DayString(day) {
		return true
	}
	return c.Weekday != "" && c.Weekday == domain.WeekdayKey(day)
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
