package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
)

func TestBuildDailySlots_SleepPrecedence(t *testing.T) {
	global := config.DefaultGlobalConfig()
	global.SleepHoursPerDay = 8
	global.SleepOverridesByDate = map[string]float64{"2026-01-06": 6}
	global.SleepOverridesByWeekday = map[string]float64{"tue": 7}

	// 2026-01-06 and 2026-01-13 are Tuesdays.
	slots := BuildDailySlots(domain.MustDay("2026-01-06"), domain.MustDay("2026-01-13"), global, nil)
	require.Len(t, slots, 8)

	byDate := make(map[string]domain.Slot, len(slots))
	for _, slot := range slots {
		byDate[slot.Date] = slot
	}

	assert.Equal(t, 6.0, byDate["2026-01-06"].SleepHours, "date override wins")
	assert.Equal(t, 7.0, byDate["2026-01-13"].SleepHours, "weekday override wins")
	assert.Equal(t, 8.0, byDate["2026-01-07"].SleepHours, "global default")
}

func TestBuildDailySlots_CapOverrideMostRestrictiveWins(t *testing.T) {
	global := config.DefaultGlobalConfig()
	constraints := []domain.CalendarConstraint{
		{ConstraintID: "c1", Type: domain.ConstraintCapOverride, Date: "2026-01-05", CapOverrideMinutes: 120},
		{ConstraintID: "c2", Type: domain.ConstraintCapOverride, Date: "2026-01-05", CapOverrideMinutes: 60},
	}

	slots := BuildDailySlots(domain.MustDay("2026-01-05"), domain.MustDay("2026-01-05"), global, constraints)
	require.Len(t, slots, 1)

	slot := slots[0]
	assert.Equal(t, 60, slot.CapMinutes)
	assert.Equal(t, 30, slot.ToleranceMinutes)
	assert.Equal(t, 90, slot.MaxMinutes)
	require.NotNil(t, slot.CapOverrideMinutes)
	assert.Equal(t, 60, *slot.CapOverrideMinutes)
}

func TestBuildDailySlots_BlockedMinutesSubtract(t *testing.T) {
	global := config.DefaultGlobalConfig()
	constraints := []domain.CalendarConstraint{
		{ConstraintID: "dentist", Type: domain.ConstraintBlocked, Date: "2026-01-05", BlockedMinutes: 90},
	}

	slots := BuildDailySlots(domain.MustDay("2026-01-05"), domain.MustDay("2026-01-05"), global, constraints)
	require.Len(t, slots, 1)

	slot := slots[0]
	assert.Equal(t, 90, slot.CapMinutes)
	assert.Equal(t, 120, slot.MaxMinutes)
	assert.Equal(t, 90, slot.BlockedMinutes)
	assert.Equal(t, []string{"dentist"}, slot.BlockedConstraints)
}

func TestBuildDailySlots_FullyBlockedDayClampsToZero(t *testing.T) {
	global := config.DefaultGlobalConfig()
	constraints := []domain.CalendarConstraint{
		{ConstraintID: "trip", Type: domain.ConstraintBlocked, Weekday: "sat", BlockedMinutes: 600},
	}

	// 2026-01-10 is a Saturday.
	slots := BuildDailySlots(domain.MustDay("2026-01-10"), domain.MustDay("2026-01-10"), global, constraints)
	require.Len(t, slots, 1)

	assert.Zero(t, slots[0].CapMinutes)
	assert.Zero(t, slots[0].MaxMinutes)
	assert.Zero(t, slots[0].ToleranceMinutes)
}

func TestBuildDailySlots_SleepCeilingCapsCapacity(t *testing.T) {
	global := config.DefaultGlobalConfig()
	global.SleepHoursPerDay = 22 // 120 awake minutes

	slots := BuildDailySlots(domain.MustDay("2026-01-05"), domain.MustDay("2026-01-05"), global, nil)
	require.Len(t, slots, 1)

	assert.Equal(t, 120, slots[0].CapMinutes)
	assert.Equal(t, 120, slots[0].MaxMinutes)
	assert.Zero(t, slots[0].ToleranceMinutes)
}
