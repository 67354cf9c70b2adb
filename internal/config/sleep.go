package config

import (
	"time"

	"github.com/J-ANet/prototipo/internal/domain"
)

// ResolveSleepHours resolves the sleep hours for a day.
// Precedence: by-date override > by-weekday override > global default.
func (g GlobalConfig) ResolveSleepHours(day time.Time) float64 {
	if hours, ok := g.SleepOverridesByDate[domain.DayString(day)]; ok {
		return hours
	}
	if hours, ok := g.SleepOverridesByWeekday[domain.WeekdayKey(day)]; ok {
		return hours
	}
	return g.SleepHoursPerDay
}
