// Package scheduler implements the allocation engine: workload and slot
// derivation, candidate scoring, the three-phase greedy allocator, the
// humanity-improving rebalancer, and replan utilities. Everything here is
// deterministic and side-effect free; infeasibility surfaces as data, never
// as errors.
package scheduler

import (
	"math"

	"github.com/J-ANet/prototipo/internal/domain"
)

// HoursPerCFU converts credit units to theoretical study hours.
const HoursPerCFU = 25.0

// Workload is the derived study demand of one subject.
type Workload struct {
	HoursTheoretical        float64 `json:"hours_theoretical"`
	AttendanceDiscountHours float64 `json:"attendance_discount_hours"`
	PrepGapCoeff            float64 `json:"prep_gap_coeff"`
	HoursBase               float64 `json:"hours_base"`
	HoursBuffer             float64 `json:"hours_buffer"`
	HoursTarget             float64 `json:"hours_target"`
}

// BaseMinutes returns the base demand in whole minutes.
func (w Workload) BaseMinutes() int {
	return positiveMinutes(w.HoursBase)
}

// BufferMinutes returns the buffer demand in whole minutes.
func (w Workload) BufferMinutes() int {
	return positiveMinutes(w.HoursBuffer)
}

// TargetMinutes returns base plus buffer in whole minutes.
func (w Workload) TargetMinutes() int {
	return positiveMinutes(w.HoursTarget)
}

func positiveMinutes(hours float64) int {
	minutes := int(math.Round(hours * 60))
	if minutes < 0 {
		return 0
	}
	return minutes
}

// ComputeWorkload applies the official workload formulas with attendance
// correction:
//
//	hours_theoretical = cfu * 25
//	hours_base        = max(0, (hours_theoretical - attendance_discount) * difficulty * (2 - completion_initial))
//	hours_buffer      = hours_base * subject_buffer_percent
//
// attendedCalendarHours, when non-nil, replaces the per-CFU attendance
// estimate with externally measured hours. The function is total: any numeric
// input yields a valid, non-negative workload.
func ComputeWorkload(subject domain.Subject, subjectBufferPercent float64, attendanceHoursPerCFU float64, attendedCalendarHours *float64) Workload {
	cfu := math.Max(0, subject.CFU)
	difficulty := subject.EffectiveDifficulty()
	completion := clampUnit(subject.CompletionInitial)

	hoursTheoretical := cfu * HoursPerCFU

	var discount float64
	if subject.Attending {
		if attendedCalendarHours != nil {
			discount = math.Max(0, *attendedCalendarHours)
		} else {
			perCFU := attendanceHoursPerCFU
			if subject.AttendanceHoursPerCFU != nil {
				perCFU = *subject.AttendanceHoursPerCFU
			}
			discount = math.Max(0, cfu*perCFU)
		}
	}

	prepGap := 1.0 + (1.0 - completion)
	hoursBase := math.Max(0, (hoursTheoretical-discount)*difficulty*prepGap)
	hoursBuffer := math.Max(0, hoursBase*subjectBufferPercent)

	return Workload{
		HoursTheoretical:        hoursTheoretical,
		AttendanceDiscountHours: discount,
		PrepGapCoeff:            prepGap,
		HoursBase:               hoursBase,
		HoursBuffer:             hoursBuffer,
		HoursTarget:             hoursBase + hoursBuffer,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
