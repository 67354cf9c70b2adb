package scheduler

import (
	"fmt"
	"time"

	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/validation"
)

// ManualProgress aggregates what actually happened to a subject's manual
// sessions since the last plan.
type ManualProgress struct {
	EffectiveDoneMinutes int `json:"effective_done_minutes"`
	PlannedMinutes       int `json:"planned_minutes"`
	SkippedMinutes       int `json:"skipped_minutes"`
	SkippedSessions      int `json:"skipped_sessions"`
}

// SplitPreviousPlan partitions a previous plan at fromDate: allocations
// strictly before it are preserved, the rest are replannable. A nil fromDate
// makes everything replannable.
func SplitPreviousPlan(previous []domain.Allocation, fromDate *time.Time) (preserved, replannable []domain.Allocation) {
	if fromDate == nil {
		return nil, previous
	}
	for _, alloc := range previous {
		day, err := domain.ParseDay(alloc.Date)
		if err != nil || !day.Before(*fromDate) {
			replannable = append(replannable, alloc)
			continue
		}
		preserved = append(preserved, alloc)
	}
	return preserved, replannable
}

// ComputeManualProgress folds manual sessions into per-subject counters.
// Done sessions credit max(planned, actual); partial sessions credit
// min(planned, actual) floored at zero; skipped sessions credit nothing.
func ComputeManualProgress(sessions []domain.ManualSession) map[string]ManualProgress {
	progress := make(map[string]ManualProgress)
	for _, session := range sessions {
		if session.SubjectID == "" {
			continue
		}
		entry := progress[session.SubjectID]

		done := 0
		switch session.Status {
		case domain.SessionDone:
			done = maxInt(session.PlannedMinutes, session.ActualMinutesDone)
		case domain.SessionPartial:
			done = minInt(session.PlannedMinutes, maxInt(0, session.ActualMinutesDone))
		}

		entry.EffectiveDoneMinutes += done
		entry.PlannedMinutes += maxInt(0, session.PlannedMinutes)
		if session.Status == domain.SessionSkipped {
			entry.SkippedMinutes += maxInt(0, session.PlannedMinutes)
			entry.SkippedSessions++
		}
		progress[session.SubjectID] = entry
	}
	return progress
}

// ExtractLockedManualAllocations turns pinned or user-locked, non-skipped
// manual sessions on or after fromDate into immutable allocations.
func ExtractLockedManualAllocations(sessions []domain.ManualSession, fromDate *time.Time) []domain.Allocation {
	var locked []domain.Allocation
	for idx, session := range sessions {
		if session.Status == domain.SessionSkipped || !session.Locked() {
			continue
		}
		day, err := domain.ParseDay(session.Date)
		if err != nil {
			continue
		}
		if fromDate != nil && day.Before(*fromDate) {
			continue
		}

		sessionID := session.SessionID
		if sessionID == "" {
			sessionID = fmt.Sprintf("manual-%d", idx)
		}
		locked = append(locked, domain.Allocation{
			SlotID:          domain.ManualSlotPrefix + session.Date,
			Date:            session.Date,
			SubjectID:       session.SubjectID,
			Minutes:         session.PlannedMinutes,
			Bucket:          domain.BucketManualLocked,
			ManualSessionID: sessionID,
		})
	}
	return locked
}

// ApplyLockedConstraintsToSlots shrinks slot capacity by the locked manual
// minutes on each slot's day. Caps shrink before tolerance.
func ApplyLockedConstraintsToSlots(slots []domain.Slot, locked []domain.Allocation) []domain.Slot {
	lockedByDate := make(map[string]int)
	for _, alloc := range locked {
		lockedByDate[alloc.Date] += alloc.Minutes
	}

	out := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		lockedMinutes := maxInt(0, lockedByDate[slot.Date])
		maxMinutes := maxInt(0, slot.MaxMinutes-lockedMinutes)
		capMinutes := minInt(maxMinutes, slot.CapMinutes)

		adjusted := slot
		adjusted.CapMinutes = capMinutes
		adjusted.ToleranceMinutes = maxInt(0, maxMinutes-capMinutes)
		adjusted.MaxMinutes = maxMinutes
		adjusted.LockedMinutes = lockedMinutes
		out = append(out, adjusted)
	}
	return out
}

// ReallocationMetrics compare the replanned horizon against the previous one.
type ReallocationMetrics struct {
	ReallocatedRatio float64 `json:"reallocated_ratio"`
	StabilityScore   float64 `json:"stability_score"`
}

// ComputeReallocationMetrics counts (date, subject, minutes) entries shared
// between the previous and new horizon as unchanged; everything else in the
// previous horizon counts as reallocated.
func ComputeReallocationMetrics(previousHorizon, newHorizon []domain.Allocation) ReallocationMetrics {
	type entryKey struct {
		date    string
		subject string
		minutes int
	}
	count := func(allocations []domain.Allocation) map[entryKey]int {
		counter := make(map[entryKey]int, len(allocations))
		for _, alloc := range allocations {
			counter[entryKey{alloc.Date, alloc.SubjectID, alloc.Minutes}]++
		}
		return counter
	}

	oldCounter := count(previousHorizon)
	newCounter := count(newHorizon)

	unchanged := 0
	oldTotal := 0
	for key, oldCount := range oldCounter {
		oldTotal += oldCount
		unchanged += minInt(oldCount, newCounter[key])
	}

	if oldTotal <= 0 {
		return ReallocationMetrics{ReallocatedRatio: 0.0, StabilityScore: 1.0}
	}
	ratio := clampUnit(1.0 - float64(unchanged)/float64(oldTotal))
	return ReallocationMetrics{
		ReallocatedRatio: ratio,
		StabilityScore:   clampUnit(1.0 - ratio),
	}
}

// CriticalReplanCode marks a replan window where every manual session was
// skipped and no slot offers capacity to recover the lost minutes.
const CriticalReplanCode = "CRITICAL_ONLY_SKIPPED_AND_NO_NEW_SLOTS"

// BuildCriticalWarnings detects the unrecoverable replan scenario.
func BuildCriticalWarnings(sessions []domain.ManualSession, slotsInWindow []domain.Slot) []validation.Issue {
	if len(sessions) == 0 {
		return nil
	}
	for _, session := range sessions {
		if session.Status != domain.SessionSkipped {
			return nil
		}
	}
	for _, slot := range slotsInWindow {
		if slot.MaxMinutes > 0 {
			return nil
		}
	}
	return []validation.Issue{{
		Code:     CriticalReplanCode,
		Severity: validation.SeverityCritical,
		Message:  "Only skipped sessions and no new slot capacity available in the replan window.",
	}}
}
