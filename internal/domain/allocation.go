package domain

import "fmt"

// Allocation assigns minutes of one subject (or explicit slack) to a slot.
type Allocation struct {
	SlotID          string `json:"slot_id"`
	Date            string `json:"date"`
	SubjectID       string `json:"subject_id"`
	Minutes         int    `json:"minutes"`
	Bucket          Bucket `json:"bucket"`
	LockedByUser    bool   `json:"locked_by_user,omitempty"`
	Pinned          bool   `json:"pinned,omitempty"`
	ManualSessionID string `json:"manual_session_id,omitempty"`
}

// NewAllocation builds a validated allocation record.
func NewAllocation(slotID, date, subjectID string, minutes int, bucket Bucket) (Allocation, error) {
	if minutes < 0 {
		return Allocation{}, fmt.Errorf("allocation minutes must be non-negative, got %d", minutes)
	}
	if _, err := ParseDay(date); err != nil {
		return Allocation{}, err
	}
	return Allocation{
		SlotID:    slotID,
		Date:      date,
		SubjectID: subjectID,
		Minutes:   minutes,
		Bucket:    bucket,
	}, nil
}

// IsSlack reports whether the record marks unused capacity.
func (a Allocation) IsSlack() bool {
	return a.SubjectID == SlackSubjectID || a.SubjectID == ""
}
