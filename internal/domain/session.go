package domain

// ManualSession is a study session the user scheduled or logged by hand.
type ManualSession struct {
	SessionID         string        `json:"session_id,omitempty"`
	SubjectID         string        `json:"subject_id" validate:"required"`
	Date              string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PlannedMinutes    int           `json:"planned_minutes,omitempty" validate:"gte=0"`
	ActualMinutesDone int           `json:"actual_minutes_done,omitempty" validate:"gte=0"`
	Status            SessionStatus `json:"status,omitempty" validate:"omitempty,oneof=done partial skipped"`
	LockedByUser      bool          `json:"locked_by_user,omitempty"`
	Pinned            bool          `json:"pinned,omitempty"`
}

// Locked reports whether the session must not be reallocated.
func (m ManualSession) Locked() bool {
	return m.LockedByUser || m.Pinned
}
