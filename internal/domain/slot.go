package domain

// Slot is the capacity envelope of one calendar day.
type Slot struct {
	SlotID             string   `json:"slot_id"`
	Date               string   `json:"date"`
	CapMinutes         int      `json:"cap_minutes"`
	ToleranceMinutes   int      `json:"tolerance_minutes"`
	MaxMinutes         int      `json:"max_minutes"`
	SleepHours         float64  `json:"sleep_hours"`
	BlockedMinutes     int      `json:"blocked_minutes"`
	BlockedConstraints []string `json:"blocked_constraints,omitempty"`
	CapOverrideMinutes *int     `json:"cap_override_minutes,omitempty"`
	LockedMinutes      int      `json:"locked_minutes,omitempty"`
}

// CalendarConstraint restricts capacity on matching days. A constraint applies
// when its date equals the day or its weekday key matches.
type CalendarConstraint struct {
	ConstraintID       string         `json:"constraint_id"`
	Type               ConstraintType `json:"type" validate:"omitempty,oneof=blocked cap_override"`
	Date               string         `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Weekday            string         `json:"weekday,omitempty" validate:"omitempty,oneof=mon tue wed thu fri sat sun"`
	BlockedMinutes     int            `json:"blocked_minutes,omitempty" validate:"gte=0"`
	CapOverrideMinutes int            `json:"cap_override_minutes,omitempty" validate:"gte=0"`
}
