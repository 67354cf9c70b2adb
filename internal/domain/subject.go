package domain

import (
	"sort"
	"time"
)

// Subject is one academic subject competing for study time.
type Subject struct {
	SubjectID             string         `json:"subject_id" validate:"required"`
	Name                  string         `json:"name,omitempty"`
	CFU                   float64        `json:"cfu" validate:"gte=0"`
	DifficultyCoeff       *float64       `json:"difficulty_coeff,omitempty" validate:"omitempty,gte=0"`
	Priority              int            `json:"priority,omitempty"`
	CompletionInitial     float64        `json:"completion_initial,omitempty" validate:"gte=0,lte=1"`
	Attending             bool           `json:"attending,omitempty"`
	AttendanceHoursPerCFU *float64       `json:"attendance_hours_per_cfu,omitempty"`
	ExamDates             []string       `json:"exam_dates,omitempty" validate:"dive,datetime=2006-01-02"`
	SelectedExamDate      string         `json:"selected_exam_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartAt               string         `json:"start_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndBy                 string         `json:"end_by,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Overrides             map[string]any `json:"overrides,omitempty"`
}

// EffectiveDifficulty returns the difficulty coefficient with its documented
// default of 1 when unset. An explicit 0 is kept: it zeroes the subject's
// workload rather than falling back to the default.
func (s Subject) EffectiveDifficulty() float64 {
	if s.DifficultyCoeff == nil {
		return 1.0
	}
	if *s.DifficultyCoeff < 0 {
		return 1.0
	}
	return *s.DifficultyCoeff
}

// SortedExamDays returns the subject's parseable exam dates in ascending
// order. Unparseable entries are skipped.
func (s Subject) SortedExamDays() []time.Time {
	var days []time.Time
	for _, raw := range s.ExamDates {
		if day, err := ParseDay(raw); err == nil {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// ExamDay resolves the date the subject is studied toward: the selected exam
// date when present, else the earliest exam date, else the far-future
// sentinel.
func (s Subject) ExamDay() time.Time {
	if s.SelectedExamDate != "" {
		if day, err := ParseDay(s.SelectedExamDate); err == nil {
			return day
		}
	}
	if days := s.SortedExamDays(); len(days) > 0 {
		return days[0]
	}
	return MustDay("9999-12-31")
}

// NearestExamDay returns the earliest exam date, falling back to the selected
// date when the list is empty, or nil when the subject has no exam at all.
func (s Subject) NearestExamDay() *time.Time {
	if days := s.SortedExamDays(); len(days) > 0 {
		return &days[0]
	}
	if s.SelectedExamDate != "" {
		if day, err := ParseDay(s.SelectedExamDate); err == nil {
			return &day
		}
	}
	return nil
}

// Window returns the subject's study window bounds; either side may be nil.
// EndBy is tightened to the earliest exam date when one exists.
type SubjectWindow struct {
	StartAt *time.Time
	EndBy   *time.Time
	ExamDay *time.Time
}

func (s Subject) Window() SubjectWindow {
	var w SubjectWindow
	if s.StartAt != "" {
		if day, err := ParseDay(s.StartAt); err == nil {
			w.StartAt = &day
		}
	}
	if s.EndBy != "" {
		if day, err := ParseDay(s.EndBy); err == nil {
			w.EndBy = &day
		}
	}
	w.ExamDay = s.NearestExamDay()
	if w.ExamDay != nil && (w.EndBy == nil || w.ExamDay.Before(*w.EndBy)) {
		tightened := *w.ExamDay
		w.EndBy = &tightened
	}
	return w
}
