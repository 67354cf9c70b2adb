package validation

import (
	"fmt"

	"github.com/J-ANet/prototipo/internal/domain"
)

// DomainInputs is the cross-file view the domain validator inspects.
type DomainInputs struct {
	GlobalConfig   map[string]any
	Subjects       []domain.Subject
	ManualSessions []domain.ManualSession
}

// ValidateDomain applies the cross-file coherence rules that the structural
// pass cannot express: identifier uniqueness, date windows, exam references,
// manual session status arithmetic and pomodoro bounds.
func ValidateDomain(inputs DomainInputs) *Report {
	report := NewReport()

	validatePomodoro(inputs.GlobalConfig, "$.global_config", report)

	seen := make(map[string]struct{}, len(inputs.Subjects))
	for idx, subject := range inputs.Subjects {
		path := fmt.Sprintf("$.subjects.subjects[%d]", idx)

		if subject.SubjectID != "" {
			if _, dup := seen[subject.SubjectID]; dup {
				report.AddError("DUPLICATE_SUBJECT_ID",
					fmt.Sprintf("Duplicate subject_id: %s", subject.SubjectID),
					path+".subject_id")
			}
			seen[subject.SubjectID] = struct{}{}
		}

		if subject.SelectedExamDate != "" && !containsString(subject.ExamDates, subject.SelectedExamDate) {
			report.AddError("INVALID_SELECTED_EXAM_DATE",
				"selected_exam_date must exist in exam_dates",
				path+".selected_exam_date")
		}

		if subject.StartAt != "" && subject.EndBy != "" {
			start, errStart := domain.ParseDay(subject.StartAt)
			end, errEnd := domain.ParseDay(subject.EndBy)
			if errStart == nil && errEnd == nil && start.After(end) {
				issue := report.AddError("INVALID_DATE_WINDOW", "start_at must be <= end_by", path)
				issue.SuggestedFix = "Swap the dates or adjust the study window."
			}
		}

		if len(subject.Overrides) > 0 {
			validatePomodoro(subject.Overrides, path+".overrides", report)
		}
	}

	for idx, session := range inputs.ManualSessions {
		path := fmt.Sprintf("$.manual_sessions.manual_sessions[%d]", idx)

		if session.SubjectID != "" {
			if _, known := seen[session.SubjectID]; !known {
				report.AddError("UNKNOWN_SUBJECT_REFERENCE",
					fmt.Sprintf("Unknown subject_id reference: %s", session.SubjectID),
					path+".subject_id")
			}
		}

		validateSessionStatus(session, path, report)
	}

	return report
}

// validatePomodoro checks pomodoro bounds on any source carrying the keys:
// the global config map or a subject override map. A disabled pomodoro
// silences all checks.
func validatePomodoro(source map[string]any, path string, report *Report) {
	if source == nil {
		return
	}
	if enabled, ok := source["pomodoro_enabled"].(bool); ok && !enabled {
		return
	}

	check := func(key string, minimum int, message string) {
		value, ok := intFromAny(source[key])
		if ok && value < minimum {
			report.AddError("INVALID_POMODORO_CONFIG", message, path+"."+key)
		}
	}
	check("pomodoro_work_minutes", 15, "pomodoro_work_minutes must be >= 15")
	check("pomodoro_short_break_minutes", 0, "pomodoro_short_break_minutes must be >= 0")
	check("pomodoro_long_break_minutes", 0, "pomodoro_long_break_minutes must be >= 0")
	check("pomodoro_long_break_every", 2, "pomodoro_long_break_every must be >= 2")
}

func validateSessionStatus(session domain.ManualSession, path string, report *Report) {
	switch session.Status {
	case domain.SessionSkipped:
		if session.ActualMinutesDone != 0 {
			report.AddError("INVALID_STATUS_MINUTES_COMBINATION",
				"Skipped sessions must have actual_minutes_done = 0",
				path+".actual_minutes_done")
		}
	case domain.SessionDone:
		if session.ActualMinutesDone < session.PlannedMinutes {
			report.AddError("INVALID_STATUS_MINUTES_COMBINATION",
				"Done sessions require actual_minutes_done >= planned_minutes",
				path+".actual_minutes_done")
		}
	case domain.SessionPartial:
		if session.ActualMinutesDone <= 0 || session.ActualMinutesDone >= session.PlannedMinutes {
			report.AddError("INVALID_STATUS_MINUTES_COMBINATION",
				"Partial sessions require 0 < actual_minutes_done < planned_minutes",
				path+".actual_minutes_done")
		}
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func intFromAny(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}
