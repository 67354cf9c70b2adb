package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-ANet/prototipo/internal/domain"
)

func issueCodes(issues []Issue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}

func TestValidateDomain_DuplicateSubjectID(t *testing.T) {
	report := ValidateDomain(DomainInputs{Subjects: []domain.Subject{
		{SubjectID: "math"},
		{SubjectID: "math"},
	}})

	require.True(t, report.HasErrors())
	assert.Contains(t, issueCodes(report.Errors), "DUPLICATE_SUBJECT_ID")
	assert.Equal(t, "$.subjects.subjects[1].subject_id", report.Errors[0].FieldPath)
}

func TestValidateDomain_SelectedExamMustBeListed(t *testing.T) {
	report := ValidateDomain(DomainInputs{Subjects: []domain.Subject{{
		SubjectID:        "math",
		ExamDates:        []string{"2026-02-01"},
		SelectedExamDate: "2026-03-01",
	}}})

	assert.Contains(t, issueCodes(report.Errors), "INVALID_SELECTED_EXAM_DATE")
}

func TestValidateDomain_InvertedWindow(t *testing.T) {
	report := ValidateDomain(DomainInputs{Subjects: []domain.Subject{{
		SubjectID: "math",
		StartAt:   "2026-02-01",
		EndBy:     "2026-01-01",
	}}})

	require.True(t, report.HasErrors())
	assert.Equal(t, "INVALID_DATE_WINDOW", report.Errors[0].Code)
	assert.NotEmpty(t, report.Errors[0].SuggestedFix)
}

func TestValidateDomain_PomodoroBounds(t *testing.T) {
	report := ValidateDomain(DomainInputs{GlobalConfig: map[string]any{
		"pomodoro_work_minutes":     float64(10),
		"pomodoro_long_break_every": float64(1),
	}})

	codes := issueCodes(report.Errors)
	require.Len(t, codes, 2)
	assert.Equal(t, []string{"INVALID_POMODORO_CONFIG", "INVALID_POMODORO_CONFIG"}, codes)
}

func TestValidateDomain_DisabledPomodoroSilencesBounds(t *testing.T) {
	report := ValidateDomain(DomainInputs{GlobalConfig: map[string]any{
		"pomodoro_enabled":      false,
		"pomodoro_work_minutes": float64(5),
	}})

	assert.False(t, report.HasErrors())
}

func TestValidateDomain_UnknownSubjectReference(t *testing.T) {
	report := ValidateDomain(DomainInputs{
		Subjects:       []domain.Subject{{SubjectID: "math"}},
		ManualSessions: []domain.ManualSession{{SubjectID: "chemistry"}},
	})

	assert.Contains(t, issueCodes(report.Errors), "UNKNOWN_SUBJECT_REFERENCE")
}

func TestValidateDomain_StatusMinutesCombinations(t *testing.T) {
	cases := []struct {
		name    string
		session domain.ManualSession
		valid   bool
	}{
		{"skipped with minutes", domain.ManualSession{SubjectID: "math", Status: domain.SessionSkipped, ActualMinutesDone: 10}, false},
		{"skipped clean", domain.ManualSession{SubjectID: "math", Status: domain.SessionSkipped}, true},
		{"done under planned", domain.ManualSession{SubjectID: "math", Status: domain.SessionDone, PlannedMinutes: 60, ActualMinutesDone: 30}, false},
		{"done over planned", domain.ManualSession{SubjectID: "math", Status: domain.SessionDone, PlannedMinutes: 60, ActualMinutesDone: 70}, true},
		{"partial at planned", domain.ManualSession{SubjectID: "math", Status: domain.SessionPartial, PlannedMinutes: 60, ActualMinutesDone: 60}, false},
		{"partial zero", domain.ManualSession{SubjectID: "math", Status: domain.SessionPartial, PlannedMinutes: 60}, false},
		{"partial in range", domain.ManualSession{SubjectID: "math", Status: domain.SessionPartial, PlannedMinutes: 60, ActualMinutesDone: 30}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := ValidateDomain(DomainInputs{
				Subjects:       []domain.Subject{{SubjectID: "math"}},
				ManualSessions: []domain.ManualSession{tc.session},
			})
			if tc.valid {
				assert.False(t, report.HasErrors())
			} else {
				require.True(t, report.HasErrors())
				assert.Equal(t, "INVALID_STATUS_MINUTES_COMBINATION", report.Errors[0].Code)
			}
		})
	}
}
