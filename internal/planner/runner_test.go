package planner

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRunner() *Runner {
	runner := NewRunner(nil)
	runner.Now = func() time.Time {
		return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	}
	return runner
}

func writeRequestFixture(t *testing.T, subjectsJSON string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "global.json", `{
		"daily_cap_minutes": 120,
		"daily_cap_tolerance_minutes": 0,
		"session_duration_minutes": 60,
		"subject_buffer_percent": 0.10
	}`)
	writeFile(t, dir, "subjects.json", subjectsJSON)
	writeFile(t, dir, "calendar.json", `{"calendar_constraints": []}`)
	writeFile(t, dir, "sessions.json", `{"manual_sessions": []}`)
	return writeFile(t, dir, "request.json", `{
		"global_config_path": "global.json",
		"subjects_path": "subjects.json",
		"calendar_constraints_path": "calendar.json",
		"manual_sessions_path": "sessions.json"
	}`)
}

func TestRunner_SuccessfulPlan(t *testing.T) {
	requestPath := writeRequestFixture(t, `{"subjects": [
		{"subject_id": "math", "cfu": 2, "exam_dates": ["2026-01-20"], "selected_exam_date": "2026-01-20"},
		{"subject_id": "physics", "cfu": 2, "exam_dates": ["2026-01-25"], "selected_exam_date": "2026-01-25"}
	]}`)

	envelope, code := fixedRunner().Run(requestPath)

	require.Equal(t, ExitOK, code)
	require.Equal(t, "ok", envelope.Status)
	require.NotNil(t, envelope.PlanOutput)

	output := envelope.PlanOutput
	assert.Equal(t, "2026-01-01T08:00:00Z", output.GeneratedAt)
	require.Len(t, output.PlanSummary, 2)
	assert.Equal(t, "math", output.PlanSummary[0].SubjectID)
	assert.NotEmpty(t, output.DailyPlan)
	assert.NotEmpty(t, output.DecisionTrace)
	assert.Greater(t, output.Metrics.TotalStudyMinutes, 0)
	assert.Nil(t, output.Reallocation)

	// the horizon spans today through the latest exam
	first := output.DailyPlan[0]
	last := output.DailyPlan[len(output.DailyPlan)-1]
	assert.GreaterOrEqual(t, first.Date, "2026-01-01")
	assert.LessOrEqual(t, last.Date, "2026-01-25")
}

func TestRunner_Deterministic(t *testing.T) {
	requestPath := writeRequestFixture(t, `{"subjects": [
		{"subject_id": "math", "cfu": 2, "exam_dates": ["2026-01-20"], "selected_exam_date": "2026-01-20"}
	]}`)

	first, _ := fixedRunner().Run(requestPath)
	second, _ := fixedRunner().Run(requestPath)

	require.NotNil(t, first.PlanOutput)
	require.NotNil(t, second.PlanOutput)
	assert.Equal(t, first.PlanOutput.DailyPlan, second.PlanOutput.DailyPlan)
	assert.Equal(t, first.PlanOutput.DecisionTrace, second.PlanOutput.DecisionTrace)
	assert.NotEqual(t, first.PlanOutput.PlanID, second.PlanOutput.PlanID)
}

func TestRunner_YAMLGlobalConfigWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "global.yaml", "daily_cap_minutes: 240\nsession_duration_minutes: 60\n")
	writeFile(t, dir, "subjects.json", `{"subjects": [
		{"subject_id": "math", "cfu": 2, "exam_dates": ["2026-01-10"], "selected_exam_date": "2026-01-10"}
	]}`)
	writeFile(t, dir, "calendar.json", `{"calendar_constraints": []}`)
	writeFile(t, dir, "sessions.json", `{"manual_sessions": []}`)
	requestPath := writeFile(t, dir, "request.json", `{
		"global_config_path": "global.yaml",
		"subjects_path": "subjects.json",
		"calendar_constraints_path": "calendar.json",
		"manual_sessions_path": "sessions.json"
	}`)

	t.Setenv("PLANNER_DAILY_CAP_MINUTES", "60")
	t.Setenv("PLANNER_DAILY_CAP_TOLERANCE_MINUTES", "0")

	envelope, code := fixedRunner().Run(requestPath)

	require.Equal(t, ExitOK, code)
	require.NotNil(t, envelope.PlanOutput)

	// the environment wins over the YAML file: 60-minute days, no tolerance
	for _, day := range envelope.PlanOutput.DailyPlan {
		assert.LessOrEqual(t, day.TotalMinutes, 60, "day %s", day.Date)
	}
}

func TestRunner_UnsupportedConfigFormatIsLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "global.toml", `daily_cap_minutes = 240`)
	writeFile(t, dir, "subjects.json", `{"subjects": []}`)
	writeFile(t, dir, "calendar.json", `{}`)
	writeFile(t, dir, "sessions.json", `{}`)
	requestPath := writeFile(t, dir, "request.json", `{
		"global_config_path": "global.toml",
		"subjects_path": "subjects.json",
		"calendar_constraints_path": "calendar.json",
		"manual_sessions_path": "sessions.json"
	}`)

	envelope, code := fixedRunner().Run(requestPath)

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "input_load_error", envelope.Error.Code)
}

func TestRunner_RequestFileMissing(t *testing.T) {
	envelope, code := fixedRunner().Run(filepath.Join(t.TempDir(), "absent.json"))

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "request_read_error", envelope.Error.Code)
}

func TestRunner_RequestRootNotObject(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "request.json", `[]`)

	envelope, code := fixedRunner().Run(path)

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "request_read_error", envelope.Error.Code)
}

func TestRunner_MissingPathField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "request.json", `{"global_config_path": "global.json"}`)

	envelope, code := fixedRunner().Run(path)

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "validation_error", envelope.Error.Code)
	assert.Equal(t, 3, envelope.Error.Count)
	assert.Equal(t, "missing_field", envelope.Error.Details[0].Code)
}

func TestRunner_ReferencedFileMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "global.json", `{}`)
	writeFile(t, dir, "calendar.json", `{}`)
	writeFile(t, dir, "sessions.json", `{}`)
	path := writeFile(t, dir, "request.json", `{
		"global_config_path": "global.json",
		"subjects_path": "nowhere.json",
		"calendar_constraints_path": "calendar.json",
		"manual_sessions_path": "sessions.json"
	}`)

	envelope, code := fixedRunner().Run(path)

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "input_load_error", envelope.Error.Code)
	require.Len(t, envelope.Error.Details, 1)
	assert.Equal(t, "file_not_found", envelope.Error.Details[0].Code)
}

func TestRunner_DomainValidationBlocksPlanning(t *testing.T) {
	requestPath := writeRequestFixture(t, `{"subjects": [
		{"subject_id": "math", "cfu": 2},
		{"subject_id": "math", "cfu": 3}
	]}`)

	envelope, code := fixedRunner().Run(requestPath)

	assert.Equal(t, ExitError, code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "validation_error", envelope.Error.Code)
	assert.Equal(t, "DUPLICATE_SUBJECT_ID", envelope.Error.Details[0].Code)
	assert.Nil(t, envelope.PlanOutput)
}

func TestRunner_ReplanPreservesPastAndReportsStability(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "global.json", `{"daily_cap_minutes": 120, "daily_cap_tolerance_minutes": 0, "session_duration_minutes": 60}`)
	writeFile(t, dir, "subjects.json", `{"subjects": [
		{"subject_id": "math", "cfu": 2, "exam_dates": ["2026-01-20"], "selected_exam_date": "2026-01-20"}
	]}`)
	writeFile(t, dir, "calendar.json", `{"calendar_constraints": []}`)
	writeFile(t, dir, "sessions.json", `{"manual_sessions": [
		{"session_id": "s1", "subject_id": "math", "date": "2026-01-02", "planned_minutes": 60, "actual_minutes_done": 60, "status": "done"}
	]}`)
	writeFile(t, dir, "previous.json", `{"allocations": [
		{"slot_id": "slot-2026-01-01", "date": "2026-01-01", "subject_id": "math", "minutes": 60, "bucket": "base"},
		{"slot_id": "slot-2026-01-05", "date": "2026-01-05", "subject_id": "math", "minutes": 60, "bucket": "base"}
	]}`)
	requestPath := writeFile(t, dir, "request.json", `{
		"global_config_path": "global.json",
		"subjects_path": "subjects.json",
		"calendar_constraints_path": "calendar.json",
		"manual_sessions_path": "sessions.json",
		"replan_context": {"from_date": "2026-01-03", "previous_plan_path": "previous.json"}
	}`)

	envelope, code := fixedRunner().Run(requestPath)

	require.Equal(t, ExitOK, code)
	output := envelope.PlanOutput
	require.NotNil(t, output)

	require.NotNil(t, output.Reallocation)
	assert.GreaterOrEqual(t, output.Reallocation.StabilityScore, 0.0)

	require.Contains(t, output.ManualProgress, "math")
	assert.Equal(t, 60, output.ManualProgress["math"].EffectiveDoneMinutes)

	// the allocation before from_date survives untouched
	require.NotEmpty(t, output.DailyPlan)
	assert.Equal(t, "2026-01-01", output.DailyPlan[0].Date)
	require.NotEmpty(t, output.DailyPlan[0].Entries)
	assert.Equal(t, "slot-2026-01-01", output.DailyPlan[0].Entries[0].SlotID)

	// no replanned work lands before the cutoff
	for _, day := range output.DailyPlan[1:] {
		assert.GreaterOrEqual(t, day.Date, "2026-01-03")
	}
}

func TestRunner_NilLoggerIsSafe(t *testing.T) {
	runner := NewRunner(nil)
	require.NotNil(t, runner.Log)

	envelope, code := runner.Run(filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, ExitError, code)
	assert.Equal(t, "error", envelope.Status)
}
