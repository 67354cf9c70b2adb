package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/metrics"
	"github.com/J-ANet/prototipo/internal/scheduler"
	"github.com/J-ANet/prototipo/internal/trace"
	"github.com/J-ANet/prototipo/internal/validation"
)

const SchemaVersion = "1.0.0"

// Envelope is the top-level CLI output, either a plan or an error.
type Envelope struct {
	Status           string             `json:"status"`
	Error            *ErrorDetail       `json:"error,omitempty"`
	PlanOutput       *PlanOutput        `json:"plan_output,omitempty"`
	ValidationReport *validation.Report `json:"validation_report,omitempty"`
}

// ErrorDetail carries every blocking issue of a failed run.
type ErrorDetail struct {
	Code    string        `json:"code"`
	Count   int           `json:"count"`
	Details []ErrorRecord `json:"details"`
}

type ErrorRecord struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// PlanOutput is the full successful payload.
type PlanOutput struct {
	SchemaVersion    string                              `json:"schema_version"`
	PlanID           string                              `json:"plan_id"`
	GeneratedAt      string                              `json:"generated_at"`
	PlanSummary      []PlanSummaryEntry                  `json:"plan_summary"`
	DailyPlan        []DailyPlanDay                      `json:"daily_plan"`
	Metrics          metrics.PlanMetrics                 `json:"metrics"`
	Reallocation     *scheduler.ReallocationMetrics      `json:"reallocation,omitempty"`
	Warnings         []Warning                           `json:"warnings"`
	Suggestions      []Suggestion                        `json:"suggestions"`
	DecisionTrace    []trace.Entry                       `json:"decision_trace"`
	EffectiveConfig  *config.EffectiveConfig             `json:"effective_config,omitempty"`
	ManualProgress   map[string]scheduler.ManualProgress `json:"manual_progress,omitempty"`
	ValidationReport *validation.Report                  `json:"validation_report"`
}

// PlanSummaryEntry aggregates one subject's plan outcome.
type PlanSummaryEntry struct {
	SubjectID              string `json:"subject_id"`
	TargetMinutes          int    `json:"target_minutes"`
	PlannedBaseMinutes     int    `json:"planned_base_minutes"`
	PlannedBufferMinutes   int    `json:"planned_buffer_minutes"`
	RemainingBaseMinutes   int    `json:"remaining_base_minutes"`
	RemainingBufferMinutes int    `json:"remaining_buffer_minutes"`
}

// DailyPlanDay groups the allocations of one calendar day.
type DailyPlanDay struct {
	Date         string      `json:"date"`
	Entries      []PlanEntry `json:"entries"`
	TotalMinutes int         `json:"total_minutes"`
	SlackMinutes int         `json:"slack_minutes"`
}

type PlanEntry struct {
	SlotID    string        `json:"slot_id"`
	SubjectID string        `json:"subject_id"`
	Minutes   int           `json:"minutes"`
	Bucket    domain.Bucket `json:"bucket"`
}

// SuccessInput gathers everything a successful envelope is built from.
type SuccessInput struct {
	Allocations            []domain.Allocation
	WorkloadBySubject      map[string]scheduler.Workload
	RemainingBaseMinutes   map[string]int
	RemainingBufferMinutes map[string]int
	Metrics                metrics.PlanMetrics
	Reallocation           *scheduler.ReallocationMetrics
	Warnings               []Warning
	Suggestions            []Suggestion
	DecisionTrace          []trace.Entry
	EffectiveConfig        *config.EffectiveConfig
	ManualProgress         map[string]scheduler.ManualProgress
	ValidationReport       *validation.Report
	GeneratedAt            time.Time
}

// BuildSuccess assembles the success envelope. GeneratedAt defaults to the
// current UTC instant when unset.
func BuildSuccess(input SuccessInput) Envelope {
	generatedAt := input.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	output := &PlanOutput{
		SchemaVersion:    SchemaVersion,
		PlanID:           "plan-" + uuid.NewString(),
		GeneratedAt:      generatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		PlanSummary:      buildPlanSummary(input),
		DailyPlan:        buildDailyPlan(input.Allocations),
		Metrics:          input.Metrics,
		Reallocation:     input.Reallocation,
		Warnings:         emptyIfNilWarnings(input.Warnings),
		Suggestions:      emptyIfNilSuggestions(input.Suggestions),
		DecisionTrace:    input.DecisionTrace,
		EffectiveConfig:  input.EffectiveConfig,
		ManualProgress:   input.ManualProgress,
		ValidationReport: input.ValidationReport,
	}
	return Envelope{Status: "ok", PlanOutput: output}
}

// BuildError assembles a failed-run envelope from blocking issues.
func BuildError(code string, issues []validation.Issue, report *validation.Report) Envelope {
	details := make([]ErrorRecord, 0, len(issues))
	for _, issue := range issues {
		details = append(details, ErrorRecord{
			Code:    issue.Code,
			Message: issue.Message,
			Path:    issue.FieldPath,
		})
	}
	return Envelope{
		Status: "error",
		Error: &ErrorDetail{
			Code:    code,
			Count:   len(details),
			Details: details,
		},
		ValidationReport: report,
	}
}

func buildPlanSummary(input SuccessInput) []PlanSummaryEntry {
	plannedBase := make(map[string]int)
	plannedBuffer := make(map[string]int)
	for _, alloc := range input.Allocations {
		switch alloc.Bucket {
		case domain.BucketBase:
			plannedBase[alloc.SubjectID] += alloc.Minutes
		case domain.BucketBuffer:
			plannedBuffer[alloc.SubjectID] += alloc.Minutes
		}
	}

	ids := make([]string, 0, len(input.WorkloadBySubject))
	for sid := range input.WorkloadBySubject {
		ids = append(ids, sid)
	}
	sort.Strings(ids)

	summary := make([]PlanSummaryEntry, 0, len(ids))
	for _, sid := range ids {
		summary = append(summary, PlanSummaryEntry{
			SubjectID:              sid,
			TargetMinutes:          input.WorkloadBySubject[sid].TargetMinutes(),
			PlannedBaseMinutes:     plannedBase[sid],
			PlannedBufferMinutes:   plannedBuffer[sid],
			RemainingBaseMinutes:   input.RemainingBaseMinutes[sid],
			RemainingBufferMinutes: input.RemainingBufferMinutes[sid],
		})
	}
	return summary
}

func buildDailyPlan(allocations []domain.Allocation) []DailyPlanDay {
	byDate := make(map[string][]PlanEntry)
	for _, alloc := range allocations {
		byDate[alloc.Date] = append(byDate[alloc.Date], PlanEntry{
			SlotID:    alloc.SlotID,
			SubjectID: alloc.SubjectID,
			Minutes:   alloc.Minutes,
			Bucket:    alloc.Bucket,
		})
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]DailyPlanDay, 0, len(dates))
	for _, date := range dates {
		entries := byDate[date]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].SlotID != entries[j].SlotID {
				return entries[i].SlotID < entries[j].SlotID
			}
			return entries[i].SubjectID < entries[j].SubjectID
		})
		day := DailyPlanDay{Date: date, Entries: entries}
		for _, entry := range entries {
			if entry.SubjectID == domain.SlackSubjectID {
				day.SlackMinutes += entry.Minutes
				continue
			}
			day.TotalMinutes += entry.Minutes
		}
		days = append(days, day)
	}
	return days
}

func emptyIfNilWarnings(warnings []Warning) []Warning {
	if warnings == nil {
		return []Warning{}
	}
	return warnings
}

func emptyIfNilSuggestions(suggestions []Suggestion) []Suggestion {
	if suggestions == nil {
		return []Suggestion{}
	}
	return suggestions
}
