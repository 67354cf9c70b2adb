package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/J-ANet/prototipo/internal/metrics"
	"github.com/J-ANet/prototipo/internal/report"
	"github.com/J-ANet/prototipo/internal/scheduler"
	"github.com/J-ANet/prototipo/internal/validation"
)

func TestFormatEnvelope_SuccessIncludesSummaryAndMetrics(t *testing.T) {
	envelope := report.Envelope{
		Status: "ok",
		PlanOutput: &report.PlanOutput{
			PlanSummary: []report.PlanSummaryEntry{
				{
					SubjectID:            "math",
					TargetMinutes:        300,
					PlannedBaseMinutes:   240,
					PlannedBufferMinutes: 30,
					RemainingBaseMinutes: 30,
				},
			},
			Metrics: metrics.PlanMetrics{
				StudyDays:         4,
				TotalStudyMinutes: 270,
				ConfidenceScore:   0.82,
				ConfidenceLevel:   metrics.ConfidenceHigh,
			},
			Warnings: []report.Warning{
				{Code: "PLAN_TOO_MONOTONOUS", Severity: "warning", Message: "Plan repeats the same subject"},
			},
			Suggestions: []report.Suggestion{
				{Message: "Increase subject variety"},
			},
		},
	}

	out := FormatEnvelope(envelope)
	assert.Contains(t, out, "PLAN SUMMARY")
	assert.Contains(t, out, "math")
	assert.Contains(t, out, "300")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "PLAN_TOO_MONOTONOUS")
	assert.Contains(t, out, "Plan repeats the same subject")
	assert.Contains(t, out, "Increase subject variety")
}

func TestFormatEnvelope_ErrorListsDetails(t *testing.T) {
	envelope := report.Envelope{
		Status: "error",
		Error: &report.ErrorDetail{
			Code:  "validation_error",
			Count: 1,
			Details: []report.ErrorRecord{
				{Code: "DUPLICATE_SUBJECT_ID", Message: "Duplicate subject_id: math", Path: "$.subjects.subjects[1].subject_id"},
			},
		},
	}

	out := FormatEnvelope(envelope)
	assert.Contains(t, out, "PLAN FAILED")
	assert.Contains(t, out, "validation_error")
	assert.Contains(t, out, "DUPLICATE_SUBJECT_ID")
	assert.Contains(t, out, "$.subjects.subjects[1].subject_id")
}

func TestFormatEnvelope_StabilityLineOnlyOnReplan(t *testing.T) {
	base := report.Envelope{Status: "ok", PlanOutput: &report.PlanOutput{}}
	assert.NotContains(t, FormatEnvelope(base), "Stability")

	replanned := report.Envelope{Status: "ok", PlanOutput: &report.PlanOutput{
		Reallocation: &scheduler.ReallocationMetrics{ReallocatedRatio: 0.25, StabilityScore: 0.75},
	}}
	out := FormatEnvelope(replanned)
	assert.Contains(t, out, "Stability")
	assert.Contains(t, out, "25%")
}

func TestFormatValidationReport_Verdict(t *testing.T) {
	failing := validation.NewReport()
	failing.AddError("OUT_OF_RANGE", "cfu must be >= 0", "$.subjects.subjects[0].cfu")

	out := FormatValidationReport(failing)
	assert.Contains(t, out, "OUT_OF_RANGE")
	assert.Contains(t, out, "$.subjects.subjects[0].cfu")
	assert.Contains(t, out, "validation failed")

	passing := validation.NewReport()
	assert.Contains(t, FormatValidationReport(passing), "validation passed")
}

func TestConfidenceIndicator(t *testing.T) {
	assert.Contains(t, ConfidenceIndicator(metrics.ConfidenceHigh), "HIGH")
	assert.Contains(t, ConfidenceIndicator(metrics.ConfidenceMedium), "MEDIUM")
	assert.Contains(t, ConfidenceIndicator(metrics.ConfidenceLow), "LOW")
	assert.Contains(t, ConfidenceIndicator(metrics.ConfidenceLevel("??")), "UNKNOWN")
}
