package formatter

import (
	"fmt"
	"strings"

	"github.com/J-ANet/prototipo/internal/report"
	"github.com/J-ANet/prototipo/internal/validation"
)

// FormatEnvelope renders the whole output envelope: either the plan summary
// or the error details.
func FormatEnvelope(envelope report.Envelope) string {
	if envelope.Status != "ok" || envelope.PlanOutput == nil {
		return formatErrorEnvelope(envelope)
	}
	output := envelope.PlanOutput

	var b strings.Builder
	b.WriteString(Header("Plan Summary"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(output.PlanSummary))
	for _, entry := range output.PlanSummary {
		rows = append(rows, []string{
			entry.SubjectID,
			fmt.Sprintf("%d", entry.TargetMinutes),
			fmt.Sprintf("%d", entry.PlannedBaseMinutes),
			fmt.Sprintf("%d", entry.PlannedBufferMinutes),
			remainingCell(entry.RemainingBaseMinutes + entry.RemainingBufferMinutes),
		})
	}
	b.WriteString(RenderTable(
		[]string{"SUBJECT", "TARGET", "BASE", "BUFFER", "REMAINING"},
		rows,
	))

	b.WriteString("\n")
	b.WriteString(Header("Metrics"))
	b.WriteString("\n")
	m := output.Metrics
	b.WriteString(fmt.Sprintf("Confidence   %s %s\n",
		ConfidenceIndicator(m.ConfidenceLevel),
		Dim(fmt.Sprintf("(%.2f)", m.ConfidenceScore))))
	b.WriteString(fmt.Sprintf("Study days   %d, %d min total, %d min slack\n",
		m.StudyDays, m.TotalStudyMinutes, m.TotalSlackMinutes))
	b.WriteString(fmt.Sprintf("Daily load   %.0f min avg (σ %.0f)\n",
		m.DailyMinutesMean, m.DailyMinutesStdDev))
	b.WriteString(fmt.Sprintf("Humanity     %.2f (mono %.2f, streak %d, variety %.2f)\n",
		m.Humanity.HumanityScore, m.Humanity.MonoDayRatio,
		m.Humanity.MaxSameSubjectStreakDays, m.Humanity.SubjectVarietyIndex))
	if output.Reallocation != nil {
		b.WriteString(fmt.Sprintf("Stability    %.2f (reallocated %.0f%%)\n",
			output.Reallocation.StabilityScore, output.Reallocation.ReallocatedRatio*100))
	}

	if len(output.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Warnings"))
		b.WriteString("\n")
		for _, warning := range output.Warnings {
			marker := SeverityStyle(warning.Severity).Render("●")
			subject := ""
			if warning.SubjectID != "" {
				subject = Dim(" ["+warning.SubjectID+"]") + " "
			}
			b.WriteString(fmt.Sprintf("%s %s%s %s\n", marker, subject, Bold(warning.Code), warning.Message))
		}
	}
	if len(output.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Suggestions"))
		b.WriteString("\n")
		for _, suggestion := range output.Suggestions {
			b.WriteString(fmt.Sprintf("%s %s\n", StyleBlue.Render("→"), suggestion.Message))
		}
	}

	return b.String()
}

func formatErrorEnvelope(envelope report.Envelope) string {
	var b strings.Builder
	b.WriteString(Header("Plan Failed"))
	b.WriteString("\n")
	if envelope.Error != nil {
		b.WriteString(fmt.Sprintf("%s %s\n", StyleRed.Render("✗"), Bold(envelope.Error.Code)))
		for _, detail := range envelope.Error.Details {
			path := ""
			if detail.Path != "" {
				path = " " + Dim(detail.Path)
			}
			b.WriteString(fmt.Sprintf("  %s %s%s\n", StyleRed.Render(detail.Code), detail.Message, path))
		}
	}
	return b.String()
}

// FormatIssues renders a flat issue list.
func FormatIssues(issues []validation.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		marker := SeverityStyle(string(issue.Severity)).Render("●")
		path := ""
		if issue.FieldPath != "" {
			path = " " + Dim(issue.FieldPath)
		}
		b.WriteString(fmt.Sprintf("%s %s %s%s\n", marker, Bold(issue.Code), issue.Message, path))
	}
	return b.String()
}

// FormatValidationReport renders errors, warnings and infos in that order,
// ending with a one-line verdict.
func FormatValidationReport(validationReport *validation.Report) string {
	var b strings.Builder
	b.WriteString(FormatIssues(validationReport.Errors))
	b.WriteString(FormatIssues(validationReport.Warnings))
	b.WriteString(FormatIssues(validationReport.Infos))
	if validationReport.HasErrors() {
		b.WriteString(StyleRed.Render("✗ validation failed") + "\n")
	} else {
		b.WriteString(StyleGreen.Render("✓ validation passed") + "\n")
	}
	return b.String()
}

func remainingCell(minutes int) string {
	if minutes > 0 {
		return StyleYellow.Render(fmt.Sprintf("%d", minutes))
	}
	return StyleGreen.Render("0")
}
