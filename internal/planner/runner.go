package planner

import (
	"sort"
	"time"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/logger"
	"github.com/J-ANet/prototipo/internal/metrics"
	"github.com/J-ANet/prototipo/internal/report"
	"github.com/J-ANet/prototipo/internal/scheduler"
	"github.com/J-ANet/prototipo/internal/trace"
	"github.com/J-ANet/prototipo/internal/validation"
)

// Exit codes of a planner run.
const (
	ExitOK    = 0
	ExitError = 2
)

// Runner executes the full plan pipeline. Now is injectable so tests get
// stable plan ids and trace timestamps.
type Runner struct {
	Log logger.Logger
	Now func() time.Time
}

func NewRunner(log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop{}
	}
	return &Runner{Log: log, Now: time.Now}
}

// Run loads the request at requestPath and produces the output envelope with
// its exit code. Every failure is reported through the envelope; errors never
// escape as panics.
func (r *Runner) Run(requestPath string) (report.Envelope, int) {
	request, raw, err := ReadRequest(requestPath)
	if err != nil {
		r.Log.Errorf("request read failed: %v", err)
		return report.BuildError("request_read_error", []validation.Issue{{
			Code:      "invalid_request",
			Severity:  validation.SeverityError,
			Message:   err.Error(),
			FieldPath: "$.request",
		}}, nil), ExitError
	}

	if issues := ValidateRequest(raw); len(issues) > 0 {
		return report.BuildError("validation_error", issues, nil), ExitError
	}

	inputs, loadIssues := LoadInputs(requestPath, request)
	if len(loadIssues) > 0 {
		return report.BuildError("input_load_error", loadIssues, validation.NewReport()), ExitError
	}

	validationReport := validation.NewReport()
	global := inputs.GlobalConfig
	global.Clamp(validationReport)

	effective := config.Resolve(global, inputs.Subjects, validationReport)
	validationReport.Extend(validation.ValidateDomain(validation.DomainInputs{
		GlobalConfig:   inputs.GlobalConfigRaw,
		Subjects:       inputs.Subjects,
		ManualSessions: inputs.ManualSessions,
	}))
	validationReport.Extend(validation.ValidateStructural(validation.StructuralInputs{
		Subjects:            inputs.Subjects,
		CalendarConstraints: inputs.CalendarConstraints,
		ManualSessions:      inputs.ManualSessions,
	}))

	if validationReport.HasErrors() {
		return report.BuildError("validation_error", validationReport.Errors, validationReport), ExitError
	}

	return r.plan(inputs, global, effective, validationReport), ExitOK
}

func (r *Runner) plan(inputs Inputs, global config.GlobalConfig, effective config.EffectiveConfig, validationReport *validation.Report) report.Envelope {
	now := r.Now().UTC()
	fromDate := replanFromDate(inputs.Request)

	progress := scheduler.ComputeManualProgress(inputs.ManualSessions)
	locked := scheduler.ExtractLockedManualAllocations(inputs.ManualSessions, fromDate)

	start, end := planHorizon(inputs.Subjects, fromDate, now)
	r.Log.Infof("planning horizon %s .. %s", domain.DayString(start), domain.DayString(end))

	slots := scheduler.BuildDailySlots(start, end, global, inputs.CalendarConstraints)
	slots = scheduler.ApplyLockedConstraintsToSlots(slots, locked)

	criticalIssues := scheduler.BuildCriticalWarnings(inputs.ManualSessions, slots)

	workloads := make(map[string]scheduler.Workload, len(inputs.Subjects))
	doneMinutes := make(map[string]int, len(progress))
	for _, subject := range inputs.Subjects {
		cfg := effective.BySubject[subject.SubjectID]
		attendanceHours := global.AttendanceHoursPerCFU
		if subject.AttendanceHoursPerCFU != nil {
			attendanceHours = *subject.AttendanceHoursPerCFU
		}
		workloads[subject.SubjectID] = scheduler.ComputeWorkload(subject, cfg.SubjectBufferPercent, attendanceHours, nil)
		doneMinutes[subject.SubjectID] = progress[subject.SubjectID].EffectiveDoneMinutes
	}

	features := scheduler.DeriveFeatures(inputs.Subjects, workloads, effective.BySubject, global, start)
	collector := trace.NewCollector(now)

	result := scheduler.Allocate(scheduler.AllocateInput{
		Slots:                slots,
		Subjects:             inputs.Subjects,
		WorkloadBySubject:    workloads,
		EffectiveDoneMinutes: doneMinutes,
		SessionMinutes:       global.SessionDurationMinutes,
		FeaturesBySubject:    features,
		Continuity:           global.Continuity,
		ConfigBySubject:      effective.BySubject,
		Global:               global,
		Trace:                collector,
	})
	r.Log.Debugw("allocation finished", map[string]any{"allocations": len(result.Allocations)})

	rebalanced := scheduler.Rebalance(scheduler.RebalanceInput{
		Allocations:       append(append([]domain.Allocation(nil), result.Allocations...), locked...),
		Slots:             slots,
		Subjects:          inputs.Subjects,
		Global:            global,
		ConfigBySubject:   effective.BySubject,
		LockedAllocations: locked,
		PastCutoff:        fromDate,
		Trace:             collector,
	})

	preserved, replannable := scheduler.SplitPreviousPlan(inputs.PreviousPlan, fromDate)
	var reallocation *scheduler.ReallocationMetrics
	if len(inputs.PreviousPlan) > 0 {
		m := scheduler.ComputeReallocationMetrics(replannable, rebalanced)
		reallocation = &m
	}

	final := append(append([]domain.Allocation(nil), preserved...), rebalanced...)
	sort.Slice(final, func(i, j int) bool {
		if final[i].Date != final[j].Date {
			return final[i].Date < final[j].Date
		}
		if final[i].SlotID != final[j].SlotID {
			return final[i].SlotID < final[j].SlotID
		}
		return final[i].SubjectID < final[j].SubjectID
	})

	planMetrics := metrics.Collect(final, collector.ConfidenceSum())
	humanity := planMetrics.Humanity.HumanityScore
	warnings, suggestions := report.BuildWarnings(report.WarningsInput{
		Subjects:               inputs.Subjects,
		ManualSessions:         inputs.ManualSessions,
		SlotsInWindow:          slots,
		Allocations:            final,
		WorkloadBySubject:      workloads,
		RemainingBaseMinutes:   result.RemainingBaseMinutes,
		RemainingBufferMinutes: result.RemainingBufferMinutes,
		HumanityScore:          &humanity,
		HumanityThreshold:      global.HumanityWarnThreshold,
	})
	for i := len(criticalIssues) - 1; i >= 0; i-- {
		issue := criticalIssues[i]
		warnings = append([]report.Warning{{
			Code:     issue.Code,
			Severity: string(issue.Severity),
			Message:  issue.Message,
		}}, warnings...)
	}

	return report.BuildSuccess(report.SuccessInput{
		Allocations:            final,
		WorkloadBySubject:      workloads,
		RemainingBaseMinutes:   result.RemainingBaseMinutes,
		RemainingBufferMinutes: result.RemainingBufferMinutes,
		Metrics:                planMetrics,
		Reallocation:           reallocation,
		Warnings:               warnings,
		Suggestions:            suggestions,
		DecisionTrace:          collector.Entries(),
		EffectiveConfig:        &effective,
		ManualProgress:         progress,
		ValidationReport:       validationReport,
		GeneratedAt:            now,
	})
}

func replanFromDate(request PlanRequest) *time.Time {
	if request.ReplanContext == nil || request.ReplanContext.FromDate == "" {
		return nil
	}
	day, err := domain.ParseDay(request.ReplanContext.FromDate)
	if err != nil {
		return nil
	}
	return &day
}

// planHorizon spans from the replan cutoff (else the earliest subject
// start_at, else today) to the latest effective deadline. Subjects with no
// deadline at all fall back to four weeks from the start.
func planHorizon(subjects []domain.Subject, fromDate *time.Time, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := today
	if fromDate != nil {
		start = *fromDate
	} else {
		for _, subject := range subjects {
			window := subject.Window()
			if window.StartAt != nil && window.StartAt.Before(start) {
				start = *window.StartAt
			}
		}
	}

	var end *time.Time
	for _, subject := range subjects {
		deadline := subjectDeadline(subject)
		if deadline == nil {
			continue
		}
		if end == nil || deadline.After(*end) {
			end = deadline
		}
	}
	if end == nil || end.Before(start) {
		fallback := start.AddDate(0, 0, 27)
		return start, fallback
	}
	return start, *end
}

func subjectDeadline(subject domain.Subject) *time.Time {
	window := subject.Window()
	deadline := window.ExamDay
	if window.EndBy != nil && (deadline == nil || window.EndBy.Before(*deadline)) {
		deadline = window.EndBy
	}
	return deadline
}
