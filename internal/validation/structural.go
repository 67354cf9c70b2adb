package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/J-ANet/prototipo/internal/domain"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// StructuralInputs is everything the tag-driven pass checks.
type StructuralInputs struct {
	Subjects            []domain.Subject
	CalendarConstraints []domain.CalendarConstraint
	ManualSessions      []domain.ManualSession
}

// ValidateStructural runs the struct-tag rules over every input collection
// and translates field errors into coded issues.
func ValidateStructural(inputs StructuralInputs) *Report {
	report := NewReport()

	if len(inputs.Subjects) == 0 {
		report.AddError("EMPTY_ARRAY_NOT_ALLOWED", "Array must have at least 1 items", "$.subjects.subjects")
	}
	for idx, subject := range inputs.Subjects {
		appendStructIssues(report, subject, fmt.Sprintf("$.subjects.subjects[%d]", idx))
	}
	for idx, constraint := range inputs.CalendarConstraints {
		appendStructIssues(report, constraint, fmt.Sprintf("$.calendar_constraints.calendar_constraints[%d]", idx))
	}
	for idx, session := range inputs.ManualSessions {
		appendStructIssues(report, session, fmt.Sprintf("$.manual_sessions.manual_sessions[%d]", idx))
	}

	return report
}

func appendStructIssues(report *Report, value any, basePath string) {
	err := structValidator.Struct(value)
	if err == nil {
		return
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		report.AddError("INVALID_TYPE", err.Error(), basePath)
		return
	}
	for _, fieldError := range fieldErrors {
		code, message := translateFieldError(fieldError)
		report.AddError(code, message, basePath+"."+jsonPathOf(fieldError))
	}
}

func translateFieldError(fe validator.FieldError) (code, message string) {
	switch fe.Tag() {
	case "required":
		return "MISSING_REQUIRED_FIELD", fmt.Sprintf("Missing required field: %s", jsonPathOf(fe))
	case "datetime":
		return "INVALID_DATE_FORMAT", "Invalid date format"
	case "oneof":
		return "INVALID_ENUM_VALUE", fmt.Sprintf("Value %v not in enum", fe.Value())
	case "gte", "min":
		return "OUT_OF_RANGE", fmt.Sprintf("Value must be >= %s", fe.Param())
	case "lte", "max":
		return "OUT_OF_RANGE", fmt.Sprintf("Value must be <= %s", fe.Param())
	case "gt":
		return "OUT_OF_RANGE", fmt.Sprintf("Value must be > %s", fe.Param())
	default:
		return "INVALID_TYPE", fmt.Sprintf("Field failed validation rule %q", fe.Tag())
	}
}

// jsonPathOf lowercases the struct field chain into the json naming used in
// field paths. Struct names and json tags line up field by field in this
// codebase, so snake-casing the Go name is sufficient.
func jsonPathOf(fe validator.FieldError) string {
	// Namespace looks like "Subject.ExamDates[1]"; drop the struct name.
	namespace := fe.Namespace()
	if dot := strings.Index(namespace, "."); dot >= 0 {
		namespace = namespace[dot+1:]
	}
	var out strings.Builder
	for i, r := range namespace {
		if r >= 'A' && r <= 'Z' {
			prev := byte(0)
			if i > 0 {
				prev = namespace[i-1]
			}
			if i > 0 && prev != '.' && prev != '[' && !(prev >= 'A' && prev <= 'Z') {
				out.WriteByte('_')
			}
			out.WriteRune(r + ('a' - 'A'))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
