// Package validation collects request and domain validation issues without
// aborting on first failure, so callers can report everything at once.
package validation

// Severity ranks a validation issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is one validation finding, addressed by a JSONPath-like field path.
type Issue struct {
	Code         string         `json:"code"`
	Severity     Severity       `json:"severity"`
	Message      string         `json:"message"`
	FieldPath    string         `json:"field_path,omitempty"`
	SuggestedFix string         `json:"suggested_fix,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Report accumulates issues across validation passes.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos"`
}

func NewReport() *Report {
	return &Report{}
}

func (r *Report) AddError(code, message, fieldPath string) *Issue {
	r.Errors = append(r.Errors, Issue{Code: code, Severity: SeverityError, Message: message, FieldPath: fieldPath})
	return &r.Errors[len(r.Errors)-1]
}

func (r *Report) AddWarning(code, message, fieldPath string) *Issue {
	r.Warnings = append(r.Warnings, Issue{Code: code, Severity: SeverityWarning, Message: message, FieldPath: fieldPath})
	return &r.Warnings[len(r.Warnings)-1]
}

func (r *Report) AddInfo(code, message, fieldPath string) *Issue {
	r.Infos = append(r.Infos, Issue{Code: code, Severity: SeverityInfo, Message: message, FieldPath: fieldPath})
	return &r.Infos[len(r.Infos)-1]
}

// Extend folds another report's issues into this one.
func (r *Report) Extend(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Infos = append(r.Infos, other.Infos...)
}

// HasErrors reports whether the pipeline must stop before planning.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}
