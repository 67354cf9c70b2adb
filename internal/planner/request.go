// Package planner wires the full pipeline: request loading, validation,
// configuration resolution, allocation, rebalancing and report assembly.
package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/validation"
)

// ReplanContext narrows a run to a partial re-plan starting at FromDate.
type ReplanContext struct {
	FromDate         string `json:"from_date,omitempty"`
	PreviousPlanPath string `json:"previous_plan_path,omitempty"`
}

// PlanRequest is the entrypoint payload referencing every input file.
type PlanRequest struct {
	SchemaVersion           string         `json:"schema_version,omitempty"`
	GlobalConfigPath        string         `json:"global_config_path"`
	SubjectsPath            string         `json:"subjects_path"`
	CalendarConstraintsPath string         `json:"calendar_constraints_path"`
	ManualSessionsPath      string         `json:"manual_sessions_path"`
	ReplanContext           *ReplanContext `json:"replan_context,omitempty"`
}

// Inputs is every loaded and decoded input collection.
type Inputs struct {
	Request             PlanRequest
	GlobalConfig        config.GlobalConfig
	GlobalConfigRaw     map[string]any
	Subjects            []domain.Subject
	CalendarConstraints []domain.CalendarConstraint
	ManualSessions      []domain.ManualSession
	PreviousPlan        []domain.Allocation
}

type subjectsPayload struct {
	Subjects []domain.Subject `json:"subjects"`
}

type constraintsPayload struct {
	CalendarConstraints []domain.CalendarConstraint `json:"calendar_constraints"`
}

type sessionsPayload struct {
	ManualSessions []domain.ManualSession `json:"manual_sessions"`
}

type previousPlanPayload struct {
	Allocations []domain.Allocation `json:"allocations"`
}

// ReadRequest decodes the request file twice: into the typed struct and into
// a raw map so missing fields can be told apart from wrongly typed ones.
func ReadRequest(path string) (PlanRequest, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanRequest{}, nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return PlanRequest{}, nil, fmt.Errorf("JSON root must be an object: %s: %w", path, err)
	}
	var request PlanRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return PlanRequest{}, nil, err
	}
	if request.SchemaVersion == "" {
		request.SchemaVersion = "1.0"
	}
	return request, raw, nil
}

var requiredPathFields = []string{
	"global_config_path",
	"subjects_path",
	"calendar_constraints_path",
	"manual_sessions_path",
}

// ValidateRequest applies the shape checks on the four mandatory path fields.
func ValidateRequest(raw map[string]any) []validation.Issue {
	var issues []validation.Issue
	for _, field := range requiredPathFields {
		value, present := raw[field]
		if !present || value == nil {
			issues = append(issues, validation.Issue{
				Code:      "missing_field",
				Severity:  validation.SeverityError,
				Message:   fmt.Sprintf("Missing required field: %s", field),
				FieldPath: "$." + field,
			})
			continue
		}
		str, ok := value.(string)
		if !ok || str == "" {
			issues = append(issues, validation.Issue{
				Code:      "invalid_type",
				Severity:  validation.SeverityError,
				Message:   fmt.Sprintf("Field must be a non-empty string path: %s", field),
				FieldPath: "$." + field,
			})
		}
	}
	return issues
}

// LoadInputs resolves every referenced file relative to the request file's
// directory and decodes it. All load failures are collected, not short
// circuited.
func LoadInputs(requestPath string, request PlanRequest) (Inputs, []validation.Issue) {
	inputs := Inputs{Request: request}
	var issues []validation.Issue

	baseDir := filepath.Dir(requestPath)
	load := func(field, value string, target any) {
		resolved := value
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, resolved)
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			code := "invalid_json"
			message := err.Error()
			if errors.Is(err, fs.ErrNotExist) {
				code = "file_not_found"
				message = fmt.Sprintf("Referenced file not found: %s", resolved)
			}
			issues = append(issues, validation.Issue{
				Code:      code,
				Severity:  validation.SeverityError,
				Message:   message,
				FieldPath: "$." + field,
			})
			return
		}
		if err := json.Unmarshal(data, target); err != nil {
			issues = append(issues, validation.Issue{
				Code:      "invalid_json",
				Severity:  validation.SeverityError,
				Message:   fmt.Sprintf("Invalid JSON in %s: %v", resolved, err),
				FieldPath: "$." + field,
			})
		}
	}

	// The global config goes through the koanf loader so YAML files and
	// PLANNER_ environment overrides apply; the other inputs are plain JSON.
	globalPath := request.GlobalConfigPath
	if !filepath.IsAbs(globalPath) {
		globalPath = filepath.Join(baseDir, globalPath)
	}
	globalCfg, globalRaw, err := config.Load(globalPath)
	if err != nil {
		code := "invalid_json"
		message := err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			code = "file_not_found"
			message = fmt.Sprintf("Referenced file not found: %s", globalPath)
		}
		issues = append(issues, validation.Issue{
			Code:      code,
			Severity:  validation.SeverityError,
			Message:   message,
			FieldPath: "$.global_config_path",
		})
	} else {
		inputs.GlobalConfig = globalCfg
		inputs.GlobalConfigRaw = globalRaw
	}

	var subjects subjectsPayload
	load("subjects_path", request.SubjectsPath, &subjects)
	inputs.Subjects = subjects.Subjects

	var constraints constraintsPayload
	load("calendar_constraints_path", request.CalendarConstraintsPath, &constraints)
	inputs.CalendarConstraints = constraints.CalendarConstraints

	var sessions sessionsPayload
	load("manual_sessions_path", request.ManualSessionsPath, &sessions)
	inputs.ManualSessions = sessions.ManualSessions

	if request.ReplanContext != nil && request.ReplanContext.PreviousPlanPath != "" {
		var previous previousPlanPayload
		load("replan_context.previous_plan_path", request.ReplanContext.PreviousPlanPath, &previous)
		inputs.PreviousPlan = previous.Allocations
	}

	return inputs, issues
}
