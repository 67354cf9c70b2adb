package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/J-ANet/prototipo/internal/domain"
	"github.com/J-ANet/prototipo/internal/validation"
)

// SubjectConfig is the fully resolved configuration one subject studies under:
// the global config with the subject's accepted overrides applied.
type SubjectConfig struct {
	GlobalConfig

	StrategyMode string
	// ConcentrationMode is empty when the subject never set one; the
	// allocator then falls back to the global default and logs the
	// fallback path separately from an explicit-but-invalid value.
	ConcentrationMode string
	StartAt           string
	EndBy             string
}

// EffectiveConfig is the engine-ready configuration payload.
type EffectiveConfig struct {
	Global    GlobalConfig
	BySubject map[string]SubjectConfig
}

// allowedOverrideKeys is the restricted set of per-subject override keys.
// Anything else is rejected with INVALID_OVERRIDE_KEY.
var allowedOverrideKeys = map[string]struct{}{
	"subject_buffer_percent":              {},
	"critical_but_possible_threshold":     {},
	"strategy_mode":                       {},
	"concentration_mode":                  {},
	"stability_vs_recovery":               {},
	"start_at":                            {},
	"end_by":                              {},
	"max_subjects_per_day":                {},
	"pomodoro_enabled":                    {},
	"pomodoro_work_minutes":               {},
	"pomodoro_short_break_minutes":        {},
	"pomodoro_long_break_minutes":         {},
	"pomodoro_long_break_every":           {},
	"pomodoro_count_breaks_in_capacity":   {},
	"human_distribution_mode":             {},
	"max_same_subject_streak_days":        {},
	"max_same_subject_consecutive_blocks": {},
	"target_daily_subject_variety":        {},
}

// Resolve merges, per subject, the global config with that subject's filtered
// overrides. Unknown keys are reported; values of the wrong type are ignored
// in place, never raised.
func Resolve(global GlobalConfig, subjects []domain.Subject, report *validation.Report) EffectiveConfig {
	bySubject := make(map[string]SubjectConfig, len(subjects))
	for idx, subject := range subjects {
		if subject.SubjectID == "" {
			continue
		}
		resolved := SubjectConfig{
			GlobalConfig: global,
			StrategyMode: global.DefaultStrategyMode,
			StartAt:      subject.StartAt,
			EndBy:        subject.EndBy,
		}
		applyOverrides(&resolved, subject.Overrides, idx, report)
		bySubject[subject.SubjectID] = resolved
	}
	return EffectiveConfig{Global: global, BySubject: bySubject}
}

func applyOverrides(cfg *SubjectConfig, overrides map[string]any, subjectIndex int, report *validation.Report) {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := overrides[key]
		if _, ok := allowedOverrideKeys[key]; !ok {
			if report != nil {
				issue := report.AddError(
					"INVALID_OVERRIDE_KEY",
					fmt.Sprintf("Override key %q is not allowed", key),
					fmt.Sprintf("$.subjects.subjects[%d].overrides.%s", subjectIndex, key),
				)
				issue.SuggestedFix = "Use one of: " + strings.Join(sortedAllowedKeys(), ", ")
			}
			continue
		}
		applyOverride(cfg, key, value)
	}
}

func applyOverride(cfg *SubjectConfig, key string, value any) {
	switch key {
	case "subject_buffer_percent":
		if v, ok := asFloat(value); ok {
			cfg.SubjectBufferPercent = v
		}
	case "critical_but_possible_threshold":
		if v, ok := asFloat(value); ok {
			cfg.CriticalButPossibleThreshold = v
		}
	case "strategy_mode":
		if v, ok := value.(string); ok {
			cfg.StrategyMode = v
		}
	case "concentration_mode":
		if v, ok := value.(string); ok {
			cfg.ConcentrationMode = v
		}
	case "stability_vs_recovery":
		if v, ok := asFloat(value); ok {
			cfg.StabilityVsRecovery = clamp01(v)
		}
	case "start_at":
		if v, ok := value.(string); ok {
			cfg.StartAt = v
		}
	case "end_by":
		if v, ok := value.(string); ok {
			cfg.EndBy = v
		}
	case "max_subjects_per_day":
		if v, ok := asInt(value); ok {
			cfg.MaxSubjectsPerDay = v
		}
	case "pomodoro_enabled":
		if v, ok := value.(bool); ok {
			cfg.PomodoroEnabled = v
		}
	case "pomodoro_work_minutes":
		if v, ok := asInt(value); ok {
			cfg.PomodoroWorkMinutes = v
		}
	case "pomodoro_short_break_minutes":
		if v, ok := asInt(value); ok {
			cfg.PomodoroShortBreakMinutes = v
		}
	case "pomodoro_long_break_minutes":
		if v, ok := asInt(value); ok {
			cfg.PomodoroLongBreakMinutes = v
		}
	case "pomodoro_long_break_every":
		if v, ok := asInt(value); ok {
			cfg.PomodoroLongBreakEvery = v
		}
	case "pomodoro_count_breaks_in_capacity":
		if v, ok := value.(bool); ok {
			cfg.PomodoroCountBreaksInCapacity = v
		}
	case "human_distribution_mode":
		if v, ok := value.(string); ok {
			cfg.HumanDistributionMode = v
		}
	case "max_same_subject_streak_days":
		if v, ok := asInt(value); ok {
			cfg.MaxSameSubjectStreakDays = v
		}
	case "max_same_subject_consecutive_blocks":
		if v, ok := asInt(value); ok {
			cfg.MaxSameSubjectConsecutiveBlocks = v
		}
	case "target_daily_subject_variety":
		if v, ok := asInt(value); ok {
			cfg.TargetDailySubjectVariety = v
		}
	}
}

func sortedAllowedKeys() []string {
	keys := make([]string, 0, len(allowedOverrideKeys))
	for key := range allowedOverrideKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// asFloat accepts the numeric shapes encoding/json produces.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
