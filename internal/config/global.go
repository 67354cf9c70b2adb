// Package config holds the planner's layered configuration: hardcoded
// defaults, the user's global config file, and restricted per-subject
// overrides.
package config

import (
	"github.com/J-ANet/prototipo/internal/validation"
)

// ContinuityConfig tunes the recent-continuity penalty applied during
// candidate scoring.
type ContinuityConfig struct {
	Enabled               bool    `json:"enabled"`
	LookbackDays          int     `json:"lookback_days"`
	RollingWindowDays     int     `json:"rolling_window_days"`
	StreakThresholdDays   int     `json:"streak_threshold_days"`
	RollingShareThreshold float64 `json:"rolling_share_threshold"`
	StreakPenaltyFactor   float64 `json:"streak_penalty_factor"`
	RollingPenaltyFactor  float64 `json:"rolling_penalty_factor"`
	MaxPenalty            float64 `json:"max_penalty"`
}

// GlobalConfig is the full set of planner tunables.
type GlobalConfig struct {
	DailyCapMinutes              int     `json:"daily_cap_minutes"`
	DailyCapToleranceMinutes     int     `json:"daily_cap_tolerance_minutes"`
	SubjectBufferPercent         float64 `json:"subject_buffer_percent"`
	CriticalButPossibleThreshold float64 `json:"critical_but_possible_threshold"`
	StudyOnExamDay               bool    `json:"study_on_exam_day"`
	MaxSubjectsPerDay            int     `json:"max_subjects_per_day"`
	AttendanceHoursPerCFU        float64 `json:"attendance_hours_per_cfu"`

	SleepHoursPerDay        float64            `json:"sleep_hours_per_day"`
	SleepOverridesByDate    map[string]float64 `json:"sleep_overrides_by_date"`
	SleepOverridesByWeekday map[string]float64 `json:"sleep_overrides_by_weekday"`

	SessionDurationMinutes int `json:"session_duration_minutes"`

	PomodoroEnabled               bool `json:"pomodoro_enabled"`
	PomodoroWorkMinutes           int  `json:"pomodoro_work_minutes"`
	PomodoroShortBreakMinutes     int  `json:"pomodoro_short_break_minutes"`
	PomodoroLongBreakMinutes      int  `json:"pomodoro_long_break_minutes"`
	PomodoroLongBreakEvery        int  `json:"pomodoro_long_break_every"`
	PomodoroCountBreaksInCapacity bool `json:"pomodoro_count_breaks_in_capacity"`

	DefaultStrategyMode      string  `json:"default_strategy_mode"`
	DefaultConcentrationMode string  `json:"default_concentration_mode"`
	StabilityVsRecovery      float64 `json:"stability_vs_recovery"`

	HumanDistributionMode           string `json:"human_distribution_mode"`
	MaxSameSubjectStreakDays        int    `json:"max_same_subject_streak_days"`
	MaxSameSubjectConsecutiveBlocks int    `json:"max_same_subject_consecutive_blocks"`
	TargetDailySubjectVariety       int    `json:"target_daily_subject_variety"`

	RebalanceMaxSwaps              int     `json:"rebalance_max_swaps"`
	RebalanceMaxIterations         int     `json:"rebalance_max_iterations"`
	RebalanceNearDaysWindow        int     `json:"rebalance_near_days_window"`
	RebalanceFallbackEnabled       bool    `json:"rebalance_fallback_enabled"`
	FeasibilityRegressionTolerance float64 `json:"feasibility_regression_tolerance"`

	HumanityWarnThreshold float64 `json:"humanity_warn_threshold"`

	Continuity ContinuityConfig `json:"continuity"`
}

// DefaultContinuityConfig returns the documented continuity-penalty defaults.
func DefaultContinuityConfig() ContinuityConfig {
	return ContinuityConfig{
		Enabled:               true,
		LookbackDays:          7,
		RollingWindowDays:     4,
		StreakThresholdDays:   2,
		RollingShareThreshold: 0.65,
		StreakPenaltyFactor:   0.25,
		RollingPenaltyFactor:  1.0,
		MaxPenalty:            1.5,
	}
}

// DefaultGlobalConfig returns the fully-populated defaults every request
// starts from.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		DailyCapMinutes:              180,
		DailyCapToleranceMinutes:     30,
		SubjectBufferPercent:         0.10,
		CriticalButPossibleThreshold: 0.80,
		StudyOnExamDay:               false,
		MaxSubjectsPerDay:            3,
		AttendanceHoursPerCFU:        6.0,

		SleepHoursPerDay: 8,

		SessionDurationMinutes: 30,

		PomodoroEnabled:               true,
		PomodoroWorkMinutes:           25,
		PomodoroShortBreakMinutes:     5,
		PomodoroLongBreakMinutes:      15,
		PomodoroLongBreakEvery:        4,
		PomodoroCountBreaksInCapacity: true,

		DefaultStrategyMode:      "hybrid",
		DefaultConcentrationMode: "diffuse",
		StabilityVsRecovery:      0.4,

		HumanDistributionMode:           "off",
		MaxSameSubjectStreakDays:        3,
		MaxSameSubjectConsecutiveBlocks: 3,
		TargetDailySubjectVariety:       2,

		RebalanceMaxSwaps:              100,
		RebalanceMaxIterations:         0,
		RebalanceNearDaysWindow:        2,
		RebalanceFallbackEnabled:       true,
		FeasibilityRegressionTolerance: 0,

		HumanityWarnThreshold: 0.45,

		Continuity: DefaultContinuityConfig(),
	}
}

// Clamp coerces out-of-range scalars to their documented bounds, recording an
// info entry for each applied clamp. Invalid values never abort the run.
func (g *GlobalConfig) Clamp(report *validation.Report) {
	if g.StabilityVsRecovery < 0 || g.StabilityVsRecovery > 1 {
		clamped := clamp01(g.StabilityVsRecovery)
		g.StabilityVsRecovery = clamped
		if report != nil {
			issue := report.AddInfo(
				"INFO_CLAMP_STABILITY_APPLIED",
				"stability_vs_recovery was clamped into [0,1]",
				"$.global_config.stability_vs_recovery",
			)
			issue.Extra = map[string]any{"applied_value": clamped}
		}
	}
	if g.SubjectBufferPercent < 0 {
		g.SubjectBufferPercent = 0
	}
	if g.MaxSubjectsPerDay < 1 {
		g.MaxSubjectsPerDay = 1
	}
	if g.SessionDurationMinutes < 1 {
		g.SessionDurationMinutes = 1
	}
	// A zero swap budget would silently disable rebalancing; treat it like
	// unset and restore the default.
	if g.RebalanceMaxSwaps <= 0 {
		g.RebalanceMaxSwaps = 100
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
