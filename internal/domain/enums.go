package domain

import "strings"

// Bucket classifies an allocation record.
type Bucket string

const (
	BucketBase         Bucket = "base"
	BucketBuffer       Bucket = "buffer"
	BucketSlack        Bucket = "slack"
	BucketManualLocked Bucket = "manual_locked"
)

// SlackSubjectID marks unused capacity that is logged instead of dropped.
const SlackSubjectID = "__slack__"

// ManualSlotPrefix prefixes slot IDs synthesized from locked manual sessions.
const ManualSlotPrefix = "manual-"

type StrategyMode string

const (
	StrategyForward  StrategyMode = "forward"
	StrategyBackward StrategyMode = "backward"
	StrategyHybrid   StrategyMode = "hybrid"
)

// ParseStrategyMode normalizes a raw mode string. Unknown values fall back to
// hybrid, never erroring.
func ParseStrategyMode(raw string) StrategyMode {
	switch StrategyMode(strings.ToLower(raw)) {
	case StrategyForward:
		return StrategyForward
	case StrategyBackward:
		return StrategyBackward
	default:
		return StrategyHybrid
	}
}

type ConcentrationMode string

const (
	ConcentrationDiffuse      ConcentrationMode = "diffuse"
	ConcentrationConcentrated ConcentrationMode = "concentrated"
)

// ParseConcentrationMode normalizes a raw mode string, falling back to the
// given mode for anything that is not a known value.
func ParseConcentrationMode(raw string, fallback ConcentrationMode) ConcentrationMode {
	switch ConcentrationMode(strings.ToLower(raw)) {
	case ConcentrationDiffuse:
		return ConcentrationDiffuse
	case ConcentrationConcentrated:
		return ConcentrationConcentrated
	default:
		return fallback
	}
}

type DistributionMode string

const (
	DistributionOff      DistributionMode = "off"
	DistributionBalanced DistributionMode = "balanced"
	DistributionStrict   DistributionMode = "strict"
)

// ParseDistributionMode normalizes a raw mode string. Unknown values mean off.
func ParseDistributionMode(raw string) DistributionMode {
	switch DistributionMode(strings.ToLower(raw)) {
	case DistributionBalanced:
		return DistributionBalanced
	case DistributionStrict:
		return DistributionStrict
	default:
		return DistributionOff
	}
}

type SessionStatus string

const (
	SessionDone    SessionStatus = "done"
	SessionPartial SessionStatus = "partial"
	SessionSkipped SessionStatus = "skipped"
)

type ConstraintType string

const (
	ConstraintBlocked     ConstraintType = "blocked"
	ConstraintCapOverride ConstraintType = "cap_override"
)
