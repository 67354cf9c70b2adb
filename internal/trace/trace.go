// Package trace records every allocation and rebalance decision in a
// deterministic, append-only audit log.
package trace

import (
	"fmt"
	"sort"
	"time"
)

// Entry is one recorded decision. Timestamps are synthetic offsets from the
// collector's start so identical inputs always produce identical traces.
type Entry struct {
	DecisionID         string             `json:"decision_id"`
	Timestamp          string             `json:"timestamp"`
	SlotID             string             `json:"slot_id"`
	CandidateSubjects  []string           `json:"candidate_subjects"`
	ScoresBySubject    map[string]float64 `json:"scores_by_subject"`
	SelectedSubjectID  string             `json:"selected_subject_id"`
	AppliedRules       []string           `json:"applied_rules"`
	BlockedConstraints []string           `json:"blocked_constraints"`
	TradeoffNote       string             `json:"tradeoff_note"`
	ConfidenceImpact   float64            `json:"confidence_impact"`
}

// Collector accumulates decisions during a planner run.
type Collector struct {
	start    time.Time
	sequence int
	items    []Entry
}

// NewCollector creates a collector anchored at the given start time. The
// anchor only shifts the synthetic timestamps; ordering never depends on it.
func NewCollector(start time.Time) *Collector {
	return &Collector{start: start.UTC()}
}

// Decision carries the fields of one decision to record.
type Decision struct {
	SlotID             string
	CandidateSubjects  []string
	ScoresBySubject    map[string]float64
	SelectedSubjectID  string
	AppliedRules       []string
	BlockedConstraints []string
	TradeoffNote       string
	ConfidenceImpact   float64
}

// Record appends a decision with the next synthetic timestamp.
func (c *Collector) Record(d Decision) {
	if c == nil {
		return
	}
	c.sequence++

	candidates := append([]string(nil), d.CandidateSubjects...)
	sort.Strings(candidates)

	scores := make(map[string]float64, len(d.ScoresBySubject))
	for sid, score := range d.ScoresBySubject {
		scores[sid] = score
	}

	blocked := d.BlockedConstraints
	if blocked == nil {
		blocked = []string{}
	}

	c.items = append(c.items, Entry{
		DecisionID:         fmt.Sprintf("d-%06d", c.sequence),
		Timestamp:          c.start.Add(time.Duration(c.sequence) * time.Second).Format("2006-01-02T15:04:05Z"),
		SlotID:             d.SlotID,
		CandidateSubjects:  candidates,
		ScoresBySubject:    scores,
		SelectedSubjectID:  d.SelectedSubjectID,
		AppliedRules:       d.AppliedRules,
		BlockedConstraints: blocked,
		TradeoffNote:       d.TradeoffNote,
		ConfidenceImpact:   d.ConfidenceImpact,
	})
}

// Entries returns the trace in deterministic chronological order.
func (c *Collector) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := append([]Entry(nil), c.items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].DecisionID < out[j].DecisionID
	})
	return out
}

// ConfidenceSum totals the confidence impact of every recorded decision.
func (c *Collector) ConfidenceSum() float64 {
	if c == nil {
		return 0
	}
	var sum float64
	for _, item := range c.items {
		sum += item.ConfidenceImpact
	}
	return sum
}
