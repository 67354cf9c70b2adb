package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/domain"
)

func randomAllocateInput(rng *rand.Rand) AllocateInput {
	numDays := rng.Intn(10) + 1
	numSubjects := rng.Intn(4) + 1
	session := []int{30, 45, 60}[rng.Intn(3)]

	slots := make([]domain.Slot, 0, numDays)
	for d := 0; d < numDays; d++ {
		cap := (rng.Intn(6) + 1) * 30 // 30–180 min
		date := fmt.Sprintf("2026-01-%02d", d+1)
		slots = append(slots, domain.Slot{
			SlotID:     "slot-" + date,
			Date:       date,
			CapMinutes: cap,
			MaxMinutes: cap,
		})
	}

	subjects := make([]domain.Subject, 0, numSubjects)
	workloads := make(map[string]Workload, numSubjects)
	features := make(map[string]Features, numSubjects)
	for i := 0; i < numSubjects; i++ {
		sid := fmt.Sprintf("subj-%c", 'a'+i)
		exam := fmt.Sprintf("2026-02-%02d", rng.Intn(27)+1)
		subjects = append(subjects, domain.Subject{SubjectID: sid, SelectedExamDate: exam})
		workloads[sid] = Workload{
			HoursBase:   float64(rng.Intn(10)+1) / 2,
			HoursBuffer: float64(rng.Intn(4)) / 2,
		}
		features[sid] = Features{
			Urgency:       rng.Float64(),
			Priority:      rng.Float64(),
			CompletionGap: rng.Float64(),
		}
	}

	continuity := config.DefaultContinuityConfig()
	continuity.Enabled = rng.Intn(2) == 1

	global := config.DefaultGlobalConfig()
	global.HumanDistributionMode = []string{"off", "balanced", "strict"}[rng.Intn(3)]

	return AllocateInput{
		Slots:             slots,
		Subjects:          subjects,
		WorkloadBySubject: workloads,
		FeaturesBySubject: features,
		SessionMinutes:    session,
		Continuity:        continuity,
		Global:            global,
	}
}

func TestAllocate_Invariants_CapacityAndAccounting(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		input := randomAllocateInput(rng)
		result := Allocate(input)

		capBySlot := make(map[string]int, len(input.Slots))
		for _, slot := range input.Slots {
			capBySlot[slot.SlotID] = slot.MaxMinutes
		}

		usedBySlot := make(map[string]int)
		allocatedBase := make(map[string]int)
		allocatedBuffer := make(map[string]int)
		for _, alloc := range result.Allocations {
			assert.Greater(t, alloc.Minutes, 0,
				"trial %d: allocation minutes must be positive", trial)
			usedBySlot[alloc.SlotID] += alloc.Minutes
			switch alloc.Bucket {
			case domain.BucketBase:
				allocatedBase[alloc.SubjectID] += alloc.Minutes
			case domain.BucketBuffer:
				allocatedBuffer[alloc.SubjectID] += alloc.Minutes
			}
		}

		// Invariant 1: no slot is filled past its capacity
		for slotID, used := range usedBySlot {
			assert.LessOrEqual(t, used, capBySlot[slotID],
				"trial %d slot %s: used (%d) must not exceed capacity (%d)", trial, slotID, used, capBySlot[slotID])
		}

		// Invariant 2: allocated + remaining equals the demand, per bucket
		for _, subject := range input.Subjects {
			sid := subject.SubjectID
			workload := input.WorkloadBySubject[sid]
			assert.Equal(t, workload.BaseMinutes(),
				allocatedBase[sid]+result.RemainingBaseMinutes[sid],
				"trial %d subject %s: base accounting must be exact", trial, sid)
			assert.Equal(t, workload.BufferMinutes(),
				allocatedBuffer[sid]+result.RemainingBufferMinutes[sid],
				"trial %d subject %s: buffer accounting must be exact", trial, sid)
			assert.GreaterOrEqual(t, result.RemainingBaseMinutes[sid], 0,
				"trial %d subject %s: remaining base never negative", trial, sid)
			assert.GreaterOrEqual(t, result.RemainingBufferMinutes[sid], 0,
				"trial %d subject %s: remaining buffer never negative", trial, sid)
		}

		// Invariant 3: every non-slack allocation names a known subject
		known := make(map[string]bool, len(input.Subjects))
		for _, subject := range input.Subjects {
			known[subject.SubjectID] = true
		}
		for _, alloc := range result.Allocations {
			if alloc.IsSlack() {
				continue
			}
			assert.True(t, known[alloc.SubjectID],
				"trial %d: unknown subject %q in allocation", trial, alloc.SubjectID)
		}

		// Invariant 4: the same input always produces the same plan
		again := Allocate(input)
		assert.Equal(t, result.Allocations, again.Allocations,
			"trial %d: allocation must be deterministic", trial)
	}
}
