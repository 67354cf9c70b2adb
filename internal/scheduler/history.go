package scheduler

import (
	"time"

	"github.com/J-ANet/prototipo/internal/domain"
)

// History is the in-run ledger of minutes committed per day and subject. The
// allocator owns one History per run and mutates it only through Record, so
// streak and variety state stays auditable and testable apart from the
// selection logic.
type History struct {
	minutesByDay  map[string]map[string]int
	totalByDay    map[string]int
	subjectsByDay map[string]map[string]struct{}
	lastSubject   map[string]string
	sameDayBlocks map[string]int
}

func NewHistory() *History {
	return &History{
		minutesByDay:  make(map[string]map[string]int),
		totalByDay:    make(map[string]int),
		subjectsByDay: make(map[string]map[string]struct{}),
		lastSubject:   make(map[string]string),
		sameDayBlocks: make(map[string]int),
	}
}

// Record commits minutes of a subject on a day. Slack and non-positive
// amounts are ignored.
func (h *History) Record(date, subjectID string, minutes int) {
	if subjectID == domain.SlackSubjectID || subjectID == "" || minutes <= 0 {
		return
	}
	day := h.minutesByDay[date]
	if day == nil {
		day = make(map[string]int)
		h.minutesByDay[date] = day
	}
	day[subjectID] += minutes
	h.totalByDay[date] += minutes

	subjects := h.subjectsByDay[date]
	if subjects == nil {
		subjects = make(map[string]struct{})
		h.subjectsByDay[date] = subjects
	}
	subjects[subjectID] = struct{}{}

	if h.lastSubject[date] == subjectID {
		h.sameDayBlocks[date]++
	} else {
		h.lastSubject[date] = subjectID
		h.sameDayBlocks[date] = 1
	}
}

// MinutesOn returns the minutes committed to a subject on a day.
func (h *History) MinutesOn(date, subjectID string) int {
	return h.minutesByDay[date][subjectID]
}

// StreakDays counts consecutive days strictly before referenceDay on which
// the subject has committed minutes. lookback > 0 bounds the walk.
func (h *History) StreakDays(subjectID string, referenceDay time.Time, lookback int) int {
	streak := 0
	cursor := referenceDay.AddDate(0, 0, -1)
	for h.minutesByDay[domain.DayString(cursor)][subjectID] > 0 {
		streak++
		if lookback > 0 && streak >= lookback {
			break
		}
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// RollingShare returns the subject's share of all minutes committed over the
// windowDays days strictly before referenceDay (0 when the window is empty).
func (h *History) RollingShare(subjectID string, referenceDay time.Time, windowDays int) float64 {
	var subjectMinutes, totalMinutes int
	for i := 1; i <= windowDays; i++ {
		date := domain.DayString(referenceDay.AddDate(0, 0, -i))
		subjectMinutes += h.minutesByDay[date][subjectID]
		totalMinutes += h.totalByDay[date]
	}
	if totalMinutes <= 0 {
		return 0
	}
	return float64(subjectMinutes) / float64(totalMinutes)
}

// DistinctSubjects returns how many subjects have minutes on a day, counting
// the candidate as if it were already committed.
func (h *History) DistinctSubjects(date, withCandidate string) int {
	count := len(h.subjectsByDay[date])
	if withCandidate != "" {
		if _, ok := h.subjectsByDay[date][withCandidate]; !ok {
			count++
		}
	}
	return count
}

// NextSameDayBlocks returns the consecutive-block count the subject would
// reach if it were picked next on the day.
func (h *History) NextSameDayBlocks(date, subjectID string) int {
	if h.lastSubject[date] != subjectID {
		return 1
	}
	return h.sameDayBlocks[date] + 1
}
