package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/J-ANet/prototipo/internal/domain"
)

// ConfidenceLevel buckets the confidence score for human consumption.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// PlanMetrics summarize one finished plan.
type PlanMetrics struct {
	PlanSize            int             `json:"plan_size"`
	StudyDays           int             `json:"study_days"`
	TotalStudyMinutes   int             `json:"total_study_minutes"`
	TotalSlackMinutes   int             `json:"total_slack_minutes"`
	DailyMinutesMean    float64         `json:"daily_minutes_mean"`
	DailyMinutesStdDev  float64         `json:"daily_minutes_std_dev"`
	ConfidenceScore     float64         `json:"confidence_score"`
	ConfidenceLevel     ConfidenceLevel `json:"confidence_level"`
	Humanity            HumanityMetrics `json:"humanity"`
	MinutesBySubject    map[string]int  `json:"minutes_by_subject"`
	MinutesByBucketName map[string]int  `json:"minutes_by_bucket"`
}

// Collect computes plan metrics from the allocation list and the summed
// confidence impact of the decision trace.
func Collect(allocations []domain.Allocation, confidenceImpactSum float64) PlanMetrics {
	minutesByDay := make(map[string]int)
	minutesBySubject := make(map[string]int)
	minutesByBucket := make(map[string]int)
	slackMinutes := 0
	studyMinutes := 0

	for _, alloc := range allocations {
		if alloc.Minutes <= 0 {
			continue
		}
		minutesByBucket[string(alloc.Bucket)] += alloc.Minutes
		if alloc.IsSlack() {
			slackMinutes += alloc.Minutes
			continue
		}
		minutesByDay[alloc.Date] += alloc.Minutes
		minutesBySubject[alloc.SubjectID] += alloc.Minutes
		studyMinutes += alloc.Minutes
	}

	daily := make([]float64, 0, len(minutesByDay))
	days := make([]string, 0, len(minutesByDay))
	for day := range minutesByDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		daily = append(daily, float64(minutesByDay[day]))
	}

	mean := 0.0
	stddev := 0.0
	if len(daily) > 0 {
		mean = stat.Mean(daily, nil)
	}
	if len(daily) > 1 {
		stddev = stat.StdDev(daily, nil)
	}

	score := clamp01(0.5 + confidenceImpactSum)
	return PlanMetrics{
		PlanSize:            len(allocations),
		StudyDays:           len(minutesByDay),
		TotalStudyMinutes:   studyMinutes,
		TotalSlackMinutes:   slackMinutes,
		DailyMinutesMean:    mean,
		DailyMinutesStdDev:  stddev,
		ConfidenceScore:     score,
		ConfidenceLevel:     levelFor(score),
		Humanity:            ComputeHumanity(allocations),
		MinutesBySubject:    minutesBySubject,
		MinutesByBucketName: minutesByBucket,
	}
}

func levelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.45:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
