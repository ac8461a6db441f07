package services

import (
	"time"

	"student-engagement-system/models"
)

type MonthSeries struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

type ProgressReport struct {
	Points      MonthSeries `json:"points"`
	Submissions MonthSeries `json:"submissions"`
}

// GetStudentProgress buckets ledger deltas and task submissions into
// calendar-month series ending with the current month. The window is
// clamped to 3..18 months.
func (s *EngagementService) GetStudentProgress(studentID string, months int) (*ProgressReport, error) {
	months = clampInt(months, 3, 18)
	now := s.Now()
	windowStart := shiftMonth(now, -(months - 1))

	pointsByMonth := make(map[string]int)
	submissionsByMonth := make(map[string]int)

	if studentID != "" {
		var entries []models.PointsLedgerEntry
		if err := s.DB.Select("points", "created_at").
			Where("student_id = ? AND created_at >= ?", studentID, windowStart).
			Find(&entries).Error; err != nil {
			return nil, err
		}
		for _, e := range entries {
			pointsByMonth[monthKey(e.CreatedAt)] += e.Points
		}

		var submitted []time.Time
		if err := s.DB.Model(&models.TaskSubmission{}).
			Joins("INNER JOIN task_assignments ta ON ta.id = task_submissions.assignment_id").
			Where("ta.student_id = ? AND task_submissions.submitted_at >= ?", studentID, windowStart).
			Pluck("task_submissions.submitted_at", &submitted).Error; err != nil {
			return nil, err
		}
		for _, ts := range submitted {
			submissionsByMonth[monthKey(ts)]++
		}
	}

	report := &ProgressReport{
		Points:      MonthSeries{Labels: make([]string, 0, months), Values: make([]int, 0, months)},
		Submissions: MonthSeries{Labels: make([]string, 0, months), Values: make([]int, 0, months)},
	}
	for i := 0; i < months; i++ {
		key := monthKey(shiftMonth(windowStart, i))
		report.Points.Labels = append(report.Points.Labels, key)
		report.Points.Values = append(report.Points.Values, pointsByMonth[key])
		report.Submissions.Labels = append(report.Submissions.Labels, key)
		report.Submissions.Values = append(report.Submissions.Values, submissionsByMonth[key])
	}
	return report, nil
}
