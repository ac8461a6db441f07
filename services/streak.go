package services

import (
	"time"

	"student-engagement-system/models"
)

const dateKeyLayout = "2006-01-02"

// weekStartMonday truncates t to 00:00 on the Monday of its calendar week.
// Sunday belongs to the week that started six days earlier.
func weekStartMonday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(t.Weekday()) - 1
	if offset < 0 {
		offset = 6
	}
	return t.AddDate(0, 0, -offset)
}

// countWeeklyStreak walks backward week by week from the current one and
// stops at the first week with no activity. An active week further back
// does not revive the streak.
func countWeeklyStreak(now time.Time, activeWeeks map[string]bool) int {
	streak := 0
	expected := weekStartMonday(now)
	for activeWeeks[expected.Format(dateKeyLayout)] {
		streak++
		expected = expected.AddDate(0, 0, -7)
	}
	return streak
}

// CalculateWeeklyStreak counts consecutive active calendar weeks up to and
// including the current week. Task submissions, challenge entries and ledger
// rows all count as activity.
func (s *EngagementService) CalculateWeeklyStreak(studentID string) (int, error) {
	if studentID == "" {
		return 0, nil
	}

	var stamps []time.Time

	var submissionTimes []time.Time
	if err := s.DB.Model(&models.TaskSubmission{}).
		Joins("INNER JOIN task_assignments ta ON ta.id = task_submissions.assignment_id").
		Where("ta.student_id = ?", studentID).
		Pluck("task_submissions.submitted_at", &submissionTimes).Error; err != nil {
		return 0, err
	}
	stamps = append(stamps, submissionTimes...)

	var entryTimes []time.Time
	if err := s.DB.Model(&models.WeeklyChallengeEntry{}).
		Where("student_id = ?", studentID).
		Pluck("created_at", &entryTimes).Error; err != nil {
		return 0, err
	}
	stamps = append(stamps, entryTimes...)

	var ledgerTimes []time.Time
	if err := s.DB.Model(&models.PointsLedgerEntry{}).
		Where("student_id = ?", studentID).
		Pluck("created_at", &ledgerTimes).Error; err != nil {
		return 0, err
	}
	stamps = append(stamps, ledgerTimes...)

	activeWeeks := make(map[string]bool, len(stamps))
	for _, ts := range stamps {
		activeWeeks[weekStartMonday(ts).Format(dateKeyLayout)] = true
	}

	return countWeeklyStreak(s.Now(), activeWeeks), nil
}
