package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"student-engagement-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewService handles curator reviews: grading challenge entries and task
// assignments, plus the one-off sweep that backfills points for grades
// recorded before the ledger existed.
type ReviewService struct {
	DB         *gorm.DB
	Engagement *EngagementService
}

func NewReviewService(db *gorm.DB, engagement *EngagementService) *ReviewService {
	return &ReviewService{DB: db, Engagement: engagement}
}

// challengeRankBonus scales the challenge prize by podium rank: full for
// rank 1, 70% for rank 2, 40% for rank 3, nothing below.
func challengeRankBonus(bonusPoints, rank int) int {
	if bonusPoints < 1 || rank < 1 {
		return 0
	}
	switch rank {
	case 1:
		return bonusPoints
	case 2:
		return int(math.Round(float64(bonusPoints) * 0.7))
	case 3:
		return int(math.Round(float64(bonusPoints) * 0.4))
	}
	return 0
}

type ChallengeReviewInput struct {
	EntryID      string
	Status       *models.EntryStatus
	Score        *int
	RankPosition *int
	Feedback     *string
	ReviewerID   string
}

type ReviewResult struct {
	Delta  int                `json:"delta"`
	Status models.EntryStatus `json:"status"`
	Snapshot
}

var ErrEntryNotFound = errors.New("challenge entry not found")
var ErrAssignmentNotFound = errors.New("task assignment not found")
var ErrInvalidGradeScore = errors.New("graded score must be between 0 and 10")

// ReviewChallengeEntry applies a curator's verdict. Points move through the
// ledger as the difference between what the entry had already applied and
// what the new status/score/rank implies, so repeated reviews never double
// count.
func (s *ReviewService) ReviewChallengeEntry(in ChallengeReviewInput) (*ReviewResult, error) {
	var entry models.WeeklyChallengeEntry
	if err := s.DB.Where("id = ?", in.EntryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	var challenge models.WeeklyChallenge
	if err := s.DB.Where("id = ?", entry.ChallengeID).First(&challenge).Error; err != nil {
		return nil, err
	}

	nextStatus := entry.Status
	if in.Status != nil {
		nextStatus = *in.Status
	}
	nextScore := 0
	if entry.Score != nil {
		nextScore = *entry.Score
	}
	if in.Score != nil {
		nextScore = clampInt(*in.Score, 0, 100)
	}
	nextRank := entry.RankPosition
	if in.RankPosition != nil {
		nextRank = in.RankPosition
	}

	rank := 0
	if nextRank != nil {
		rank = *nextRank
	}

	nextApplied := entry.PointsApplied
	switch nextStatus {
	case models.EntryStatusApproved, models.EntryStatusGraded:
		nextApplied = nextScore + challengeRankBonus(challenge.BonusPoints, rank)
	case models.EntryStatusRejected:
		nextApplied = 0
	}
	delta := nextApplied - entry.PointsApplied

	updates := map[string]interface{}{
		"status":         nextStatus,
		"score":          nextScore,
		"rank_position":  nextRank,
		"points_applied": nextApplied,
	}
	if in.Feedback != nil {
		updates["feedback"] = *in.Feedback
	}
	if err := s.DB.Model(&models.WeeklyChallengeEntry{}).
		Where("id = ?", entry.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var snap *Snapshot
	if delta != 0 {
		note := fmt.Sprintf("Challenge: %s", challenge.Title)
		result, err := s.Engagement.ApplyPoints(ApplyPointsInput{
			StudentID:  entry.StudentID,
			Points:     delta,
			SourceType: models.PointSourceWeeklyChallenge,
			SourceID:   &entry.ID,
			Note:       &note,
			CreatedBy:  optionalString(in.ReviewerID),
		})
		if err != nil {
			return nil, err
		}
		snap = &result.Snapshot
	} else {
		var err error
		snap, err = s.Engagement.SyncStudentGamification(entry.StudentID)
		if err != nil {
			return nil, err
		}
	}

	if (nextStatus == models.EntryStatusApproved || nextStatus == models.EntryStatusGraded) && rank >= 1 && rank <= 3 {
		if err := s.maybeCreateChallengeRankCertificate(&entry, &challenge, rank, in.ReviewerID); err != nil {
			return nil, err
		}
	}

	s.Engagement.AddNotification(entry.StudentID, "challenge_review", "Challenge natijasi",
		fmt.Sprintf("\"%s\" bo'yicha natijangiz yangilandi.", challenge.Title))

	return &ReviewResult{Delta: delta, Status: nextStatus, Snapshot: *snap}, nil
}

// maybeCreateChallengeRankCertificate issues one certificate per
// (student, challenge, rank label). Re-reviews with the same rank are
// no-ops; a changed rank gets its own certificate.
func (s *ReviewService) maybeCreateChallengeRankCertificate(entry *models.WeeklyChallengeEntry, challenge *models.WeeklyChallenge, rank int, reviewerID string) error {
	rankLabel := fmt.Sprintf("%d-o'rin", rank)

	var count int64
	if err := s.DB.Model(&models.Certificate{}).
		Where("student_id = ? AND challenge_id = ? AND rank_label = ?", entry.StudentID, challenge.ID, rankLabel).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	issuedBy := reviewerID
	if issuedBy == "" {
		issuedBy = challenge.CreatedBy
	}
	note := fmt.Sprintf("\"%s\" challenge'ida %s.", challenge.Title, rankLabel)
	cert := models.Certificate{
		ID:          uuid.NewString(),
		StudentID:   entry.StudentID,
		ChallengeID: &challenge.ID,
		IssuedBy:    issuedBy,
		Title:       "Challenge g'olibi",
		RankLabel:   &rankLabel,
		Note:        &note,
	}
	if err := s.DB.Create(&cert).Error; err != nil {
		return err
	}

	if rank == 1 {
		rule := models.BadgeRule{
			Code:        "challenge_win_" + challenge.ID,
			Name:        "Challenge g'olibi",
			Icon:        "trophy",
			Description: fmt.Sprintf("\"%s\" challenge'ida 1-o'rin", challenge.Title),
		}
		if _, err := s.Engagement.AwardBadge(entry.StudentID, rule, true); err != nil {
			return err
		}
	}
	return nil
}

type TaskGradeInput struct {
	AssignmentID string
	Status       *models.AssignmentStatus
	Score        *int
	Feedback     *string
	GraderID     string
}

// GradeTaskAssignment works like the challenge review: the assignment
// remembers how many points it already applied and only the difference
// reaches the ledger.
func (s *ReviewService) GradeTaskAssignment(in TaskGradeInput) (*ReviewResult, error) {
	var assignment models.TaskAssignment
	if err := s.DB.Where("id = ?", in.AssignmentID).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	var task models.Task
	if err := s.DB.Where("id = ?", assignment.TaskID).First(&task).Error; err != nil {
		return nil, err
	}

	nextStatus := assignment.Status
	if in.Status != nil {
		nextStatus = *in.Status
	}
	// Task grades run on a 0..10 scale, unlike challenge scores. A grade
	// without an explicit status moves the assignment to graded.
	nextScore := assignment.GradedScore
	if in.Score != nil {
		if *in.Score < 0 || *in.Score > 10 {
			return nil, ErrInvalidGradeScore
		}
		nextScore = in.Score
		if in.Status == nil {
			nextStatus = models.AssignmentStatusGraded
		}
	}

	nextApplied := assignment.PointsApplied
	switch nextStatus {
	case models.AssignmentStatusGraded:
		nextApplied = 0
		if nextScore != nil {
			nextApplied = *nextScore
		}
	case models.AssignmentStatusRejected:
		nextApplied = 0
	}
	delta := nextApplied - assignment.PointsApplied

	updates := map[string]interface{}{
		"status":         nextStatus,
		"graded_score":   nextScore,
		"points_applied": nextApplied,
	}
	if in.Feedback != nil {
		updates["feedback"] = *in.Feedback
	}
	if err := s.DB.Model(&models.TaskAssignment{}).
		Where("id = ?", assignment.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var snap *Snapshot
	if delta != 0 {
		note := fmt.Sprintf("Vazifa: %s", task.Title)
		result, err := s.Engagement.ApplyPoints(ApplyPointsInput{
			StudentID:  assignment.StudentID,
			Points:     delta,
			SourceType: models.PointSourceTaskGrade,
			SourceID:   &assignment.ID,
			Note:       &note,
			CreatedBy:  optionalString(in.GraderID),
		})
		if err != nil {
			return nil, err
		}
		snap = &result.Snapshot
	} else {
		var err error
		snap, err = s.Engagement.SyncStudentGamification(assignment.StudentID)
		if err != nil {
			return nil, err
		}
	}

	s.Engagement.AddNotification(assignment.StudentID, "task_review", "Vazifa natijasi",
		fmt.Sprintf("\"%s\" vazifangiz baholandi.", task.Title))

	return &ReviewResult{Delta: delta, Status: models.EntryStatus(nextStatus), Snapshot: *snap}, nil
}

// SyncLegacyTaskGradePoints backfills ledger points for assignments graded
// before point accounting existed (points_applied still zero despite a
// positive grade). Because each pass sets points_applied, running the sweep
// again is a no-op for already-migrated rows.
func (s *ReviewService) SyncLegacyTaskGradePoints(limit int) (int, error) {
	limit = clampInt(limit, 50, 5000)

	var rows []struct {
		ID          string
		StudentID   string
		GradedScore int
		Title       string
	}
	if err := s.DB.Raw(`
		SELECT ta.id, ta.student_id, ta.graded_score, t.title
		FROM task_assignments ta
		INNER JOIN tasks t ON t.id = ta.task_id
		WHERE ta.graded_score IS NOT NULL AND ta.graded_score > 0
		  AND (ta.points_applied IS NULL OR ta.points_applied = 0)
		ORDER BY ta.updated_at ASC
		LIMIT ?`, limit).Scan(&rows).Error; err != nil {
		return 0, err
	}

	migrated := 0
	for _, row := range rows {
		if row.GradedScore < 1 {
			continue
		}
		if err := s.DB.Model(&models.TaskAssignment{}).
			Where("id = ?", row.ID).
			Update("points_applied", row.GradedScore).Error; err != nil {
			return migrated, err
		}
		note := fmt.Sprintf("Eski baho migratsiyasi: %s", row.Title)
		if _, err := s.Engagement.ApplyPoints(ApplyPointsInput{
			StudentID:  row.StudentID,
			Points:     row.GradedScore,
			SourceType: models.PointSourceTaskGradeMigration,
			SourceID:   optionalString(row.ID),
			Note:       &note,
		}); err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, nil
}

// PendingTaskStats summarises a student's open work for reminders and the
// profile endpoint.
type PendingTaskStats struct {
	PendingCount int      `json:"pending_count"`
	DueSoonCount int      `json:"due_soon_count"`
	Reminders    []string `json:"reminders"`
}

// GetPendingTaskStats lists active tasks from the student's curator that
// the student has not submitted yet. Due soon means a deadline within 48
// hours of now.
func (s *ReviewService) GetPendingTaskStats(studentID string) (*PendingTaskStats, error) {
	stats := &PendingTaskStats{Reminders: []string{}}
	if studentID == "" {
		return stats, nil
	}

	var rows []struct {
		Title      string
		DeadlineAt *time.Time
	}
	if err := s.DB.Raw(`
		SELECT t.title, t.deadline_at
		FROM tasks t
		INNER JOIN students st ON st.curator_id = t.curator_id
		LEFT JOIN task_assignments ta ON ta.task_id = t.id AND ta.student_id = st.user_id
		WHERE st.user_id = ? AND t.status = 'active'
		  AND (ta.id IS NULL OR ta.status IN ('assigned', 'rejected'))
		ORDER BY t.deadline_at ASC
		LIMIT 20`, studentID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	now := s.Engagement.Now()
	for _, row := range rows {
		stats.PendingCount++
		if row.DeadlineAt != nil && row.DeadlineAt.After(now) && row.DeadlineAt.Before(now.Add(48*time.Hour)) {
			stats.DueSoonCount++
			stats.Reminders = append(stats.Reminders, fmt.Sprintf("\"%s\" muddati yaqin: %s", row.Title, row.DeadlineAt.Format("2006-01-02 15:04")))
		}
	}
	return stats, nil
}
