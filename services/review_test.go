package services

import (
	"testing"
	"time"

	"student-engagement-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChallengeRankBonus(t *testing.T) {
	cases := []struct {
		bonus, rank, want int
	}{
		{100, 1, 100},
		{100, 2, 70},
		{100, 3, 40},
		{100, 4, 0},
		{100, 0, 0},
		{0, 1, 0},
		{-10, 1, 0},
		{25, 2, 18}, // 17.5 rounds up
		{25, 3, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, challengeRankBonus(tc.bonus, tc.rank), "bonus=%d rank=%d", tc.bonus, tc.rank)
	}
}

func seedChallengeEntry(t *testing.T, db *gorm.DB, studentID string, bonusPoints int) (models.WeeklyChallenge, models.WeeklyChallengeEntry) {
	t.Helper()

	challenge := models.WeeklyChallenge{
		ID:          uuid.NewString(),
		CreatedBy:   "curator-1",
		Title:       "Haftalik insho",
		BonusPoints: bonusPoints,
		StartsAt:    time.Now().AddDate(0, 0, -7),
		EndsAt:      time.Now(),
		Status:      "active",
	}
	require.NoError(t, db.Create(&challenge).Error)

	entry := models.WeeklyChallengeEntry{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		StudentID:   studentID,
		Status:      models.EntryStatusSubmitted,
	}
	require.NoError(t, db.Create(&entry).Error)
	return challenge, entry
}

func TestReviewChallengeEntryAppliesScoreAndBonus(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Iroda", 0)
	_, entry := seedChallengeEntry(t, db, student.UserID, 10)

	status := models.EntryStatusGraded
	score := 80
	rank := 1
	result, err := svc.ReviewChallengeEntry(ChallengeReviewInput{
		EntryID:      entry.ID,
		Status:       &status,
		Score:        &score,
		RankPosition: &rank,
		ReviewerID:   "curator-1",
	})
	require.NoError(t, err)

	// 80 score + full 10 bonus for rank 1
	assert.Equal(t, 90, result.Delta)
	assert.Equal(t, 90, result.Score)

	var stored models.WeeklyChallengeEntry
	require.NoError(t, db.Where("id = ?", entry.ID).First(&stored).Error)
	assert.Equal(t, 90, stored.PointsApplied)
}

func TestReviewChallengeEntryReReviewMovesOnlyTheDifference(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Jasur", 0)
	_, entry := seedChallengeEntry(t, db, student.UserID, 0)

	status := models.EntryStatusGraded
	score := 50
	_, err := svc.ReviewChallengeEntry(ChallengeReviewInput{EntryID: entry.ID, Status: &status, Score: &score})
	require.NoError(t, err)

	// re-grade down to 30: the ledger gets a -20 row, not a fresh +30
	score = 30
	result, err := svc.ReviewChallengeEntry(ChallengeReviewInput{EntryID: entry.ID, Status: &status, Score: &score})
	require.NoError(t, err)
	assert.Equal(t, -20, result.Delta)
	assert.Equal(t, 30, result.Score)

	var total int64
	require.NoError(t, db.Model(&models.PointsLedgerEntry{}).Where("student_id = ?", student.UserID).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestReviewChallengeEntryRejectionTakesPointsBack(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Kamola", 0)
	_, entry := seedChallengeEntry(t, db, student.UserID, 0)

	graded := models.EntryStatusGraded
	score := 40
	_, err := svc.ReviewChallengeEntry(ChallengeReviewInput{EntryID: entry.ID, Status: &graded, Score: &score})
	require.NoError(t, err)

	rejected := models.EntryStatusRejected
	result, err := svc.ReviewChallengeEntry(ChallengeReviewInput{EntryID: entry.ID, Status: &rejected})
	require.NoError(t, err)
	assert.Equal(t, -40, result.Delta)
	assert.Equal(t, 0, result.Score)
}

func TestReviewChallengeEntryPodiumCertificateAndWinnerBadge(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Laylo", 0)
	challenge, entry := seedChallengeEntry(t, db, student.UserID, 20)

	status := models.EntryStatusApproved
	score := 60
	rank := 1
	_, err := svc.ReviewChallengeEntry(ChallengeReviewInput{
		EntryID: entry.ID, Status: &status, Score: &score, RankPosition: &rank, ReviewerID: "curator-1",
	})
	require.NoError(t, err)

	var certs []models.Certificate
	require.NoError(t, db.Where("student_id = ? AND challenge_id = ?", student.UserID, challenge.ID).Find(&certs).Error)
	require.Len(t, certs, 1)
	assert.Equal(t, "1-o'rin", *certs[0].RankLabel)

	// same rank reviewed again: no duplicate certificate
	_, err = svc.ReviewChallengeEntry(ChallengeReviewInput{
		EntryID: entry.ID, Status: &status, Score: &score, RankPosition: &rank, ReviewerID: "curator-1",
	})
	require.NoError(t, err)
	require.NoError(t, db.Where("student_id = ? AND challenge_id = ?", student.UserID, challenge.ID).Find(&certs).Error)
	assert.Len(t, certs, 1)

	var badge models.StudentBadge
	require.NoError(t, db.Where("student_id = ? AND badge_code = ?", student.UserID, "challenge_win_"+challenge.ID).First(&badge).Error)
}

func TestGradeTaskAssignment(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Madina", 0)
	task := models.Task{ID: uuid.NewString(), CuratorID: "curator-1", Title: "Konspekt", Status: models.TaskStatusActive}
	require.NoError(t, db.Create(&task).Error)
	assignment := models.TaskAssignment{
		ID: uuid.NewString(), TaskID: task.ID, StudentID: student.UserID,
		Status: models.AssignmentStatusSubmitted,
	}
	require.NoError(t, db.Create(&assignment).Error)

	// grade without an explicit status moves the assignment to graded
	score := 7
	result, err := svc.GradeTaskAssignment(TaskGradeInput{
		AssignmentID: assignment.ID, Score: &score, GraderID: "curator-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Delta)
	assert.Equal(t, 7, result.Score)

	var stored models.TaskAssignment
	require.NoError(t, db.Where("id = ?", assignment.ID).First(&stored).Error)
	assert.Equal(t, models.AssignmentStatusGraded, stored.Status)

	// out-of-scale grades are rejected outright
	bad := 42
	_, err = svc.GradeTaskAssignment(TaskGradeInput{AssignmentID: assignment.ID, Score: &bad})
	assert.ErrorIs(t, err, ErrInvalidGradeScore)

	// rejection claws the applied points back through the ledger
	rejected := models.AssignmentStatusRejected
	result, err = svc.GradeTaskAssignment(TaskGradeInput{AssignmentID: assignment.ID, Status: &rejected})
	require.NoError(t, err)
	assert.Equal(t, -7, result.Delta)
	assert.Equal(t, 0, result.Score)
}

func TestSyncLegacyTaskGradePointsAppliesOnce(t *testing.T) {
	db := newTestDB(t)
	engagement := NewEngagementService(db)
	svc := NewReviewService(db, engagement)

	student := seedStudent(t, db, "Nodir", 0)
	task := models.Task{ID: uuid.NewString(), CuratorID: "curator-1", Title: "Eski vazifa", Status: models.TaskStatusActive}
	require.NoError(t, db.Create(&task).Error)

	grade := 9
	assignment := models.TaskAssignment{
		ID: uuid.NewString(), TaskID: task.ID, StudentID: student.UserID,
		Status: models.AssignmentStatusGraded, GradedScore: &grade, PointsApplied: 0,
	}
	require.NoError(t, db.Create(&assignment).Error)

	migrated, err := svc.SyncLegacyTaskGradePoints(100)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	score, err := engagement.GetStudentScore(student.UserID)
	require.NoError(t, err)
	assert.Equal(t, 9, score)

	var entry models.PointsLedgerEntry
	require.NoError(t, db.Where("student_id = ?", student.UserID).First(&entry).Error)
	assert.Equal(t, models.PointSourceTaskGradeMigration, entry.SourceType)

	// second sweep is a no-op
	migrated, err = svc.SyncLegacyTaskGradePoints(100)
	require.NoError(t, err)
	assert.Zero(t, migrated)

	score, err = engagement.GetStudentScore(student.UserID)
	require.NoError(t, err)
	assert.Equal(t, 9, score)
}
