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

func newAwardService(t *testing.T, db *gorm.DB, now time.Time) *MonthlyAwardService {
	t.Helper()
	engagement := NewEngagementService(db)
	engagement.Now = fixedNow(now)
	templates := NewTemplateResolver(t.TempDir(), "/certificates/templates")
	svc := NewMonthlyAwardService(db, engagement, templates, "issuer-1")
	svc.Now = fixedNow(now)
	return svc
}

func seedLedgerActivity(t *testing.T, db *gorm.DB, studentID string, at time.Time) {
	t.Helper()
	entry := models.PointsLedgerEntry{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SourceType: models.PointSourceManual,
		Points:     1,
	}
	require.NoError(t, db.Create(&entry).Error)
	require.NoError(t, db.Model(&models.PointsLedgerEntry{}).Where("id = ?", entry.ID).Update("created_at", at).Error)
}

func TestMonthlyAwardsRunExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)
	july := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	first := seedStudent(t, db, "Winner", 90)
	second := seedStudent(t, db, "RunnerUp", 70)
	third := seedStudent(t, db, "Third", 50)
	for _, s := range []models.Student{first, second, third} {
		seedLedgerActivity(t, db, s.UserID, july)
	}

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "2025-07", result.MonthKey)
	assert.Equal(t, 3, result.CertificatesIssued)
	require.Len(t, result.Winners, 3)
	assert.Equal(t, first.UserID, result.Winners[0].StudentID)

	var run models.MonthlyAwardRun
	require.NoError(t, db.Where("month_key = ?", "2025-07").First(&run).Error)
	assert.Equal(t, models.AwardRunCompleted, run.Status)
	assert.NotNil(t, run.ProcessedAt)

	var rows []models.MonthlyLeaderboardRow
	require.NoError(t, db.Where("month_key = ?", "2025-07").Order("rank_position ASC").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, first.UserID, rows[0].StudentID)
	assert.Equal(t, 90, rows[0].ScoreValue)

	// Second run: claim lost, nothing re-issued
	again, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	assert.False(t, again.Processed)
	assert.Equal(t, "already_processed", again.Reason)

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Where("award_month_key = ?", "2025-07").Count(&certCount).Error)
	assert.Equal(t, int64(3), certCount)
}

func TestMonthlyAwardsForceOnlyReopensFailedRuns(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	winner := seedStudent(t, db, "Solo", 40)
	seedLedgerActivity(t, db, winner.UserID, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC))

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	require.True(t, result.Processed)

	// force on a completed run is still a no-op
	forced, err := svc.RunIfDue(now, true)
	require.NoError(t, err)
	assert.Equal(t, "already_processed", forced.Reason)

	// mark the run failed, force now reprocesses
	require.NoError(t, db.Model(&models.MonthlyAwardRun{}).Where("month_key = ?", "2025-07").Update("status", models.AwardRunFailed).Error)
	forced, err = svc.RunIfDue(now, true)
	require.NoError(t, err)
	assert.True(t, forced.Processed)

	// idempotency held through the rerun
	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Where("award_month_key = ?", "2025-07").Count(&certCount).Error)
	assert.Equal(t, int64(1), certCount)
}

func TestMonthlyAwardsIssuerFallbackChain(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)
	svc.FallbackIssuerID = ""

	winner := seedStudent(t, db, "Solo", 40)
	seedLedgerActivity(t, db, winner.UserID, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC))

	// no admins at all: run fails with issuer_not_found
	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	assert.Equal(t, "issuer_not_found", result.Reason)

	var run models.MonthlyAwardRun
	require.NoError(t, db.Where("month_key = ?", "2025-07").First(&run).Error)
	assert.Equal(t, models.AwardRunFailed, run.Status)

	// add admins: the earliest super wins over an older admin
	seedStaff(t, db, models.UserRoleAdmin, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	super := seedStaff(t, db, models.UserRoleSuper, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	forced, err := svc.RunIfDue(now, true)
	require.NoError(t, err)
	require.True(t, forced.Processed)

	var cert models.Certificate
	require.NoError(t, db.Where("award_month_key = ?", "2025-07").First(&cert).Error)
	assert.Equal(t, super.ID, cert.IssuedBy)
}

func TestMonthlyAwardsGlobalFallbackWhenMonthIsQuiet(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	// scores exist but nobody has July ledger rows
	seedStudent(t, db, "Quiet", 25)

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	require.Len(t, result.Winners, 1)
	assert.Equal(t, "Quiet", result.Winners[0].FullName)
}

func TestMonthlyAwardsSkipZeroScores(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	seedStudent(t, db, "Zero", 0)

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Empty(t, result.Winners)
	assert.Zero(t, result.CertificatesIssued)
}

func TestTopStreakAwardedOnThreeConsecutiveMonths(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	champ := seedStudent(t, db, "Champ", 120)
	seedLedgerActivity(t, db, champ.UserID, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC))

	for _, mk := range []string{"2025-05", "2025-06"} {
		row := models.MonthlyLeaderboardRow{
			ID:           uuid.NewString(),
			MonthKey:     mk,
			StudentID:    champ.UserID,
			RankPosition: 1,
			ScoreValue:   100,
		}
		require.NoError(t, db.Create(&row).Error)
	}

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	require.True(t, result.Processed)
	assert.True(t, result.StreakIssued)

	var streakCerts int64
	require.NoError(t, db.Model(&models.Certificate{}).
		Where("student_id = ? AND award_type = ?", champ.UserID, models.AwardTypeTopStreak).
		Count(&streakCerts).Error)
	assert.Equal(t, int64(1), streakCerts)

	var badge models.StudentBadge
	require.NoError(t, db.Where("student_id = ? AND badge_code = ?", champ.UserID, "top_streak_2025-07").First(&badge).Error)
}

func TestTopStreakRequiresConsecutiveMonths(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	champ := seedStudent(t, db, "Gappy", 120)
	seedLedgerActivity(t, db, champ.UserID, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC))

	// 2025-04 and 2025-06: one month gap before July
	for _, mk := range []string{"2025-04", "2025-06"} {
		row := models.MonthlyLeaderboardRow{
			ID:           uuid.NewString(),
			MonthKey:     mk,
			StudentID:    champ.UserID,
			RankPosition: 1,
			ScoreValue:   100,
		}
		require.NoError(t, db.Create(&row).Error)
	}

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	require.True(t, result.Processed)
	assert.False(t, result.StreakIssued)
}

func TestTopStreakRequiresSameStudent(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	svc := newAwardService(t, db, now)

	champ := seedStudent(t, db, "NewChamp", 120)
	other := seedStudent(t, db, "OldChamp", 10)
	seedLedgerActivity(t, db, champ.UserID, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC))

	for _, mk := range []string{"2025-05", "2025-06"} {
		row := models.MonthlyLeaderboardRow{
			ID:           uuid.NewString(),
			MonthKey:     mk,
			StudentID:    other.UserID,
			RankPosition: 1,
			ScoreValue:   100,
		}
		require.NoError(t, db.Create(&row).Error)
	}

	result, err := svc.RunIfDue(now, false)
	require.NoError(t, err)
	require.True(t, result.Processed)
	assert.False(t, result.StreakIssued)
}
