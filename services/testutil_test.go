package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"student-engagement-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test. cache=shared
// keeps the schema alive across pooled connections; the test name keeps
// databases from leaking between tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.PointsLedgerEntry{},
		&models.StudentBadge{},
		&models.Certificate{},
		&models.MonthlyLeaderboardRow{},
		&models.MonthlyAwardRun{},
		&models.Notification{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.TaskSubmission{},
		&models.WeeklyChallenge{},
		&models.WeeklyChallengeEntry{},
	))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, fullName string, score int) models.Student {
	t.Helper()

	user := models.User{
		ID:     uuid.NewString(),
		Role:   models.UserRoleStudent,
		Email:  fmt.Sprintf("%s@test.local", uuid.NewString()),
		Status: models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)

	student := models.Student{
		UserID:    user.ID,
		CuratorID: "curator-1",
		FullName:  fullName,
		Score:     score,
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedStaff(t *testing.T, db *gorm.DB, role models.UserRole, createdAt time.Time) models.User {
	t.Helper()

	user := models.User{
		ID:     uuid.NewString(),
		Role:   role,
		Email:  fmt.Sprintf("%s@test.local", uuid.NewString()),
		Status: models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("created_at", createdAt).Error)
	return user
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
