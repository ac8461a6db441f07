package services

import (
	"errors"
	"log"
	"time"

	"student-engagement-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngagementService owns the point ledger and the derived snapshot
// (score, streak, level, badges). Now is injectable so week and month
// boundaries are testable.
type EngagementService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewEngagementService(db *gorm.DB) *EngagementService {
	return &EngagementService{DB: db, Now: time.Now}
}

type BadgeView struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
}

type Snapshot struct {
	Score  int         `json:"score"`
	Streak int         `json:"streak"`
	Level  Level       `json:"level"`
	Badges []BadgeView `json:"badges"`
}

type PointsResult struct {
	Delta int `json:"delta"`
	Snapshot
}

type ApplyPointsInput struct {
	StudentID  string
	Points     int
	SourceType models.PointSource
	SourceID   *string
	Note       *string
	CreatedBy  *string
}

func emptySnapshot() Snapshot {
	return Snapshot{Level: LevelInfo(0), Badges: []BadgeView{}}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplyPoints writes one ledger row with the raw signed delta, moves the
// cached score (clamped at zero), then resyncs the snapshot. A zero delta
// skips the write but still resyncs, so callers can use it as a cheap
// "recompute everything" entry point.
func (s *EngagementService) ApplyPoints(in ApplyPointsInput) (*PointsResult, error) {
	if in.StudentID == "" {
		return &PointsResult{Snapshot: emptySnapshot()}, nil
	}

	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = models.PointSourceManual
	}

	if in.Points != 0 {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var student models.Student
			if err := tx.Where("user_id = ?", in.StudentID).First(&student).Error; err != nil {
				return err
			}

			next := student.Score + in.Points
			if next < 0 {
				next = 0
			}
			if err := tx.Model(&models.Student{}).
				Where("user_id = ?", in.StudentID).
				Update("score", next).Error; err != nil {
				return err
			}

			entry := models.PointsLedgerEntry{
				ID:         uuid.NewString(),
				StudentID:  in.StudentID,
				SourceType: sourceType,
				SourceID:   in.SourceID,
				Points:     in.Points,
				Note:       in.Note,
				CreatedBy:  in.CreatedBy,
			}
			return tx.Create(&entry).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &PointsResult{Snapshot: emptySnapshot()}, nil
			}
			return nil, err
		}
	}

	snap, err := s.SyncStudentGamification(in.StudentID)
	if err != nil {
		return nil, err
	}
	return &PointsResult{Delta: in.Points, Snapshot: *snap}, nil
}

// SyncStudentGamification recomputes the full derived snapshot and sweeps
// milestone badges. Safe to call any number of times.
func (s *EngagementService) SyncStudentGamification(studentID string) (*Snapshot, error) {
	if studentID == "" {
		snap := emptySnapshot()
		return &snap, nil
	}

	score, err := s.GetStudentScore(studentID)
	if err != nil {
		return nil, err
	}
	streak, err := s.CalculateWeeklyStreak(studentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMilestoneBadges(studentID, score, streak); err != nil {
		return nil, err
	}
	badges, err := s.GetStudentBadges(studentID, 50)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Score: score, Streak: streak, Level: LevelInfo(score), Badges: badges}, nil
}

// GetStudentScore reads the cached aggregate. Unknown students read as zero.
func (s *EngagementService) GetStudentScore(studentID string) (int, error) {
	if studentID == "" {
		return 0, nil
	}
	var student models.Student
	err := s.DB.Where("user_id = ?", studentID).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if student.Score < 0 {
		return 0, nil
	}
	return student.Score, nil
}

func (s *EngagementService) ensureMilestoneBadges(studentID string, score, streak int) error {
	wins, certificates, err := s.fetchBadgeMetrics(studentID)
	if err != nil {
		return err
	}

	for _, rule := range models.BadgeRules {
		var value int
		switch rule.Metric {
		case models.BadgeMetricScore:
			value = score
		case models.BadgeMetricStreak:
			value = streak
		case models.BadgeMetricWins:
			value = wins
		case models.BadgeMetricCertificates:
			value = certificates
		}
		if value < rule.Threshold {
			continue
		}
		if _, err := s.AwardBadge(studentID, rule, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *EngagementService) fetchBadgeMetrics(studentID string) (wins, certificates int, err error) {
	var winCount int64
	if err := s.DB.Model(&models.WeeklyChallengeEntry{}).
		Where("student_id = ? AND rank_position = 1 AND status IN ?",
			studentID, []models.EntryStatus{models.EntryStatusApproved, models.EntryStatusGraded}).
		Count(&winCount).Error; err != nil {
		return 0, 0, err
	}

	var certCount int64
	if err := s.DB.Model(&models.Certificate{}).
		Where("student_id = ?", studentID).
		Count(&certCount).Error; err != nil {
		return 0, 0, err
	}

	return int(winCount), int(certCount), nil
}

// AwardBadge grants one badge if the student does not already hold it.
// Returns true when a new row was created. The unique (student, code) pair
// absorbs concurrent grants.
func (s *EngagementService) AwardBadge(studentID string, rule models.BadgeRule, notify bool) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.StudentBadge{}).
		Where("student_id = ? AND badge_code = ?", studentID, rule.Code).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	badge := models.StudentBadge{
		ID:               uuid.NewString(),
		StudentID:        studentID,
		BadgeCode:        rule.Code,
		BadgeName:        rule.Name,
		BadgeIcon:        rule.Icon,
		BadgeDescription: rule.Description,
	}
	if err := s.DB.Create(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	log.Printf("🎖️ Badge awarded: %s → %s", rule.Name, studentID)

	if notify {
		s.AddNotification(studentID, "badge", "Yangi nishon", "Tabriklaymiz! Yangi nishon: "+rule.Name)
	}
	return true, nil
}

func (s *EngagementService) GetStudentBadges(studentID string, limit int) ([]BadgeView, error) {
	if studentID == "" {
		return []BadgeView{}, nil
	}
	limit = clampInt(limit, 1, 100)

	var rows []models.StudentBadge
	if err := s.DB.Where("student_id = ?", studentID).
		Order("awarded_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	badges := make([]BadgeView, 0, len(rows))
	for _, row := range rows {
		badges = append(badges, BadgeView{
			Code:        row.BadgeCode,
			Name:        row.BadgeName,
			Icon:        row.BadgeIcon,
			Description: row.BadgeDescription,
			AwardedAt:   row.AwardedAt,
		})
	}
	return badges, nil
}

// AddNotification is fire-and-forget: a failed insert is logged, never
// returned, so notification problems cannot break point accounting.
func (s *EngagementService) AddNotification(userID, ntype, title, body string) {
	if userID == "" {
		return
	}
	n := models.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   ntype,
		Title:  title,
		Body:   body,
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.Printf("⚠️ Failed to insert notification for %s: %v", userID, err)
	}
}
