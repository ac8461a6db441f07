package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"student-engagement-system/models"
	"student-engagement-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonthlyAwardService closes out the previous month: it freezes the top-3
// snapshot, issues rank certificates and checks the three-month streak
// award. The run row claim makes the whole pipeline at-most-once per month
// no matter how many schedulers or endpoint pokes race for it.
type MonthlyAwardService struct {
	DB         *gorm.DB
	Engagement *EngagementService
	Templates  *TemplateResolver

	// FallbackIssuerID short-circuits issuer resolution when set (env
	// SYSTEM_AWARD_ISSUER_ID).
	FallbackIssuerID string
	Now              func() time.Time
}

func NewMonthlyAwardService(db *gorm.DB, engagement *EngagementService, templates *TemplateResolver, fallbackIssuerID string) *MonthlyAwardService {
	return &MonthlyAwardService{
		DB:               db,
		Engagement:       engagement,
		Templates:        templates,
		FallbackIssuerID: fallbackIssuerID,
		Now:              time.Now,
	}
}

type MonthlyWinner struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Score     int    `json:"score"`
}

type MonthlyAwardResult struct {
	Processed          bool            `json:"processed"`
	Reason             string          `json:"reason,omitempty"`
	MonthKey           string          `json:"month_key"`
	Winners            []MonthlyWinner `json:"winners,omitempty"`
	CertificatesIssued int             `json:"certificates_issued"`
	StreakIssued       bool            `json:"streak_issued"`
	Error              string          `json:"error,omitempty"`
}

// RunIfDue processes the month before now. force reopens a failed run;
// completed runs stay terminal even under force.
func (s *MonthlyAwardService) RunIfDue(now time.Time, force bool) (*MonthlyAwardResult, error) {
	target := shiftMonth(now, -1)
	mk := monthKey(target)

	acquired, err := s.acquireRun(mk)
	if err != nil {
		return nil, err
	}
	if !acquired {
		if !force {
			return &MonthlyAwardResult{Reason: "already_processed", MonthKey: mk}, nil
		}
		var existing models.MonthlyAwardRun
		if err := s.DB.Where("month_key = ?", mk).First(&existing).Error; err != nil {
			return nil, err
		}
		if existing.Status != models.AwardRunFailed {
			return &MonthlyAwardResult{Reason: "already_processed", MonthKey: mk}, nil
		}
		if err := s.DB.Model(&models.MonthlyAwardRun{}).
			Where("month_key = ?", mk).
			Updates(map[string]interface{}{
				"status":       models.AwardRunProcessing,
				"message":      "Force rerun",
				"processed_at": nil,
			}).Error; err != nil {
			return nil, err
		}
	}

	result, err := s.process(mk, target)
	if err != nil {
		log.Printf("❌ [Awards] Monthly run %s failed: %v", mk, err)
		s.finalizeRun(mk, models.AwardRunFailed, err.Error())
		return &MonthlyAwardResult{Reason: "failed", MonthKey: mk, Error: err.Error()}, nil
	}
	return result, nil
}

// acquireRun claims the month by inserting the run row. Losing the insert
// to the unique month_key just means someone else is (or was) on it.
func (s *MonthlyAwardService) acquireRun(mk string) (bool, error) {
	message := "Auto monthly award run"
	run := models.MonthlyAwardRun{
		ID:       uuid.NewString(),
		MonthKey: mk,
		Status:   models.AwardRunProcessing,
		Message:  &message,
	}
	if err := s.DB.Create(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MonthlyAwardService) process(mk string, target time.Time) (*MonthlyAwardResult, error) {
	templates := s.Templates.Resolve(false)

	issuerID, err := s.resolveIssuerID()
	if err != nil {
		return nil, err
	}
	if issuerID == "" {
		s.finalizeRun(mk, models.AwardRunFailed, "Award issuer not found")
		return &MonthlyAwardResult{Reason: "issuer_not_found", MonthKey: mk}, nil
	}

	winners, err := s.fetchMonthlyTopStudents(target)
	if err != nil {
		return nil, err
	}
	if err := s.persistMonthlyLeaderboard(mk, winners); err != nil {
		return nil, err
	}

	certificates := 0
	streakIssued := false
	for i, winner := range winners {
		rank := i + 1
		created, err := s.createMonthlyRankCertificate(mk, rank, winner, issuerID, templates)
		if err != nil {
			return nil, err
		}
		if created {
			certificates++
		}
		if rank == 1 {
			streakIssued, err = s.maybeAwardTopStreak(winner, issuerID, templates, mk)
			if err != nil {
				return nil, err
			}
		}
	}

	message := fmt.Sprintf("Winners: %d. Certificates: %d. Top streak: %t", len(winners), certificates, streakIssued)
	s.finalizeRun(mk, models.AwardRunCompleted, message)
	log.Printf("✅ [Awards] Monthly run %s completed: %s", mk, message)

	return &MonthlyAwardResult{
		Processed:          true,
		MonthKey:           mk,
		Winners:            winners,
		CertificatesIssued: certificates,
		StreakIssued:       streakIssued,
	}, nil
}

// resolveIssuerID picks who signs system certificates: the configured
// fallback, else the earliest super account, else the earliest admin.
func (s *MonthlyAwardService) resolveIssuerID() (string, error) {
	if s.FallbackIssuerID != "" {
		return s.FallbackIssuerID, nil
	}

	var user models.User
	err := s.DB.Where("role = ?", models.UserRoleSuper).
		Order("created_at ASC").
		First(&user).Error
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	err = s.DB.Where("role IN ?", []models.UserRole{models.UserRoleAdmin, models.UserRoleSuper}).
		Order("created_at ASC").
		First(&user).Error
	if err == nil {
		return user.ID, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", err
}

// fetchMonthlyTopStudents prefers students with ledger activity inside the
// award month; a sparse month falls back to the global top 3 so awards
// still go out.
func (s *MonthlyAwardService) fetchMonthlyTopStudents(target time.Time) ([]MonthlyWinner, error) {
	start, end := monthBounds(target)

	baseQuery := `
		SELECT s.user_id AS student_id, s.full_name, s.score
		FROM students s
		INNER JOIN users u ON u.id = s.user_id
		WHERE u.role = 'student' AND u.status = 'active' AND s.score > 0`

	var winners []MonthlyWinner
	if err := s.DB.Raw(baseQuery+`
		AND s.user_id IN (
			SELECT DISTINCT student_id FROM student_points_ledger
			WHERE created_at BETWEEN ? AND ?
		)
		ORDER BY s.score DESC, s.full_name ASC
		LIMIT 3`, start, end).Scan(&winners).Error; err != nil {
		return nil, err
	}
	if len(winners) > 0 {
		return winners, nil
	}

	if err := s.DB.Raw(baseQuery + `
		ORDER BY s.score DESC, s.full_name ASC
		LIMIT 3`).Scan(&winners).Error; err != nil {
		return nil, err
	}
	return winners, nil
}

// persistMonthlyLeaderboard freezes the podium. Reruns refresh the score of
// an existing rank row but never swap the student: the first completed
// snapshot of a month is the historical record.
func (s *MonthlyAwardService) persistMonthlyLeaderboard(mk string, winners []MonthlyWinner) error {
	for i, winner := range winners {
		rank := i + 1

		var existing models.MonthlyLeaderboardRow
		err := s.DB.Where("month_key = ? AND rank_position = ?", mk, rank).First(&existing).Error
		if err == nil {
			if err := s.DB.Model(&models.MonthlyLeaderboardRow{}).
				Where("id = ?", existing.ID).
				Update("score_value", winner.Score).Error; err != nil {
				return err
			}
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := models.MonthlyLeaderboardRow{
			ID:           uuid.NewString(),
			MonthKey:     mk,
			StudentID:    winner.StudentID,
			RankPosition: rank,
			ScoreValue:   winner.Score,
		}
		if err := s.DB.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
	}
	return nil
}

func (s *MonthlyAwardService) createMonthlyRankCertificate(mk string, rank int, winner MonthlyWinner, issuerID string, templates *MonthlyCertificateTemplates) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.Certificate{}).
		Where("student_id = ? AND award_type = ? AND award_month_key = ? AND award_rank = ?",
			winner.StudentID, models.AwardTypeMonthlyRank, mk, rank).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	tpl := templates.ForRank(rank)
	pdfURL := tpl.URL
	if utils.R2Ready() && tpl.Name != "" {
		archiveKey := fmt.Sprintf("awards/%s/rank-%d.pdf", mk, rank)
		if archived, err := utils.UploadLocalFileToR2(filepath.Join(s.Templates.Dir, tpl.Name), archiveKey, "application/pdf"); err != nil {
			log.Printf("⚠️ [Awards] R2 archive failed for %s rank %d: %v", mk, rank, err)
		} else {
			pdfURL = archived
		}
	}

	rankLabel := fmt.Sprintf("%d-o'rin", rank)
	note := fmt.Sprintf("%s oyi natijasi. Ball: %d.", mk, winner.Score)
	templateName := fmt.Sprintf("monthly-rank-%d", rank)
	awardType := models.AwardTypeMonthlyRank
	awardRank := rank

	cert := models.Certificate{
		ID:            uuid.NewString(),
		StudentID:     winner.StudentID,
		IssuedBy:      issuerID,
		Title:         "Oy yakuni g'olibi",
		RankLabel:     &rankLabel,
		AwardType:     &awardType,
		AwardMonthKey: &mk,
		AwardRank:     &awardRank,
		Note:          &note,
		TemplateName:  &templateName,
		TemplateURL:   optionalString(tpl.URL),
		PDFURL:        optionalString(pdfURL),
	}
	if err := s.DB.Create(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race to another run, the award already exists
			return false, nil
		}
		return false, err
	}

	s.Engagement.AddNotification(winner.StudentID, "monthly_award", "Oy yakuni sertifikati",
		fmt.Sprintf("Tabriklaymiz, %s! %s oyi uchun %s sertifikati berildi.", winner.FullName, mk, rankLabel))
	return true, nil
}

// maybeAwardTopStreak issues the grand certificate when the same student
// holds rank 1 in the three most recent snapshot months and those months
// are consecutive.
func (s *MonthlyAwardService) maybeAwardTopStreak(winner MonthlyWinner, issuerID string, templates *MonthlyCertificateTemplates, mk string) (bool, error) {
	var rows []models.MonthlyLeaderboardRow
	if err := s.DB.Where("rank_position = 1").
		Order("month_key DESC").
		Limit(3).
		Find(&rows).Error; err != nil {
		return false, err
	}
	if len(rows) < 3 {
		return false, nil
	}

	keys := make([]string, 0, 3)
	for _, row := range rows {
		if row.StudentID != winner.StudentID {
			return false, nil
		}
		keys = append(keys, row.MonthKey)
	}
	if !isConsecutiveMonthKeys(keys) {
		return false, nil
	}

	var count int64
	if err := s.DB.Model(&models.Certificate{}).
		Where("student_id = ? AND award_type = ? AND award_month_key = ?",
			winner.StudentID, models.AwardTypeTopStreak, mk).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	var topTpl TemplateRef
	if templates != nil {
		topTpl = templates.Top
	}

	rankLabel := "Top 1 (3 oy ketma-ket)"
	note := fmt.Sprintf("%s - %s oralig'ida 3 oy ketma-ket 1-o'rin.", keys[2], keys[0])
	templateName := "top-streak"
	awardType := models.AwardTypeTopStreak
	awardRank := 1

	cert := models.Certificate{
		ID:            uuid.NewString(),
		StudentID:     winner.StudentID,
		IssuedBy:      issuerID,
		Title:         "Oliy sertifikat",
		RankLabel:     &rankLabel,
		AwardType:     &awardType,
		AwardMonthKey: &mk,
		AwardRank:     &awardRank,
		Note:          &note,
		TemplateName:  &templateName,
		TemplateURL:   optionalString(topTpl.URL),
		PDFURL:        optionalString(topTpl.URL),
	}
	if err := s.DB.Create(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}

	rule := models.BadgeRule{
		Code:        "top_streak_" + mk,
		Name:        "Oliy Sertifikat",
		Icon:        "verified",
		Description: "3 oy ketma-ket 1-o'rin",
	}
	if _, err := s.Engagement.AwardBadge(winner.StudentID, rule, false); err != nil {
		return false, err
	}

	s.Engagement.AddNotification(winner.StudentID, "top_streak", "Oliy sertifikat",
		fmt.Sprintf("Tabriklaymiz, %s! 3 oy ketma-ket 1-o'rin uchun oliy sertifikat berildi.", winner.FullName))
	return true, nil
}

func (s *MonthlyAwardService) finalizeRun(mk string, status models.AwardRunStatus, message string) {
	now := s.Now()
	if err := s.DB.Model(&models.MonthlyAwardRun{}).
		Where("month_key = ?", mk).
		Updates(map[string]interface{}{
			"status":       status,
			"message":      message,
			"processed_at": now,
		}).Error; err != nil {
		log.Printf("⚠️ [Awards] Failed to finalize run %s: %v", mk, err)
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
