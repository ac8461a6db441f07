package services

import (
	"errors"

	"student-engagement-system/models"

	"gorm.io/gorm"
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	StudentID  string `json:"student_id"`
	FullName   string `json:"full_name"`
	Score      int    `json:"score"`
	BadgeCount int    `json:"badge_count"`
	Level      int    `json:"level"`
}

type LeaderboardQuery struct {
	Limit      int
	CuratorID  string // restrict to one curator's group when set
	IncludeAll bool   // admin export path, skips the limit entirely
}

// GetLeaderboard ranks active students by score, then badge count, then
// full name. Ties are ordered deterministically so two reads never swap
// rows. Rank is the 1-based position after ordering.
func (s *LeaderboardService) GetLeaderboard(q LeaderboardQuery) ([]LeaderboardEntry, error) {
	query := `
		SELECT s.user_id AS student_id, s.full_name, s.score, COUNT(sb.id) AS badge_count
		FROM students s
		INNER JOIN users u ON u.id = s.user_id
		LEFT JOIN student_badges sb ON sb.student_id = s.user_id
		WHERE u.role = 'student' AND u.status = 'active'`
	args := []interface{}{}

	if q.CuratorID != "" {
		query += " AND s.curator_id = ?"
		args = append(args, q.CuratorID)
	}

	query += `
		GROUP BY s.user_id, s.full_name, s.score
		ORDER BY s.score DESC, badge_count DESC, s.full_name ASC`

	if !q.IncludeAll {
		query += " LIMIT ?"
		args = append(args, clampInt(q.Limit, 1, 1000))
	}

	var rows []struct {
		StudentID  string
		FullName   string
		Score      int
		BadgeCount int
	}
	if err := s.DB.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			StudentID:  row.StudentID,
			FullName:   row.FullName,
			Score:      row.Score,
			BadgeCount: row.BadgeCount,
			Level:      LevelInfo(row.Score).Level,
		})
	}
	return entries, nil
}

// GetStudentRank returns 1 + the number of students with a strictly greater
// score, optionally inside one curator's group. Equal scores share a rank.
// Missing students return nil rather than an error.
func (s *LeaderboardService) GetStudentRank(studentID, curatorID string) (*int, error) {
	if studentID == "" {
		return nil, nil
	}

	var student models.Student
	err := s.DB.Where("user_id = ?", studentID).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	query := s.DB.Model(&models.Student{}).Where("score > ?", student.Score)
	if curatorID != "" {
		query = query.Where("curator_id = ?", curatorID)
	}

	var greater int64
	if err := query.Count(&greater).Error; err != nil {
		return nil, err
	}
	rank := int(greater) + 1
	return &rank, nil
}
