package models

import (
	"time"
)

type AwardRunStatus string

const (
	AwardRunProcessing AwardRunStatus = "processing"
	AwardRunCompleted  AwardRunStatus = "completed"
	AwardRunFailed     AwardRunStatus = "failed"
)

// MonthlyLeaderboardRow is the frozen top-3 snapshot for a closed month.
// Rows survive later score changes on purpose.
type MonthlyLeaderboardRow struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MonthKey     string    `gorm:"type:varchar(7);uniqueIndex:uk_month_rank;uniqueIndex:uk_month_student;not null" json:"month_key"`
	StudentID    string    `gorm:"type:varchar(36);uniqueIndex:uk_month_student;not null" json:"student_id"`
	RankPosition int       `gorm:"uniqueIndex:uk_month_rank;not null" json:"rank_position"`
	ScoreValue   int       `gorm:"not null;default:0" json:"score_value"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MonthlyLeaderboardRow) TableName() string {
	return "monthly_leaderboard"
}

// MonthlyAwardRun is the concurrency claim for one award month. The unique
// month_key means exactly one worker wins the insert; everyone else sees
// already_processed. Only a failed run can be reopened.
type MonthlyAwardRun struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MonthKey    string         `gorm:"type:varchar(7);uniqueIndex;not null" json:"month_key"`
	Status      AwardRunStatus `gorm:"type:varchar(20);not null;default:'processing'" json:"status"`
	Message     *string        `gorm:"type:text" json:"message,omitempty"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
