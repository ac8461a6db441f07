package models

import (
	"time"
)

type EntryStatus string

const (
	EntryStatusSubmitted   EntryStatus = "submitted"
	EntryStatusUnderReview EntryStatus = "under_review"
	EntryStatusApproved    EntryStatus = "approved"
	EntryStatusGraded      EntryStatus = "graded"
	EntryStatusRejected    EntryStatus = "rejected"
)

// WeeklyChallenge is a time-boxed contest. BonusPoints is the rank-1 prize;
// lower podium ranks get a fixed fraction of it.
type WeeklyChallenge struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedBy   string    `gorm:"index;type:varchar(36);not null" json:"created_by"`
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"type:varchar(50)" json:"category"`
	Mode        string    `gorm:"type:varchar(20);not null;default:'solo'" json:"mode"`
	RewardText  *string   `gorm:"type:text" json:"reward_text,omitempty"`
	BonusPoints int       `gorm:"not null;default:0" json:"bonus_points"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// WeeklyChallengeEntry is one student's submission. PointsApplied mirrors
// TaskAssignment: the ledger only ever receives the delta between reviews.
type WeeklyChallengeEntry struct {
	ID            string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChallengeID   string      `gorm:"uniqueIndex:uk_challenge_student;type:varchar(36);not null" json:"challenge_id"`
	StudentID     string      `gorm:"uniqueIndex:uk_challenge_student;index;type:varchar(36);not null" json:"student_id"`
	Text          *string     `gorm:"type:text" json:"text,omitempty"`
	FileURL       *string     `gorm:"type:text" json:"file_url,omitempty"`
	Status        EntryStatus `gorm:"type:varchar(20);not null;default:'submitted'" json:"status"`
	Score         *int        `json:"score,omitempty"`
	RankPosition  *int        `json:"rank_position,omitempty"`
	Feedback      *string     `gorm:"type:text" json:"feedback,omitempty"`
	PointsApplied int         `gorm:"not null;default:0" json:"points_applied"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
