package models

import (
	"time"
)

type PointSource string

const (
	PointSourceTaskGrade          PointSource = "task_grade"
	PointSourceTaskGradeMigration PointSource = "task_grade_migration"
	PointSourceWeeklyChallenge    PointSource = "weekly_challenge"
	PointSourceCertificateBonus   PointSource = "certificate_bonus"
	PointSourceManual             PointSource = "manual"
)

// PointsLedgerEntry is append-only: rows are never updated or deleted.
// Points keeps the raw signed delta even when the cached student score
// clamps at zero, so the ledger always reflects intent.
type PointsLedgerEntry struct {
	ID         string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID  string      `gorm:"index:idx_ledger_student_date;type:varchar(36);not null" json:"student_id"`
	SourceType PointSource `gorm:"type:varchar(50);not null" json:"source_type"`
	SourceID   *string     `gorm:"type:varchar(36)" json:"source_id,omitempty"`
	Points     int         `gorm:"not null" json:"points"`
	Note       *string     `gorm:"type:text" json:"note,omitempty"`
	CreatedBy  *string     `gorm:"type:varchar(36)" json:"created_by,omitempty"`
	CreatedAt  time.Time   `gorm:"index:idx_ledger_student_date;autoCreateTime" json:"created_at"`
}

func (PointsLedgerEntry) TableName() string {
	return "student_points_ledger"
}
