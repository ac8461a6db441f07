package models

import (
	"time"
)

type AwardType string

const (
	AwardTypeMonthlyRank AwardType = "monthly_rank"
	AwardTypeTopStreak   AwardType = "top_streak"
)

// Certificate covers both curator-issued ad hoc certificates and the ones
// the monthly award pipeline generates. Pipeline certificates carry the
// award_* columns; the composite unique index makes re-issuing the same
// award a no-op. Ad hoc certificates leave award_* NULL and are never
// caught by the index.
type Certificate struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID     string     `gorm:"index;uniqueIndex:uk_cert_award;type:varchar(36);not null" json:"student_id"`
	ChallengeID   *string    `gorm:"index;type:varchar(36)" json:"challenge_id,omitempty"`
	IssuedBy      string     `gorm:"type:varchar(36);not null" json:"issued_by"`
	Title         string     `gorm:"not null" json:"title"`
	RankLabel     *string    `gorm:"type:varchar(50)" json:"rank_label,omitempty"`
	AwardType     *AwardType `gorm:"type:varchar(50);uniqueIndex:uk_cert_award" json:"award_type,omitempty"`
	AwardMonthKey *string    `gorm:"type:varchar(7);uniqueIndex:uk_cert_award" json:"award_month_key,omitempty"`
	AwardRank     *int       `gorm:"uniqueIndex:uk_cert_award" json:"award_rank,omitempty"`
	Note          *string    `gorm:"type:text" json:"note,omitempty"`
	TemplateName  *string    `gorm:"type:varchar(255)" json:"template_name,omitempty"`
	TemplateURL   *string    `gorm:"type:text" json:"template_url,omitempty"`
	PDFURL        *string    `gorm:"column:pdf_url;type:text" json:"pdf_url,omitempty"`
	IssuedAt      time.Time  `gorm:"autoCreateTime" json:"issued_at"`
}
