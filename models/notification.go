package models

import (
	"time"
)

// Notification is a best-effort side channel. Writing one must never fail
// the operation that produced it.
type Notification struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"index;type:varchar(36);not null" json:"user_id"`
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	Title     string     `gorm:"not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
