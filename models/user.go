package models

import (
	"time"
)

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleAdmin   UserRole = "admin" // curator account
	UserRoleSuper   UserRole = "super"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User is the account row forwarded from the auth layer. The engagement core
// only reads role/status for leaderboard scoping and award issuer resolution.
type User struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Role      UserRole   `gorm:"type:varchar(20);index;not null" json:"role"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	AvatarURL *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	Status    UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Student is the profile row owned by a curator. Score is a cached aggregate
// over student_points_ledger and never goes below zero; the ledger stays
// authoritative.
type Student struct {
	UserID    string `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	CuratorID string `gorm:"index;type:varchar(36);not null" json:"curator_id"`
	FullName  string `gorm:"not null" json:"full_name"`
	Score     int    `gorm:"not null;default:0" json:"score"`
}
