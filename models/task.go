package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusActive   TaskStatus = "active"
	TaskStatusArchived TaskStatus = "archived"
)

type AssignmentStatus string

const (
	AssignmentStatusAssigned    AssignmentStatus = "assigned"
	AssignmentStatusSubmitted   AssignmentStatus = "submitted"
	AssignmentStatusUnderReview AssignmentStatus = "under_review"
	AssignmentStatusGraded      AssignmentStatus = "graded"
	AssignmentStatusRejected    AssignmentStatus = "rejected"
)

// Task is created by a curator for their students.
type Task struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CuratorID   string     `gorm:"index;type:varchar(36);not null" json:"curator_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Category    string     `gorm:"type:varchar(50)" json:"category"`
	DeadlineAt  *time.Time `json:"deadline_at,omitempty"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TaskAssignment links a task to one student. PointsApplied records how many
// points this assignment has already pushed into the ledger, so re-grading
// only moves the difference.
type TaskAssignment struct {
	ID            string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TaskID        string           `gorm:"uniqueIndex:uk_task_student;type:varchar(36);not null" json:"task_id"`
	StudentID     string           `gorm:"uniqueIndex:uk_task_student;index;type:varchar(36);not null" json:"student_id"`
	Status        AssignmentStatus `gorm:"type:varchar(20);not null;default:'assigned'" json:"status"`
	GradedScore   *int             `json:"graded_score,omitempty"`
	PointsApplied int              `gorm:"not null;default:0" json:"points_applied"`
	Feedback      *string          `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TaskSubmission is one upload against an assignment. Submissions count as
// weekly activity for the streak.
type TaskSubmission struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AssignmentID string    `gorm:"index;type:varchar(36);not null" json:"assignment_id"`
	FileURL      *string   `gorm:"type:text" json:"file_url,omitempty"`
	Text         *string   `gorm:"type:text" json:"text,omitempty"`
	SubmittedAt  time.Time `gorm:"autoCreateTime" json:"submitted_at"`
}
