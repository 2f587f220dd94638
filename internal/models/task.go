package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus is the lifecycle position of a task. It is the authoritative
// engagement state: bid and contract statuses are derived from it.
type TaskStatus string

const (
	TaskOpen          TaskStatus = "open"
	TaskAccepted      TaskStatus = "accepted"
	TaskInProgress    TaskStatus = "in_progress"
	TaskReviewPending TaskStatus = "review_pending"
	TaskCompleted     TaskStatus = "completed"
	TaskCancelled     TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskOpen, TaskAccepted, TaskInProgress, TaskReviewPending, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Engaged reports whether a helper is assigned in this status.
func (s TaskStatus) Engaged() bool {
	switch s {
	case TaskAccepted, TaskInProgress, TaskReviewPending, TaskCompleted:
		return true
	}
	return false
}

// Task is a job posted by a requester.
type Task struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	RequesterID string           `json:"requester_id" gorm:"size:36;index;not null"`
	Title       string           `json:"title" gorm:"not null"`
	Description string           `json:"description"`
	Category    string           `json:"category" gorm:"index"`
	BudgetMin   *decimal.Decimal `json:"budget_min,omitempty" gorm:"type:decimal(12,2)"`
	BudgetMax   *decimal.Decimal `json:"budget_max,omitempty" gorm:"type:decimal(12,2)"`
	Address     string           `json:"address"`
	City        string           `json:"city"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
	Status      TaskStatus       `json:"status" gorm:"size:20;index;not null"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Version     int              `json:"version" gorm:"not null;default:1"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TaskInput carries the requester-editable fields of a task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	BudgetMin   *decimal.Decimal
	BudgetMax   *decimal.Decimal
	Address     string
	City        string
	Latitude    *float64
	Longitude   *float64
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Category    *string
	BudgetMin   *decimal.Decimal
	BudgetMax   *decimal.Decimal
	Address     *string
	City        *string
	Latitude    *float64
	Longitude   *float64
}

// TouchesTerms reports whether the patch changes what the helper agreed to.
func (p TaskPatch) TouchesTerms() bool {
	return p.Title != nil || p.Description != nil || p.BudgetMin != nil || p.BudgetMax != nil
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	Status      *TaskStatus
	RequesterID *string
	Category    *string
	Limit       int
	Offset      int
}
