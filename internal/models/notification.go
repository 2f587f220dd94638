package models

import "time"

type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

type Notification struct {
	ID         string           `json:"id" gorm:"primaryKey;size:36"`
	UserID     string           `json:"user_id" gorm:"size:36;index;not null"`
	Message    string           `json:"message" gorm:"not null"`
	Type       NotificationType `json:"type" gorm:"size:10;not null"`
	ResourceID string           `json:"resource_id,omitempty" gorm:"size:36"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}
