package models

import "time"

// ChatMessage belongs to the conversation between a task's requester and
// its contracted helper.
type ChatMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TaskID    string    `json:"task_id" gorm:"size:36;index;not null"`
	SenderID  string    `json:"sender_id" gorm:"size:36;not null"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
