package models

import "time"

type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TaskID    string    `json:"task_id" gorm:"size:36;uniqueIndex:idx_review_author;not null"`
	AuthorID  string    `json:"author_id" gorm:"size:36;uniqueIndex:idx_review_author;not null"`
	SubjectID string    `json:"subject_id" gorm:"size:36;index;not null"`
	Score     int       `json:"score" gorm:"not null"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewSummary is what a profile shows about a user's reputation.
type ReviewSummary struct {
	UserID  string   `json:"user_id"`
	Average float64  `json:"average"`
	Count   int      `json:"count"`
	Reviews []Review `json:"reviews"`
}
