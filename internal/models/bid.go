package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

// Bid is a helper's price offer on a task.
type Bid struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	TaskID    string          `json:"task_id" gorm:"size:36;index;not null"`
	HelperID  string          `json:"helper_id" gorm:"size:36;index;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Message   string          `json:"message"`
	Status    BidStatus       `json:"status" gorm:"size:20;index;not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
