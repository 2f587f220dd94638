package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractPending   ContractStatus = "pending"
	ContractStarted   ContractStatus = "started"
	ContractDelivered ContractStatus = "delivered"
	ContractApproved  ContractStatus = "approved"
	ContractCancelled ContractStatus = "cancelled"
)

// Terminal reports whether fulfilment has ended. Only cancelled is final:
// an approved contract is cancelled when its task is reopened.
func (s ContractStatus) Terminal() bool {
	return s == ContractApproved || s == ContractCancelled
}

// Contract tracks fulfilment of the currently accepted bid. A new row is
// created on every acceptance; superseded rows stay cancelled.
type Contract struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	TaskID       string          `json:"task_id" gorm:"size:36;index;not null"`
	BidID        string          `json:"bid_id" gorm:"size:36"`
	HelperID     string          `json:"helper_id" gorm:"size:36;index;not null"`
	AgreedAmount decimal.Decimal `json:"agreed_amount" gorm:"type:decimal(12,2);not null"`
	Status       ContractStatus  `json:"status" gorm:"size:20;index;not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
