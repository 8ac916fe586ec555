package models

import (
	"time"
)

const (
	IssueStatusPending   = "pending"
	IssueStatusFulfilled = "fulfilled"
	IssueStatusCancelled = "cancelled"
)

const (
	IssuePriorityLow    = "low"
	IssuePriorityMedium = "medium"
	IssuePriorityHigh   = "high"
)

// StockIssue records an allocation request that could not be satisfied
// because the credential pool for a service was empty. An issue moves
// from pending to exactly one terminal state and is never reopened.
type StockIssue struct {
	BaseModel

	UserID    string `json:"user_id" gorm:"not null;size:64;index"`
	ServiceID string `json:"service_id" gorm:"not null;index"`
	OrderID   string `json:"order_id" gorm:"size:64;index"`

	Status   string `json:"status" gorm:"not null;size:20;index"`
	Priority string `json:"priority" gorm:"size:10;default:'medium'"`
	Notes    string `json:"notes" gorm:"type:text"`

	// FulfilledAt is set when the issue reaches a terminal state,
	// whether fulfilled or cancelled.
	FulfilledAt *time.Time `json:"fulfilled_at"`
}

// Terminal reports whether the issue has left the pending state.
func (i *StockIssue) Terminal() bool {
	return i.Status != IssueStatusPending
}
