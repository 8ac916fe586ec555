package models

import (
	"time"
)

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is a customer's time-boxed entitlement to a service. It
// may be created before any credential is available (status pending);
// the synchronizer links a credential in once one exists.
type Subscription struct {
	BaseModel

	UserID    string `json:"user_id" gorm:"not null;size:64;index"`
	ServiceID string `json:"service_id" gorm:"not null;index"`

	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date" gorm:"index"`
	DurationMonths int       `json:"duration_months"`

	Status string `json:"status" gorm:"not null;size:20;index"`

	// CredentialID links the assigned credential; empty while pending.
	CredentialID string `json:"credential_id" gorm:"size:36;index"`
}

// Expired is derived from the entitlement window, independent of
// whether a credential was ever attached.
func (s *Subscription) Expired() bool {
	return s.EndDate.Before(time.Now())
}

// EffectiveStatus resolves the read-derived expired state.
func (s *Subscription) EffectiveStatus() string {
	if s.Status == SubscriptionStatusCancelled {
		return SubscriptionStatusCancelled
	}
	if s.Expired() {
		return SubscriptionStatusExpired
	}
	if s.CredentialID == "" {
		return SubscriptionStatusPending
	}
	return SubscriptionStatusActive
}
