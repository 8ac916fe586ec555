package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	CredentialStatusAvailable = "available"
	CredentialStatusAssigned  = "assigned"
)

// Payload is the opaque secret bundle of a credential (email, username,
// password, pin_code, notes, ...). Contents are stored and forwarded,
// never interpreted beyond the minimum validation in Validate.
type Payload map[string]string

// Value implements driver.Valuer, serializing the payload as JSON text.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = Payload{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported payload column type %T", value)
	}
	if len(data) == 0 {
		*p = Payload{}
		return nil
	}
	return json.Unmarshal(data, p)
}

// Validate enforces the minimum shape a credential payload must have:
// at least one of email/username, plus a password.
func (p Payload) Validate() error {
	if p["email"] == "" && p["username"] == "" {
		return fmt.Errorf("payload requires an email or username")
	}
	if p["password"] == "" {
		return fmt.Errorf("payload requires a password")
	}
	return nil
}

// Credential is one provisioned secret bundle for a service, held in
// inventory until assigned to a paying customer.
type Credential struct {
	BaseModel

	ServiceID string  `json:"service_id" gorm:"not null;index"`
	Payload   Payload `json:"payload" gorm:"type:text"`

	// Status is available until the credential is bound to a customer;
	// it never returns to available afterwards.
	Status          string `json:"status" gorm:"not null;size:20;index"`
	AssignedUserID  string `json:"assigned_user_id" gorm:"size:64;index"`
	AssignedOrderID string `json:"assigned_order_id" gorm:"size:64;index"`
}

// Assigned reports whether the credential has been bound to a customer.
func (c *Credential) Assigned() bool {
	return c.Status == CredentialStatusAssigned
}
