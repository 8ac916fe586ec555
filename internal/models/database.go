package models

import (
	"time"
)

// BaseModel provides common fields for all database models.
// IDs are caller-generated UUID strings so that records written to the
// local fallback store can later be upserted into the durable store
// without renumbering.
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
