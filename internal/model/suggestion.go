package model

import (
	"time"

	"github.com/google/uuid"
)

// Suggestion caches the last successfully generated study suggestion per user.
type Suggestion struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
