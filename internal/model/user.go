package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User mirrors the hosted auth user; ID is the auth subject.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `json:"email" gorm:"index:idx_users_email_lookup;not null"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role" gorm:"size:16;not null;default:'user'"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
