package model

import "time"

// User backs the SQL identity provider. Other providers never touch it.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"size:254;not null;uniqueIndex" json:"email"`
	PasswordHash      string     `gorm:"size:255;not null" json:"-"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
