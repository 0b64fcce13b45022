package model

import "time"

// User is keyed by the login id the person typed at registration.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Birth        string    `gorm:"size:32;not null;default:''" json:"birth"`
	PersonID     *uint     `gorm:"index" json:"person_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
