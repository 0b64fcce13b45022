package model

import "time"

const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

type ChatSession struct {
	ConversationID string     `gorm:"column:conversation_id;primaryKey;size:36" json:"conversation_id"`
	UserID         string     `gorm:"size:64;not null;index:idx_session_user_created" json:"user_id"`
	ModelName      string     `gorm:"size:64;not null" json:"model_name"`
	Status         string     `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt      time.Time  `gorm:"index:idx_session_user_created" json:"created_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}
