package model

import "time"

type MediaFile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:64;not null;index" json:"user_id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;not null;index" json:"conversation_id"`
	S3Key          string    `gorm:"column:s3_key;size:1024;not null" json:"s3_key"`
	FileName       string    `gorm:"size:255;not null" json:"file_name"`
	FileType       string    `gorm:"size:128;not null" json:"file_type"`
	FileSize       int64     `gorm:"not null" json:"file_size"`
	Description    *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
