package model

import "time"

const (
	QAQuestion = "question"
	QAAnswer   = "answer"
)

// ChatMessage is append-only. Replay order is date_time then id.
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;not null;index" json:"conversation_id"`
	UserID         string    `gorm:"size:64;not null;index" json:"user_id"`
	QA             string    `gorm:"column:q_a;size:16;not null" json:"q_a"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	DateTime       time.Time `gorm:"column:date_time;not null;index" json:"date_time"`
}
