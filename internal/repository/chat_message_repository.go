package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"childhood-friend/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *model.ChatMessage) error {
	message.DateTime = normalizeTime(message.DateTime)
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create chat message failed: %w", err)
	}
	return nil
}

// CreateBatch inserts messages in slice order inside one transaction.
func (r *ChatMessageRepository) CreateBatch(ctx context.Context, messages []model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range messages {
			messages[i].DateTime = normalizeTime(messages[i].DateTime)
			if err := tx.Create(&messages[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create chat messages failed: %w", err)
	}
	return nil
}

func (r *ChatMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("date_time ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	return messages, nil
}

// ListRecentByConversationID returns at most limit newest messages, oldest first.
func (r *ChatMessageRepository) ListRecentByConversationID(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return r.ListByConversationID(ctx, conversationID)
	}

	var messages []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("date_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent chat messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
