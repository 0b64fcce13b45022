package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"childhood-friend/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	if session.Status == "" {
		session.Status = model.SessionStatusActive
	}
	if !session.CreatedAt.IsZero() {
		session.CreatedAt = session.CreatedAt.UTC()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) GetByID(ctx context.Context, conversationID string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

// FindByUserCreatedBetween returns the oldest session of userID created in [from, to).
func (r *ChatSessionRepository) FindByUserCreatedBetween(ctx context.Context, userID string, from, to time.Time) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from.UTC(), to.UTC()).
		Order("created_at ASC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find daily chat session failed: %w", err)
	}
	return &session, nil
}

func (r *ChatSessionRepository) Close(ctx context.Context, conversationID string, endedAt time.Time) error {
	endedAt = endedAt.UTC()
	if err := r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"status":   model.SessionStatusClosed,
			"ended_at": endedAt,
		}).Error; err != nil {
		return fmt.Errorf("close chat session failed: %w", err)
	}
	return nil
}
