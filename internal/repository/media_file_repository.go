package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"childhood-friend/internal/model"
)

type MediaFileRepository struct {
	db *gorm.DB
}

func NewMediaFileRepository(db *gorm.DB) *MediaFileRepository {
	return &MediaFileRepository{db: db}
}

func (r *MediaFileRepository) Create(ctx context.Context, file *model.MediaFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("create media file failed: %w", err)
	}
	return nil
}

func (r *MediaFileRepository) ListByConversationID(ctx context.Context, conversationID string) ([]model.MediaFile, error) {
	var files []model.MediaFile
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list media files failed: %w", err)
	}
	return files, nil
}
