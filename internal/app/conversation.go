package app

import (
	"context"
	"strings"
	"time"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.ChatMessage) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
	Invalidate(ctx context.Context, conversationID string) error
}

// Conversation is the single writer and reader of chat_messages and media_files.
type Conversation struct {
	messageRepo  *repository.ChatMessageRepository
	mediaRepo    *repository.MediaFileRepository
	historyCache HistoryCache
	now          func() time.Time
	log          *logger.Logger
}

// NewConversation accepts a nil cache; replay then always reads the database.
func NewConversation(
	messageRepo *repository.ChatMessageRepository,
	mediaRepo *repository.MediaFileRepository,
	historyCache HistoryCache,
	log *logger.Logger,
) *Conversation {
	return &Conversation{
		messageRepo:  messageRepo,
		mediaRepo:    mediaRepo,
		historyCache: historyCache,
		now:          time.Now,
		log:          log.With("service", "Conversation"),
	}
}

// History replays every stored message of the conversation in stored order.
func (c *Conversation) History(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	if c.historyCache != nil {
		dirty, err := c.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := c.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := c.messageRepo.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c.historyCache != nil {
		if dirty, dirtyErr := c.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			if err := c.historyCache.SetHistory(ctx, conversationID, messages); err != nil {
				c.log.Warn("cache history failed", "conversation_id", conversationID, "error", err)
			}
		}
	}
	return messages, nil
}

// Recent returns the newest limit messages, oldest first.
func (c *Conversation) Recent(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	return c.messageRepo.ListRecentByConversationID(ctx, conversationID, limit)
}

// AppendExchange stores a question/answer pair. Empty halves are skipped.
func (c *Conversation) AppendExchange(ctx context.Context, userID, conversationID, question, answer string) error {
	at := c.now()
	batch := make([]model.ChatMessage, 0, 2)
	if q := strings.TrimSpace(singleLine(question)); q != "" {
		batch = append(batch, model.ChatMessage{
			ConversationID: conversationID,
			UserID:         userID,
			QA:             model.QAQuestion,
			Message:        q,
			DateTime:       at,
		})
	}
	if a := strings.TrimSpace(singleLine(answer)); a != "" {
		batch = append(batch, model.ChatMessage{
			ConversationID: conversationID,
			UserID:         userID,
			QA:             model.QAAnswer,
			Message:        a,
			DateTime:       at,
		})
	}
	if len(batch) == 0 {
		return nil
	}
	if err := c.messageRepo.CreateBatch(ctx, batch); err != nil {
		return err
	}
	c.invalidate(ctx, conversationID)
	return nil
}

func (c *Conversation) RecordMedia(ctx context.Context, file *model.MediaFile) error {
	return c.mediaRepo.Create(ctx, file)
}

func (c *Conversation) invalidate(ctx context.Context, conversationID string) {
	if c.historyCache == nil {
		return
	}
	if err := c.historyCache.Invalidate(ctx, conversationID); err != nil {
		c.log.Warn("invalidate history cache failed", "conversation_id", conversationID, "error", err)
	}
}

// toChatMessages maps stored rows onto model roles.
func toChatMessages(history []model.ChatMessage) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		role := ai.RoleUser
		if m.QA == model.QAAnswer {
			role = ai.RoleAssistant
		}
		out = append(out, ai.ChatMessage{Role: role, Content: m.Message})
	}
	return out
}
