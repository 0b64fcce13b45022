package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"childhood-friend/internal/model"
)

const (
	historyPrefix = "friend:history:"
	dirtyPrefix   = "friend:history:dirty:"
)

// HistoryCache keeps the replayed history of one daily conversation.
// Invalidate raises a short-lived dirty marker together with the delete, so a
// reader that loaded rows before the write does not put stale history back.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	dirtyTTL time.Duration
}

// entry is the cached form of a ChatMessage; user and conversation ids are
// implied by the key.
type entry struct {
	ID   uint      `json:"i"`
	QA   string    `json:"q"`
	Text string    `json:"m"`
	At   time.Time `json:"t"`
}

func NewHistoryCache(client *redisv9.Client, ttl, dirtyTTL time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl, dirtyTTL: dirtyTTL}
}

func (c *HistoryCache) GetHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.Get(ctx, historyPrefix+conversationID).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}
	messages, err := decodeHistory(conversationID, raw)
	if err != nil {
		return nil, false, err
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, conversationID string, messages []model.ChatMessage) error {
	payload, err := encodeHistory(messages)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, historyPrefix+conversationID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, conversationID string) (bool, error) {
	n, err := c.client.Exists(ctx, dirtyPrefix+conversationID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return n > 0, nil
}

// Invalidate is called by every message writer after the rows are committed.
func (c *HistoryCache) Invalidate(ctx context.Context, conversationID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, dirtyPrefix+conversationID, "1", c.dirtyTTL)
		pipe.Del(ctx, historyPrefix+conversationID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func encodeHistory(messages []model.ChatMessage) ([]byte, error) {
	entries := make([]entry, len(messages))
	for i, m := range messages {
		entries[i] = entry{ID: m.ID, QA: m.QA, Text: m.Message, At: m.DateTime}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal history cache failed: %w", err)
	}
	return payload, nil
}

func decodeHistory(conversationID string, raw []byte) ([]model.ChatMessage, error) {
	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	messages := make([]model.ChatMessage, len(entries))
	for i, e := range entries {
		messages[i] = model.ChatMessage{
			ID:             e.ID,
			ConversationID: conversationID,
			QA:             e.QA,
			Message:        e.Text,
			DateTime:       e.At,
		}
	}
	return messages, nil
}
