package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

const maxCompletionAttempts = 3

var (
	ErrUpstream       = errors.New("inference request failed")
	ErrSessionHandle  = errors.New("chat session unavailable")
	ErrMessagePersist = errors.New("chat message persist failed")
)

type ChatCompleter interface {
	Complete(ctx context.Context, messages []ai.ChatMessage, opts ai.CompletionOptions) (string, error)
}

// ProfileSubmitter receives utterances for best-effort profile enrichment.
type ProfileSubmitter interface {
	Submit(job model.ProfileExtractJob)
}

type ChatService struct {
	sessions     *SessionService
	conversation *Conversation
	userRepo     *repository.UserRepository
	llm          ChatCompleter
	enricher     ProfileSubmitter
	maxTokens    int
	now          func() time.Time
	loc          *time.Location
	log          *logger.Logger
}

// TurnInput mirrors the client payload. Prior turns come from storage, so
// only the newest entry of UserMessages is used.
type TurnInput struct {
	UserID       string
	MyDateTime   string
	UserMessages []string
}

type TurnResult struct {
	ConversationID string
	Reply          string
}

func NewChatService(
	sessions *SessionService,
	conversation *Conversation,
	userRepo *repository.UserRepository,
	llm ChatCompleter,
	enricher ProfileSubmitter,
	maxTokens int,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		sessions:     sessions,
		conversation: conversation,
		userRepo:     userRepo,
		llm:          llm,
		enricher:     enricher,
		maxTokens:    maxTokens,
		now:          time.Now,
		loc:          sessions.loc,
		log:          log.With("service", "ChatService"),
	}
}

// Turn runs one fortune-teller exchange on the user's daily session.
func (s *ChatService) Turn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.ResolveDaily(ctx, userID)
	if err != nil {
		s.log.Error("resolve daily session failed", "user_id", userID, "error", err)
		return nil, ErrSessionHandle
	}

	history, err := s.conversation.History(ctx, session.ConversationID)
	if err != nil {
		s.log.Error("load history failed", "conversation_id", session.ConversationID, "error", err)
		return nil, ErrSessionHandle
	}

	latest := latestUserInput(in.UserMessages)
	messages := buildTurnMessages(in.MyDateTime, s.now().In(s.loc), history, latest)

	reply, err := s.complete(ctx, messages)
	if err != nil {
		s.log.Error("chat completion failed", "conversation_id", session.ConversationID, "error", err)
		return nil, ErrUpstream
	}

	if err := s.conversation.AppendExchange(ctx, userID, session.ConversationID, latest, reply); err != nil {
		s.log.Error("save chat messages failed", "conversation_id", session.ConversationID, "error", err)
		return nil, ErrMessagePersist
	}

	if latest != "" {
		s.submitProfile(ctx, userID, latest)
	}
	return &TurnResult{ConversationID: session.ConversationID, Reply: reply}, nil
}

// complete retries only on empty completions. Any API error ends the turn.
func (s *ChatService) complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	for attempt := 1; attempt <= maxCompletionAttempts; attempt++ {
		reply, err := s.llm.Complete(ctx, messages, ai.CompletionOptions{MaxTokens: s.maxTokens})
		if err != nil {
			return "", err
		}
		if reply = strings.TrimSpace(reply); reply != "" {
			return reply, nil
		}
		s.log.Warn("empty completion", "attempt", attempt)
	}
	return EmptyReply, nil
}

func (s *ChatService) submitProfile(ctx context.Context, userID, text string) {
	if s.enricher == nil || s.userRepo == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil || user.PersonID == nil {
		return
	}
	s.enricher.Submit(model.ProfileExtractJob{PersonID: *user.PersonID, UserID: userID, Text: text})
}

func buildTurnMessages(myDateTime string, now time.Time, history []model.ChatMessage, latest string) []ai.ChatMessage {
	messages := seededTurns(myDateTime, now)
	messages = append(messages, toChatMessages(history)...)
	if latest != "" {
		messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: latest})
	}
	return messages
}

// latestUserInput is the newest client-side user message with newlines dropped.
func latestUserInput(userMessages []string) string {
	for i := len(userMessages) - 1; i >= 0; i-- {
		msg := strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(userMessages[i]))
		if msg != "" {
			return msg
		}
	}
	return ""
}
