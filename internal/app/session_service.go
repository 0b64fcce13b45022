package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
)

// SessionService owns chat_sessions: daily reuse, explicit create and close.
type SessionService struct {
	sessionRepo *repository.ChatSessionRepository
	modelName   string
	loc         *time.Location
	now         func() time.Time
	log         *logger.Logger
}

func NewSessionService(sessionRepo *repository.ChatSessionRepository, modelName string, loc *time.Location, log *logger.Logger) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		modelName:   modelName,
		loc:         loc,
		now:         time.Now,
		log:         log.With("service", "SessionService"),
	}
}

// ResolveDaily returns the user's session for today in the service timezone,
// creating one when none exists. Two concurrent first calls may both create.
func (s *SessionService) ResolveDaily(ctx context.Context, userID string) (*model.ChatSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	from, to := dayBounds(s.now(), s.loc)
	session, err := s.sessionRepo.FindByUserCreatedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}
	return s.Create(ctx, userID, "")
}

func (s *SessionService) Create(ctx context.Context, userID, modelName string) (*model.ChatSession, error) {
	return s.CreateWithID(ctx, uuid.NewString(), userID, modelName)
}

func (s *SessionService) CreateWithID(ctx context.Context, conversationID, userID, modelName string) (*model.ChatSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = s.modelName
	}

	session := &model.ChatSession{
		ConversationID: conversationID,
		UserID:         userID,
		ModelName:      modelName,
		Status:         model.SessionStatusActive,
		CreatedAt:      s.now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("chat session created", "conversation_id", conversationID, "user_id", userID)
	return session, nil
}

func (s *SessionService) End(ctx context.Context, conversationID string) (*model.ChatSession, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.sessionRepo.Close(ctx, conversationID, s.now()); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByID(ctx, conversationID)
}

func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
