package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/app"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/transport/http/middleware"
	"childhood-friend/internal/transport/http/response"
)

const (
	errChatSession  = "Failed to handle chat session."
	errChatUpstream = "Failed to fetch data from OpenAI API."
	errChatPersist  = "Failed to save chat messages."
)

type ChatHandler struct {
	chatService  *app.ChatService
	sessions     *app.SessionService
	conversation *app.Conversation
	log          *logger.Logger
}

// ChatRequest is the /ChildhoodFriend body. AssistantMessages is accepted
// for compatibility; prior turns are replayed from storage.
type ChatRequest struct {
	ID                string   `json:"id" binding:"required"`
	MyDateTime        string   `json:"myDateTime"`
	UserMessages      []string `json:"userMessages"`
	AssistantMessages []string `json:"assistantMessages"`
}

type historyItem struct {
	QA       string `json:"q_a"`
	Message  string `json:"message"`
	DateTime string `json:"date_time"`
}

func NewChatHandler(chatService *app.ChatService, sessions *app.SessionService, conversation *app.Conversation, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		sessions:     sessions,
		conversation: conversation,
		log:          log.With("handler", "chat"),
	}
}

func (h *ChatHandler) ChildhoodFriend(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	result, err := h.chatService.Turn(c.Request.Context(), app.TurnInput{
		UserID:       req.ID,
		MyDateTime:   req.MyDateTime,
		UserMessages: req.UserMessages,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, app.ErrUpstream):
			response.Error(c, http.StatusBadGateway, errChatUpstream)
		case errors.Is(err, app.ErrMessagePersist):
			response.Error(c, http.StatusInternalServerError, errChatPersist)
		default:
			h.log.Error("chat turn failed", "user_id", req.ID, "error", err)
			response.Error(c, http.StatusInternalServerError, errChatSession)
		}
		return
	}

	response.Data(c, http.StatusOK, gin.H{"assistant": result.Reply})
}

// History returns today's replayed conversation of the token's user.
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.NG(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	session, err := h.sessions.ResolveDaily(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("resolve daily session failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusInternalServerError, errChatSession)
		return
	}
	messages, err := h.conversation.History(c.Request.Context(), session.ConversationID)
	if err != nil {
		h.log.Error("load history failed", "conversation_id", session.ConversationID, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to load chat history.")
		return
	}

	items := make([]historyItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, historyItem{
			QA:       m.QA,
			Message:  m.Message,
			DateTime: m.DateTime.Format(time.RFC3339),
		})
	}
	response.Data(c, http.StatusOK, gin.H{
		"conversation_id": session.ConversationID,
		"messages":        items,
	})
}
