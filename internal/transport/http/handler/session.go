package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/app"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *app.SessionService
	log      *logger.Logger
}

type CreateSessionRequest struct {
	UserID string `json:"userId"`
	Model  string `json:"model"`
}

type EndSessionRequest struct {
	SessionID string `json:"sessionId"`
}

func NewSessionHandler(sessions *app.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log.With("handler", "session")}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), req.UserID, req.Model)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "사용자 ID가 필요합니다.")
			return
		}
		h.log.Error("create session failed", "user_id", req.UserID, "error", err)
		response.Error(c, http.StatusInternalServerError, "세션 생성 중 오류가 발생했습니다.")
		return
	}

	response.Data(c, http.StatusOK, gin.H{
		"sessionId": session.ConversationID,
		"message":   "세션이 생성되었습니다.",
	})
}

func (h *SessionHandler) End(c *gin.Context) {
	var req EndSessionRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.sessions.End(c.Request.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "세션 ID가 필요합니다.")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "세션을 찾을 수 없습니다.")
		default:
			h.log.Error("end session failed", "session_id", req.SessionID, "error", err)
			response.Error(c, http.StatusInternalServerError, "세션 종료 중 오류가 발생했습니다.")
		}
		return
	}

	response.Data(c, http.StatusOK, gin.H{
		"message": "세션이 종료되었습니다.",
		"session": session,
	})
}
