package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/app"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/transport/http/middleware"
	"childhood-friend/internal/transport/http/response"
)

const (
	msgLoginOK        = "Login successful"
	msgRegisterOK     = "Registance successful"
	msgWrongPassword  = "비밀번호가 틀렸습니다."
	msgUnknownID      = "존재하지 않는 아이디입니다."
	msgIDMismatch     = "ID가 다릅니다."
	msgInvalidPayload = "invalid request payload"
)

type AuthHandler struct {
	authService *app.AuthService
	log         *logger.Logger
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	ID       string `json:"id" binding:"required,max=64"`
	Name     string `json:"name" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
	Birth    string `json:"birth" binding:"max=32"`
}

type GetBirthRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log.With("handler", "auth")}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		ID:       req.ID,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, app.ErrUserNotFound):
			response.NG(c, http.StatusUnauthorized, msgUnknownID)
		case errors.Is(err, app.ErrWrongPassword):
			response.NG(c, http.StatusUnauthorized, msgWrongPassword)
		default:
			h.log.Error("login failed", "user_id", req.ID, "error", err)
			response.NG(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  response.StatusOK,
		"message": msgLoginOK,
		"token":   result.Token,
		"user": gin.H{
			"id":   result.User.ID,
			"name": result.User.Name,
		},
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		ID:       req.ID,
		Name:     req.Name,
		Password: req.Password,
		Birth:    req.Birth,
	}); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, app.ErrUserExists):
			response.NG(c, http.StatusConflict, "이미 존재하는 아이디입니다.")
		default:
			h.log.Error("register failed", "user_id", req.ID, "error", err)
			response.NG(c, http.StatusConflict, "register failed")
		}
		return
	}

	response.OK(c, http.StatusCreated, msgRegisterOK)
}

// GetBirth answers with the stored birth string. A bearer token, when sent,
// must belong to the requested user.
func (h *AuthHandler) GetBirth(c *gin.Context) {
	var req GetBirthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if caller, ok := middleware.UserID(c); ok && caller != userID {
		response.NG(c, http.StatusForbidden, msgIDMismatch)
		return
	}

	birth, err := h.authService.GetBirth(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.NG(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, app.ErrUserNotFound):
			response.NG(c, http.StatusBadRequest, msgUnknownID)
		default:
			h.log.Error("get birth failed", "user_id", userID, "error", err)
			response.NG(c, http.StatusInternalServerError, "get birth failed")
		}
		return
	}

	response.OK(c, http.StatusOK, birth)
}
