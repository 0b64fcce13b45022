package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/app"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/transport/http/response"
)

// maxUploadBytes bounds a single picture.
const maxUploadBytes = 20 << 20

type UploadHandler struct {
	uploadService *app.UploadService
	log           *logger.Logger
}

func NewUploadHandler(uploadService *app.UploadService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, log: log.With("handler", "upload")}
}

// UploadImage takes multipart fields id, userMessages and the picture under
// "image" (or "file").
func (h *UploadHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := formFile(c, "image", "file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "No file exist.")
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "No file exist.")
		return
	}
	defer f.Close()

	result, err := h.uploadService.UploadImage(c.Request.Context(), app.UploadImageInput{
		UserID:      c.PostForm("id"),
		Question:    c.PostForm("userMessages"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, app.ErrNoFile):
			response.Error(c, http.StatusBadRequest, "No file exist.")
		case errors.Is(err, app.ErrNotImage):
			response.Error(c, http.StatusBadRequest, "Only image files are allowed.")
		case errors.Is(err, app.ErrSessionHandle):
			response.Error(c, http.StatusInternalServerError, errChatSession)
		case errors.Is(err, app.ErrUploadFailed):
			response.Error(c, http.StatusBadGateway, "Failed to upload.")
		case errors.Is(err, app.ErrMediaPersist):
			response.Error(c, http.StatusInternalServerError, "Failed to save Image info.")
		case errors.Is(err, app.ErrMessagePersist):
			response.Error(c, http.StatusInternalServerError, errChatPersist)
		default:
			h.log.Error("upload image failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "Failed to upload.")
		}
		return
	}

	response.Data(c, http.StatusOK, gin.H{
		"message":   "upload complete.",
		"file_url":  result.FileURL,
		"file_desc": result.Description,
	})
}

func formFile(c *gin.Context, fields ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, field := range fields {
		header, err := c.FormFile(field)
		if err == nil {
			return header, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
