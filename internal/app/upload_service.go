package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

var (
	ErrNoFile       = errors.New("no file")
	ErrNotImage     = errors.New("file is not an image")
	ErrUploadFailed = errors.New("upload failed")
	ErrMediaPersist = errors.New("media record persist failed")
)

type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	EnsureFolder(ctx context.Context, prefix string) error
}

type ImageDescriber interface {
	DescribeImage(ctx context.Context, in ai.VisionRequest) (string, error)
}

type UploadService struct {
	sessions     *SessionService
	conversation *Conversation
	store        ObjectUploader
	vision       ImageDescriber
	log          *logger.Logger
}

type UploadImageInput struct {
	UserID      string
	Question    string
	FileName    string
	ContentType string
	Body        io.Reader
}

type UploadImageResult struct {
	FileURL     string
	Description string
}

func NewUploadService(
	sessions *SessionService,
	conversation *Conversation,
	store ObjectUploader,
	vision ImageDescriber,
	log *logger.Logger,
) *UploadService {
	return &UploadService{
		sessions:     sessions,
		conversation: conversation,
		store:        store,
		vision:       vision,
		log:          log.With("service", "UploadService"),
	}
}

// UploadImage stores the picture, describes it and logs both sides of the
// exchange on the user's daily session.
func (s *UploadService) UploadImage(ctx context.Context, in UploadImageInput) (*UploadImageResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if in.Body == nil {
		return nil, ErrNoFile
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	data, err := io.ReadAll(in.Body)
	if err != nil || len(data) == 0 {
		return nil, ErrNoFile
	}

	session, err := s.sessions.ResolveDaily(ctx, userID)
	if err != nil {
		s.log.Error("resolve daily session failed", "user_id", userID, "error", err)
		return nil, ErrSessionHandle
	}

	folder := "uploads/" + userID
	if err := s.store.EnsureFolder(ctx, folder); err != nil {
		s.log.Warn("ensure upload folder failed", "folder", folder, "error", err)
	}
	key := folder + "/" + uuid.NewString() + strings.ToLower(path.Ext(in.FileName))
	fileURL, err := s.store.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.log.Error("upload image failed", "key", key, "error", err)
		return nil, ErrUploadFailed
	}

	question := strings.TrimSpace(in.Question)
	instruction := question
	if instruction == "" {
		instruction = defaultImageQuestion
	}
	description, err := s.vision.DescribeImage(ctx, ai.VisionRequest{
		System:      imageSystemPrompt,
		Instruction: instruction,
		Image:       data,
		MimeType:    contentType,
		HighDetail:  true,
		MaxTokens:   300,
	})
	if err != nil || strings.TrimSpace(description) == "" {
		s.log.Warn("describe image failed", "key", key, "error", err)
		description = FallbackDescription
	}

	if err := s.conversation.RecordMedia(ctx, &model.MediaFile{
		UserID:         userID,
		ConversationID: session.ConversationID,
		S3Key:          fileURL,
		FileName:       in.FileName,
		FileType:       contentType,
		FileSize:       int64(len(data)),
		Description:    &description,
	}); err != nil {
		s.log.Error("save media record failed", "key", key, "error", err)
		return nil, ErrMediaPersist
	}

	if err := s.conversation.AppendExchange(ctx, userID, session.ConversationID, question, description); err != nil {
		s.log.Error("save image exchange failed", "conversation_id", session.ConversationID, "error", err)
		return nil, ErrMessagePersist
	}

	return &UploadImageResult{FileURL: fileURL, Description: description}, nil
}
