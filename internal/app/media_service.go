package app

import (
	"bytes"
	"context"
	"strings"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

// MediaService backs the realtime media pipeline: session rows, gateway
// calls with fallbacks, and persistence of what came out of them.
type MediaService struct {
	sessions     *SessionService
	conversation *Conversation
	llm          ChatCompleter
	vision       ImageDescriber
	transcriber  ai.Transcriber
	maxContext   int
	maxTokens    int
	log          *logger.Logger
}

func NewMediaService(
	sessions *SessionService,
	conversation *Conversation,
	llm ChatCompleter,
	vision ImageDescriber,
	transcriber ai.Transcriber,
	maxContext int,
	maxTokens int,
	log *logger.Logger,
) *MediaService {
	if maxContext <= 0 {
		maxContext = 20
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &MediaService{
		sessions:     sessions,
		conversation: conversation,
		llm:          llm,
		vision:       vision,
		transcriber:  transcriber,
		maxContext:   maxContext,
		maxTokens:    maxTokens,
		log:          log.With("service", "MediaService"),
	}
}

func (m *MediaService) StartSession(ctx context.Context, userID, sessionID string) error {
	_, err := m.sessions.CreateWithID(ctx, sessionID, userID, "")
	return err
}

// Transcribe never fails: errors become an empty transcription.
func (m *MediaService) Transcribe(ctx context.Context, audio []byte, filename string) string {
	text, err := m.transcriber.Transcribe(ctx, bytes.NewReader(audio), filename)
	if err != nil {
		m.log.Warn("transcription failed", "file", filename, "error", err)
		return ""
	}
	return text
}

// Reply answers text using the recent history of the session.
func (m *MediaService) Reply(ctx context.Context, userID, sessionID, text string) string {
	messages := []ai.ChatMessage{{Role: ai.RoleSystem, Content: friendSystemPrompt(userID)}}
	history, err := m.conversation.Recent(ctx, sessionID, m.maxContext)
	if err != nil {
		m.log.Warn("load recent history failed", "conversation_id", sessionID, "error", err)
	}
	messages = append(messages, toChatMessages(history)...)
	if text = strings.TrimSpace(text); text != "" {
		messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: text})
	}

	reply, err := m.llm.Complete(ctx, messages, ai.CompletionOptions{MaxTokens: m.maxTokens, Temperature: 0.7})
	if err != nil || strings.TrimSpace(reply) == "" {
		m.log.Warn("reply generation failed", "conversation_id", sessionID, "error", err)
		return FallbackReply
	}
	return strings.TrimSpace(reply)
}

func (m *MediaService) DescribeFrame(ctx context.Context, jpeg []byte) string {
	desc, err := m.vision.DescribeImage(ctx, ai.VisionRequest{
		Instruction: frameInstruction,
		Image:       jpeg,
		MimeType:    "image/jpeg",
		MaxTokens:   300,
	})
	if err != nil || strings.TrimSpace(desc) == "" {
		m.log.Warn("frame description failed", "error", err)
		return FallbackDescription
	}
	return strings.TrimSpace(desc)
}

func (m *MediaService) SaveExchange(ctx context.Context, userID, sessionID, question, answer string) error {
	return m.conversation.AppendExchange(ctx, userID, sessionID, question, answer)
}

// SaveFrame records the described frame as a media row plus a question message.
func (m *MediaService) SaveFrame(ctx context.Context, userID, sessionID, mediaURL, fileName string, size int64, description string) error {
	desc := description
	if err := m.conversation.RecordMedia(ctx, &model.MediaFile{
		UserID:         userID,
		ConversationID: sessionID,
		S3Key:          mediaURL,
		FileName:       fileName,
		FileType:       "video",
		FileSize:       size,
		Description:    &desc,
	}); err != nil {
		return err
	}
	return m.conversation.AppendExchange(ctx, userID, sessionID, description, "")
}
