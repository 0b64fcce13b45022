package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"childhood-friend/internal/config"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var ErrEmptyChoices = errors.New("empty llm choices")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionOptions struct {
	MaxTokens   int
	Temperature float32
	// JSONObject asks the model for a single JSON object.
	JSONObject bool
}

type VisionRequest struct {
	System      string
	Instruction string
	Image       []byte
	MimeType    string
	HighDetail  bool
	MaxTokens   int
}

// Transcriber turns a finite audio stream into text. filename carries the
// container extension the provider uses to pick a decoder.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Client talks to an OpenAI compatible endpoint for chat, vision and Whisper.
type Client struct {
	api             *openai.Client
	model           string
	visionModel     string
	transcribeModel string
}

func NewClient(cfg config.LLMConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = openai.Whisper1
	}
	return &Client{
		api:             openai.NewClientWithConfig(apiCfg),
		model:           cfg.Model,
		visionModel:     visionModel,
		transcribeModel: transcribeModel,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if opts.JSONObject {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("llm transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) DescribeImage(ctx context.Context, in VisionRequest) (string, error) {
	if len(in.Image) == 0 {
		return "", errors.New("vision image is empty")
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	detail := openai.ImageURLDetailAuto
	if in.HighDetail {
		detail = openai.ImageURLDetailHigh
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if in.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: RoleSystem, Content: in.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: RoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: in.Instruction},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(in.Image),
					Detail: detail,
				},
			},
		},
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.visionModel,
		Messages:  messages,
		MaxTokens: in.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}
