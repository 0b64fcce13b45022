package ai

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleTranscriber is the Cloud Speech alternative to Whisper.
type GoogleTranscriber struct {
	client       *speech.Client
	languageCode string
}

func NewGoogleTranscriber(ctx context.Context, credentialsFile, languageCode string) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client failed: %w", err)
	}
	if languageCode == "" {
		languageCode = "ko-KR"
	}
	return &GoogleTranscriber{client: client, languageCode: languageCode}, nil
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("read audio failed: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(filename, g.languageCode),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize failed: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

func recognitionConfig(filename, languageCode string) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               languageCode,
		EnableAutomaticPunctuation: true,
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".webm":
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	case ".ogg", ".opus":
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	case ".wav":
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
	default:
		cfg.Encoding = speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
	return cfg
}
