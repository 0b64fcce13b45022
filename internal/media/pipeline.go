package media

import (
	"context"
	"io"
	"os"
	"time"

	"childhood-friend/internal/platform/logger"
)

const defaultAudioFlushBytes = 1024 * 1024

// Store persists what a media session produces.
type Store interface {
	StartSession(ctx context.Context, userID, sessionID string) error
	SaveExchange(ctx context.Context, userID, sessionID, question, answer string) error
	SaveFrame(ctx context.Context, userID, sessionID, mediaURL, fileName string, size int64, description string) error
}

// Inference wraps the model calls. Implementations swallow gateway errors
// and return an empty transcription or a fallback text instead.
type Inference interface {
	Transcribe(ctx context.Context, audio []byte, filename string) string
	Reply(ctx context.Context, userID, sessionID, text string) string
	DescribeFrame(ctx context.Context, jpeg []byte) string
}

type ObjectStore interface {
	EnsureFolder(ctx context.Context, prefix string) error
	OpenStream(ctx context.Context, key, contentType string) (io.WriteCloser, error)
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	PublicURL(key string) string
}

type FrameExtractor interface {
	ExtractFirstFrame(ctx context.Context, videoPath string) ([]byte, error)
}

// Sender delivers one outbound frame to the client. It must be safe for
// concurrent use; frame pipelines send from their own goroutines.
type Sender interface {
	Send(v any) error
}

type Options struct {
	TempDir         string
	AudioFlushBytes int
	// FrameInterval throttles frame pipelines per session. Zero runs one per chunk.
	FrameInterval time.Duration
}

// Pipeline holds the dependencies shared by every connection.
type Pipeline struct {
	store   Store
	infer   Inference
	objects ObjectStore
	frames  FrameExtractor
	opts    Options
	now     func() time.Time
	log     *logger.Logger
}

func NewPipeline(store Store, infer Inference, objects ObjectStore, frames FrameExtractor, opts Options, log *logger.Logger) *Pipeline {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.AudioFlushBytes <= 0 {
		opts.AudioFlushBytes = defaultAudioFlushBytes
	}
	return &Pipeline{
		store:   store,
		infer:   infer,
		objects: objects,
		frames:  frames,
		opts:    opts,
		now:     time.Now,
		log:     log.With("component", "media"),
	}
}
