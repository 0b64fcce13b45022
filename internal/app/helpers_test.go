package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/database"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

type testEnv struct {
	db           *gorm.DB
	users        *repository.UserRepository
	persons      *repository.PersonRepository
	sessionRepo  *repository.ChatSessionRepository
	messages     *repository.ChatMessageRepository
	media        *repository.MediaFileRepository
	sessions     *SessionService
	conversation *Conversation
	clock        *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, seoul)}

	env := &testEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		persons:     repository.NewPersonRepository(db),
		sessionRepo: repository.NewChatSessionRepository(db),
		messages:    repository.NewChatMessageRepository(db),
		media:       repository.NewMediaFileRepository(db),
		clock:       clock,
	}
	env.sessions = NewSessionService(env.sessionRepo, "gpt-4o-mini", seoul, logger.Nop())
	env.sessions.now = clock.Now
	env.conversation = NewConversation(env.messages, env.media, nil, logger.Nop())
	env.conversation.now = clock.Now
	return env
}

// fakeLLM replays scripted results in order; the last one repeats.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   [][]ai.ChatMessage
	opts    []ai.CompletionOptions
}

func (f *fakeLLM) Complete(_ context.Context, messages []ai.ChatMessage, opts ai.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, append([]ai.ChatMessage(nil), messages...))
	f.opts = append(f.opts, opts)
	if len(f.errs) > 0 {
		if err := f.errs[min(i, len(f.errs)-1)]; err != nil {
			return "", err
		}
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	return f.replies[min(i, len(f.replies)-1)], nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeVision struct {
	reply string
	err   error
	got   []ai.VisionRequest
}

func (f *fakeVision) DescribeImage(_ context.Context, in ai.VisionRequest) (string, error) {
	f.got = append(f.got, in)
	return f.reply, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(audio)
	return f.text, f.err
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	folders []string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return "https://storage.test/" + key, nil
}

func (f *fakeUploader) EnsureFolder(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, prefix)
	return nil
}

type captureSubmitter struct {
	jobs chan model.ProfileExtractJob
}

func (c *captureSubmitter) Submit(job model.ProfileExtractJob) {
	c.jobs <- job
}

var errBoom = errors.New("boom")
