package app

import (
	"context"
	"testing"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/platform/logger"
)

func TestMediaServiceFallbacks(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMediaService(env.sessions, env.conversation,
		&fakeLLM{errs: []error{errBoom}},
		&fakeVision{err: errBoom},
		&fakeTranscriber{err: errBoom},
		20, 500, logger.Nop())
	ctx := context.Background()

	if got := svc.Transcribe(ctx, []byte("audio"), "a.webm"); got != "" {
		t.Fatalf("failed transcription should be empty, got %q", got)
	}
	if got := svc.Reply(ctx, "u1", "s1", "hello"); got != FallbackReply {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := svc.DescribeFrame(ctx, []byte{0xff}); got != FallbackDescription {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestMediaServiceReplyUsesRecentHistory(t *testing.T) {
	env := newTestEnv(t)
	llm := &fakeLLM{replies: []string{"반가워요"}}
	svc := NewMediaService(env.sessions, env.conversation, llm, &fakeVision{}, &fakeTranscriber{}, 2, 500, logger.Nop())
	ctx := context.Background()

	if err := svc.StartSession(ctx, "u1", "s1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := svc.SaveExchange(ctx, "u1", "s1", "q1", "a1"); err != nil {
		t.Fatalf("SaveExchange: %v", err)
	}
	if err := svc.SaveExchange(ctx, "u1", "s1", "q2", "a2"); err != nil {
		t.Fatalf("SaveExchange: %v", err)
	}

	if got := svc.Reply(ctx, "u1", "s1", "안녕"); got != "반가워요" {
		t.Fatalf("unexpected reply: %q", got)
	}
	sent := llm.calls[0]
	if len(sent) != 4 {
		t.Fatalf("expected system + 2 history + input, got %d", len(sent))
	}
	if sent[1].Content != "q2" || sent[2].Content != "a2" || sent[3].Role != ai.RoleUser {
		t.Fatalf("unexpected context: %+v", sent)
	}
	if llm.opts[0].MaxTokens != 500 || llm.opts[0].Temperature != 0.7 {
		t.Fatalf("unexpected options: %+v", llm.opts[0])
	}
}

func TestMediaServiceSaveFrame(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMediaService(env.sessions, env.conversation, &fakeLLM{}, &fakeVision{}, &fakeTranscriber{}, 20, 500, logger.Nop())
	ctx := context.Background()

	if err := svc.StartSession(ctx, "u1", "s1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := svc.SaveFrame(ctx, "u1", "s1", "https://storage.test/video/u1/s1.webm", "u1_s1_frame.webm", 1234, "a desk"); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	msgs, _ := env.messages.ListByConversationID(ctx, "s1")
	if len(msgs) != 1 || msgs[0].Message != "a desk" {
		t.Fatalf("frame description not stored as question: %+v", msgs)
	}
	files, _ := env.media.ListByConversationID(ctx, "s1")
	if len(files) != 1 || files[0].FileType != "video" || files[0].FileSize != 1234 {
		t.Fatalf("unexpected media rows: %+v", files)
	}
}
