package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"childhood-friend/internal/platform/logger"
)

var errNoActiveSession = errors.New("no active session")

// Session is the state of one connection. Handle and Close must be called
// from a single goroutine; only frame pipelines run concurrently, and they
// work on copies.
type Session struct {
	p      *Pipeline
	sender Sender
	ctx    context.Context
	cancel context.CancelFunc
	// ioCtx keeps ctx's values but not its cancellation. Read-loop storage
	// and inference calls and the final stream Close use it.
	ioCtx  context.Context
	log    *logger.Logger

	userID    string
	sessionID string
	audio     []byte
	header    []byte
	hasHeader bool
	stream    io.WriteCloser
	streamKey string
	limiter   *rate.Limiter

	// abortStream cancels the stream's context; after Close it only releases it.
	abortStream context.CancelFunc

	frames sync.WaitGroup
}

// NewSession starts the state for one connection. Cancelling ctx stops the
// frame pipelines only; the video stream is finalized by Close.
func (p *Pipeline) NewSession(ctx context.Context, sender Sender) *Session {
	frameCtx, cancel := context.WithCancel(ctx)
	return &Session{
		p:      p,
		sender: sender,
		ctx:    frameCtx,
		cancel: cancel,
		ioCtx:  context.WithoutCancel(ctx),
		log:    p.log,
	}
}

func (s *Session) Active() bool {
	return s.sessionID != ""
}

func (s *Session) SessionID() string {
	return s.sessionID
}

// Handle processes one raw client frame. Failures are answered with an
// error frame; they never end the connection.
func (s *Session) Handle(raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		s.log.Warn("decode client message failed", "error", err)
		s.sendError(msgServerError, s.sessionID)
		return
	}

	if err := s.dispatch(in); err != nil {
		if errors.Is(err, errNoActiveSession) {
			s.log.Warn("message without active session", "type", in.Type)
			return
		}
		s.log.Error("handle client message failed", "type", in.Type, "session_id", s.sessionID, "error", err)
		s.sendError(msgServerError, s.sessionID)
	}
}

func (s *Session) dispatch(in Inbound) error {
	if in.Type != TypeStartSession && !s.Active() {
		return errNoActiveSession
	}

	switch in.Type {
	case TypeStartSession:
		return s.start(in.UserID)
	case TypeAudioData:
		return s.handleAudio(in)
	case TypeVideoData:
		return s.handleVideo(in)
	case TypeEndSession:
		return s.end()
	default:
		s.log.Warn("unknown message type", "type", in.Type)
		return nil
	}
}

func (s *Session) start(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		s.sendError(msgMissingUserID, "")
		return nil
	}
	if s.Active() {
		s.log.Warn("session restarted before end_session", "session_id", s.sessionID)
		s.reset()
	}

	sessionID := uuid.NewString()
	folder := "video/" + userID
	if err := s.p.objects.EnsureFolder(s.ioCtx, folder); err != nil {
		s.log.Warn("ensure video folder failed", "folder", folder, "error", err)
	}

	// storage first: a failed open must not leave a chat_sessions row behind
	key := folder + "/" + sessionID + ".webm"
	streamCtx, abort := context.WithCancel(s.ioCtx)
	stream, err := s.p.objects.OpenStream(streamCtx, key, "video/webm")
	if err != nil {
		abort()
		return fmt.Errorf("open video stream failed: %w", err)
	}
	if err := s.p.store.StartSession(s.ioCtx, userID, sessionID); err != nil {
		abort()
		_ = stream.Close()
		return fmt.Errorf("register session failed: %w", err)
	}

	s.userID = userID
	s.sessionID = sessionID
	s.stream = stream
	s.streamKey = key
	s.abortStream = abort
	if s.p.opts.FrameInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(s.p.opts.FrameInterval), 1)
	}
	s.log = s.p.log.With("user_id", userID, "session_id", sessionID)
	s.log.Info("media session started")

	s.send(SessionEvent{Type: TypeSessionStarted, SessionID: sessionID})
	return nil
}

func (s *Session) end() error {
	sessionID := s.sessionID
	s.reset()
	s.log.Info("media session ended")
	s.log = s.p.log
	s.send(SessionEvent{Type: TypeSessionEnded, SessionID: sessionID})
	return nil
}

// reset closes the streaming upload and forgets everything about the
// current session.
func (s *Session) reset() {
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.log.Warn("close video stream failed", "key", s.streamKey, "error", err)
		}
	}
	if s.abortStream != nil {
		s.abortStream()
	}
	s.stream = nil
	s.streamKey = ""
	s.abortStream = nil
	s.audio = nil
	s.header = nil
	s.hasHeader = false
	s.limiter = nil
	s.userID = ""
	s.sessionID = ""
}

// Close runs when the socket goes away. The video stream is finalized,
// pending frame pipelines are cancelled and nothing else is persisted.
func (s *Session) Close() {
	s.reset()
	s.cancel()
	s.frames.Wait()
}

func (s *Session) send(v any) {
	if err := s.sender.Send(v); err != nil {
		s.log.Warn("send to client failed", "error", err)
	}
}

func (s *Session) sendError(message, sessionID string) {
	s.send(ErrorEvent{Type: TypeError, Message: message, SessionID: sessionID})
}

func decodeChunk(data string) ([]byte, error) {
	chunk, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 chunk failed: %w", err)
	}
	return chunk, nil
}
