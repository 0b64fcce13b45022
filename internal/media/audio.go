package media

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"childhood-friend/internal/platform/logger"
)

func (s *Session) handleAudio(in Inbound) error {
	chunk, err := decodeChunk(in.Data)
	if err != nil {
		return err
	}
	s.audio = append(s.audio, chunk...)
	if !in.IsComplete && len(s.audio) <= s.p.opts.AudioFlushBytes {
		return nil
	}

	buf := s.audio
	s.audio = nil
	s.flushAudio(buf)
	return nil
}

// flushAudio uploads and transcribes one accumulated utterance, answers it and
// stores the exchange. The client always gets exactly one reply.
func (s *Session) flushAudio(buf []byte) {
	userID, sessionID := s.userID, s.sessionID
	fileName := fmt.Sprintf("%s_%d.webm", sessionID, s.p.now().UnixMilli())
	key := "audio/" + userID + "/" + fileName

	tmp, err := writeTemp(s.p.opts.TempDir, "audio_"+sessionID+"_*.webm", buf)
	if err != nil {
		s.log.Error("write audio temp file failed", "error", err)
		s.sendError(msgAudioError, sessionID)
		return
	}
	defer removeTemp(s.log, tmp)

	var (
		mediaURL      string
		transcription string
	)
	g, gctx := errgroup.WithContext(s.ioCtx)
	g.Go(func() error {
		f, err := os.Open(tmp)
		if err != nil {
			return fmt.Errorf("open audio temp file failed: %w", err)
		}
		defer f.Close()
		url, err := s.p.objects.Upload(gctx, key, "audio/webm", f)
		if err != nil {
			return fmt.Errorf("upload audio failed: %w", err)
		}
		mediaURL = url
		return nil
	})
	g.Go(func() error {
		transcription = s.p.infer.Transcribe(gctx, buf, fileName)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("process audio failed", "key", key, "error", err)
		s.sendError(msgAudioError, sessionID)
		return
	}

	reply := s.p.infer.Reply(s.ioCtx, userID, sessionID, transcription)
	if err := s.p.store.SaveExchange(s.ioCtx, userID, sessionID, transcription, reply); err != nil {
		s.log.Warn("save audio exchange failed", "error", err)
	}

	s.send(AudioProcessed{
		Type:          TypeAudioProcessed,
		SessionID:     sessionID,
		MediaURL:      mediaURL,
		Transcription: transcription,
		AIResponse:    reply,
	})
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func removeTemp(log *logger.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Debug("remove temp file failed", "path", path, "error", err)
	}
}
