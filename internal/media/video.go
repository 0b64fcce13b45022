package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"

	"childhood-friend/internal/platform/logger"
)

// clusterID marks the first WebM Cluster element; everything before it is
// the EBML header plus segment info needed to decode later chunks.
var clusterID = []byte{0x1F, 0x43, 0xB6, 0x75}

type frameJob struct {
	userID    string
	sessionID string
	mediaURL  string
	video     []byte
	log       *logger.Logger
}

func (s *Session) handleVideo(in Inbound) error {
	chunk, err := decodeChunk(in.Data)
	if err != nil {
		return err
	}
	if s.stream != nil {
		if _, err := s.stream.Write(chunk); err != nil {
			return fmt.Errorf("write video stream failed: %w", err)
		}
	}

	var video []byte
	if !s.hasHeader {
		s.header = webmHeader(chunk)
		s.hasHeader = true
		video = chunk
	} else {
		video = make([]byte, 0, len(s.header)+len(chunk))
		video = append(video, s.header...)
		video = append(video, chunk...)
	}

	if s.ctx.Err() != nil {
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return nil
	}

	job := frameJob{
		userID:    s.userID,
		sessionID: s.sessionID,
		mediaURL:  s.p.objects.PublicURL(s.streamKey),
		video:     video,
		log:       s.log,
	}
	s.frames.Add(1)
	go func() {
		defer s.frames.Done()
		s.processFrame(s.ctx, job)
	}()
	return nil
}

// webmHeader returns the bytes before the first Cluster, or the whole chunk
// when no Cluster starts after offset 0.
func webmHeader(chunk []byte) []byte {
	if idx := bytes.Index(chunk, clusterID); idx > 0 {
		return chunk[:idx]
	}
	return chunk
}

// processFrame runs detached from the read loop and only touches job.
func (s *Session) processFrame(ctx context.Context, job frameJob) {
	tmp, err := writeTemp(s.p.opts.TempDir, "frame_"+job.sessionID+"_*.webm", job.video)
	if err != nil {
		job.log.Warn("write video temp file failed", "error", err)
		return
	}
	defer removeTemp(job.log, tmp)

	frame, err := s.p.frames.ExtractFirstFrame(ctx, tmp)
	if err != nil {
		job.log.Debug("frame extraction skipped", "error", err)
		return
	}

	description := s.p.infer.DescribeFrame(ctx, frame)
	if ctx.Err() != nil {
		return
	}

	if err := s.p.store.SaveFrame(ctx, job.userID, job.sessionID, job.mediaURL, filepath.Base(tmp), int64(len(job.video)), description); err != nil {
		job.log.Warn("save frame failed", "error", err)
	}

	if err := s.sender.Send(VideoProcessed{
		Type:          TypeVideoProcessed,
		SessionID:     job.sessionID,
		MediaURL:      job.mediaURL,
		VideoAnalysis: description,
		FrameImage:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
	}); err != nil {
		job.log.Warn("send frame result failed", "error", err)
	}
}
