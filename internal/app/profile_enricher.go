package app

import (
	"context"
	"time"

	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

type ProfileJobPublisher interface {
	Publish(ctx context.Context, job model.ProfileExtractJob) error
}

// ProfileEnricher hands jobs to the broker when one is configured and
// otherwise runs the extractor in its own goroutine. It never blocks the
// caller and never reports failure back.
type ProfileEnricher struct {
	publisher ProfileJobPublisher
	extractor *ProfileExtractor
	timeout   time.Duration
	log       *logger.Logger
}

func NewProfileEnricher(publisher ProfileJobPublisher, extractor *ProfileExtractor, log *logger.Logger) *ProfileEnricher {
	return &ProfileEnricher{
		publisher: publisher,
		extractor: extractor,
		timeout:   time.Minute,
		log:       log.With("service", "ProfileEnricher"),
	}
}

func (e *ProfileEnricher) Submit(job model.ProfileExtractJob) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if e.publisher != nil {
			err := e.publisher.Publish(ctx, job)
			if err == nil {
				return
			}
			e.log.Warn("publish profile job failed, extracting inline", "person_id", job.PersonID, "error", err)
		}
		if e.extractor == nil {
			return
		}
		if _, err := e.extractor.Extract(ctx, job); err != nil {
			e.log.Warn("profile extraction failed", "person_id", job.PersonID, "error", err)
		}
	}()
}
