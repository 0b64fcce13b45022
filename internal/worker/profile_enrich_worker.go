package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

type ProfileExtractor interface {
	Extract(ctx context.Context, job model.ProfileExtractJob) (int, error)
}

// ProfileEnrichWorker consumes profile extraction jobs and writes the
// recognized columns through the extractor. Failed jobs are dropped.
type ProfileEnrichWorker struct {
	conn      *amqp.Connection
	extractor ProfileExtractor
	queueName string
	timeout   time.Duration
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProfileEnrichWorker(conn *amqp.Connection, extractor ProfileExtractor, queueName string, log *logger.Logger) *ProfileEnrichWorker {
	return &ProfileEnrichWorker{
		conn:      conn,
		extractor: extractor,
		queueName: queueName,
		timeout:   time.Minute,
		log:       log.With("worker", "ProfileEnrichWorker", "queue", queueName),
	}
}

func (w *ProfileEnrichWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	// extraction calls the model; one job in flight per worker
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.run(workerCtx, deliveries)
	}()

	w.log.Info("profile worker started")
	return nil
}

func (w *ProfileEnrichWorker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *ProfileEnrichWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.ProfileExtractJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Warn("decode profile job failed", "error", err)
		_ = d.Nack(false, false)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	n, err := w.extractor.Extract(jobCtx, job)
	if err != nil {
		w.log.Warn("profile extraction failed", "person_id", job.PersonID, "error", err)
		_ = d.Nack(false, false)
		return
	}
	w.log.Debug("profile job done", "person_id", job.PersonID, "columns", n)
	_ = d.Ack(false)
}

func (w *ProfileEnrichWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
