package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"childhood-friend/internal/model"
)

var errNotConfirmed = errors.New("broker rejected profile job")

// ProfileJobPublisher keeps one confirm-mode channel and reopens it after the
// broker closes it. A Publish returns only once the broker has acked the job.
type ProfileJobPublisher struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewProfileJobPublisher(conn *amqp.Connection, queueName string) *ProfileJobPublisher {
	return &ProfileJobPublisher{conn: conn, queueName: queueName}
}

func (p *ProfileJobPublisher) Publish(ctx context.Context, job model.ProfileExtractJob) error {
	msg, err := jobPublishing(job, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", p.queueName, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish profile job to %s failed: %w", p.queueName, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for profile job confirm failed: %w", err)
	}
	if !acked {
		return errNotConfirmed
	}
	return nil
}

// channel must be called with mu held.
func (p *ProfileJobPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms failed: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func jobPublishing(job model.ProfileExtractJob, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal profile job failed: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         "profile.extract",
		AppId:        "childhood-friend",
		Body:         body,
	}, nil
}
