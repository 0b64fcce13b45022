package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"childhood-friend/internal/config"
)

// New dials the broker and declares the profile extraction queue.
// It returns (nil, nil) when the broker is disabled.
func New(ctx context.Context, cfg config.RabbitMQConfig) (*amqp.Connection, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Dial: amqp.DefaultDial(3 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	done := make(chan error, 1)
	go func() {
		_, queueErr := ch.QueueDeclare(cfg.ProfileExtractQueue, true, false, false, false, nil)
		done <- queueErr
	}()

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq health check timeout: %w", checkCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s failed: %w", cfg.ProfileExtractQueue, err)
		}
		return conn, nil
	}
}
