package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"childhood-friend/internal/model"
)

func TestJobPublishing(t *testing.T) {
	now := time.Date(2024, 5, 1, 19, 0, 0, 0, time.FixedZone("KST", 9*3600))
	job := model.ProfileExtractJob{PersonID: 3, UserID: "u1", Text: "저는 간호사예요"}

	msg, err := jobPublishing(job, now)
	if err != nil {
		t.Fatalf("jobPublishing: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Fatalf("job must be persistent json: %+v", msg)
	}
	if msg.Type != "profile.extract" || !msg.Timestamp.Equal(now) || msg.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected headers: type=%q ts=%v", msg.Type, msg.Timestamp)
	}

	// the worker decodes exactly this body
	var got model.ProfileExtractJob
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got != job {
		t.Fatalf("body round trip: got %+v want %+v", got, job)
	}
}
