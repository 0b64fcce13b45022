package app

import (
	"context"
	"testing"
	"time"

	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

type stubPublisher struct {
	err  error
	jobs chan model.ProfileExtractJob
}

func (p *stubPublisher) Publish(_ context.Context, job model.ProfileExtractJob) error {
	p.jobs <- job
	return p.err
}

func TestSubmitPublishesWhenBrokerAvailable(t *testing.T) {
	env := newTestEnv(t)
	llm := &fakeLLM{replies: []string{`{"personality":"활발함"}`}}
	pub := &stubPublisher{jobs: make(chan model.ProfileExtractJob, 1)}
	enricher := NewProfileEnricher(pub, NewProfileExtractor(env.persons, llm, logger.Nop()), logger.Nop())

	enricher.Submit(model.ProfileExtractJob{PersonID: 7, UserID: "u1", Text: "주말엔 등산해요"})

	select {
	case job := <-pub.jobs:
		if job.PersonID != 7 || job.UserID != "u1" {
			t.Fatalf("unexpected job: %+v", job)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job was not published")
	}
	time.Sleep(20 * time.Millisecond)
	if llm.callCount() != 0 {
		t.Fatalf("published jobs must not be extracted inline")
	}
}

func TestSubmitFallsBackToInlineExtraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	person := &model.Person{Name: "Lee", DateOfBirth: "1988-01-02"}
	if err := env.persons.Create(ctx, person); err != nil {
		t.Fatalf("create person: %v", err)
	}

	llm := &fakeLLM{replies: []string{`{"personality":"활발함"}`}}
	pub := &stubPublisher{err: errBoom, jobs: make(chan model.ProfileExtractJob, 1)}
	enricher := NewProfileEnricher(pub, NewProfileExtractor(env.persons, llm, logger.Nop()), logger.Nop())

	enricher.Submit(model.ProfileExtractJob{PersonID: person.PersonID, UserID: "u1", Text: "주말엔 등산해요"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := env.persons.GetByID(ctx, person.PersonID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got != nil && got.Personality == "활발함" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("profile was not enriched after publish failure")
}
