package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

func TestJobCodecRoundTrip(t *testing.T) {
	job := domain.ImportJob{
		ID:             "job-1",
		ProjectID:      "project-1",
		PriorProfileID: "profile-0",
		StorageBucket:  "imports",
		StoragePath:    "project-1/chest.bpx",
		CreatedBy:      "user-7",
	}
	payload, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encodeJob() error = %v", err)
	}
	got, err := decodeJob(payload)
	if err != nil {
		t.Fatalf("decodeJob() error = %v", err)
	}
	if got != job {
		t.Fatalf("decoded job = %+v, want %+v", got, job)
	}
}

func TestDecodeJobRejectsIncompletePayload(t *testing.T) {
	cases := []string{
		`not json`,
		`{"id":"job-1","project_id":"p"}`,
		`{"project_id":"p","storage_path":"a.bpx"}`,
	}
	for _, raw := range cases {
		if _, err := decodeJob([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed)); !class.Retryable {
		t.Fatalf("expected closed connection to be retryable")
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", class)
	}
	if class := classifyNATSError(nats.ErrMaxPayload); class.Retryable {
		t.Fatalf("expected payload error to be permanent")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrTimeout))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	permanent := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(permanent); got != permanent {
		t.Fatalf("expected permanent error untouched, got %v", got)
	}
}

const jobPayload = `{"id":"job-1","project_id":"p","storage_path":"p/chest.bpx"}`

func TestMessageHandlerKeepsRunningJobThroughShutdown(t *testing.T) {
	shutdown, stop := context.WithCancel(context.Background())
	defer stop()
	jobCtx, abort := context.WithCancel(context.WithoutCancel(shutdown))
	defer abort()

	started := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)
	q := &Queue{}
	handle := q.messageHandler(shutdown, jobCtx, func(ctx context.Context, job domain.ImportJob) error {
		close(started)
		<-release
		result <- ctx.Err()
		return nil
	})

	go handle(&nats.Msg{Subject: "imports.bpx", Data: []byte(jobPayload)})
	<-started
	stop()

	if q.waitIdle(20 * time.Millisecond) {
		t.Fatalf("expected the running job to hold the worker busy")
	}
	close(release)
	if err := <-result; err != nil {
		t.Fatalf("running job saw cancellation after shutdown: %v", err)
	}
	if !q.waitIdle(time.Second) {
		t.Fatalf("expected the worker to become idle")
	}
}

func TestMessageHandlerDropsJobsAfterShutdown(t *testing.T) {
	shutdown, stop := context.WithCancel(context.Background())
	stop()

	called := false
	q := &Queue{}
	handle := q.messageHandler(shutdown, context.Background(), func(context.Context, domain.ImportJob) error {
		called = true
		return nil
	})
	handle(&nats.Msg{Subject: "imports.bpx", Data: []byte(jobPayload)})
	if called {
		t.Fatalf("expected job delivered after shutdown to be dropped")
	}
}

func TestMessageHandlerJobSeesAbort(t *testing.T) {
	jobCtx, abort := context.WithCancel(context.Background())
	abort()

	var seen error
	q := &Queue{}
	handle := q.messageHandler(context.Background(), jobCtx, func(ctx context.Context, job domain.ImportJob) error {
		seen = ctx.Err()
		return seen
	})
	handle(&nats.Msg{Subject: "imports.bpx", Data: []byte(jobPayload)})
	if !errors.Is(seen, context.Canceled) {
		t.Fatalf("expected aborted job context, got %v", seen)
	}
}
