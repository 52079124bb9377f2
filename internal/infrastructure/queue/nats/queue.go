package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/resilience"
)

const (
	workerQueueGroup = "bpx-import-workers"

	defaultDrainTimeout = 30 * time.Second
	abortGrace          = 5 * time.Second
)

type Queue struct {
	conn         *nats.Conn
	subject      string
	executor     *resilience.Executor
	drainTimeout time.Duration

	// handling is held while an import job runs.
	handling sync.Mutex
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// DrainTimeout bounds how long shutdown waits for the running import.
	DrainTimeout time.Duration
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("bpx-import-service"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishImportRequested(ctx context.Context, job domain.ImportJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeImportRequested blocks until ctx is done. Jobs delivered after that
// are dropped, while the job already running keeps its context and gets up to
// the drain timeout to finish before it is cancelled.
func (q *Queue) SubscribeImportRequested(ctx context.Context, handler func(context.Context, domain.ImportJob) error) error {
	jobCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	defer abort()

	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, q.messageHandler(ctx, jobCtx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if !q.waitIdle(q.drainTimeout) {
		slog.Warn("import_job_drain_timeout", "timeout", q.drainTimeout.String())
		abort()
		q.waitIdle(abortGrace)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// messageHandler runs one job at a time. shutdown gates new deliveries and
// jobCtx is what the running job sees.
func (q *Queue) messageHandler(shutdown, jobCtx context.Context, handler func(context.Context, domain.ImportJob) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		q.handling.Lock()
		defer q.handling.Unlock()

		if shutdown.Err() != nil {
			slog.Warn("import_job_dropped_on_shutdown", "subject", msg.Subject)
			return
		}

		job, err := decodeJob(msg.Data)
		if err != nil {
			slog.Error("import_job_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(jobCtx)
		defer cancel()
		if err := handler(handlerCtx, job); err != nil {
			slog.Error("import_job_failed", "job_id", job.ID, "project_id", job.ProjectID, "error", err)
		}
	}
}

// waitIdle reports whether the running job, if any, finished within timeout.
func (q *Queue) waitIdle(timeout time.Duration) bool {
	idle := make(chan struct{})
	go func() {
		q.handling.Lock()
		q.handling.Unlock()
		close(idle)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return true
	case <-timer.C:
		return false
	}
}

func encodeJob(job domain.ImportJob) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal import job: %w", err)
	}
	return payload, nil
}

func decodeJob(data []byte) (domain.ImportJob, error) {
	var job domain.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.ImportJob{}, fmt.Errorf("unmarshal import job: %w", err)
	}
	if job.ID == "" || job.ProjectID == "" || job.StoragePath == "" {
		return domain.ImportJob{}, fmt.Errorf("import job is incomplete: %s", string(data))
	}
	return job, nil
}
