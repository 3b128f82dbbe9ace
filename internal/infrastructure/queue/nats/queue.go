// Package nats carries ingest jobs from the API to workers and progress
// events from workers back to whichever process streams them.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/infrastructure/resilience"
)

const (
	DefaultIngestSubject   = "documents.ingest"
	DefaultProgressSubject = "documents.progress"
	workerQueueGroup       = "docintel-workers"
)

type Options struct {
	IngestSubject        string
	ProgressSubject      string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

type Queue struct {
	conn            *nats.Conn
	ingestSubject   string
	progressSubject string
	executor        *resilience.Executor
	logger          *slog.Logger
}

var (
	_ ports.JobQueue          = (*Queue)(nil)
	_ ports.ProgressPublisher = (*Queue)(nil)
)

func New(url string, options Options) (*Queue, error) {
	options = options.withDefaults()
	logger := options.Logger

	conn, err := nats.Connect(
		url,
		nats.Name("docintel"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(*options.RetryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		ingestSubject:   options.IngestSubject,
		progressSubject: options.ProgressSubject,
		executor:        options.ResilienceExecutor,
		logger:          logger,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.IngestSubject == "" {
		o.IngestSubject = DefaultIngestSubject
	}
	if o.ProgressSubject == "" {
		o.ProgressSubject = DefaultProgressSubject
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 60
	}
	if o.RetryOnFailedConnect == nil {
		retry := true
		o.RetryOnFailedConnect = &retry
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishJob(ctx context.Context, job ports.IngestJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}
	return q.publish(ctx, "nats.publish_job", q.ingestSubject, payload)
}

// SubscribeJobs blocks until ctx is cancelled, handing each job to handler.
// Workers share a queue group so every job is processed once.
func (q *Queue) SubscribeJobs(ctx context.Context, handler func(context.Context, ports.IngestJob) error) error {
	sub, err := q.conn.QueueSubscribe(q.ingestSubject, workerQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		job, err := decodeJob(msg.Data)
		if err != nil {
			q.logger.Error("ingest_job_rejected", "error", err)
			return
		}
		if err := handler(ctx, job); err != nil {
			q.logger.Error("ingest_job_failed", "document_id", job.DocumentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	return q.serve(ctx, sub)
}

// Publish forwards a progress event; failures are logged because progress
// delivery must never stall processing.
func (q *Queue) Publish(ctx context.Context, event domain.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		q.logger.Error("progress_encode_failed", "document_id", event.DocumentID, "error", err)
		return
	}
	if err := q.publish(ctx, "nats.publish_progress", progressSubject(q.progressSubject, event.DocumentID), payload); err != nil {
		q.logger.Warn("progress_publish_failed", "document_id", event.DocumentID, "error", err)
	}
}

// SubscribeProgress relays progress events from every worker into sink
// until ctx is cancelled.
func (q *Queue) SubscribeProgress(ctx context.Context, sink ports.ProgressPublisher) error {
	sub, err := q.conn.Subscribe(q.progressSubject+".>", func(msg *nats.Msg) {
		var event domain.ProgressEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			q.logger.Warn("progress_decode_failed", "subject", msg.Subject, "error", err)
			return
		}
		sink.Publish(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe progress: %w", err)
	}
	return q.serve(ctx, sub)
}

func (q *Queue) publish(ctx context.Context, op, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, op, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(op, err)
}

func (q *Queue) serve(ctx context.Context, sub *nats.Subscription) error {
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}

func decodeJob(data []byte) (ports.IngestJob, error) {
	var job ports.IngestJob
	if err := json.Unmarshal(data, &job); err != nil {
		return ports.IngestJob{}, domain.WrapError(domain.ErrInvalidInput, "nats.decode_job", err)
	}
	if job.DocumentID == "" || job.StorageKey == "" {
		return ports.IngestJob{}, domain.WrapError(domain.ErrInvalidInput, "nats.decode_job", errors.New("document_id and storage_key are required"))
	}
	job.Language = domain.NormalizeLanguage(string(job.Language))
	return job, nil
}

func progressSubject(base, documentID string) string {
	return base + "." + subjectToken(documentID)
}

// subjectToken maps characters NATS reserves in subjects to '_'.
func subjectToken(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
