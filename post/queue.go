package post

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mkobayashi/stream-herald/telemetry"
)

// Publisher is the outbound client the queue drains into.
type Publisher interface {
	Publish(ctx context.Context, text string) error
	PublishMedia(ctx context.Context, text, mediaPath string) error
}

// Job is one unit of outbound content. CleanupPath, when set, is removed after
// the publish attempt whether or not it succeeded.
type Job struct {
	Text        string
	MediaPath   string
	CleanupPath string
}

// Queue accepts publish jobs on a bounded FIFO and drains them one at a time,
// keeping at least Interval between publish attempts. A full queue drops new
// jobs instead of blocking the producer. Delivery is at-most-once: failed
// publishes are logged and abandoned.
type Queue struct {
	pub       Publisher
	interval  time.Duration
	decorate  func(string) string
	jobs      chan *Job
	done      chan struct{}
	lastStart time.Time
}

// NewQueue builds a queue with the given capacity. decorate runs on each job's
// text after the interval wait and immediately before publishing; nil means no
// decoration.
func NewQueue(pub Publisher, interval time.Duration, capacity int, decorate func(string) string) *Queue {
	if decorate == nil {
		decorate = func(s string) string { return s }
	}
	return &Queue{
		pub:      pub,
		interval: interval,
		decorate: decorate,
		jobs:     make(chan *Job, capacity),
		done:     make(chan struct{}),
	}
}

// Start launches the single worker goroutine. The worker publishes with a
// context detached from ctx's cancellation so jobs accepted before Close
// still deliver during shutdown; the worker exits only via Close.
func (q *Queue) Start(ctx context.Context) {
	go q.worker(context.WithoutCancel(ctx))
}

// EnqueueText adds a text-only job. Empty text is ignored.
func (q *Queue) EnqueueText(text string) {
	if text == "" {
		return
	}
	q.enqueue(&Job{Text: text})
}

// EnqueueMedia adds an image-attached job.
func (q *Queue) EnqueueMedia(text, mediaPath, cleanupPath string) {
	if text == "" || mediaPath == "" {
		return
	}
	q.enqueue(&Job{Text: text, MediaPath: mediaPath, CleanupPath: cleanupPath})
}

func (q *Queue) enqueue(job *Job) {
	select {
	case q.jobs <- job:
		telemetry.SetQueueDepth(len(q.jobs))
	default:
		slog.Info("publish queue full; dropping job")
		if telemetry.PostsDropped != nil {
			telemetry.PostsDropped.Inc()
		}
	}
}

// Depth reports the number of queued jobs.
func (q *Queue) Depth() int { return len(q.jobs) }

// Close enqueues a sentinel behind everything already accepted and waits for
// the worker to drain up to it and exit.
func (q *Queue) Close() {
	q.jobs <- nil
	<-q.done
}

func (q *Queue) worker(ctx context.Context) {
	defer close(q.done)
	for job := range q.jobs {
		if job == nil {
			return
		}
		q.publishOne(ctx, job)
		telemetry.SetQueueDepth(len(q.jobs))
	}
}

func (q *Queue) publishOne(ctx context.Context, job *Job) {
	// Interval throttle first, then final formatting; the decoration must see
	// the state of the world at publish time, not at enqueue time.
	if !q.lastStart.IsZero() {
		if remaining := q.interval - time.Since(q.lastStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	q.lastStart = time.Now()

	ctx, span := telemetry.StartSpan(ctx, "post-queue", "publish")
	defer span.End()

	text := q.decorate(job.Text)
	var err error
	if job.MediaPath != "" {
		err = q.pub.PublishMedia(ctx, text, job.MediaPath)
	} else {
		err = q.pub.Publish(ctx, text)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		slog.Error("publish failed; dropping job", slog.Any("err", err))
		if telemetry.PostsFailed != nil {
			telemetry.PostsFailed.Inc()
		}
	} else {
		slog.Info("published post")
		if telemetry.PostsPublished != nil {
			telemetry.PostsPublished.Inc()
		}
	}

	if job.CleanupPath != "" {
		if err := os.Remove(job.CleanupPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove cleanup file", slog.String("path", job.CleanupPath), slog.Any("err", err))
		}
	}
}
