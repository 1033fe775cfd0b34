package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender delivers one webhook.
type Sender interface {
	SendWebhook(ctx context.Context, url string, payload any) error
}

type Job struct {
	ID       uuid.UUID
	URL      string
	Payload  any
	Attempts int
}

// WebhookWorker drains an in-memory job queue, retrying failed deliveries
// with a linear backoff until MaxAttempts is reached.
type WebhookWorker struct {
	sender      Sender
	jobs        chan Job
	quit        chan struct{}
	backoff     func(attempts int) time.Duration
	maxAttempts int
	timeout     time.Duration
	onResult    func(Job, error)
	logger      *slog.Logger

	// mu orders pushes against Stop: once stopped is set, nothing else
	// enters the queue, so the loop's final drain sees every accepted job.
	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*WebhookWorker)

func WithBackoff(f func(attempts int) time.Duration) Option {
	return func(w *WebhookWorker) { w.backoff = f }
}

func WithMaxAttempts(n int) Option {
	return func(w *WebhookWorker) { w.maxAttempts = n }
}

func WithQueueSize(n int) Option {
	return func(w *WebhookWorker) { w.jobs = make(chan Job, n) }
}

// WithResultHook is called after every delivery attempt.
func WithResultHook(f func(Job, error)) Option {
	return func(w *WebhookWorker) { w.onResult = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *WebhookWorker) { w.logger = l }
}

func NewWebhookWorker(sender Sender, opts ...Option) *WebhookWorker {
	w := &WebhookWorker{
		sender:      sender,
		jobs:        make(chan Job, 256),
		quit:        make(chan struct{}),
		backoff:     func(attempts int) time.Duration { return time.Duration(attempts*10+10) * time.Second },
		maxAttempts: 5,
		timeout:     10 * time.Second,
		onResult:    func(Job, error) {},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the delivery loop.
func (w *WebhookWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Info("Webhook worker started")
		for {
			select {
			case job := <-w.jobs:
				w.process(job)
			case <-w.quit:
				w.drain()
				return
			}
		}
	}()
}

// Enqueue schedules a delivery. It reports false when the worker is stopped
// or the queue is full.
func (w *WebhookWorker) Enqueue(url string, payload any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	return w.push(Job{ID: uuid.New(), URL: url, Payload: payload})
}

// Stop delivers what is already queued, drops pending retries and waits for
// the loop to exit or ctx to expire.
func (w *WebhookWorker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.quit)
		w.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// push must be called with mu held.
func (w *WebhookWorker) push(job Job) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.logger.Warn("Worker: queue full, dropping job", "job_id", job.ID)
		return false
	}
}

func (w *WebhookWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *WebhookWorker) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	job.Attempts++
	err := w.sender.SendWebhook(ctx, job.URL, job.Payload)
	w.onResult(job, err)

	if err == nil {
		w.logger.Info("Worker: webhook sent", "job_id", job.ID, "attempts", job.Attempts)
		return
	}

	w.logger.Error("Worker: webhook failed", "error", err, "job_id", job.ID, "attempts", job.Attempts)
	if job.Attempts >= w.maxAttempts {
		w.logger.Error("Worker: job marked as FAILED (max attempts reached)", "job_id", job.ID)
		return
	}
	w.retry(job)
}

func (w *WebhookWorker) retry(job Job) {
	delay := w.backoff(job.Attempts)
	w.logger.Info("Worker: scheduled retry", "job_id", job.ID, "in", delay)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			w.mu.Lock()
			if w.stopped {
				w.logger.Warn("Worker: retry dropped on shutdown", "job_id", job.ID)
			} else {
				w.push(job)
			}
			w.mu.Unlock()
		case <-w.quit:
			w.logger.Warn("Worker: retry dropped on shutdown", "job_id", job.ID)
		}
	}()
}
