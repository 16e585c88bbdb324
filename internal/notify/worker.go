package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"identity/internal/observability/metrics"

	"github.com/sethvargo/go-retry"
)

type WorkerConfig struct {
	QueueSize  int
	MaxRetries uint64
	BaseDelay  time.Duration
}

// Worker is the bounded background queue between request handlers and
// the mailer. Enqueue never blocks: when the queue is full the job is
// dropped and logged, keeping the forgot-password response path
// independent of delivery health.
type Worker struct {
	cfg    WorkerConfig
	mailer Mailer
	queue  chan Message
	wg     sync.WaitGroup
}

func NewWorker(mailer Mailer, cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	return &Worker{
		cfg:    cfg,
		mailer: mailer,
		queue:  make(chan Message, cfg.QueueSize),
	}
}

// Start launches the delivery goroutine. ctx cancellation aborts
// in-flight retries; Stop drains the queue first.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for msg := range w.queue {
			w.deliver(ctx, msg)
		}
	}()
}

// Stop closes the queue and waits for the remaining jobs.
func (w *Worker) Stop() {
	close(w.queue)
	w.wg.Wait()
}

func (w *Worker) Enqueue(msg Message) {
	select {
	case w.queue <- msg:
	default:
		slog.Warn("notification queue full, dropping reset link", "to", msg.To)
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
	}
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	backoff := retry.WithMaxRetries(w.cfg.MaxRetries, retry.NewExponential(w.cfg.BaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.mailer.Send(ctx, msg.To, msg.ResetLink); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("reset link delivery failed", "to", msg.To, "error", err)
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}
