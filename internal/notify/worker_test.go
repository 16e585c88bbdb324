package notify

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"identity/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("test")
	os.Exit(m.Run())
}

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []Message
}

func (f *flakyMailer) Send(_ context.Context, to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp temporarily down")
	}
	f.sent = append(f.sent, Message{To: to, ResetLink: link})
	return nil
}

func (f *flakyMailer) delivered() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func TestWorkerDelivers(t *testing.T) {
	mailer := &flakyMailer{}
	w := NewWorker(mailer, WorkerConfig{QueueSize: 4, MaxRetries: 1, BaseDelay: time.Millisecond})
	w.Start(context.Background())

	w.Enqueue(Message{To: "alice@x.com", ResetLink: "http://localhost/reset?token=t"})
	w.Stop()

	got := mailer.delivered()
	if len(got) != 1 || got[0].To != "alice@x.com" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestWorkerRetriesUntilSuccess(t *testing.T) {
	mailer := &flakyMailer{failures: 2}
	w := NewWorker(mailer, WorkerConfig{QueueSize: 4, MaxRetries: 3, BaseDelay: time.Millisecond})
	w.Start(context.Background())

	w.Enqueue(Message{To: "alice@x.com", ResetLink: "link"})
	w.Stop()

	if len(mailer.delivered()) != 1 {
		t.Fatalf("expected delivery after retries, got %d", len(mailer.delivered()))
	}
}

func TestWorkerGivesUpAfterMaxRetries(t *testing.T) {
	mailer := &flakyMailer{failures: 10}
	w := NewWorker(mailer, WorkerConfig{QueueSize: 4, MaxRetries: 2, BaseDelay: time.Millisecond})
	w.Start(context.Background())

	w.Enqueue(Message{To: "alice@x.com", ResetLink: "link"})
	w.Stop()

	if len(mailer.delivered()) != 0 {
		t.Fatalf("expected no delivery, got %+v", mailer.delivered())
	}
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	mailer := &flakyMailer{}
	w := NewWorker(mailer, WorkerConfig{QueueSize: 1, MaxRetries: 1, BaseDelay: time.Millisecond})
	// Not started: the queue cannot drain, so the second enqueue must
	// drop instead of blocking the caller.
	w.Enqueue(Message{To: "first@x.com"})

	done := make(chan struct{})
	go func() {
		w.Enqueue(Message{To: "second@x.com"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue")
	}

	w.Start(context.Background())
	w.Stop()
	got := mailer.delivered()
	if len(got) != 1 || got[0].To != "first@x.com" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}
