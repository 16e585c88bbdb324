package notify

import "context"

// Message is one reset-link delivery job.
type Message struct {
	To        string
	ResetLink string
}

// Dispatcher accepts delivery jobs without blocking the caller.
// Delivery is best-effort: a failed or dropped job never affects the
// caller-visible result of the request that enqueued it.
type Dispatcher interface {
	Enqueue(msg Message)
}

// Mailer performs one delivery attempt.
type Mailer interface {
	Send(ctx context.Context, to, resetLink string) error
}
