package service

import (
	"context"
	"time"

	"identity/internal/domain"
)

// ResetTokenManager issues and consumes single-use, time-bounded
// password-reset tokens. Issue replaces any prior token on the
// principal; Consume applies the new password hash and clears the
// token fields in the same store operation.
type ResetTokenManager interface {
	Issue(ctx context.Context, principal *domain.Principal) (token string, expiry time.Time, err error)
	Consume(ctx context.Context, principal *domain.Principal, token, newHash string) error
}
