package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"identity/internal/domain"
	"identity/internal/store"
)

const resetTokenBytes = 32

// ResetTokenManagerImpl issues and consumes single-use reset tokens.
// Issuing overwrites any prior token on the principal, so only the
// most recently issued token is ever valid. There is no background
// sweep; expired tokens are cleared lazily on the next consume
// attempt.
type ResetTokenManagerImpl struct {
	store *store.Store
	ttl   time.Duration
}

func NewResetTokenManager(st *store.Store, ttl time.Duration) *ResetTokenManagerImpl {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokenManagerImpl{store: st, ttl: ttl}
}

func (m *ResetTokenManagerImpl) Issue(ctx context.Context, principal *domain.Principal) (string, time.Time, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	expiry := time.Now().UTC().Add(m.ttl)

	if err := m.store.Principals().SetResetToken(ctx, principal.Class, principal.ID, token, expiry); err != nil {
		return "", time.Time{}, err
	}
	principal.ResetToken = &token
	principal.ResetTokenExpiry = &expiry
	return token, expiry, nil
}

// Consume applies newHash and clears the token fields in one
// conditional store update, so a token can never be used twice. Any
// mismatch or expiry comes back as ErrInvalidResetToken; the caller
// cannot tell which.
func (m *ResetTokenManagerImpl) Consume(ctx context.Context, principal *domain.Principal, token, newHash string) error {
	if token == "" {
		return domain.ErrInvalidResetToken
	}
	now := time.Now().UTC()
	ok, err := m.store.Principals().ConsumeResetToken(ctx, principal.Class, principal.ID, token, newHash, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// The token may have matched but expired; clear the stale fields
	// so the record returns to its no-active-reset state.
	if err := m.store.Principals().ClearExpiredResetToken(ctx, principal.Class, principal.ID, token, now); err != nil {
		slog.Warn("failed to clear expired reset token", "principal_id", principal.ID, "error", err)
	}
	return domain.ErrInvalidResetToken
}
