package store

import (
	"context"
	"errors"
	"time"

	"identity/internal/domain"
)

// PrincipalStore is the thin union view over both partitions. Lookups
// try the community table first, then researchers; usernames and
// emails are unique across the union, so at most one record matches.
// Email arguments are expected already lowercased.
type PrincipalStore struct{ store *Store }

func (s *Store) Principals() *PrincipalStore { return &PrincipalStore{store: s} }

func (p *PrincipalStore) FindByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	if principal, err := p.store.Members().GetByUsername(ctx, username); err == nil {
		return principal, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	return p.store.Researchers().GetByUsername(ctx, username)
}

func (p *PrincipalStore) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	if principal, err := p.store.Members().GetByEmail(ctx, email); err == nil {
		return principal, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	return p.store.Researchers().GetByEmail(ctx, email)
}

func (p *PrincipalStore) FindByID(ctx context.Context, id domain.PrincipalID) (*domain.Principal, error) {
	if principal, err := p.store.Members().GetByID(ctx, id); err == nil {
		return principal, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	return p.store.Researchers().GetByID(ctx, id)
}

func tableFor(class domain.PrincipalClass) string {
	if class == domain.ClassResearcher {
		return domain.Researcher{}.TableName()
	}
	return domain.CommunityMember{}.TableName()
}

func (p *PrincipalStore) UpdatePassword(ctx context.Context, class domain.PrincipalClass, id domain.PrincipalID, hash string) error {
	return translate(p.store.DB.WithContext(ctx).Table(tableFor(class)).
		Where("id = ?", id).
		Updates(map[string]any{
			"password":   hash,
			"updated_at": time.Now().UTC(),
		}).Error)
}

func (p *PrincipalStore) UpdateIdentity(ctx context.Context, class domain.PrincipalClass, id domain.PrincipalID, username, email string) error {
	return translate(p.store.DB.WithContext(ctx).Table(tableFor(class)).
		Where("id = ?", id).
		Updates(map[string]any{
			"username":   username,
			"email":      email,
			"updated_at": time.Now().UTC(),
		}).Error)
}

// SetResetToken overwrites any previously issued token, so only the
// most recent one is ever valid.
func (p *PrincipalStore) SetResetToken(ctx context.Context, class domain.PrincipalClass, id domain.PrincipalID, token string, expiry time.Time) error {
	return translate(p.store.DB.WithContext(ctx).Table(tableFor(class)).
		Where("id = ?", id).
		Updates(map[string]any{
			"reset_token":        token,
			"reset_token_expiry": expiry,
			"updated_at":         time.Now().UTC(),
		}).Error)
}

// ConsumeResetToken applies the new password hash and clears the token
// fields in one conditional UPDATE. The WHERE clause compares token
// and expiry, so two concurrent consumers of the same token cannot
// both succeed: the loser matches zero rows. Returns false when the
// token did not match or had expired.
func (p *PrincipalStore) ConsumeResetToken(ctx context.Context, class domain.PrincipalClass, id domain.PrincipalID, token, newHash string, now time.Time) (bool, error) {
	res := p.store.DB.WithContext(ctx).Table(tableFor(class)).
		Where("id = ? AND reset_token = ? AND reset_token_expiry > ?", id, token, now).
		Updates(map[string]any{
			"password":           newHash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ClearExpiredResetToken lazily removes a stale token after a failed
// consume. Conditional on the same token still being present so a
// token issued in between is left alone.
func (p *PrincipalStore) ClearExpiredResetToken(ctx context.Context, class domain.PrincipalClass, id domain.PrincipalID, token string, now time.Time) error {
	return translate(p.store.DB.WithContext(ctx).Table(tableFor(class)).
		Where("id = ? AND reset_token = ? AND reset_token_expiry <= ?", id, token, now).
		Updates(map[string]any{
			"reset_token":        nil,
			"reset_token_expiry": nil,
			"updated_at":         now,
		}).Error)
}
