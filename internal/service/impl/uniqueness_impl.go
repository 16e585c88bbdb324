package impl

import (
	"context"
	"errors"

	"identity/internal/domain"
	"identity/internal/store"
)

// UniquenessCheckerImpl consults the union of both partitions through
// the principal store. Usernames are compared as stored; emails are
// expected already lowercased by the caller.
type UniquenessCheckerImpl struct {
	store *store.Store
}

func NewUniquenessChecker(st *store.Store) *UniquenessCheckerImpl {
	return &UniquenessCheckerImpl{store: st}
}

func (c *UniquenessCheckerImpl) UsernameAvailable(ctx context.Context, username string, excludeID *domain.PrincipalID) (bool, error) {
	principal, err := c.store.Principals().FindByUsername(ctx, username)
	return available(principal, err, excludeID)
}

func (c *UniquenessCheckerImpl) EmailAvailable(ctx context.Context, email string, excludeID *domain.PrincipalID) (bool, error) {
	principal, err := c.store.Principals().FindByEmail(ctx, email)
	return available(principal, err, excludeID)
}

func available(principal *domain.Principal, err error, excludeID *domain.PrincipalID) (bool, error) {
	if errors.Is(err, store.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	// Self-match during a profile update does not count as taken.
	if excludeID != nil && principal.ID == *excludeID {
		return true, nil
	}
	return false, nil
}
