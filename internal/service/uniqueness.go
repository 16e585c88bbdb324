package service

import (
	"context"

	"identity/internal/domain"
)

// UniquenessChecker answers whether a candidate username/email is free
// across the union of both partitions. excludeID supports
// self-exclusion during profile updates; pass nil otherwise.
//
// The check and a subsequent insert are not one transaction across
// partitions, so a concurrent signup can still slip past; the store's
// per-partition unique indexes catch same-partition races and the
// facade maps those to the same duplicate error this check produces.
type UniquenessChecker interface {
	UsernameAvailable(ctx context.Context, username string, excludeID *domain.PrincipalID) (bool, error)
	EmailAvailable(ctx context.Context, email string, excludeID *domain.PrincipalID) (bool, error)
}
