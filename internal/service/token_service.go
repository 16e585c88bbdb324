package service

import "identity/internal/domain"

type TokenService interface {
	Issue(principal *domain.Principal) (string, error)
	Verify(token string) (domain.PrincipalID, error)
}
