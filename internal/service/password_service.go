package service

import "identity/internal/domain"

// PasswordService is pure: no I/O. Persisting a rehash when
// needsMigration is true is the facade's job.
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(password string, cred domain.Credential) (matched, needsMigration bool)
}
