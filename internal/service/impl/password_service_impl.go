package impl

import (
	"crypto/subtle"

	"identity/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// PasswordServiceBcrypt hashes with bcrypt, which embeds algorithm,
// cost and salt in the stored value, so no separate salt storage is
// needed and the $2…$ prefix doubles as the hashed/legacy
// discriminator.
type PasswordServiceBcrypt struct {
	cost int // bumped when policy changes; old hashes rehash on next login
}

func NewPasswordServiceBcrypt() *PasswordServiceBcrypt {
	return &PasswordServiceBcrypt{cost: bcrypt.DefaultCost}
}

func (p *PasswordServiceBcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the password matches and whether the caller
// should persist a fresh hash. Legacy plaintext only migrates on a
// successful match, never eagerly.
func (p *PasswordServiceBcrypt) Verify(password string, cred domain.Credential) (matched, needsMigration bool) {
	if cred.IsLegacy() {
		matched = subtle.ConstantTimeCompare([]byte(password), []byte(cred.Value)) == 1
		return matched, matched
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.Value), []byte(password)); err != nil {
		return false, false
	}
	// Hashed under an older cost: rehash on this successful login.
	if cost, err := bcrypt.Cost([]byte(cred.Value)); err == nil && cost < p.cost {
		return true, true
	}
	return true, false
}
