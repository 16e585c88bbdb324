package domain

import "strings"

type CredentialKind int

const (
	// CredentialHashed is a bcrypt value with the salt embedded.
	CredentialHashed CredentialKind = iota
	// CredentialLegacy is a plaintext password predating hashed
	// storage. Compared by direct equality until migrated on the
	// first successful login.
	CredentialLegacy
)

// Credential is the stored credential as an explicit tagged variant,
// decided once at read time.
type Credential struct {
	Kind  CredentialKind
	Value string
}

func (c Credential) IsLegacy() bool { return c.Kind == CredentialLegacy }

// bcrypt version prefixes. Anything else in the password column is a
// pre-migration plaintext value.
var hashedPrefixes = []string{"$2a$", "$2b$", "$2y$"}

func ClassifyCredential(stored string) Credential {
	for _, p := range hashedPrefixes {
		if strings.HasPrefix(stored, p) {
			return Credential{Kind: CredentialHashed, Value: stored}
		}
	}
	return Credential{Kind: CredentialLegacy, Value: stored}
}
