package domain

import "github.com/google/uuid"

type PrincipalID = uuid.UUID

// PrincipalClass names the partition a principal lives in. It is fixed
// at creation and never persisted; the store derives it from the table
// a record was read from.
type PrincipalClass string

const (
	ClassCommunity  PrincipalClass = "community"
	ClassResearcher PrincipalClass = "researcher"
)

func (c PrincipalClass) Valid() bool {
	return c == ClassCommunity || c == ClassResearcher
}
