package domain

import "time"

// Principal is one identity record. Community members and researchers
// share this shape; the union of both tables forms a single uniqueness
// namespace for username and email.
type Principal struct {
	ID       PrincipalID `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Username string      `gorm:"type:text;not null;uniqueIndex" db:"username" json:"username"`
	// Email is lowercased before any write or lookup, so a plain
	// unique index gives case-insensitive uniqueness.
	Email    string `gorm:"type:text;not null;uniqueIndex" db:"email" json:"email"`
	Password string `gorm:"type:text;not null" db:"password" json:"-"`

	// ResetToken and ResetTokenExpiry are both nil or both set.
	ResetToken       *string    `gorm:"type:text" db:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`

	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`

	Class PrincipalClass `gorm:"-" json:"principalClass"`
}

// Credential returns the stored credential classified once, so callers
// never re-sniff string prefixes.
func (p *Principal) Credential() Credential {
	return ClassifyCredential(p.Password)
}

type CommunityMember struct {
	Principal
}

func (CommunityMember) TableName() string { return "community_members" }

// Researcher carries required education attributes on top of the
// shared principal shape. They are validated as present at signup and
// otherwise opaque to the identity core.
type Researcher struct {
	Principal
	Education EducationProfile `gorm:"embedded;embeddedPrefix:edu_" json:"education"`
}

func (Researcher) TableName() string { return "researchers" }

type EducationProfile struct {
	Degree         string `gorm:"type:text;not null" json:"degree"`
	Field          string `gorm:"type:text;not null" json:"field"`
	Institution    string `gorm:"type:text;not null" json:"institution"`
	GraduationYear int    `gorm:"not null" json:"graduationYear"`
	Specialization string `gorm:"type:text;not null" json:"specialization"`
	Certifications string `gorm:"type:text" json:"certifications,omitempty"`
}
