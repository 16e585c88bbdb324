package validate

import (
	"net/mail"
	"regexp"
	"strings"

	"identity/internal/domain"
	"identity/internal/dto"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func Username(username string) error {
	if username == "" {
		return &domain.ValidationError{Field: "username", Reason: "username is required"}
	}
	if len(username) < 3 {
		return &domain.ValidationError{Field: "username", Reason: "username must be at least 3 characters"}
	}
	if len(username) > 20 {
		return &domain.ValidationError{Field: "username", Reason: "username must be at most 20 characters"}
	}
	if !usernameRegex.MatchString(username) {
		return &domain.ValidationError{Field: "username", Reason: "username can only contain letters, numbers and _"}
	}
	return nil
}

func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &domain.ValidationError{Field: "email", Reason: "email is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &domain.ValidationError{Field: "email", Reason: "invalid email address"}
	}
	return nil
}

// Password enforces 8-50 characters with at least one symbol.
func Password(password string) error {
	if len(password) < 8 {
		return &domain.ValidationError{Field: "password", Reason: "password must be at least 8 characters"}
	}
	if len(password) > 50 {
		return &domain.ValidationError{Field: "password", Reason: "password must be at most 50 characters"}
	}
	hasSymbol := false
	for _, ch := range password {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			hasSymbol = true
			break
		}
	}
	if !hasSymbol {
		return &domain.ValidationError{Field: "password", Reason: "password must contain at least one symbol"}
	}
	return nil
}

// Education checks that all required researcher attributes are present.
// Certifications stay optional.
func Education(edu *dto.EducationRequest) error {
	if edu == nil {
		return &domain.ValidationError{Field: "educationData", Reason: "education data is required for researchers"}
	}
	required := []struct {
		field, value string
	}{
		{"degree", edu.Degree},
		{"field", edu.Field},
		{"institution", edu.Institution},
		{"specialization", edu.Specialization},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ValidationError{Field: "educationData." + r.field, Reason: r.field + " is required"}
		}
	}
	if edu.GraduationYear < 1900 || edu.GraduationYear > 2100 {
		return &domain.ValidationError{Field: "educationData.graduationYear", Reason: "graduation year is out of range"}
	}
	return nil
}

// NormalizeEmail folds an email to the form stored and compared
// everywhere: trimmed, lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
