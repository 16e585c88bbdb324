package dto

import "time"

type UpdateProfileRequest struct {
	Username  *string           `json:"username,omitempty"`
	Email     *string           `json:"email,omitempty"`
	Password  *string           `json:"password,omitempty"`
	Education *EducationRequest `json:"educationData,omitempty"`
}

// ProfileResponse is the sanitized view of a principal; it never
// carries the credential field.
type ProfileResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PrincipalClass string    `json:"principalClass"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
