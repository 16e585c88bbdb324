package dto

type SignupRequest struct {
	Username       string            `json:"username"`
	Email          string            `json:"email"`
	Password       string            `json:"password"`
	PrincipalClass string            `json:"principalClass"`
	Education      *EducationRequest `json:"educationData,omitempty"`
}

type EducationRequest struct {
	Degree         string `json:"degree"`
	Field          string `json:"field"`
	Institution    string `json:"institution"`
	GraduationYear int    `json:"graduationYear"`
	Specialization string `json:"specialization"`
	Certifications string `json:"certifications,omitempty"`
}

type SignupResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	PrincipalClass string `json:"principalClass"`
	Token          string `json:"token,omitempty"`
}
