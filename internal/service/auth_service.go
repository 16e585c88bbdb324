package service

import (
	"context"

	"identity/internal/domain"
	"identity/internal/dto"
)

type AuthService interface {
	Signup(ctx context.Context, r dto.SignupRequest) (*dto.SignupResponse, error)
	Login(ctx context.Context, r dto.LoginRequest) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) (*dto.MessageResponse, error)
	ResetPassword(ctx context.Context, r dto.ResetPasswordRequest) (*dto.MessageResponse, error)
	GetProfile(ctx context.Context, id domain.PrincipalID) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, id domain.PrincipalID, r dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}
