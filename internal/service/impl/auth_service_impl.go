package impl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/notify"
	"identity/internal/observability/metrics"
	"identity/internal/service"
	"identity/internal/store"
	"identity/internal/validate"

	"github.com/google/uuid"
)

const forgotPasswordAck = "If the email exists, instructions have been sent."

type AuthServiceImpl struct {
	Store      *store.Store
	Password   service.PasswordService
	Tokens     service.TokenService
	Checker    service.UniquenessChecker
	Reset      service.ResetTokenManager
	Dispatcher notify.Dispatcher

	// ResetLinkBase is the public URL prefix the reset link is built
	// from, e.g. "https://app.example.com/reset-password".
	ResetLinkBase string
}

func NewAuthServiceImpl(
	st *store.Store,
	password service.PasswordService,
	tokens service.TokenService,
	checker service.UniquenessChecker,
	reset service.ResetTokenManager,
	dispatcher notify.Dispatcher,
	resetLinkBase string,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		Store:         st,
		Password:      password,
		Tokens:        tokens,
		Checker:       checker,
		Reset:         reset,
		Dispatcher:    dispatcher,
		ResetLinkBase: resetLinkBase,
	}
}

func (a *AuthServiceImpl) Signup(ctx context.Context, r dto.SignupRequest) (*dto.SignupResponse, error) {
	class := domain.PrincipalClass(r.PrincipalClass)
	result := "failure"
	defer func() {
		metrics.SignupsTotal.WithLabelValues(r.PrincipalClass, result).Inc()
	}()

	if !class.Valid() {
		return nil, &domain.ValidationError{Field: "principalClass", Reason: "must be community or researcher"}
	}
	if err := validate.Username(r.Username); err != nil {
		return nil, err
	}
	if err := validate.Email(r.Email); err != nil {
		return nil, err
	}
	if err := validate.Password(r.Password); err != nil {
		return nil, err
	}
	if class == domain.ClassResearcher {
		if err := validate.Education(r.Education); err != nil {
			return nil, err
		}
	}
	email := validate.NormalizeEmail(r.Email)

	if err := a.checkAvailability(ctx, r.Username, email, nil); err != nil {
		return nil, err
	}

	hash, err := a.Password.Hash(r.Password)
	if err != nil {
		return nil, a.storeFailure(ctx, "hash password", err)
	}

	now := time.Now().UTC()
	principal := domain.Principal{
		ID:        uuid.New(),
		Username:  r.Username,
		Email:     email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
		Class:     class,
	}

	switch class {
	case domain.ClassResearcher:
		researcher := &domain.Researcher{
			Principal: principal,
			Education: domain.EducationProfile{
				Degree:         r.Education.Degree,
				Field:          r.Education.Field,
				Institution:    r.Education.Institution,
				GraduationYear: r.Education.GraduationYear,
				Specialization: r.Education.Specialization,
				Certifications: r.Education.Certifications,
			},
		}
		err = a.Store.Researchers().Create(ctx, researcher)
	default:
		err = a.Store.Members().Create(ctx, &domain.CommunityMember{Principal: principal})
	}
	if err != nil {
		// A partition unique index lost the race between our
		// availability check and the insert. Callers see the same
		// duplicate error the pre-check would have produced.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &domain.DuplicateIdentityError{Field: a.duplicateField(ctx, r.Username, email, nil)}
		}
		return nil, a.storeFailure(ctx, "create principal", err)
	}

	token, err := a.Tokens.Issue(&principal)
	if err != nil {
		slog.Warn("failed to issue access token at signup", "principal_id", principal.ID, "error", err)
	}

	result = "success"
	slog.Info("principal created", "principal_id", principal.ID, "class", class,
		"request_id", requestID(ctx))
	return &dto.SignupResponse{
		ID:             principal.ID.String(),
		Username:       principal.Username,
		Email:          principal.Email,
		PrincipalClass: string(class),
		Token:          token,
	}, nil
}

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest) (*dto.LoginResponse, error) {
	result := "failure"
	defer func() {
		metrics.LoginsTotal.WithLabelValues(result).Inc()
	}()

	if r.Username == "" || r.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	principal, err := a.Store.Principals().FindByUsername(ctx, r.Username)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// Same error as a wrong password; no username enumeration.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, a.storeFailure(ctx, "lookup principal", err)
	}

	matched, needsMigration := a.Password.Verify(r.Password, principal.Credential())
	if !matched {
		return nil, domain.ErrInvalidCredentials
	}

	if needsMigration {
		a.migrateCredential(ctx, principal, r.Password)
	}

	token, err := a.Tokens.Issue(principal)
	if err != nil {
		return nil, a.storeFailure(ctx, "issue access token", err)
	}

	result = "success"
	slog.Info("login succeeded", "principal_id", principal.ID, "class", principal.Class,
		"request_id", requestID(ctx))
	return &dto.LoginResponse{
		ID:             principal.ID.String(),
		Username:       principal.Username,
		Email:          principal.Email,
		PrincipalClass: string(principal.Class),
		Token:          token,
	}, nil
}

// migrateCredential persists a fresh hash after a successful verify.
// Best-effort: a failed write is logged and the login still succeeds;
// the next login retries the migration.
func (a *AuthServiceImpl) migrateCredential(ctx context.Context, principal *domain.Principal, password string) {
	result := "failure"
	defer func() {
		metrics.CredentialMigrationsTotal.WithLabelValues(result).Inc()
	}()

	hash, err := a.Password.Hash(password)
	if err != nil {
		slog.Error("credential migration hash failed", "principal_id", principal.ID, "error", err)
		return
	}
	if err := a.Store.Principals().UpdatePassword(ctx, principal.Class, principal.ID, hash); err != nil {
		slog.Error("credential migration write failed", "principal_id", principal.ID, "error", err)
		return
	}
	principal.Password = hash
	result = "success"
	slog.Info("credential migrated to hashed form", "principal_id", principal.ID)
}

func (a *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (*dto.MessageResponse, error) {
	result := "noop"
	defer func() {
		metrics.PasswordResetsTotal.WithLabelValues("request", result).Inc()
	}()

	ack := &dto.MessageResponse{Message: forgotPasswordAck}
	email = validate.NormalizeEmail(email)
	if email == "" {
		return ack, nil
	}

	principal, err := a.Store.Principals().FindByEmail(ctx, email)
	if err != nil {
		// Unknown email and store trouble both get the generic
		// acknowledgement; the latter is logged server-side.
		if !errors.Is(err, store.ErrRecordNotFound) {
			slog.Error("forgot-password lookup failed", "error", err, "request_id", requestID(ctx))
			result = "failure"
		}
		return ack, nil
	}

	token, _, err := a.Reset.Issue(ctx, principal)
	if err != nil {
		slog.Error("reset token issue failed", "principal_id", principal.ID, "error", err)
		result = "failure"
		return ack, nil
	}

	a.Dispatcher.Enqueue(notify.Message{
		To:        principal.Email,
		ResetLink: a.resetLink(principal.Email, token),
	})

	result = "success"
	return ack, nil
}

func (a *AuthServiceImpl) resetLink(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return a.ResetLinkBase + "?" + q.Encode()
}

func (a *AuthServiceImpl) ResetPassword(ctx context.Context, r dto.ResetPasswordRequest) (*dto.MessageResponse, error) {
	result := "failure"
	defer func() {
		metrics.PasswordResetsTotal.WithLabelValues("consume", result).Inc()
	}()

	if err := validate.Password(r.NewPassword); err != nil {
		return nil, err
	}

	email := validate.NormalizeEmail(r.Email)
	principal, err := a.Store.Principals().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// Indistinguishable from a bad token.
			return nil, domain.ErrInvalidResetToken
		}
		return nil, a.storeFailure(ctx, "lookup principal", err)
	}

	hash, err := a.Password.Hash(r.NewPassword)
	if err != nil {
		return nil, a.storeFailure(ctx, "hash password", err)
	}

	if err := a.Reset.Consume(ctx, principal, r.Token, hash); err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			return nil, err
		}
		return nil, a.storeFailure(ctx, "consume reset token", err)
	}

	result = "success"
	slog.Info("password reset completed", "principal_id", principal.ID, "request_id", requestID(ctx))
	return &dto.MessageResponse{Message: "Password has been reset."}, nil
}

func (a *AuthServiceImpl) GetProfile(ctx context.Context, id domain.PrincipalID) (*dto.ProfileResponse, error) {
	principal, err := a.Store.Principals().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, a.storeFailure(ctx, "lookup principal", err)
	}
	return profileView(principal), nil
}

func (a *AuthServiceImpl) UpdateProfile(ctx context.Context, id domain.PrincipalID, r dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	principal, err := a.Store.Principals().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, a.storeFailure(ctx, "lookup principal", err)
	}

	username := principal.Username
	email := principal.Email
	identityChanged := false

	if r.Username != nil && *r.Username != principal.Username {
		if err := validate.Username(*r.Username); err != nil {
			return nil, err
		}
		username = *r.Username
		identityChanged = true
	}
	if r.Email != nil {
		if err := validate.Email(*r.Email); err != nil {
			return nil, err
		}
		if normalized := validate.NormalizeEmail(*r.Email); normalized != principal.Email {
			email = normalized
			identityChanged = true
		}
	}

	if identityChanged {
		if err := a.checkAvailability(ctx, username, email, &id); err != nil {
			return nil, err
		}
		if err := a.Store.Principals().UpdateIdentity(ctx, principal.Class, id, username, email); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, &domain.DuplicateIdentityError{Field: a.duplicateField(ctx, username, email, &id)}
			}
			return nil, a.storeFailure(ctx, "update identity", err)
		}
		principal.Username = username
		principal.Email = email
	}

	if r.Password != nil {
		if err := validate.Password(*r.Password); err != nil {
			return nil, err
		}
		hash, err := a.Password.Hash(*r.Password)
		if err != nil {
			return nil, a.storeFailure(ctx, "hash password", err)
		}
		if err := a.Store.Principals().UpdatePassword(ctx, principal.Class, id, hash); err != nil {
			return nil, a.storeFailure(ctx, "update password", err)
		}
	}

	if r.Education != nil {
		if principal.Class != domain.ClassResearcher {
			return nil, &domain.ValidationError{Field: "educationData", Reason: "only researchers carry education data"}
		}
		if err := validate.Education(r.Education); err != nil {
			return nil, err
		}
		edu := domain.EducationProfile{
			Degree:         r.Education.Degree,
			Field:          r.Education.Field,
			Institution:    r.Education.Institution,
			GraduationYear: r.Education.GraduationYear,
			Specialization: r.Education.Specialization,
			Certifications: r.Education.Certifications,
		}
		if err := a.Store.Researchers().UpdateEducation(ctx, id, edu); err != nil {
			return nil, a.storeFailure(ctx, "update education", err)
		}
	}

	return profileView(principal), nil
}

// checkAvailability runs the union uniqueness check for both fields
// and reports the first collision with field-level detail.
func (a *AuthServiceImpl) checkAvailability(ctx context.Context, username, email string, excludeID *domain.PrincipalID) error {
	free, err := a.Checker.UsernameAvailable(ctx, username, excludeID)
	if err != nil {
		return a.storeFailure(ctx, "check username", err)
	}
	if !free {
		return &domain.DuplicateIdentityError{Field: "username"}
	}
	free, err = a.Checker.EmailAvailable(ctx, email, excludeID)
	if err != nil {
		return a.storeFailure(ctx, "check email", err)
	}
	if !free {
		return &domain.DuplicateIdentityError{Field: "email"}
	}
	return nil
}

// duplicateField attributes an insert-time unique violation to the
// username or email by re-running the availability checks.
func (a *AuthServiceImpl) duplicateField(ctx context.Context, username, email string, excludeID *domain.PrincipalID) string {
	if free, err := a.Checker.UsernameAvailable(ctx, username, excludeID); err == nil && !free {
		return "username"
	}
	return "email"
}

// storeFailure logs the full detail server-side and hands the caller
// the generic retryable error, with no internal content.
func (a *AuthServiceImpl) storeFailure(ctx context.Context, op string, err error) error {
	slog.Error("store operation failed", "op", op, "error", err, "request_id", requestID(ctx))
	return domain.ErrStoreUnavailable
}

func profileView(principal *domain.Principal) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:             principal.ID.String(),
		Username:       principal.Username,
		Email:          principal.Email,
		PrincipalClass: string(principal.Class),
		CreatedAt:      principal.CreatedAt,
	}
}
