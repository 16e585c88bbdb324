package impl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/notify"
	"identity/internal/observability/metrics"
	"identity/internal/store"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("test")
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return store.New(db)
}

// captureDispatcher records enqueued reset-link jobs synchronously.
type captureDispatcher struct {
	messages []notify.Message
}

func (c *captureDispatcher) Enqueue(msg notify.Message) {
	c.messages = append(c.messages, msg)
}

func newAuthService(t *testing.T) (*AuthServiceImpl, *store.Store, *captureDispatcher) {
	t.Helper()
	st := newTestStore(t)
	dispatcher := &captureDispatcher{}
	svc := NewAuthServiceImpl(
		st,
		NewPasswordServiceBcrypt(),
		NewTokenServiceHS256(TokenConfig{Issuer: "test", Audience: "test", SigningKey: []byte("test-secret")}),
		NewUniquenessChecker(st),
		NewResetTokenManager(st, time.Hour),
		dispatcher,
		"http://localhost/reset-password",
	)
	return svc, st, dispatcher
}

func communitySignup(username, email, password string) dto.SignupRequest {
	return dto.SignupRequest{
		Username:       username,
		Email:          email,
		Password:       password,
		PrincipalClass: string(domain.ClassCommunity),
	}
}

func researcherSignup(username, email, password string) dto.SignupRequest {
	return dto.SignupRequest{
		Username:       username,
		Email:          email,
		Password:       password,
		PrincipalClass: string(domain.ClassResearcher),
		Education: &dto.EducationRequest{
			Degree:         "PhD",
			Field:          "Zoology",
			Institution:    "Lund University",
			GraduationYear: 2015,
			Specialization: "Large carnivores",
		},
	}
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("reset link carries no token: %s", link)
	}
	return token
}

func TestSignupCreatesSanitizedPrincipal(t *testing.T) {
	svc, st, _ := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, communitySignup("alice", "Alice@X.com", "Passw0rd!"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.Username != "alice" || resp.Email != "alice@x.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Token == "" {
		t.Fatalf("expected access token in signup response")
	}

	stored, err := st.Principals().FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.Email != "alice@x.com" {
		t.Fatalf("email not lowercased in store: %q", stored.Email)
	}
	if stored.Credential().IsLegacy() {
		t.Fatalf("fresh signup stored a legacy credential")
	}
	if stored.Class != domain.ClassCommunity {
		t.Fatalf("unexpected class %q", stored.Class)
	}
}

func TestSignupDuplicateAcrossPartitions(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	// Same username, other partition.
	_, err := svc.Signup(ctx, researcherSignup("alice", "other@x.com", "Passw0rd!"))
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected DuplicateIdentity(username), got %v", err)
	}

	// Same email (different case), other partition.
	_, err = svc.Signup(ctx, researcherSignup("someoneelse", "ALICE@X.COM", "Passw0rd!"))
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected DuplicateIdentity(email), got %v", err)
	}
}

func TestSignupValidations(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   dto.SignupRequest
		field string
	}{
		{"password without symbol", communitySignup("bob", "bob@x.com", "password1"), "password"},
		{"short username", communitySignup("bo", "bob@x.com", "Passw0rd!"), "username"},
		{"bad email", communitySignup("bob", "not-an-email", "Passw0rd!"), "email"},
		{"bad class", dto.SignupRequest{Username: "bob", Email: "bob@x.com", Password: "Passw0rd!", PrincipalClass: "admin"}, "principalClass"},
		{
			"researcher without education",
			dto.SignupRequest{Username: "bob", Email: "bob@x.com", Password: "Passw0rd!", PrincipalClass: string(domain.ClassResearcher)},
			"educationData",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected ValidationError(%s), got %v", tc.field, err)
			}
		})
	}
}

func TestLoginUniformErrorForUnknownUserAndWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, errUnknown := svc.Login(ctx, dto.LoginRequest{Username: "nosuchuser", Password: "anything"})
	_, errWrongPw := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "wrongpassword"})

	if !errors.Is(errUnknown, domain.ErrInvalidCredentials) || !errors.Is(errWrongPw, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("error messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLoginMigratesLegacyCredentialOnce(t *testing.T) {
	svc, st, _ := newAuthService(t)
	ctx := context.Background()

	// Seed a pre-migration principal holding a plaintext credential.
	now := time.Now().UTC()
	carol := &domain.CommunityMember{Principal: domain.Principal{
		ID:        uuid.New(),
		Username:  "carol",
		Email:     "carol@x.com",
		Password:  "plainpass",
		CreatedAt: now,
		UpdatedAt: now,
	}}
	if err := st.Members().Create(ctx, carol); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "carol", Password: "plainpass"}); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	stored, err := st.Principals().FindByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.Credential().IsLegacy() {
		t.Fatalf("credential not migrated after successful legacy login")
	}
	migratedHash := stored.Password

	// Second login rides the hashed path and leaves the hash alone.
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "carol", Password: "plainpass"}); err != nil {
		t.Fatalf("post-migration login: %v", err)
	}
	stored, _ = st.Principals().FindByUsername(ctx, "carol")
	if stored.Password != migratedHash {
		t.Fatalf("credential rehashed again after migration")
	}

	// The old plaintext no longer works as a hash lookup for a wrong password.
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "carol", Password: "plainpass2"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestForgotPasswordUniformAcknowledgement(t *testing.T) {
	svc, _, dispatcher := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup: %v", err)
	}

	known, err := svc.ForgotPassword(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("forgot (known): %v", err)
	}
	unknown, err := svc.ForgotPassword(ctx, "ghost@x.com")
	if err != nil {
		t.Fatalf("forgot (unknown): %v", err)
	}
	if known.Message != unknown.Message {
		t.Fatalf("acknowledgements differ: %q vs %q", known.Message, unknown.Message)
	}
	if len(dispatcher.messages) != 1 {
		t.Fatalf("expected exactly one delivery job, got %d", len(dispatcher.messages))
	}
	if dispatcher.messages[0].To != "alice@x.com" {
		t.Fatalf("delivery addressed to %q", dispatcher.messages[0].To)
	}
}

func TestResetPasswordSingleUse(t *testing.T) {
	svc, _, dispatcher := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, researcherSignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.ForgotPassword(ctx, "alice@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := tokenFromLink(t, dispatcher.messages[0].ResetLink)

	// Wrong token first.
	_, err := svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: "wrong", NewPassword: "NewPass!1"})
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for wrong token, got %v", err)
	}

	// Correct token succeeds exactly once.
	if _, err := svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: token, NewPassword: "NewPass!1"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	_, err = svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: token, NewPassword: "Another!2"})
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}

	// Old password is gone, new one works.
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "Passw0rd!"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "NewPass!1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, st, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup: %v", err)
	}
	principal, err := st.Principals().FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := st.Principals().SetResetToken(ctx, principal.Class, principal.ID, "stale-token", time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("seed stale token: %v", err)
	}

	_, err = svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: "stale-token", NewPassword: "NewPass!1"})
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken after expiry, got %v", err)
	}

	// Lazy cleanup cleared the stale fields.
	principal, _ = st.Principals().FindByUsername(ctx, "alice")
	if principal.ResetToken != nil || principal.ResetTokenExpiry != nil {
		t.Fatalf("expired token fields not cleared: %+v", principal)
	}
}

func TestReissueReplacesPriorToken(t *testing.T) {
	svc, _, dispatcher := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.ForgotPassword(ctx, "alice@x.com"); err != nil {
		t.Fatalf("first forgot: %v", err)
	}
	if _, err := svc.ForgotPassword(ctx, "alice@x.com"); err != nil {
		t.Fatalf("second forgot: %v", err)
	}
	first := tokenFromLink(t, dispatcher.messages[0].ResetLink)
	second := tokenFromLink(t, dispatcher.messages[1].ResetLink)
	if first == second {
		t.Fatalf("reissued token identical to prior token")
	}

	_, err := svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: first, NewPassword: "NewPass!1"})
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected first token to be invalidated, got %v", err)
	}
	if _, err := svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@x.com", Token: second, NewPassword: "NewPass!1"}); err != nil {
		t.Fatalf("reset with latest token: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	aliceResp, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!"))
	if err != nil {
		t.Fatalf("signup alice: %v", err)
	}
	if _, err := svc.Signup(ctx, researcherSignup("bob", "bob@x.com", "Passw0rd!")); err != nil {
		t.Fatalf("signup bob: %v", err)
	}
	aliceID := uuid.MustParse(aliceResp.ID)

	// Re-submitting the current username is not a collision (self-exclusion).
	same := "alice"
	if _, err := svc.UpdateProfile(ctx, aliceID, dto.UpdateProfileRequest{Username: &same}); err != nil {
		t.Fatalf("no-op username update: %v", err)
	}

	// Taking bob's username across partitions is.
	taken := "bob"
	_, err = svc.UpdateProfile(ctx, aliceID, dto.UpdateProfileRequest{Username: &taken})
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected DuplicateIdentity(username), got %v", err)
	}

	// A fresh username plus a password change.
	fresh := "alice_new"
	newPw := "Rotated!9"
	resp, err := svc.UpdateProfile(ctx, aliceID, dto.UpdateProfileRequest{Username: &fresh, Password: &newPw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.Username != "alice_new" {
		t.Fatalf("unexpected profile: %+v", resp)
	}
	if _, err := svc.Login(ctx, dto.LoginRequest{Username: "alice_new", Password: newPw}); err != nil {
		t.Fatalf("login after update: %v", err)
	}

	// Education data is researcher-only.
	_, err = svc.UpdateProfile(ctx, aliceID, dto.UpdateProfileRequest{
		Education: &dto.EducationRequest{Degree: "BSc", Field: "x", Institution: "y", GraduationYear: 2000, Specialization: "z"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "educationData" {
		t.Fatalf("expected education rejection for community member, got %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, communitySignup("alice", "alice@x.com", "Passw0rd!"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	profile, err := svc.GetProfile(ctx, uuid.MustParse(resp.ID))
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Username != "alice" || profile.PrincipalClass != string(domain.ClassCommunity) {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := svc.GetProfile(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
