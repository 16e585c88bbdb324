package impl

import (
	"fmt"
	"time"

	"identity/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	SigningKey []byte // HS256 secret
}

// TokenServiceHS256 mints and verifies the access token returned from
// signup/login and required by the profile endpoints.
type TokenServiceHS256 struct {
	cfg TokenConfig
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceHS256 {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	return &TokenServiceHS256{cfg: cfg}
}

func (t *TokenServiceHS256) Issue(principal *domain.Principal) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": t.cfg.Issuer,
		"aud": t.cfg.Audience,
		"sub": principal.ID.String(),
		"cls": string(principal.Class),
		"iat": now.Unix(),
		"exp": now.Add(t.cfg.AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
}

func (t *TokenServiceHS256) Verify(token string) (domain.PrincipalID, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		// HS* only; reject alg confusion.
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", tok.Method)
		}
		return t.cfg.SigningKey, nil
	}, jwt.WithIssuer(t.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
