package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = 24 * time.Hour

const (
	ClaimUserID   = "user_id"
	ClaimIssuedAt = "iat"
	ClaimExpires  = "exp"
)

// TokenService signs and verifies session tokens with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock overrides the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret cryptox.Secret, opts ...Option) (*TokenService, error) {
	if secret.IsZero() {
		return nil, errors.New("empty token secret")
	}

	s := &TokenService{
		secret: secret.SecretValue(),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Issue signs claims, adding "iat" and "exp". Caller-supplied values for those
// two keys are overwritten. Both are whole Unix seconds, truncated from now.
func (s *TokenService) Issue(claims map[string]any) (string, error) {
	now := s.now()

	mc := jwt.MapClaims{}
	maps.Copy(mc, claims)
	mc[ClaimIssuedAt] = now.Unix()
	mc[ClaimExpires] = now.Add(s.ttl).Unix()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature and expiry and returns the claim set.
//
// Every failure matches common.ErrInvalidToken; an expired token additionally
// matches common.ErrTokenExpired.
func (s *TokenService) Verify(token string) (map[string]any, error) {
	mc := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	return mc, nil
}

// Session is a verified session claim.
type Session struct {
	UserID    int64
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssueSession issues a token for userID.
func (s *TokenService) IssueSession(userID int64) (Session, error) {
	token, err := s.Issue(map[string]any{ClaimUserID: userID})
	if err != nil {
		return Session{}, err
	}
	return s.VerifySession(token)
}

// VerifySession verifies token and decodes the user id claim. A token without
// a usable user id is invalid.
func (s *TokenService) VerifySession(token string) (Session, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return Session{}, err
	}

	id, ok := int64Claim(claims[ClaimUserID])
	if !ok || id <= 0 {
		return Session{}, fmt.Errorf("%w: missing %s", common.ErrInvalidToken, ClaimUserID)
	}

	sess := Session{UserID: id, Token: token}
	if iat, ok := int64Claim(claims[ClaimIssuedAt]); ok {
		sess.IssuedAt = time.Unix(iat, 0)
	}
	if exp, ok := int64Claim(claims[ClaimExpires]); ok {
		sess.ExpiresAt = time.Unix(exp, 0)
	}
	return sess, nil
}

// int64Claim accepts the numeric shapes a claim can take before signing
// (int, int64) and after JSON decoding (float64, json.Number).
func int64Claim(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
