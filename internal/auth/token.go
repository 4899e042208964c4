package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultIssuer   = "crewlink-api"
	defaultAudience = "crewlink-crew"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenService issues and verifies signed, time-limited token pairs.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	airline       string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	blacklist     *Blacklist
	now           func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithRefreshSecret sets an independent signing secret for refresh tokens.
func WithRefreshSecret(secret string) TokenOption {
	return func(s *TokenService) error {
		if strings.TrimSpace(secret) != "" {
			s.refreshSecret = []byte(secret)
		}
		return nil
	}
}

// WithTokenIssuer overrides the issuer claim bound into every token.
func WithTokenIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
		return nil
	}
}

// WithTokenAudience overrides the audience claim bound into every token.
func WithTokenAudience(audience string) TokenOption {
	return func(s *TokenService) error {
		if strings.TrimSpace(audience) != "" {
			s.audience = strings.TrimSpace(audience)
		}
		return nil
	}
}

// WithAirline sets the airline claim stamped into access tokens.
func WithAirline(airline string) TokenOption {
	return func(s *TokenService) error {
		s.airline = strings.TrimSpace(airline)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService signing with HS256. When no
// refresh secret is configured the access secret is reused; SharedSecrets
// reports that weaker mode so the caller can log it.
func NewTokenService(accessSecret string, blacklist *Blacklist, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(accessSecret) == "" {
		return nil, errors.New("auth: access token secret is required")
	}
	if blacklist == nil {
		return nil, errors.New("auth: blacklist is required")
	}
	svc := &TokenService{
		accessSecret: []byte(accessSecret),
		issuer:       defaultIssuer,
		audience:     defaultAudience,
		accessTTL:    defaultAccessTTL,
		refreshTTL:   defaultRefreshTTL,
		blacklist:    blacklist,
		now:          time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if svc.refreshSecret == nil {
		svc.refreshSecret = svc.accessSecret
	}
	return svc, nil
}

// SharedSecrets reports whether refresh tokens share the access secret.
func (s *TokenService) SharedSecrets() bool {
	return string(s.refreshSecret) == string(s.accessSecret)
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssuePair signs a fresh access+refresh token pair for the crew member.
func (s *TokenService) IssuePair(member *CrewMember) (TokenPair, error) {
	if member == nil || member.EmployeeID == "" {
		return TokenPair{}, ErrInvalidInput
	}
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access := Claims{
		Name:       member.Name,
		Role:       member.Role,
		Department: member.Department,
		Clearance:  member.Clearance,
		Airline:    s.airline,
		TokenType:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   member.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := Claims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   member.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.NewString(),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	claims, err := s.verify(token, s.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	claims, err := s.verify(token, s.refreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (s *TokenService) verify(token string, secret []byte) (*Claims, error) {
	token = strings.TrimSpace(token)
	if !ValidFormat(token) {
		return nil, ErrMalformedToken
	}
	if s.blacklist.Contains(token) {
		return nil, ErrTokenRevoked
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Revoke blacklists the raw token until its natural expiry, or until the
// override when the expiry cannot be read from the token itself.
func (s *TokenService) Revoke(token string, override ...time.Time) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if len(override) > 0 && !override[0].IsZero() {
		expiresAt = override[0]
	} else if exp := unverifiedExpiry(token); !exp.IsZero() {
		expiresAt = exp
	}
	s.blacklist.Add(token, expiresAt)
}

// unverifiedExpiry extracts the exp claim without signature verification.
// Good enough for scoping blacklist retention; never used for acceptance.
func unverifiedExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ValidFormat is a cheap structural pre-check: three dot-separated
// base64url segments. It proves nothing about cryptographic validity.
func ValidFormat(token string) bool {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return false
	}
	for i, segment := range segments {
		if segment == "" && i < 2 {
			return false
		}
		if _, err := base64.RawURLEncoding.DecodeString(segment); err != nil {
			return false
		}
	}
	return true
}
