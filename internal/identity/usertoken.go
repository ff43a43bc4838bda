package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserClaims are the JWT claims of a session token. Tokens minted by the
// hosted auth provider carry the same sub/email/role shape.
type UserClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Actor returns the identity recorded on ledger writes: the email when
// present, otherwise the subject.
func (c *UserClaims) Actor() string {
	if c == nil {
		return Anonymous
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// HasRole reports whether the claims carry one of roles. Admin satisfies every role.
func (c *UserClaims) HasRole(roles ...string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// TokenIssuer issues and verifies HS256 session JWTs.
type TokenIssuer struct {
	secret []byte
	issuer string // empty = do not check "iss"
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	secret: shared HMAC secret; must not be empty.
//	issuer: expected "iss" claim; empty accepts any issuer.
//	ttl:    lifetime of issued tokens (default: 24 hours).
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed session token for subject.
func (u *TokenIssuer) Issue(subject, email, role string) (string, error) {
	now := time.Now().UTC()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    u.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
			ID:        uuid.New().String(),
		},
		Email: email,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("sign user token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (u *TokenIssuer) Verify(tokenStr string) (*UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if u.issuer != "" {
		opts = append(opts, jwt.WithIssuer(u.issuer))
	}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&UserClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return u.secret, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("verify user token: %w", err)
	}
	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid user token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("user token has no subject")
	}
	return claims, nil
}
