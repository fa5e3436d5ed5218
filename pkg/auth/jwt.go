package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrMissingRoleClaim = errors.New("token carries no role claim")
	ErrUnknownRole      = errors.New("token carries an unknown role")
)

// Role identifies a participant's function in a transaction.
type Role string

const (
	RoleAgent  Role = "agent"
	RoleTC     Role = "tc"
	RoleBroker Role = "broker"
)

// Valid reports whether the role is one the system knows about.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleTC, RoleBroker:
		return true
	}
	return false
}

// Identity is the authenticated principal extracted from a session token.
type Identity struct {
	UserID string
	Role   Role
}

// Claims represents the session token claims.
type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates signed session tokens. It has no side effects and
// no external dependencies; every connection and request path goes
// through it.
type Verifier struct {
	secretKey []byte
	issuer    string
}

// NewVerifier creates a token verifier. The signing secret is injected,
// never read from a literal.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Verifier{secretKey: []byte(secret), issuer: issuer}, nil
}

// Verify validates a signed token and extracts the caller identity.
func (v *Verifier) Verify(token string) (*Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Role == "" {
		return nil, ErrMissingRoleClaim
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}

	return &Identity{UserID: claims.UserID, Role: role}, nil
}

// Generator mints session tokens. Used by the token CLI and by tests;
// the service itself only verifies.
type Generator struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewGenerator creates a token generator.
func NewGenerator(secret, issuer string, ttl time.Duration) (*Generator, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Generator{secretKey: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Generate mints a signed token for the given user and role.
func (g *Generator) Generate(userID string, role Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secretKey)
}

// Context plumbing for the REST middleware.

type contextKey string

const identityContextKey contextKey = "identity"

// SetIdentity adds the authenticated identity to a context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// GetIdentity extracts the authenticated identity from a context.
func GetIdentity(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || id == nil {
		return nil, errors.New("identity not found in context")
	}
	return id, nil
}
