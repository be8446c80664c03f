package token

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// ErrMalformed is returned when a token cannot be parsed or its signature
// does not verify against the configured secret.
var ErrMalformed = errors.New("malformed or tampered token")

// ErrClaimMissing is returned when a verified token lacks a requested claim.
var ErrClaimMissing = errors.New("claim missing")

// Claims describes the JWT payload carried by both token categories.
type Claims struct {
	Category domain.TokenCategory `json:"category"`
	Username string               `json:"username"`
	Role     domain.Role          `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed credentials. Signature verification and
// expiry are checked independently: Parse only vouches for shape and
// signature, IsExpired owns the time axis.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec around the shared signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Issue creates and signs a credential of the given category.
func (c *Codec) Issue(category domain.TokenCategory, username string, role domain.Role, lifetime time.Duration) (string, error) {
	issuedAt := c.now()
	claims := &Claims{
		Category: category,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique per issuance so two rotations inside the same second
			// still yield distinct credentials.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", category, err)
	}
	return signed, nil
}

// Parse verifies the signature and returns the claims. Expiry is NOT
// validated here; callers that care about time use IsExpired. Unverified
// claims are never returned.
func (c *Codec) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// IsExpired reports whether the credential is past its expiry. A token that
// cannot be parsed or verified is expired by definition, never valid.
func (c *Codec) IsExpired(raw string) bool {
	claims, err := c.Parse(raw)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}

// Claim returns a named claim value after successful verification. An
// absent or empty claim is an error, not a default.
func (c *Codec) Claim(raw, name string) (string, error) {
	claims, err := c.Parse(raw)
	if err != nil {
		return "", err
	}

	var val string
	switch name {
	case "category":
		val = string(claims.Category)
	case "username":
		val = claims.Username
	case "role":
		val = string(claims.Role)
	default:
		return "", fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	if val == "" {
		return "", fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	return val, nil
}
