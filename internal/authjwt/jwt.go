// Package authjwt issues and validates the bearer tokens the admin surface
// requires on mutating routes. Adapted from the teacher's pkg/auth/jwt.go.
package authjwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any unparseable, expired, or mis-signed token.
var ErrInvalid = errors.New("invalid token")

// Claims is ddarpd's admin-token claim set: the admin username the token
// was issued to and what node it authorizes administration of.
type Claims struct {
	Subject string `json:"sub"`
	NodeID  string `json:"node_id"`
	jwt.RegisteredClaims
}

// Issuer signs and parses admin tokens with a fixed HMAC secret.
type Issuer struct {
	secret []byte
}

// NewIssuer returns an Issuer keyed by secret. An empty secret is rejected
// at construction, unlike the teacher's package-level fallback to
// "change-me-secret" — ddarpd's config layer (internal/config) is
// responsible for supplying a real default, not this package.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("authjwt: secret must not be empty")
	}
	return &Issuer{secret: []byte(secret)}, nil
}

// Generate issues a token for subject scoped to nodeID, valid for ttl.
func (i *Issuer) Generate(subject, nodeID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		NodeID:  nodeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates tokenStr and returns its claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalid
	}
	return claims, nil
}
