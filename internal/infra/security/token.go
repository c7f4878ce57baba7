package security

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the bearer-token claims used by the platform: the account
// the token belongs to and whether it carries superuser rights.
type Claims struct {
	Email       string `json:"unique_name,omitempty"`
	IsSuperUser bool   `json:"isSU,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Mint signs a token for email. An empty email with superuser set is a
// service token.
func (m *TokenManager) Mint(email string, superuser bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:       email,
		IsSuperUser: superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   email,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseFromRequest reads "Authorization: Bearer <jwt>".
func (m *TokenManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, ErrMissingToken
	}
	return m.Parse(strings.TrimSpace(hdr[7:]))
}

func (m *TokenManager) Parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CanAccess implements the "own resource or superuser" policy.
func (c *Claims) CanAccess(account string) bool {
	if c == nil {
		return false
	}
	return c.IsSuperUser || (c.Email != "" && strings.EqualFold(c.Email, account))
}
