// pkg/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenManager issues and validates signed, time-limited identity tokens.
type TokenManager interface {
	Generate(email string) (string, error)
	Validate(tokenString string) (*Claims, error)
}

// Claims is the payload carried by every issued token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type jwtManager struct {
	secretKey     []byte
	method        jwt.SigningMethod
	tokenDuration time.Duration
	issuer        string
	now           func() time.Time
}

// Option tweaks a TokenManager at construction.
type Option func(*jwtManager)

// WithIssuer sets the iss claim written into new tokens.
func WithIssuer(issuer string) Option {
	return func(m *jwtManager) { m.issuer = issuer }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *jwtManager) { m.now = now }
}

// NewTokenManager builds an HMAC TokenManager. algorithm is one of HS256, HS384, HS512.
func NewTokenManager(secretKey, algorithm string, tokenDuration time.Duration, opts ...Option) (TokenManager, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	if tokenDuration <= 0 {
		return nil, fmt.Errorf("token duration must be positive, got %s", tokenDuration)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	m := &jwtManager{
		secretKey:     []byte(secretKey),
		method:        method,
		tokenDuration: tokenDuration,
		issuer:        "movie-catalog",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Generate signs a token for email that expires tokenDuration from now.
func (m *jwtManager) Generate(email string) (string, error) {
	now := m.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
		},
	}

	token := jwt.NewWithClaims(m.method, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate verifies the signature and expiry of tokenString and returns its claims.
// Expired tokens yield ErrExpiredToken; anything else that fails yields ErrInvalidToken.
func (m *jwtManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
