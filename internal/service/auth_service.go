package service

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadCredentials = errors.New("bad credentials")

// AuthService is the session gate: it verifies the shared password
// and issues signed, time-limited session tokens.
type AuthService struct {
	password      string
	tokenSecret   []byte
	tokenLifetime time.Duration
	loginDelay    time.Duration
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// NewAuthService builds the gate from startup configuration. When no
// signing secret is configured a random one is generated, which
// invalidates every outstanding token on restart.
func NewAuthService(password, tokenSecret string, tokenLifetimeHours int, loginDelay time.Duration) *AuthService {
	secret := []byte(tokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("Failed to generate session secret: %v", err)
		}
		log.Printf("Warning: no auth.token_secret configured, sessions will not survive restarts")
	}
	return &AuthService{
		password:      password,
		tokenSecret:   secret,
		tokenLifetime: time.Duration(tokenLifetimeHours) * time.Hour,
		loginDelay:    loginDelay,
	}
}

// Login verifies the password and returns a signed session token.
// The call never returns before the configured delay has elapsed,
// on the success path as well as the failure path, so response
// timing reveals nothing and online guessing stays slow.
func (s *AuthService) Login(password string) (string, error) {
	started := time.Now()
	defer func() {
		if remaining := s.loginDelay - time.Since(started); remaining > 0 {
			time.Sleep(remaining)
		}
	}()

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", ErrBadCredentials
	}

	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mediagrab-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the token signature and expiry.
func (s *AuthService) Validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.tokenSecret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}
	return nil
}

// TokenLifetime is exposed so the handler can set the cookie expiry
// to match the token's.
func (s *AuthService) TokenLifetime() time.Duration {
	return s.tokenLifetime
}
