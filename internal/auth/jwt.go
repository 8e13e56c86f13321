// Package auth validates the bearer tokens that identify feed viewers.
// Tokens are issued elsewhere; this package only verifies them.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// DefaultLeeway is the clock skew tolerated when checking exp/nbf/iat.
const DefaultLeeway = 30 * time.Second

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrWrongTokenType is returned when a refresh token is presented as an access token.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingSubject is returned when a token carries no viewer id.
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims represents the JWT claims read by the feed service.
// The subject is the viewer's user id.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"` // Token type: "access" or "refresh"
}

// JWTService validates HS256 tokens.
// Supports dual-key rotation: tokens validate against currentSecret or,
// while a rotation is in progress, previousSecret.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewJWTService creates a JWTService. previousSecret may be empty when no
// rotation is in progress; a non-positive leeway uses DefaultLeeway.
func NewJWTService(currentSecret, previousSecret string, leeway time.Duration) *JWTService {
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	svc := &JWTService{
		currentSecret: []byte(currentSecret),
		leeway:        leeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
// Tries currentSecret first, then previousSecret if available.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.currentSecret)
	if err == nil {
		return claims, nil
	}

	if s.previousSecret != nil {
		var prevErr error
		claims, prevErr = s.parse(tokenString, s.previousSecret)
		if prevErr == nil {
			return claims, nil
		}
		// An expiry under the old key is still an expiry.
		if errors.Is(prevErr, jwt.ErrTokenExpired) {
			err = prevErr
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

// ViewerID validates an access token and returns its subject.
func (s *JWTService) ViewerID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Type != TokenTypeAccess {
		return "", ErrWrongTokenType
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

func (s *JWTService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithLeeway(s.leeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
