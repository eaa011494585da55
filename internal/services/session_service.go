package services

import (
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidSession is returned for any bearer token that does not verify.
var ErrInvalidSession = errors.New("invalid or expired session token")

// Session is the caller identity carried by a bearer token.
type Session struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the session may use operator endpoints.
func (s Session) IsAdmin() bool {
	return s.Role == "admin"
}

// SessionService verifies tokens issued by the external auth service.
type SessionService struct {
	jwtSecret []byte
}

// NewSessionService creates a SessionService sharing the issuer's HMAC secret.
func NewSessionService(jwtSecret string) *SessionService {
	return &SessionService{jwtSecret: []byte(jwtSecret)}
}

// ValidateToken parses and validates a JWT token string.
func (s *SessionService) ValidateToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, ErrInvalidSession
	}
	role, _ := claims["role"].(string)
	return &Session{UserID: userID, Role: role}, nil
}

// IssueToken signs a session token. The storefront itself never logs users in; this
// exists for operator tooling and tests.
func (s *SessionService) IssueToken(userID, role string, expiresAt int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     expiresAt,
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
