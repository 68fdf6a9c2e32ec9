package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail parsing or verification
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload issued at login
type Claims struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Groups      []string `json:"groups,omitempty"`
	IsStaff     bool     `json:"staff,omitempty"`
	IsSuperuser bool     `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims to the request principal
func (c *Claims) Principal() *Principal {
	p := &Principal{
		ID:          c.UserID,
		Username:    c.Username,
		Role:        c.Role,
		Groups:      c.Groups,
		IsStaff:     c.IsStaff,
		IsSuperuser: c.IsSuperuser,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

// AuthService provides JWT token generation and validation
type AuthService struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService with the given secret key and token TTL
func NewAuthService(secretKey string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// TokenTTL returns the lifetime of issued tokens
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// GenerateToken signs a token for p. Each token gets a unique ID so it can be
// revoked individually.
func (s *AuthService) GenerateToken(p *Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:      p.ID,
		Username:    p.Username,
		Role:        p.Role,
		Groups:      p.Groups,
		IsStaff:     p.IsStaff,
		IsSuperuser: p.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
