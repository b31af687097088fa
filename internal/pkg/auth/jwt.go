// internal/pkg/auth/jwt.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenRevoked is returned for tokens that were logged out
var ErrTokenRevoked = errors.New("token has been revoked")

const revokedKeyPrefix = "auth:revoked:"

// Claims represents the JWT claims
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT operations
type JWTManager struct {
	config      *config.Config
	redisClient *redis.Client
}

// NewJWTManager creates a new JWT manager. redisClient backs the logout denylist and may be nil.
func NewJWTManager(cfg *config.Config, redisClient *redis.Client) *JWTManager {
	return &JWTManager{
		config:      cfg,
		redisClient: redisClient,
	}
}

// GenerateAccessToken generates a new access token with a unique token id
func (j *JWTManager) GenerateAccessToken(userID, email string, isAdmin bool) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.JWT.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.App.Name,
			Subject:   "user:" + userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.JWT.Secret))
}

// ValidateToken validates and parses a JWT token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.config.JWT.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.UserID == "" || claims.ID == "" {
		return nil, fmt.Errorf("token is missing subject or id")
	}

	return claims, nil
}

// ValidateAccessToken validates the token and checks it has not been revoked
func (j *JWTManager) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := j.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke denylists the token until it would have expired anyway
func (j *JWTManager) Revoke(ctx context.Context, claims *Claims) error {
	if j.redisClient == nil {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := j.redisClient.Set(ctx, revokedKeyPrefix+claims.ID, claims.UserID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is on the denylist
func (j *JWTManager) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if j.redisClient == nil {
		return false, nil
	}
	n, err := j.redisClient.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// ExtractTokenFromHeader extracts JWT token from Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
