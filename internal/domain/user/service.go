// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/auth"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	log             *logrus.Entry
}

// NewService creates a new user service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Entry) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg, redisClient),
		log:             logger.OrDiscard(log).WithField("service", "user"),
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required,max=200"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Register creates a new user account and signs it in
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	// Hash password
	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Email:    email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(req.Name),
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	return s.issue(ctx, &user)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user User
	result := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(req.Email)), true).
		First(&user)
	if result.Error != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, &user)
}

// Logout revokes the token described by claims
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.jwtManager.Revoke(ctx, claims); err != nil {
		return err
	}
	s.log.WithField("user_id", claims.UserID).Info("User logged out")
	return nil
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", userID, true).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", result.Error)
	}

	// Clear password
	user.Password = ""

	return &user, nil
}

// JWT exposes the token manager to the auth middleware
func (s *Service) JWT() *auth.JWTManager {
	return s.jwtManager
}

func (s *Service) issue(ctx context.Context, user *User) (*AuthResponse, error) {
	token, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Update last login
	now := time.Now().UTC()
	s.db.WithContext(ctx).Model(user).Update("last_login_at", now)

	// Clear password from response
	user.Password = ""

	return &AuthResponse{
		User:      user,
		Token:     token,
		ExpiresIn: int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}
