// internal/pkg/auth/password.go
package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/fankick/storefront/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword wraps every password policy violation
var ErrWeakPassword = errors.New("password validation failed")

// PasswordManager handles password operations
type PasswordManager struct {
	config *config.Config
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	return &PasswordManager{
		config: cfg,
	}
}

// HashPassword hashes a password using bcrypt
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	cost := p.config.Security.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword requires 8-72 characters with at least one letter and one digit
func (p *PasswordManager) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("password must be no more than 72 characters long")
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	commonPasswords := []string{"password", "12345678", "qwerty", "letmein", "welcome"}
	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			return fmt.Errorf("password is too common and easily guessable")
		}
	}

	return nil
}
