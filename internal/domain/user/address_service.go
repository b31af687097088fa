// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fankick/storefront/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrAddressNotFound is returned for unknown or foreign addresses
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrAddressLimit    = errors.New("address limit reached")
)

// maxAddresses caps how many addresses one user can save
const maxAddresses = 10

// AddressService handles address business logic
type AddressService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config) *AddressService {
	return &AddressService{
		db:     db,
		config: cfg,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	FullName   string `json:"fullName" binding:"required,max=100"`
	Phone      string `json:"phone" binding:"required,min=7,max=20"`
	Line1      string `json:"line1" binding:"required,max=255"`
	Line2      string `json:"line2" binding:"max=255"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"required,max=100"`
	PostalCode string `json:"postalCode" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=100"`
	IsDefault  bool   `json:"isDefault"`
}

// GetUserAddresses retrieves all addresses for a user, default first
func (s *AddressService) GetUserAddresses(ctx context.Context, userID string) ([]Address, error) {
	var addresses []Address
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// CreateAddress saves an address. The first address, or one flagged default, becomes the default.
func (s *AddressService) CreateAddress(ctx context.Context, userID string, req *CreateAddressRequest) (*Address, error) {
	address := Address{
		UserID:     userID,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      strings.TrimSpace(req.Line2),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
		IsDefault:  req.IsDefault,
	}
	if address.FullName == "" || address.Line1 == "" || address.City == "" || address.PostalCode == "" {
		return nil, fmt.Errorf("%w: name, line1, city and postal code are required", ErrInvalidAddress)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count addresses: %w", err)
		}
		if count >= maxAddresses {
			return fmt.Errorf("%w: maximum of %d", ErrAddressLimit, maxAddresses)
		}
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := tx.Model(&Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to unset default address: %w", err)
			}
		}
		if err := tx.Create(&address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// DeleteAddress removes an address. If it was the default the newest remaining one takes over.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var address Address
		if err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return fmt.Errorf("failed to find address: %w", err)
		}
		if err := tx.Delete(&address).Error; err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}
		if !address.IsDefault {
			return nil
		}

		var next Address
		if err := tx.Where("user_id = ?", userID).Order("created_at DESC").First(&next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to promote default address: %w", err)
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}
