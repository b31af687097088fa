// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/domain/product"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrOutOfStock      = errors.New("variant is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Service handles cart business logic
type Service struct {
	db             *gorm.DB
	config         *config.Config
	productService *product.Service
	log            *logrus.Entry
}

// NewService creates a new cart service
func NewService(db *gorm.DB, productService *product.Service, cfg *config.Config, log *logrus.Entry) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		productService: productService,
		log:            logger.OrDiscard(log).WithField("service", "cart"),
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart retrieves the user's cart in insertion order
func (s *Service) GetCart(ctx context.Context, userID string) (*CartResponse, error) {
	var items []CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return newCartResponse(items), nil
}

// AddItem adds to the line for the same variant or creates one. Quantities are clamped to stock.
func (s *Service) AddItem(ctx context.Context, userID string, req *AddToCartRequest) (*CartResponse, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	_, variant, err := s.productService.GetVariant(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return nil, err
	}
	if variant.Stock <= 0 {
		return nil, ErrOutOfStock
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CartItem
		result := tx.Where("user_id = ? AND variant_id = ?", userID, req.VariantID).First(&existing)
		if result.Error == nil {
			existing.Quantity = clamp(existing.Quantity+quantity, variant.Stock)
			return tx.Model(&existing).Update("quantity", existing.Quantity).Error
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find cart line: %w", result.Error)
		}

		item := CartItem{
			UserID:    userID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  clamp(quantity, variant.Stock),
			Price:     variant.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"variant_id": req.VariantID,
	}).Debug("Cart line added")
	return s.GetCart(ctx, userID)
}

// UpdateItem sets a line's quantity. quantity <= 0 removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		if err := s.RemoveItem(ctx, userID, lineID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, userID)
	}

	var item CartItem
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}

	stock := quantity
	if _, variant, err := s.productService.GetVariant(ctx, item.ProductID, item.VariantID); err == nil {
		stock = variant.Stock
	}
	if err := s.db.WithContext(ctx).Model(&item).Update("quantity", clamp(quantity, stock)).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart line: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a line. Removing a missing line is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) error {
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// ClearCart removes every line of the user
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}
