// internal/domain/wishlist/service.go
package wishlist

import (
	"context"
	"fmt"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles wishlist business logic
type Service struct {
	db             *gorm.DB
	config         *config.Config
	productService *product.Service
}

// NewService creates a new wishlist service
func NewService(db *gorm.DB, productService *product.Service, cfg *config.Config) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		productService: productService,
	}
}

// AddToWishlistRequest represents add to wishlist request
type AddToWishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// WishlistResponse lists the liked products, newest first
type WishlistResponse struct {
	Items      []WishlistItem `json:"items"`
	ProductIDs []string       `json:"productIds"`
}

// GetWishlist retrieves the wishlist for a user
func (s *Service) GetWishlist(ctx context.Context, userID string) (*WishlistResponse, error) {
	var items []WishlistItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("added_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve wishlist items: %w", err)
	}

	resp := &WishlistResponse{Items: items, ProductIDs: make([]string, 0, len(items))}
	if resp.Items == nil {
		resp.Items = []WishlistItem{}
	}
	for _, item := range items {
		resp.ProductIDs = append(resp.ProductIDs, item.ProductID)
	}
	return resp, nil
}

// AddItem likes a product. Liking an already liked product is a no-op.
func (s *Service) AddItem(ctx context.Context, userID, productID string) error {
	if _, err := s.productService.GetProduct(ctx, productID); err != nil {
		return err
	}

	item := WishlistItem{UserID: userID, ProductID: productID, AddedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return nil
}

// RemoveItem unlikes a product. Unliking a product that is not liked is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&WishlistItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return nil
}
