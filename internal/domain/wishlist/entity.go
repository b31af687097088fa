// internal/domain/wishlist/entity.go
package wishlist

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WishlistItem represents a liked product
type WishlistItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"-"`
	UserID    string    `gorm:"not null;size:36;uniqueIndex:idx_wishlist_user_product" json:"-"`
	ProductID string    `gorm:"not null;size:36;uniqueIndex:idx_wishlist_user_product" json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

// TableName overrides the table name
func (WishlistItem) TableName() string {
	return "wishlist_items"
}

// BeforeCreate assigns an id
func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
