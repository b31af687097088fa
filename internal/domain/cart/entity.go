// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one persisted cart line of a signed-in user. Price is captured when the line is created.
type CartItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"not null;size:36;uniqueIndex:idx_cart_user_variant" json:"-"`
	ProductID string    `gorm:"not null;size:36;index" json:"productId"`
	VariantID string    `gorm:"not null;size:36;uniqueIndex:idx_cart_user_variant" json:"variantId"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	Price     int64     `gorm:"not null" json:"price"` // Price at time of adding
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// BeforeCreate assigns an id
func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CartResponse is the cart with derived totals
type CartResponse struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice int64      `json:"totalPrice"`
}

func newCartResponse(items []CartItem) *CartResponse {
	resp := &CartResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []CartItem{}
	}
	for _, item := range items {
		resp.TotalItems += item.Quantity
		resp.TotalPrice += item.Price * int64(item.Quantity)
	}
	return resp
}
