// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product entity. Prices are INR paise.
type Product struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Category      string         `gorm:"not null;size:50;index" json:"category"`
	Subcategory   string         `gorm:"size:100" json:"subcategory"`
	Images        []string       `gorm:"serializer:json;type:text" json:"images"`
	BasePrice     int64          `gorm:"not null" json:"basePrice"`
	OriginalPrice int64          `json:"originalPrice"`
	Rating        float64        `gorm:"default:0" json:"rating"`
	Reviews       int            `gorm:"default:0" json:"reviews"`
	Tags          []string       `gorm:"serializer:json;type:text" json:"tags"`
	Badges        []string       `gorm:"serializer:json;type:text" json:"badges"`
	ShippingDays  int            `gorm:"not null;default:5" json:"shippingDays"`
	CODAvailable  bool           `gorm:"not null" json:"codAvailable"`
	IsTrending    bool           `gorm:"default:false;index" json:"isTrending"`
	IsExclusive   bool           `gorm:"default:false" json:"isExclusive"`
	SortOrder     int            `gorm:"default:0" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants"`
}

// Variant represents a purchasable size/color combination
type Variant struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID     string    `gorm:"not null;index;size:36" json:"-"`
	Size          string    `gorm:"size:20" json:"size,omitempty"`
	Color         string    `gorm:"size:50" json:"color,omitempty"`
	Price         int64     `gorm:"not null" json:"price"`
	OriginalPrice int64     `json:"originalPrice"`
	Stock         int       `gorm:"not null;default:0" json:"stock"`
	SKU           string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Position      int       `gorm:"default:0" json:"-"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }
func (Variant) TableName() string { return "product_variants" }

// Categories the storefront sells
var Categories = []string{"football", "anime", "pop-culture"}

// ValidCategory reports whether category is one of Categories
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Business methods for Product
func (p *Product) IsInStock() bool {
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}

func (p *Product) GetDiscountPercentage() int {
	if p.OriginalPrice > 0 && p.BasePrice < p.OriginalPrice {
		return int(((p.OriginalPrice - p.BasePrice) * 100) / p.OriginalPrice)
	}
	return 0
}

// FindVariant returns the variant with the given id
func (p *Product) FindVariant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}
