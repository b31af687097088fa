package catalog

import (
	"strings"

	"github.com/fankick/storefront/internal/pkg/money"
)

// Category is the top-level merchandise line
type Category string

const (
	CategoryFootball   Category = "football"
	CategoryAnime      Category = "anime"
	CategoryPopCulture Category = "pop-culture"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryFootball, CategoryAnime, CategoryPopCulture:
		return true
	}
	return false
}

// Variant is a purchasable SKU of a product. Prices are INR minor units.
type Variant struct {
	ID            string `json:"id"`
	Size          string `json:"size,omitempty"`
	Color         string `json:"color,omitempty"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"originalPrice"`
	Stock         int    `json:"stock"`
	SKU           string `json:"sku"`
}

// UnitPrice returns the variant price as base-currency money
func (v Variant) UnitPrice() money.Money {
	return money.New(v.Price, money.Base)
}

// Product is a catalog entry as served by the product API
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Images        []string  `json:"images"`
	Variants      []Variant `json:"variants"`
	BasePrice     int64     `json:"basePrice"`
	OriginalPrice int64     `json:"originalPrice"`
	Rating        float64   `json:"rating"`
	Reviews       int       `json:"reviews"`
	Tags          []string  `json:"tags"`
	Badges        []string  `json:"badges"`
	ShippingDays  int       `json:"shippingDays"`
	CODAvailable  bool      `json:"codAvailable"`
	IsTrending    bool      `json:"isTrending"`
	IsExclusive   bool      `json:"isExclusive"`
}

// Variant looks up a variant by id
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// InStock reports whether any variant has stock left
func (p Product) InStock() bool {
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}

// matches reports a case-insensitive substring match on name, description or any tag.
// needle must already be lower-cased.
func (p Product) matches(needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
