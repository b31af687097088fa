// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/fankick/storefront/internal/domain/cart"
	"github.com/fankick/storefront/internal/domain/product"
	"github.com/fankick/storefront/internal/domain/user"
	"github.com/fankick/storefront/internal/domain/wishlist"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Entry) *Migration {
	return &Migration{
		db:  db,
		log: logger.OrDiscard(log).WithField("component", "migration"),
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Address{},
		&product.Product{},
		&product.Variant{},
		&cart.CartItem{},
		&wishlist.WishlistItem{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for the catalog queries
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_order ON products(category, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_products_trending_reviews ON products(is_trending, reviews DESC)",
		"CREATE INDEX IF NOT EXISTS idx_variants_product_position ON product_variants(product_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",
	}

	for _, statement := range indexes {
		if err := m.db.Exec(statement).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SeedInitialData inserts the development admin account and a starter catalog
func (m *Migration) SeedInitialData() error {
	m.log.Info("Seeding initial data")

	if err := m.seedUser("admin@fankick.dev", "kickoff2024", "FanKick Admin", true); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedUser("fan@fankick.dev", "goal4kick", "Test Fan", false); err != nil {
		return fmt.Errorf("failed to seed test user: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.log.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedUser(email, password, name string, admin bool) error {
	var count int64
	m.db.Model(&user.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		m.log.WithField("email", email).Debug("User already exists")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u := user.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Verified: true,
		IsAdmin:  admin,
		IsActive: true,
	}
	if err := m.db.Create(&u).Error; err != nil {
		return err
	}
	m.log.WithField("email", email).Info("Created seed user")
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		m.log.Debug("Catalog already seeded")
		return nil
	}

	for i, p := range seedCatalog() {
		p.ID = uuid.NewString()
		p.SortOrder = i + 1
		for j := range p.Variants {
			p.Variants[j].ID = uuid.NewString()
			p.Variants[j].Position = j
		}
		if err := m.db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", p.Name, err)
		}
	}
	return nil
}

func sizes(skuPrefix string, price, original int64, stock map[string]int) []product.Variant {
	var variants []product.Variant
	for _, size := range []string{"S", "M", "L", "XL"} {
		variants = append(variants, product.Variant{
			Size:          size,
			Price:         price,
			OriginalPrice: original,
			Stock:         stock[size],
			SKU:           skuPrefix + "-" + size,
		})
	}
	return variants
}

func seedCatalog() []product.Product {
	return []product.Product{
		{
			Name:          "Home Jersey 24/25",
			Description:   "Official replica home jersey with breathable mesh panels.",
			Category:      "football",
			Subcategory:   "jerseys",
			Images:        []string{"/images/products/home-jersey-front.jpg", "/images/products/home-jersey-back.jpg"},
			BasePrice:     249900,
			OriginalPrice: 299900,
			Rating:        4.7,
			Reviews:       312,
			Tags:          []string{"jersey", "club", "replica"},
			Badges:        []string{"Bestseller"},
			ShippingDays:  4,
			CODAvailable:  true,
			IsTrending:    true,
			Variants:      sizes("FK-JRS-HOME", 249900, 299900, map[string]int{"S": 12, "M": 25, "L": 18, "XL": 6}),
		},
		{
			Name:          "Retro Supporter Scarf",
			Description:   "Knitted scarf in classic stripes for matchday.",
			Category:      "football",
			Subcategory:   "accessories",
			Images:        []string{"/images/products/retro-scarf.jpg"},
			BasePrice:     79900,
			OriginalPrice: 99900,
			Rating:        4.4,
			Reviews:       128,
			Tags:          []string{"scarf", "winter", "matchday"},
			Badges:        []string{},
			ShippingDays:  3,
			CODAvailable:  true,
			Variants: []product.Variant{
				{Color: "Red/White", Price: 79900, OriginalPrice: 99900, Stock: 40, SKU: "FK-SCF-RW"},
				{Color: "Blue/White", Price: 79900, OriginalPrice: 99900, Stock: 0, SKU: "FK-SCF-BW"},
			},
		},
		{
			Name:          "Hidden Leaf Headband",
			Description:   "Metal plate headband for cosplay and conventions.",
			Category:      "anime",
			Subcategory:   "cosplay",
			Images:        []string{"/images/products/leaf-headband.jpg"},
			BasePrice:     49900,
			OriginalPrice: 59900,
			Rating:        4.8,
			Reviews:       540,
			Tags:          []string{"cosplay", "ninja", "headband"},
			Badges:        []string{"Fan Favourite"},
			ShippingDays:  6,
			CODAvailable:  false,
			IsTrending:    true,
			IsExclusive:   true,
			Variants: []product.Variant{
				{Color: "Navy", Price: 49900, OriginalPrice: 59900, Stock: 60, SKU: "FK-ANM-HB-NVY"},
				{Color: "Black", Price: 49900, OriginalPrice: 59900, Stock: 15, SKU: "FK-ANM-HB-BLK"},
			},
		},
		{
			Name:          "Survey Corps Hoodie",
			Description:   "Heavyweight fleece hoodie with embroidered wings.",
			Category:      "anime",
			Subcategory:   "apparel",
			Images:        []string{"/images/products/wings-hoodie.jpg"},
			BasePrice:     189900,
			OriginalPrice: 219900,
			Rating:        4.6,
			Reviews:       207,
			Tags:          []string{"hoodie", "winter", "embroidered"},
			Badges:        []string{"New"},
			ShippingDays:  5,
			CODAvailable:  true,
			IsTrending:    true,
			Variants:      sizes("FK-ANM-HOOD", 189900, 219900, map[string]int{"S": 4, "M": 10, "L": 10, "XL": 2}),
		},
		{
			Name:          "Galaxy Far Away Mug",
			Description:   "Ceramic mug with a starfield print, 350ml.",
			Category:      "pop-culture",
			Subcategory:   "home",
			Images:        []string{"/images/products/galaxy-mug.jpg"},
			BasePrice:     39900,
			OriginalPrice: 39900,
			Rating:        4.2,
			Reviews:       89,
			Tags:          []string{"mug", "kitchen", "space"},
			Badges:        []string{},
			ShippingDays:  3,
			CODAvailable:  true,
			Variants: []product.Variant{
				{Price: 39900, OriginalPrice: 39900, Stock: 120, SKU: "FK-POP-MUG"},
			},
		},
	}
}
