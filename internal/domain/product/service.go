// internal/domain/product/service.go
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrDuplicateSKU    = errors.New("sku already exists")
	ErrInvalidStock    = errors.New("stock cannot be negative")
	ErrInvalidProduct  = errors.New("invalid product")
)

const (
	listCachePrefix    = "products:list:"
	cacheGenerationKey = "products:generation"
)

// Service handles product business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	log         *logrus.Entry
	sfg         singleflight.Group
}

// NewService creates a new product service. redisClient may be nil, which disables the list cache.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Entry) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		log:         logger.OrDiscard(log).WithField("service", "product"),
	}
}

// ListRequest represents product list query parameters
type ListRequest struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Trending bool   `form:"trending"`
	Limit    int    `form:"limit"`
}

func (r ListRequest) cacheKey(generation int64) string {
	return fmt.Sprintf("%s%d:%s|%s|%t|%d", listCachePrefix, generation, r.Category,
		strings.ToLower(strings.TrimSpace(r.Search)), r.Trending, r.Limit)
}

// VariantInput describes a variant on create or update
type VariantInput struct {
	ID            string `json:"id"`
	Size          string `json:"size"`
	Color         string `json:"color"`
	Price         int64  `json:"price" binding:"gte=0"`
	OriginalPrice int64  `json:"originalPrice" binding:"gte=0"`
	Stock         int    `json:"stock" binding:"gte=0"`
	SKU           string `json:"sku" binding:"required"`
}

// CreateRequest represents product creation data
type CreateRequest struct {
	Name          string         `json:"name" binding:"required"`
	Description   string         `json:"description"`
	Category      string         `json:"category" binding:"required,oneof=football anime pop-culture"`
	Subcategory   string         `json:"subcategory"`
	Images        []string       `json:"images"`
	BasePrice     int64          `json:"basePrice" binding:"gte=0"`
	OriginalPrice int64          `json:"originalPrice" binding:"gte=0"`
	Rating        float64        `json:"rating" binding:"gte=0,lte=5"`
	Reviews       int            `json:"reviews" binding:"gte=0"`
	Tags          []string       `json:"tags"`
	Badges        []string       `json:"badges"`
	ShippingDays  int            `json:"shippingDays" binding:"required,gt=0"`
	CODAvailable  *bool          `json:"codAvailable"`
	IsTrending    bool           `json:"isTrending"`
	IsExclusive   bool           `json:"isExclusive"`
	Variants      []VariantInput `json:"variants" binding:"required,min=1,dive"`
}

// UpdateRequest represents product update data. Variants, when present, replace the existing set.
type UpdateRequest struct {
	Name          *string        `json:"name"`
	Description   *string        `json:"description"`
	Category      *string        `json:"category" binding:"omitempty,oneof=football anime pop-culture"`
	Subcategory   *string        `json:"subcategory"`
	Images        []string       `json:"images"`
	BasePrice     *int64         `json:"basePrice" binding:"omitempty,gte=0"`
	OriginalPrice *int64         `json:"originalPrice" binding:"omitempty,gte=0"`
	Rating        *float64       `json:"rating" binding:"omitempty,gte=0,lte=5"`
	Reviews       *int           `json:"reviews" binding:"omitempty,gte=0"`
	Tags          []string       `json:"tags"`
	Badges        []string       `json:"badges"`
	ShippingDays  *int           `json:"shippingDays" binding:"omitempty,gt=0"`
	CODAvailable  *bool          `json:"codAvailable"`
	IsTrending    *bool          `json:"isTrending"`
	IsExclusive   *bool          `json:"isExclusive"`
	Variants      []VariantInput `json:"variants" binding:"omitempty,dive"`
}

// GetProducts lists products in catalog order, served from Redis when cached.
// Concurrent misses for the same query share one database read. Cache keys carry the write
// generation, so a read that raced a write caches under a generation nobody reads any more.
func (s *Service) GetProducts(ctx context.Context, req ListRequest) ([]Product, error) {
	generation, cached := s.cacheGeneration(ctx)
	key := req.cacheKey(generation)

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		if cached {
			if products, ok := s.readCache(ctx, key); ok {
				return products, nil
			}
		}

		products, err := s.queryProducts(ctx, req)
		if err != nil {
			return nil, err
		}
		if cached {
			s.writeCache(ctx, key, products)
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (s *Service) queryProducts(ctx context.Context, req ListRequest) ([]Product, error) {
	query := s.db.WithContext(ctx).Model(&Product{}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})

	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}

	if req.Trending {
		query = query.Where("is_trending = ?", true).Order("reviews DESC")
	}
	query = query.Order("sort_order ASC").Order("created_at ASC")

	// tags are stored as JSON text, so search is applied to the decoded rows
	search := strings.ToLower(strings.TrimSpace(req.Search))
	if req.Limit > 0 && search == "" {
		query = query.Limit(req.Limit)
	}

	var products []Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	if search != "" {
		matched := products[:0]
		for _, p := range products {
			if matchesSearch(p, search) {
				matched = append(matched, p)
			}
		}
		products = matched
		if req.Limit > 0 && len(products) > req.Limit {
			products = products[:req.Limit]
		}
	}

	for i := range products {
		normalize(&products[i])
	}
	return products, nil
}

// matchesSearch is a case-insensitive substring match on name, description or any tag.
// needle must already be lower-cased.
func matchesSearch(p Product, needle string) bool {
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

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	result := s.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&product)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	normalize(&product)
	return &product, nil
}

// CreateProduct creates a product and its variants. SKUs must be unique across the catalog.
func (s *Service) CreateProduct(ctx context.Context, req *CreateRequest) (*Product, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	product := Product{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Images:        req.Images,
		BasePrice:     req.BasePrice,
		OriginalPrice: req.OriginalPrice,
		Rating:        req.Rating,
		Reviews:       req.Reviews,
		Tags:          req.Tags,
		Badges:        req.Badges,
		ShippingDays:  req.ShippingDays,
		CODAvailable:  req.CODAvailable == nil || *req.CODAvailable,
		IsTrending:    req.IsTrending,
		IsExclusive:   req.IsExclusive,
		Variants:      buildVariants(req.Variants),
	}
	if product.BasePrice == 0 {
		product.BasePrice = lowestPrice(product.Variants)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueSKUs(tx, "", product.Variants); err != nil {
			return err
		}
		var maxOrder int
		tx.Model(&Product{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder)
		product.SortOrder = maxOrder + 1

		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	s.log.WithField("product_id", product.ID).Info("Product created")
	normalize(&product)
	return &product, nil
}

// UpdateProduct applies the non-nil fields of req
func (s *Service) UpdateProduct(ctx context.Context, id string, req *UpdateRequest) (*Product, error) {
	updates := make(map[string]interface{})

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidProduct)
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		if !ValidCategory(*req.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, *req.Category)
		}
		updates["category"] = *req.Category
	}
	if req.Subcategory != nil {
		updates["subcategory"] = *req.Subcategory
	}
	if req.BasePrice != nil {
		updates["base_price"] = *req.BasePrice
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Reviews != nil {
		updates["reviews"] = *req.Reviews
	}
	if req.ShippingDays != nil {
		if *req.ShippingDays <= 0 {
			return nil, fmt.Errorf("%w: shippingDays must be positive", ErrInvalidProduct)
		}
		updates["shipping_days"] = *req.ShippingDays
	}
	if req.CODAvailable != nil {
		updates["cod_available"] = *req.CODAvailable
	}
	if req.IsTrending != nil {
		updates["is_trending"] = *req.IsTrending
	}
	if req.IsExclusive != nil {
		updates["is_exclusive"] = *req.IsExclusive
	}
	for _, v := range req.Variants {
		if err := validateVariant(v); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to find product: %w", err)
		}

		// serialized columns go through the model so the json serializer applies
		if req.Images != nil {
			product.Images = req.Images
		}
		if req.Tags != nil {
			product.Tags = req.Tags
		}
		if req.Badges != nil {
			product.Badges = req.Badges
		}
		if req.Images != nil || req.Tags != nil || req.Badges != nil {
			if err := tx.Model(&product).Select("images", "tags", "badges").Updates(&product).Error; err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}
		}

		if req.Variants != nil {
			variants := buildVariants(req.Variants)
			if err := ensureUniqueSKUs(tx, id, variants); err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", id).Delete(&Variant{}).Error; err != nil {
				return fmt.Errorf("failed to replace variants: %w", err)
			}
			for i := range variants {
				variants[i].ProductID = id
			}
			if len(variants) > 0 {
				if err := tx.Create(&variants).Error; err != nil {
					return fmt.Errorf("failed to replace variants: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft deletes a product and removes its variants so their SKUs can be reused
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&Product{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&Variant{}).Error
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx)
	s.log.WithField("product_id", id).Info("Product deleted")
	return nil
}

// SetVariantStock sets the stock of one variant
func (s *Service) SetVariantStock(ctx context.Context, productID, variantID string, stock int) (*Variant, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&Variant{}).
		Where("id = ? AND product_id = ?", variantID, productID).
		Update("stock", stock)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrVariantNotFound
	}

	var variant Variant
	if err := s.db.WithContext(ctx).Where("id = ?", variantID).First(&variant).Error; err != nil {
		return nil, fmt.Errorf("failed to reload variant: %w", err)
	}

	s.invalidateCache(ctx)
	s.log.WithFields(logrus.Fields{
		"product_id": productID,
		"variant_id": variantID,
		"stock":      stock,
	}).Info("Variant stock updated")
	return &variant, nil
}

// GetVariant loads a variant together with its product
func (s *Service) GetVariant(ctx context.Context, productID, variantID string) (*Product, *Variant, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	variant, ok := product.FindVariant(variantID)
	if !ok {
		return nil, nil, ErrVariantNotFound
	}
	return product, variant, nil
}

func (s *Service) readCache(ctx context.Context, key string) ([]Product, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	data, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("Product cache read failed")
		}
		return nil, false
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false
	}
	return products, true
}

// cacheGeneration reads the current write generation. ok is false when the cache is unusable.
func (s *Service) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.redisClient == nil {
		return 0, false
	}
	generation, err := s.redisClient.Get(ctx, cacheGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.log.WithError(err).Warn("Product cache generation read failed")
		return 0, false
	}
	return generation, true
}

func (s *Service) writeCache(ctx context.Context, key string, products []Product) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	ttl := s.config.Redis.CatalogTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := s.redisClient.Set(ctx, key, data, ttl).Err(); err != nil {
		s.log.WithError(err).Warn("Product cache write failed")
	}
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Incr(ctx, cacheGenerationKey).Err(); err != nil {
		s.log.WithError(err).Warn("Product cache generation bump failed")
	}
	iter := s.redisClient.Scan(ctx, 0, listCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.log.WithError(err).Warn("Product cache scan failed")
		return
	}
	if len(keys) > 0 {
		s.redisClient.Del(ctx, keys...)
	}
}

func validateCreate(req *CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !ValidCategory(req.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, req.Category)
	}
	if req.ShippingDays <= 0 {
		return fmt.Errorf("%w: shippingDays must be positive", ErrInvalidProduct)
	}
	if req.BasePrice < 0 || req.OriginalPrice < 0 {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidProduct)
	}
	if req.Rating < 0 || req.Rating > 5 {
		return fmt.Errorf("%w: rating must be within 0-5", ErrInvalidProduct)
	}
	if len(req.Variants) == 0 {
		return fmt.Errorf("%w: at least one variant is required", ErrInvalidProduct)
	}
	for _, v := range req.Variants {
		if err := validateVariant(v); err != nil {
			return err
		}
	}
	return nil
}

func validateVariant(v VariantInput) error {
	if strings.TrimSpace(v.SKU) == "" {
		return fmt.Errorf("%w: variant sku is required", ErrInvalidProduct)
	}
	if v.Price < 0 || v.OriginalPrice < 0 {
		return fmt.Errorf("%w: variant prices cannot be negative", ErrInvalidProduct)
	}
	if v.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

func buildVariants(inputs []VariantInput) []Variant {
	variants := make([]Variant, 0, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		variants = append(variants, Variant{
			ID:            id,
			Size:          in.Size,
			Color:         in.Color,
			Price:         in.Price,
			OriginalPrice: in.OriginalPrice,
			Stock:         in.Stock,
			SKU:           strings.TrimSpace(in.SKU),
			Position:      i,
		})
	}
	return variants
}

// ensureUniqueSKUs checks variants against each other and against other products' variants
func ensureUniqueSKUs(tx *gorm.DB, productID string, variants []Variant) error {
	seen := make(map[string]bool, len(variants))
	skus := make([]string, 0, len(variants))
	for _, v := range variants {
		if seen[v.SKU] {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, v.SKU)
		}
		seen[v.SKU] = true
		skus = append(skus, v.SKU)
	}

	query := tx.Model(&Variant{}).Where("sku IN ?", skus)
	if productID != "" {
		query = query.Where("product_id <> ?", productID)
	}
	var taken []string
	if err := query.Pluck("sku", &taken).Error; err != nil {
		return fmt.Errorf("failed to check sku: %w", err)
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return fmt.Errorf("%w: %s", ErrDuplicateSKU, strings.Join(taken, ", "))
	}
	return nil
}

func lowestPrice(variants []Variant) int64 {
	var lowest int64
	for i, v := range variants {
		if i == 0 || v.Price < lowest {
			lowest = v.Price
		}
	}
	return lowest
}

// normalize replaces nil slices so clients always see arrays
func normalize(p *Product) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
}
