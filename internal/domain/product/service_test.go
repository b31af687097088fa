package product_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/fankick/storefront/internal/domain/product"
	"github.com/fankick/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jerseyRequest(skuPrefix string) *product.CreateRequest {
	return &product.CreateRequest{
		Name:         "Away Jersey",
		Description:  "Lightweight away kit",
		Category:     "football",
		Subcategory:  "jerseys",
		Tags:         []string{"jersey", "away"},
		ShippingDays: 4,
		IsTrending:   true,
		Reviews:      40,
		Variants: []product.VariantInput{
			{Size: "M", Price: 199900, Stock: 5, SKU: skuPrefix + "-M"},
			{Size: "L", Price: 189900, Stock: 0, SKU: skuPrefix + "-L"},
		},
	}
}

func newService(t *testing.T) *product.Service {
	t.Helper()
	rdb, _ := testutil.NewRedis(t)
	return product.NewService(testutil.NewDB(t), rdb, testutil.Config(), nil)
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, jerseyRequest("AWAY"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(189900), created.BasePrice)
	assert.True(t, created.CODAvailable)
	assert.Equal(t, []string{}, created.Badges)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, "AWAY-M", got.Variants[0].SKU)
	assert.Equal(t, []string{"jersey", "away"}, got.Tags)
	assert.True(t, got.IsInStock())

	_, err = svc.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	req := jerseyRequest("BAD")
	req.Category = "music"
	_, err := svc.CreateProduct(ctx, req)
	assert.ErrorIs(t, err, product.ErrInvalidProduct)

	req = jerseyRequest("BAD")
	req.Variants[0].Stock = -1
	_, err = svc.CreateProduct(ctx, req)
	assert.ErrorIs(t, err, product.ErrInvalidStock)

	req = jerseyRequest("DUP")
	req.Variants[1].SKU = "DUP-M"
	_, err = svc.CreateProduct(ctx, req)
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)
}

func TestSKUUniqueAcrossCatalog(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, jerseyRequest("SAME"))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, jerseyRequest("SAME"))
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)

	// a product may keep its own SKUs when its variants are replaced
	_, err = svc.UpdateProduct(ctx, first.ID, &product.UpdateRequest{
		Variants: []product.VariantInput{{Size: "M", Price: 100, Stock: 1, SKU: "SAME-M"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, first.ID))
	_, err = svc.CreateProduct(ctx, jerseyRequest("SAME"))
	assert.NoError(t, err)
}

func TestGetProductsFiltersAndOrder(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	jersey, err := svc.CreateProduct(ctx, jerseyRequest("J1"))
	require.NoError(t, err)

	headband := &product.CreateRequest{
		Name: "Ninja Headband", Category: "anime", ShippingDays: 6, Tags: []string{"Cosplay"},
		IsTrending: true, Reviews: 500,
		Variants: []product.VariantInput{{Price: 49900, Stock: 10, SKU: "HB"}},
	}
	hb, err := svc.CreateProduct(ctx, headband)
	require.NoError(t, err)

	mug := &product.CreateRequest{
		Name: "Galaxy Mug", Category: "pop-culture", ShippingDays: 3,
		Variants: []product.VariantInput{{Price: 39900, Stock: 10, SKU: "MUG"}},
	}
	_, err = svc.CreateProduct(ctx, mug)
	require.NoError(t, err)

	all, err := svc.GetProducts(ctx, product.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, jersey.ID, all[0].ID)

	anime, err := svc.GetProducts(ctx, product.ListRequest{Category: "anime"})
	require.NoError(t, err)
	require.Len(t, anime, 1)
	assert.Equal(t, hb.ID, anime[0].ID)

	found, err := svc.GetProducts(ctx, product.ListRequest{Search: "COSPLAY"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, hb.ID, found[0].ID)

	trending, err := svc.GetProducts(ctx, product.ListRequest{Trending: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, hb.ID, trending[0].ID)
}

func TestSearchMatchesLiteralText(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, jerseyRequest("LIT"))
	require.NoError(t, err)

	for _, query := range []string{"_", "%", `"`, ",", "[", `\`, "zzz"} {
		found, err := svc.GetProducts(ctx, product.ListRequest{Search: query})
		require.NoError(t, err)
		assert.Emptyf(t, found, "search %q", query)
	}

	for _, query := range []string{"AWAY", "kit", "jers"} {
		found, err := svc.GetProducts(ctx, product.ListRequest{Search: query})
		require.NoError(t, err)
		assert.Lenf(t, found, 1, "search %q", query)
	}

	promo := &product.CreateRequest{
		Name: "Derby Scarf", Category: "football", ShippingDays: 3, Tags: []string{"50% off", "fan_zone"},
		Variants: []product.VariantInput{{Price: 29900, Stock: 3, SKU: "SCARF"}},
	}
	scarf, err := svc.CreateProduct(ctx, promo)
	require.NoError(t, err)

	for _, query := range []string{"%", "_", "50% OFF"} {
		found, err := svc.GetProducts(ctx, product.ListRequest{Search: query})
		require.NoError(t, err)
		require.Lenf(t, found, 1, "search %q", query)
		assert.Equal(t, scarf.ID, found[0].ID)
	}

	limited, err := svc.GetProducts(ctx, product.ListRequest{Search: "a", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListCacheIsInvalidatedOnWrite(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	svc := product.NewService(testutil.NewDB(t), rdb, testutil.Config(), nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, jerseyRequest("C1"))
	require.NoError(t, err)

	_, err = svc.GetProducts(ctx, product.ListRequest{})
	require.NoError(t, err)
	var listKeys []string
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "products:list:") {
			listKeys = append(listKeys, key)
		}
	}
	require.Len(t, listKeys, 1)
	staleKey := listKeys[0]
	stale, err := mr.Get(staleKey)
	require.NoError(t, err)

	_, err = svc.SetVariantStock(ctx, created.ID, created.Variants[0].ID, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"products:generation"}, mr.Keys())

	// a read that raced the write lands its result under the old generation
	require.NoError(t, mr.Set(staleKey, stale))

	list, err := svc.GetProducts(ctx, product.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 42, list[0].Variants[0].Stock)
}

func TestConcurrentListReadsShareResult(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.CreateProduct(ctx, jerseyRequest("SF"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := svc.GetProducts(ctx, product.ListRequest{Category: "football"})
			if err == nil && len(list) != 1 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSetVariantStock(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created, err := svc.CreateProduct(ctx, jerseyRequest("ST"))
	require.NoError(t, err)

	_, err = svc.SetVariantStock(ctx, created.ID, created.Variants[0].ID, -1)
	assert.ErrorIs(t, err, product.ErrInvalidStock)

	_, err = svc.SetVariantStock(ctx, created.ID, "nope", 3)
	assert.ErrorIs(t, err, product.ErrVariantNotFound)

	_, err = svc.SetVariantStock(ctx, "nope", created.Variants[0].ID, 3)
	assert.ErrorIs(t, err, product.ErrProductNotFound)

	variant, err := svc.SetVariantStock(ctx, created.ID, created.Variants[1].ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, variant.Stock)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created, err := svc.CreateProduct(ctx, jerseyRequest("UP"))
	require.NoError(t, err)

	name := "Away Jersey (Player Edition)"
	trending := false
	updated, err := svc.UpdateProduct(ctx, created.ID, &product.UpdateRequest{
		Name:       &name,
		IsTrending: &trending,
		Badges:     []string{"Limited"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.IsTrending)
	assert.Equal(t, []string{"Limited"}, updated.Badges)
	assert.Len(t, updated.Variants, 2)

	bad := "music"
	_, err = svc.UpdateProduct(ctx, created.ID, &product.UpdateRequest{Category: &bad})
	assert.ErrorIs(t, err, product.ErrInvalidProduct)

	_, err = svc.UpdateProduct(ctx, "missing", &product.UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, product.ErrProductNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, created.ID), product.ErrProductNotFound)
	_, err = svc.GetProduct(ctx, created.ID)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}
