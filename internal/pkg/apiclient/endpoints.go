package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fankick/storefront/internal/storefront/catalog"
	"github.com/fankick/storefront/internal/storefront/session"
)

// ProductQuery filters the product list. Zero values are omitted.
type ProductQuery struct {
	Category string
	Search   string
	Trending bool
	Limit    int
}

func (q ProductQuery) encode() string {
	values := url.Values{}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Trending {
		values.Set("trending", "true")
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// ListProducts fetches the catalog
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.do(ctx, "list products", http.MethodGet, "/api/products"+q.encode(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FetchAll satisfies catalog.Source
func (c *Client) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	return c.ListProducts(ctx, ProductQuery{})
}

// GetProduct fetches a single product
func (c *Client) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var product catalog.Product
	if err := c.do(ctx, "get product", http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.AuthResult, error) {
	var result session.AuthResult
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates an account and signs it in
func (c *Client) Register(ctx context.Context, reg session.Registration) (*session.AuthResult, error) {
	var result session.AuthResult
	if err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", reg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout revokes the current token
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the user the current token belongs to
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, "current user", http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// WishlistItem is one saved product
type WishlistItem struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

// Wishlist is the server-side liked set
type Wishlist struct {
	Items      []WishlistItem `json:"items"`
	ProductIDs []string       `json:"productIds"`
}

// WishlistIDs returns the liked product ids
func (c *Client) WishlistIDs(ctx context.Context) ([]string, error) {
	var wishlist Wishlist
	if err := c.do(ctx, "get wishlist", http.MethodGet, "/api/users/wishlist", nil, &wishlist); err != nil {
		return nil, err
	}
	if len(wishlist.ProductIDs) == 0 && len(wishlist.Items) > 0 {
		for _, item := range wishlist.Items {
			wishlist.ProductIDs = append(wishlist.ProductIDs, item.ProductID)
		}
	}
	return wishlist.ProductIDs, nil
}

// AddToWishlist saves a product
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	body := map[string]string{"productId": productID}
	return c.do(ctx, "add to wishlist", http.MethodPost, "/api/users/wishlist", body, nil)
}

// RemoveFromWishlist removes a saved product
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, "remove from wishlist", http.MethodDelete, "/api/users/wishlist/"+url.PathEscape(productID), nil, nil)
}

// CartLine is a server-side cart line
type CartLine struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// RemoteCart is the server-side cart
type RemoteCart struct {
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice int64      `json:"totalPrice"`
}

// GetCart fetches the signed-in user's cart
func (c *Client) GetCart(ctx context.Context) (*RemoteCart, error) {
	var cart RemoteCart
	if err := c.do(ctx, "get cart", http.MethodGet, "/api/users/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartLine adds quantity of a variant to the server-side cart
func (c *Client) AddCartLine(ctx context.Context, productID, variantID string, quantity int) (*RemoteCart, error) {
	body := map[string]any{"productId": productID, "variantId": variantID, "quantity": quantity}
	var cart RemoteCart
	if err := c.do(ctx, "add cart line", http.MethodPost, "/api/users/cart", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveCartLine deletes one line
func (c *Client) RemoveCartLine(ctx context.Context, lineID string) error {
	return c.do(ctx, "remove cart line", http.MethodDelete, "/api/users/cart/"+url.PathEscape(lineID), nil, nil)
}

// ClearCart empties the server-side cart
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear cart", http.MethodDelete, "/api/users/cart", nil, nil)
}
