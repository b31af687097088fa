// internal/interfaces/http/handlers/wishlist.go
package handlers

import (
	"net/http"

	"github.com/fankick/storefront/internal/domain/wishlist"
	"github.com/gin-gonic/gin"
)

// WishlistHandler handles wishlist endpoints
type WishlistHandler struct {
	wishlistService *wishlist.Service
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(wishlistService *wishlist.Service) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService}
}

// GetWishlist handles GET /users/wishlist
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resp, err := h.wishlistService.GetWishlist(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", resp)
}

// AddToWishlist handles POST /users/wishlist
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req wishlist.AddToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	if err := h.wishlistService.AddItem(c.Request.Context(), userID, req.ProductID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product added to wishlist", nil)
}

// RemoveFromWishlist handles DELETE /users/wishlist/:productId
func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.wishlistService.RemoveItem(c.Request.Context(), userID, c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product removed from wishlist", nil)
}
