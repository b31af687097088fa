// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/fankick/storefront/internal/domain/cart"
	"github.com/fankick/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CartHandler handles the signed-in user's cart
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart handles GET /users/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resp, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", resp)
}

// AddToCart handles POST /users/cart
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.cartService.AddItem(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Item added to cart successfully", resp)
}

// UpdateCartItem handles PUT /users/cart/:lineId. A quantity of zero removes the line.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.cartService.UpdateItem(c.Request.Context(), userID, c.Param("lineId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart updated successfully", resp)
}

// RemoveFromCart handles DELETE /users/cart/:lineId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, c.Param("lineId")); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Item removed from cart", nil)
}

// ClearCart handles DELETE /users/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart cleared", nil)
}

// requireUser reads the authenticated user id, answering 401 when it is missing
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "User not authenticated", "")
	}
	return userID, ok
}
