// internal/interfaces/http/handlers/user_address.go
package handlers

import (
	"net/http"

	"github.com/fankick/storefront/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// UserAddressHandler handles user address endpoints
type UserAddressHandler struct {
	addressService *user.AddressService
}

// NewUserAddressHandler creates a new user address handler
func NewUserAddressHandler(addressService *user.AddressService) *UserAddressHandler {
	return &UserAddressHandler{addressService: addressService}
}

// GetAddresses handles GET /users/addresses
func (h *UserAddressHandler) GetAddresses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addresses, err := h.addressService.GetUserAddresses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if addresses == nil {
		addresses = []user.Address{}
	}

	respondOK(c, http.StatusOK, "", addresses)
}

// CreateAddress handles POST /users/addresses
func (h *UserAddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req user.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	address, err := h.addressService.CreateAddress(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Address created successfully", address)
}

// DeleteAddress handles DELETE /users/addresses/:id
func (h *UserAddressHandler) DeleteAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.addressService.DeleteAddress(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Address deleted successfully", nil)
}
