// internal/interfaces/http/handlers/response.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/fankick/storefront/internal/domain/cart"
	"github.com/fankick/storefront/internal/domain/product"
	"github.com/fankick/storefront/internal/domain/user"
	"github.com/fankick/storefront/internal/pkg/auth"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, errMsg, message string) {
	c.JSON(status, Response{Success: false, Error: errMsg, Message: message})
}

func respondInvalid(c *gin.Context, err error) {
	respondFail(c, http.StatusBadRequest, "Invalid request data", err.Error())
}

// respondError maps a domain error onto a status code. Unknown errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrAddressNotFound):
		respondFail(c, http.StatusNotFound, err.Error(), "")

	case errors.Is(err, product.ErrDuplicateSKU),
		errors.Is(err, user.ErrEmailTaken):
		respondFail(c, http.StatusConflict, err.Error(), "")

	case errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, user.ErrInvalidAddress),
		errors.Is(err, user.ErrAddressLimit),
		errors.Is(err, auth.ErrWeakPassword):
		respondFail(c, http.StatusBadRequest, err.Error(), "")

	case errors.Is(err, user.ErrInvalidCredentials):
		respondFail(c, http.StatusUnauthorized, err.Error(), "")

	case errors.Is(err, context.DeadlineExceeded):
		c.Error(err)
		respondFail(c, http.StatusServiceUnavailable, "Request timeout", "")

	default:
		c.Error(err)
		respondFail(c, http.StatusInternalServerError, "Internal server error", "")
	}
}
