// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/fankick/storefront/internal/domain/user"
	"github.com/fankick/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *user.Service) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "User registered successfully", resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Login successful", resp)
}

// Logout handles POST /auth/logout. The presented token stops working immediately.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaimsFromContext(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "User not authenticated", "")
		return
	}

	if err := h.userService.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Logged out successfully", nil)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "User not authenticated", "")
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", profile)
}
