// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/fankick/storefront/internal/domain/product"
	"github.com/gin-gonic/gin"
)

const maxListLimit = 100

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// StockRequest sets the stock of one variant
type StockRequest struct {
	VariantID string `json:"variantId" binding:"required"`
	Stock     *int   `json:"stock" binding:"required"`
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	if req.Category != "" && !product.ValidCategory(req.Category) {
		respondFail(c, http.StatusBadRequest, "Invalid query parameters", "unknown category "+req.Category)
		return
	}
	if req.Limit < 0 || req.Limit > maxListLimit {
		req.Limit = maxListLimit
	}

	products, err := h.productService.GetProducts(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", products)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", p)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Product created successfully", p)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req product.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	p, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product deleted successfully", nil)
}

// UpdateStock handles PUT /products/:id/stock
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	variant, err := h.productService.SetVariantStock(c.Request.Context(), c.Param("id"), req.VariantID, *req.Stock)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock updated successfully", variant)
}
