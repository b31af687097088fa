// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/domain/cart"
	"github.com/fankick/storefront/internal/domain/product"
	"github.com/fankick/storefront/internal/domain/user"
	"github.com/fankick/storefront/internal/domain/wishlist"
	"github.com/fankick/storefront/internal/interfaces/http/handlers"
	"github.com/fankick/storefront/internal/interfaces/http/middleware"
	"github.com/fankick/storefront/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes wires every service and registers all API routes on rg
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Entry) {
	productService := product.NewService(db, redisClient, cfg, log)
	userService := user.NewService(db, redisClient, cfg, log)
	addressService := user.NewAddressService(db, cfg)
	cartService := cart.NewService(db, productService, cfg, log)
	wishlistService := wishlist.NewService(db, productService, cfg)

	jwtManager := userService.JWT()

	SetupProductRoutes(rg, handlers.NewProductHandler(productService), jwtManager)
	SetupAuthRoutes(rg, handlers.NewAuthHandler(userService), jwtManager)
	SetupUserRoutes(rg,
		handlers.NewCartHandler(cartService),
		handlers.NewWishlistHandler(wishlistService),
		handlers.NewUserAddressHandler(addressService),
		jwtManager,
	)
}

// SetupProductRoutes sets up product routes. Reads are public, writes need an admin.
func SetupProductRoutes(rg *gin.RouterGroup, productHandler *handlers.ProductHandler, jwtManager *auth.JWTManager) {
	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)

		admin := products.Group("")
		admin.Use(middleware.AuthMiddleware(jwtManager))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("", productHandler.CreateProduct)
			admin.PUT("/:id", productHandler.UpdateProduct)
			admin.DELETE("/:id", productHandler.DeleteProduct)
			admin.PUT("/:id/stock", productHandler.UpdateStock)
		}
	}
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, jwtManager *auth.JWTManager) {
	authGroup := rg.Group("/auth")
	{
		// Public auth endpoints
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)

		// Protected auth endpoints
		protected := authGroup.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.Me)
		}
	}
}

// SetupUserRoutes sets up the signed-in user's cart, wishlist and addresses
func SetupUserRoutes(
	rg *gin.RouterGroup,
	cartHandler *handlers.CartHandler,
	wishlistHandler *handlers.WishlistHandler,
	addressHandler *handlers.UserAddressHandler,
	jwtManager *auth.JWTManager,
) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(jwtManager)) // All user routes require authentication
	{
		users.GET("/cart", cartHandler.GetCart)
		users.POST("/cart", cartHandler.AddToCart)
		users.DELETE("/cart", cartHandler.ClearCart)
		users.PUT("/cart/:lineId", cartHandler.UpdateCartItem)
		users.DELETE("/cart/:lineId", cartHandler.RemoveFromCart)

		users.GET("/wishlist", wishlistHandler.GetWishlist)
		users.POST("/wishlist", wishlistHandler.AddToWishlist)
		users.DELETE("/wishlist/:productId", wishlistHandler.RemoveFromWishlist)

		users.GET("/addresses", addressHandler.GetAddresses)
		users.POST("/addresses", addressHandler.CreateAddress)
		users.DELETE("/addresses/:id", addressHandler.DeleteAddress)
	}
}
