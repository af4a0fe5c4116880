// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/interfaces/http/handlers"
	"github.com/your-org/workshop-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupInventoryRoutes sets up inventory related routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	inv := rg.Group("/inventory")
	inv.Use(middleware.AuthMiddleware(cfg))
	{
		inv.GET("/warehouses", inventoryHandler.GetWarehouses)
		inv.GET("/warehouses/default", inventoryHandler.GetDefaultWarehouse)

		inv.GET("/stock/:partId/:warehouseId", inventoryHandler.GetStockRecord)
		inv.GET("/availability/:partId", inventoryHandler.GetAvailability)
		inv.GET("/movements/:partId/:warehouseId", inventoryHandler.GetPartMovements)
		inv.GET("/alerts", inventoryHandler.GetStockAlerts)
	}

	// Admin inventory endpoints mutate the stock ledger directly
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/warehouses", inventoryHandler.CreateWarehouse)
		admin.POST("/inventory/receive", inventoryHandler.ReceiveStock)
		admin.POST("/inventory/adjust", inventoryHandler.AdjustStock)
		admin.PUT("/inventory/minimum", inventoryHandler.SetMinimumQuantity)
	}
}

// SetupOrderRoutes sets up sales order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
		orders.GET("/:id/movements", orderHandler.GetOrderMovements)

		orders.POST("/:id/confirm", orderHandler.ConfirmOrder)
		orders.POST("/:id/ship", orderHandler.ShipOrder)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupOrderRoutes(rg, db, redisClient, cfg)
}
