// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/domain/inventory"
	"github.com/your-org/workshop-backend/internal/domain/order"
	"gorm.io/gorm"
)

// IdempotencyKeyHeader carries the client-chosen retry token for the compound
// fulfillment operations.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler handles sales order endpoints
type OrderHandler struct {
	orderService     *order.Service
	inventoryService *inventory.Service
	config           *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *OrderHandler {
	inventoryService := inventory.NewService(db, cfg)
	return &OrderHandler{
		orderService:     order.NewService(db, cfg, inventoryService, redisClient),
		inventoryService: inventoryService,
		config:           cfg,
	}
}

// ORDER INTAKE ENDPOINTS

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.orderService.CreateOrder(&req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    created,
	})
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.ListOrders(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	found, err := h.orderService.GetOrder(orderID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    found,
	})
}

// GetOrderByNumber handles GET /orders/number/:orderNumber
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	found, err := h.orderService.GetOrderByNumber(c.Param("orderNumber"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    found,
	})
}

// GetOrderMovements handles GET /orders/:id/movements
func (h *OrderHandler) GetOrderMovements(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	entries, err := h.inventoryService.GetMovementsByReference("order", orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve movements",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order movements retrieved successfully",
		"data":    entries,
	})
}

// FULFILLMENT ENDPOINTS

// ConfirmOrder handles POST /orders/:id/confirm
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	var req struct {
		WarehouseID uint `json:"warehouse_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	warehouseID := req.WarehouseID
	if warehouseID == 0 {
		warehouse, err := h.inventoryService.GetDefaultWarehouse()
		if err != nil {
			respondDomainError(c, err)
			return
		}
		warehouseID = warehouse.ID
	}

	result, err := h.orderService.Confirm(orderID, warehouseID, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order confirmed successfully",
		"data":    result,
	})
}

// ShipOrder handles POST /orders/:id/ship
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	var req struct {
		Items []order.ShipItem `json:"items" binding:"omitempty,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orderService.Ship(orderID, c.GetHeader(IdempotencyKeyHeader), req.Items)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order shipped successfully",
		"data":    result,
	})
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	result, err := h.orderService.Cancel(orderID, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    result,
	})
}
