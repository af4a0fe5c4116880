// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/domain/inventory"
	"github.com/your-org/workshop-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(db *gorm.DB, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventory.NewService(db, cfg),
		config:           cfg,
	}
}

// WAREHOUSE ENDPOINTS

// CreateWarehouse handles POST /admin/warehouses
func (h *InventoryHandler) CreateWarehouse(c *gin.Context) {
	var req inventory.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	warehouse, err := h.inventoryService.CreateWarehouse(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Warehouse created successfully",
		"data":    warehouse,
	})
}

// GetWarehouses handles GET /inventory/warehouses
func (h *InventoryHandler) GetWarehouses(c *gin.Context) {
	warehouses, err := h.inventoryService.GetWarehouses()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve warehouses",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Warehouses retrieved successfully",
		"data":    warehouses,
	})
}

// GetDefaultWarehouse handles GET /inventory/warehouses/default
func (h *InventoryHandler) GetDefaultWarehouse(c *gin.Context) {
	warehouse, err := h.inventoryService.GetDefaultWarehouse()
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Default warehouse retrieved successfully",
		"data":    warehouse,
	})
}

// STOCK LEDGER ENDPOINTS

// GetStockRecord handles GET /inventory/stock/:partId/:warehouseId
func (h *InventoryHandler) GetStockRecord(c *gin.Context) {
	partID, warehouseID, ok := parsePartWarehouseParams(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.GetStockRecord(partID, warehouseID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock record retrieved successfully",
		"data": gin.H{
			"record":             record,
			"quantity_available": record.QuantityAvailable(),
		},
	})
}

// GetAvailability handles GET /inventory/availability/:partId
func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	partID, ok := parseUintParam(c, "partId", "Invalid part ID")
	if !ok {
		return
	}

	if warehouseIDParam := c.Query("warehouse_id"); warehouseIDParam != "" {
		warehouseID, err := strconv.ParseUint(warehouseIDParam, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid warehouse ID",
			})
			return
		}

		available, err := h.inventoryService.GetAvailable(partID, uint(warehouseID))
		if err != nil {
			respondDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Availability retrieved successfully",
			"data": gin.H{
				"part_id":            partID,
				"warehouse_id":       warehouseID,
				"quantity_available": available,
			},
		})
		return
	}

	available, err := h.inventoryService.GetAvailableAcrossWarehouses(partID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve availability",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Availability retrieved successfully",
		"data": gin.H{
			"part_id":            partID,
			"quantity_available": available,
		},
	})
}

// ReceiveStock handles POST /admin/inventory/receive
func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req inventory.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	req.CreatedBy = userID

	record, entry, err := h.inventoryService.ReceiveStock(&req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock received successfully",
		"data": gin.H{
			"record":   record,
			"movement": entry,
		},
	})
}

// AdjustStock handles POST /admin/inventory/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req inventory.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	req.CreatedBy = userID

	record, entry, err := h.inventoryService.AdjustStock(&req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data": gin.H{
			"record":   record,
			"movement": entry,
		},
	})
}

// SetMinimumQuantity handles PUT /admin/inventory/minimum
func (h *InventoryHandler) SetMinimumQuantity(c *gin.Context) {
	var req struct {
		PartID          uint `json:"part_id" binding:"required"`
		WarehouseID     uint `json:"warehouse_id" binding:"required"`
		MinimumQuantity int  `json:"minimum_quantity" binding:"gte=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	record, err := h.inventoryService.SetMinimumQuantity(req.PartID, req.WarehouseID, req.MinimumQuantity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Minimum quantity updated successfully",
		"data":    record,
	})
}

// MOVEMENT LEDGER ENDPOINTS

// GetPartMovements handles GET /inventory/movements/:partId/:warehouseId
func (h *InventoryHandler) GetPartMovements(c *gin.Context) {
	partID, warehouseID, ok := parsePartWarehouseParams(c)
	if !ok {
		return
	}

	entries, err := h.inventoryService.GetMovementsForPart(partID, warehouseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve movements",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movements retrieved successfully",
		"data":    entries,
	})
}

// ALERT ENDPOINTS

// GetStockAlerts handles GET /inventory/alerts
func (h *InventoryHandler) GetStockAlerts(c *gin.Context) {
	var warehouseID *uint
	if warehouseIDParam := c.Query("warehouse_id"); warehouseIDParam != "" {
		whID, err := strconv.ParseUint(warehouseIDParam, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid warehouse ID",
			})
			return
		}
		whIDUint := uint(whID)
		warehouseID = &whIDUint
	}

	alerts, err := h.inventoryService.EvaluateStockAlerts(warehouseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to evaluate stock alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock alerts evaluated successfully",
		"data":    alerts,
	})
}

// parseUintParam parses a positive integer path parameter
func parseUintParam(c *gin.Context, name, errMessage string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errMessage,
		})
		return 0, false
	}
	return uint(value), true
}

func parsePartWarehouseParams(c *gin.Context) (uint, uint, bool) {
	partID, ok := parseUintParam(c, "partId", "Invalid part ID")
	if !ok {
		return 0, 0, false
	}
	warehouseID, ok := parseUintParam(c, "warehouseId", "Invalid warehouse ID")
	if !ok {
		return 0, 0, false
	}
	return partID, warehouseID, true
}
