// internal/domain/inventory/service.go
package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Service handles inventory business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateWarehouseRequest represents warehouse creation data
type CreateWarehouseRequest struct {
	Name      string `json:"name" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"is_default"`
}

// ReceiveStockRequest represents inbound replenishment data
type ReceiveStockRequest struct {
	PartID      uint            `json:"part_id" binding:"required"`
	WarehouseID uint            `json:"warehouse_id" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ReferenceID uint            `json:"reference_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   uint            `json:"-"` // set from the authenticated user
}

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	PartID      uint   `json:"part_id" binding:"required"`
	WarehouseID uint   `json:"warehouse_id" binding:"required"`
	Delta       int    `json:"delta" binding:"required"`
	Notes       string `json:"notes,omitempty"`
	CreatedBy   uint   `json:"-"` // set from the authenticated user
}

// WAREHOUSE MANAGEMENT

// CreateWarehouse creates a new warehouse
func (s *Service) CreateWarehouse(req *CreateWarehouseRequest) (*Warehouse, error) {
	// Check if code already exists
	var existing Warehouse
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("warehouse with code '%s' already exists", req.Code)
	}

	// If this is set as default, unset others
	if req.IsDefault {
		s.db.Model(&Warehouse{}).Where("is_default = ?", true).Update("is_default", false)
	}

	warehouse := &Warehouse{
		Name:      req.Name,
		Code:      req.Code,
		Address:   req.Address,
		Phone:     req.Phone,
		IsDefault: req.IsDefault,
		IsActive:  true,
	}

	if err := s.db.Create(warehouse).Error; err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}

	return warehouse, nil
}

// GetWarehouses retrieves all active warehouses
func (s *Service) GetWarehouses() ([]Warehouse, error) {
	var warehouses []Warehouse
	if err := s.db.Where("is_active = ?", true).Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve warehouses: %w", err)
	}
	return warehouses, nil
}

// GetDefaultWarehouse gets the default warehouse
func (s *Service) GetDefaultWarehouse() (*Warehouse, error) {
	var warehouse Warehouse
	if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&warehouse).Error; err != nil {
		return nil, shared.ErrNotFound
	}
	return &warehouse, nil
}

// STOCK QUERIES

// GetStockRecord gets the stock record for a (part, warehouse) pair
func (s *Service) GetStockRecord(partID, warehouseID uint) (*StockRecord, error) {
	return lockStockRecord(s.db, partID, warehouseID)
}

// GetAvailable returns the available (on-hand minus reserved) quantity for a
// (part, warehouse) pair. Pure read; missing records are NotFound rather than
// implicitly created, consistently with every other read path in this package.
func (s *Service) GetAvailable(partID, warehouseID uint) (int, error) {
	record, err := lockStockRecord(s.db, partID, warehouseID)
	if err != nil {
		return 0, err
	}
	return record.QuantityAvailable(), nil
}

// GetAvailableAcrossWarehouses sums available quantity for a part over all warehouses
func (s *Service) GetAvailableAcrossWarehouses(partID uint) (int, error) {
	var total int64
	err := s.db.Model(&StockRecord{}).
		Where("part_id = ?", partID).
		Select("COALESCE(SUM(quantity_on_hand - quantity_reserved), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get stock level: %w", err)
	}
	return int(total), nil
}

// SetMinimumQuantity configures the alert threshold for a stock record
func (s *Service) SetMinimumQuantity(partID, warehouseID uint, minimum int) (*StockRecord, error) {
	if minimum < 0 {
		return nil, shared.ErrInvalidInput
	}
	record, err := lockStockRecord(s.db, partID, warehouseID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(record).Update("minimum_quantity", minimum).Error; err != nil {
		return nil, fmt.Errorf("failed to update minimum quantity: %w", err)
	}
	record.MinimumQuantity = minimum
	return record, nil
}

// REPLENISHMENT & ADJUSTMENT

// ReceiveStock records inbound replenishment: on-hand quantity goes up and a
// receipt entry lands in the movement ledger, both in one transaction.
func (s *Service) ReceiveStock(req *ReceiveStockRequest) (*StockRecord, *MovementEntry, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	record, err := receiveStock(tx, req.PartID, req.WarehouseID, req.Quantity, req.UnitCost)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	entry, err := appendMovement(tx, MovementTypeReceipt, record,
		movementDelta{onHandDelta: req.Quantity},
		movementRef{refType: "replenishment", refID: req.ReferenceID, notes: req.Notes, createdBy: req.CreatedBy})
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, fmt.Errorf("failed to commit stock receipt: %w", err)
	}
	return record, entry, nil
}

// AdjustStock applies a signed manual correction with an adjustment ledger entry
func (s *Service) AdjustStock(req *AdjustStockRequest) (*StockRecord, *MovementEntry, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	record, err := adjustStock(tx, req.PartID, req.WarehouseID, req.Delta)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	entry, err := appendMovement(tx, MovementTypeAdjustment, record,
		movementDelta{onHandDelta: req.Delta},
		movementRef{refType: "adjustment", notes: req.Notes, createdBy: req.CreatedBy})
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}
	return record, entry, nil
}
