// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeReceipt     MovementType = "receipt"      // Inbound replenishment
	MovementTypeConsumption MovementType = "consumption"  // Reservation consumed by a shipment
	MovementTypeAdjustment  MovementType = "adjustment"   // Manual stock correction
	MovementTypeReleaseNoop MovementType = "release_noop" // Reservation released, on-hand unchanged
)

// ReservationStatus represents the lifecycle state of a stock reservation.
// A reservation leaves "active" exactly once; both other states are terminal.
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusConsumed ReservationStatus = "consumed"
	ReservationStatusReleased ReservationStatus = "released"
)

// Warehouse represents a storage location for workshop parts
type Warehouse struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address   string         `gorm:"type:text" json:"address"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	IsDefault bool           `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StockRecord holds the authoritative on-hand and reserved counts for a
// (part, warehouse) pair. It is the single source of truth for availability.
// Only the ledger operations in this package may mutate the quantity columns.
type StockRecord struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PartID           uint            `gorm:"not null;uniqueIndex:idx_stock_part_warehouse,priority:1" json:"part_id"`
	WarehouseID      uint            `gorm:"not null;uniqueIndex:idx_stock_part_warehouse,priority:2" json:"warehouse_id"`
	QuantityOnHand   int             `gorm:"not null;default:0" json:"quantity_on_hand"`
	QuantityReserved int             `gorm:"not null;default:0" json:"quantity_reserved"`
	AverageCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"average_cost"`
	MinimumQuantity  int             `gorm:"not null;default:0" json:"minimum_quantity"` // 0 disables alerting
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Relationships
	Warehouse Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
}

// QuantityAvailable is on-hand minus reserved; never persisted, always computed.
func (r *StockRecord) QuantityAvailable() int {
	return r.QuantityOnHand - r.QuantityReserved
}

// CanReserve checks whether a new reservation of the given quantity fits
func (r *StockRecord) CanReserve(quantity int) bool {
	return r.QuantityAvailable() >= quantity
}

// Reservation earmarks stock for a specific sales order line without removing
// it from on-hand quantity. RemainingQuantity tracks how much of the original
// claim is still unconsumed across partial shipments.
type Reservation struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	PartID            uint              `gorm:"not null;index:idx_reservation_part_warehouse_status,priority:1" json:"part_id"`
	WarehouseID       uint              `gorm:"not null;index:idx_reservation_part_warehouse_status,priority:2" json:"warehouse_id"`
	OrderID           uint              `gorm:"not null;index" json:"order_id"`
	OrderLineID       uint              `gorm:"not null;index" json:"order_line_id"`
	Quantity          int               `gorm:"not null" json:"quantity"`
	RemainingQuantity int               `gorm:"not null" json:"remaining_quantity"`
	Status            ReservationStatus `gorm:"not null;default:'active';index:idx_reservation_part_warehouse_status,priority:3" json:"status"`
	ConsumedAt        *time.Time        `json:"consumed_at,omitempty"`
	ReleasedAt        *time.Time        `json:"released_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsActive reports whether the reservation still backs reserved stock
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// MovementEntry is one append-only row of the stock movement ledger. Quantity
// is the signed on-hand delta (zero for release_noop rows); the before/after
// columns capture both counters so the ledger reconciles against StockRecord
// balances. Rows are never updated or deleted.
type MovementEntry struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	PartID         uint         `gorm:"not null;index:idx_movement_part_warehouse,priority:1" json:"part_id"`
	WarehouseID    uint         `gorm:"not null;index:idx_movement_part_warehouse,priority:2" json:"warehouse_id"`
	Type           MovementType `gorm:"not null" json:"type"`
	Quantity       int          `gorm:"not null" json:"quantity"`
	OnHandBefore   int          `gorm:"not null" json:"on_hand_before"`
	OnHandAfter    int          `gorm:"not null" json:"on_hand_after"`
	ReservedBefore int          `gorm:"not null" json:"reserved_before"`
	ReservedAfter  int          `gorm:"not null" json:"reserved_after"`
	ReferenceType  string       `gorm:"size:50;index:idx_movement_reference,priority:1" json:"reference_type"` // "order", "replenishment", "adjustment"
	ReferenceID    uint         `gorm:"index:idx_movement_reference,priority:2" json:"reference_id"`
	IdempotencyKey string       `gorm:"size:100;index" json:"idempotency_key"`
	Notes          string       `gorm:"type:text" json:"notes"`
	CreatedBy      uint         `gorm:"index" json:"created_by"` // 0 for order-driven entries
	CreatedAt      time.Time    `json:"created_at"`
}

// TableName overrides
func (Reservation) TableName() string   { return "stock_reservations" }
func (MovementEntry) TableName() string { return "stock_movements" }
