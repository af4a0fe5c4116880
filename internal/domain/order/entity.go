// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the sales order status
type OrderStatus string

const (
	OrderStatusDraft            OrderStatus = "draft"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusPartiallyShipped OrderStatus = "partially_shipped"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// Operation names used for idempotency records
const (
	OperationConfirm = "confirm"
	OperationShip    = "ship"
	OperationCancel  = "cancel"
)

// SalesOrder represents a parts sales order raised against a work order or
// counter sale. The fulfillment service exclusively owns all writes; Version
// is its optimistic concurrency token.
type SalesOrder struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	CustomerID  uint        `gorm:"not null;index" json:"customer_id"`
	WarehouseID uint        `gorm:"index" json:"warehouse_id"` // set on confirm
	Status      OrderStatus `gorm:"not null;default:'draft';index" json:"status"`
	Version     int         `gorm:"not null;default:1" json:"version"`
	Notes       string      `gorm:"type:text" json:"notes"`

	// Timestamps
	ConfirmedAt *time.Time     `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time     `json:"shipped_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Lines []SalesOrderLine `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
}

// SalesOrderLine represents one part position on a sales order
type SalesOrderLine struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderID           uint      `gorm:"not null;index" json:"order_id"`
	PartID            uint      `gorm:"not null;index" json:"part_id"`
	QuantityOrdered   int       `gorm:"not null" json:"quantity_ordered"`
	QuantityDelivered int       `gorm:"not null;default:0" json:"quantity_delivered"`
	ReservationID     *uint     `gorm:"index" json:"reservation_id,omitempty"` // set on confirm
	UnitPrice         int64     `gorm:"not null" json:"unit_price"`            // Price per unit in cents
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IdempotencyRecord stores the result of the first successful execution of a
// fulfillment operation, keyed by (order, operation, client-supplied key).
// A retried request replays the stored result instead of re-executing.
type IdempotencyRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_idempotency_order_op_key,priority:1" json:"order_id"`
	Operation string    `gorm:"not null;size:20;uniqueIndex:idx_idempotency_order_op_key,priority:2" json:"operation"`
	Key       string    `gorm:"column:idempotency_key;not null;size:100;uniqueIndex:idx_idempotency_order_op_key,priority:3" json:"idempotency_key"`
	Result    string    `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (SalesOrder) TableName() string        { return "sales_orders" }
func (SalesOrderLine) TableName() string    { return "sales_order_lines" }
func (IdempotencyRecord) TableName() string { return "idempotency_records" }

// Business methods for SalesOrder

// GenerateOrderNumber generates a unique order number
func (o *SalesOrder) GenerateOrderNumber() string {
	// Format: WO-YYYYMMDD-XXXXX
	return fmt.Sprintf("WO-%s-%05d", time.Now().Format("20060102"), o.ID)
}

// CanBeConfirmed checks if the order can move to confirmed
func (o *SalesOrder) CanBeConfirmed() bool {
	return o.Status == OrderStatusDraft
}

// CanBeShipped checks if the order can take a (partial) shipment
func (o *SalesOrder) CanBeShipped() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusPartiallyShipped
}

// CanBeCancelled checks if the order can be cancelled
func (o *SalesOrder) CanBeCancelled() bool {
	return o.Status == OrderStatusDraft ||
		o.Status == OrderStatusConfirmed ||
		o.Status == OrderStatusPartiallyShipped
}

// IsTerminal reports whether no further transitions are possible
func (o *SalesOrder) IsTerminal() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusCancelled
}

// DeliveryStatus derives the post-shipment status from line state: shipped iff
// every line is fully delivered, otherwise partially shipped.
func (o *SalesOrder) DeliveryStatus() OrderStatus {
	for _, line := range o.Lines {
		if line.QuantityDelivered < line.QuantityOrdered {
			return OrderStatusPartiallyShipped
		}
	}
	return OrderStatusShipped
}

// RemainingQuantity returns the undelivered quantity for a line
func (l *SalesOrderLine) RemainingQuantity() int {
	return l.QuantityOrdered - l.QuantityDelivered
}
