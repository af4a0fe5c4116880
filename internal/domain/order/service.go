// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/domain/inventory"
	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Service owns the sales-order lifecycle. Confirm, Ship and Cancel each run as
// one transaction spanning the order update, the reservation transitions, the
// stock counters and the movement ledger: they fully succeed or leave no
// observable change. Optimistic conflicts are retried up to the configured
// bound before surfacing as retryable errors.
type Service struct {
	db               *gorm.DB
	config           *config.Config
	inventoryService *inventory.Service
	redisClient      *redis.Client
}

// NewService creates a new order fulfillment service. redisClient may be nil;
// it only accelerates idempotent replays.
func NewService(db *gorm.DB, cfg *config.Config, inventoryService *inventory.Service, redisClient *redis.Client) *Service {
	return &Service{
		db:               db,
		config:           cfg,
		inventoryService: inventoryService,
		redisClient:      redisClient,
	}
}

// CreateOrderRequest represents draft order creation data
type CreateOrderRequest struct {
	CustomerID uint                     `json:"customer_id" binding:"required"`
	Notes      string                   `json:"notes,omitempty"`
	Lines      []CreateOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateOrderLineRequest represents one part position of a new order
type CreateOrderLineRequest struct {
	PartID    uint  `json:"part_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64 `json:"unit_price" binding:"gte=0"`
}

// ShipItem restricts a shipment to a (part, quantity) pair
type ShipItem struct {
	PartID   uint `json:"part_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

// FulfillmentResult is what every compound operation returns: the updated
// order plus the reservation and movement ids it touched. This is also the
// payload replayed for idempotent retries.
type FulfillmentResult struct {
	Order          SalesOrder `json:"order"`
	ReservationIDs []uint     `json:"reservation_ids"`
	MovementIDs    []uint     `json:"movement_ids"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page       int         `form:"page,default=1"`
	Limit      int         `form:"limit,default=20"`
	Status     OrderStatus `form:"status"`
	CustomerID uint        `form:"customer_id"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// OrderListResponse represents an order page
type OrderListResponse struct {
	Orders     []SalesOrder `json:"orders"`
	Pagination Pagination   `json:"pagination"`
}

// DRAFT ORDER INTAKE

// CreateOrder creates a new sales order in draft status. Lines are unique per
// part; shipment requests address lines by part id.
func (s *Service) CreateOrder(req *CreateOrderRequest) (*SalesOrder, error) {
	seenParts := make(map[uint]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if _, dup := seenParts[line.PartID]; dup {
			return nil, shared.ErrInvalidInput
		}
		seenParts[line.PartID] = struct{}{}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order := SalesOrder{
		CustomerID: req.CustomerID,
		Status:     OrderStatusDraft,
		Notes:      req.Notes,
	}
	for _, line := range req.Lines {
		order.Lines = append(order.Lines, SalesOrderLine{
			PartID:          line.PartID,
			QuantityOrdered: line.Quantity,
			UnitPrice:       line.UnitPrice,
		})
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Order number needs the generated id
	order.OrderNumber = order.GenerateOrderNumber()
	if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to assign order number: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return &order, nil
}

// GetOrder retrieves an order with its lines
func (s *Service) GetOrder(orderID uint) (*SalesOrder, error) {
	return loadOrder(s.db, orderID)
}

// GetOrderByNumber retrieves an order by its human-readable number
func (s *Service) GetOrderByNumber(orderNumber string) (*SalesOrder, error) {
	var order SalesOrder
	err := s.db.Preload("Lines").Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves orders with pagination and optional filters
func (s *Service) ListOrders(req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&SalesOrder{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.CustomerID != 0 {
		query = query.Where("customer_id = ?", req.CustomerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []SalesOrder
	if err := query.Preload("Lines").
		Order("created_at DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// FULFILLMENT STATE MACHINE

// Confirm moves a draft order to confirmed, reserving stock for every line in
// the given warehouse. A retried call with the same idempotency key replays
// the original result without reserving again.
func (s *Service) Confirm(orderID, warehouseID uint, idempotencyKey string) (*FulfillmentResult, error) {
	if cached := s.cachedResult(orderID, OperationConfirm, idempotencyKey); cached != nil {
		return cached, nil
	}
	return s.withRetry(orderID, OperationConfirm, idempotencyKey, func() (*FulfillmentResult, error) {
		return s.confirmOnce(orderID, warehouseID, idempotencyKey)
	})
}

// Ship consumes reservations and updates delivered quantities. An empty items
// slice ships the full remaining undelivered quantity of every line.
func (s *Service) Ship(orderID uint, idempotencyKey string, items []ShipItem) (*FulfillmentResult, error) {
	if cached := s.cachedResult(orderID, OperationShip, idempotencyKey); cached != nil {
		return cached, nil
	}
	return s.withRetry(orderID, OperationShip, idempotencyKey, func() (*FulfillmentResult, error) {
		return s.shipOnce(orderID, idempotencyKey, items)
	})
}

// Cancel releases every still-active reservation and ends the order. Lines
// already delivered are not reversed.
func (s *Service) Cancel(orderID uint, idempotencyKey string) (*FulfillmentResult, error) {
	if cached := s.cachedResult(orderID, OperationCancel, idempotencyKey); cached != nil {
		return cached, nil
	}
	return s.withRetry(orderID, OperationCancel, idempotencyKey, func() (*FulfillmentResult, error) {
		return s.cancelOnce(orderID, idempotencyKey)
	})
}

// withRetry re-runs an operation whose transaction lost an optimistic
// concurrency race, up to the configured bound. Idempotency records make the
// retries safe: a replay observes the first execution's result.
func (s *Service) withRetry(orderID uint, operation, idempotencyKey string, fn func() (*FulfillmentResult, error)) (*FulfillmentResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.Fulfillment.MaxTransactionRetries; attempt++ {
		result, err := fn()
		if err == nil {
			if idempotencyKey != "" {
				s.cacheResult(orderID, operation, idempotencyKey, result)
			}
			return result, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		logrus.WithFields(logrus.Fields{
			"order_id":  orderID,
			"operation": operation,
			"attempt":   attempt,
		}).Warn("Retrying fulfillment operation after concurrency conflict")
	}
	return nil, lastErr
}

func (s *Service) cachedResult(orderID uint, operation, idempotencyKey string) *FulfillmentResult {
	if idempotencyKey == "" {
		return nil
	}
	return s.getCachedResult(orderID, operation, idempotencyKey)
}

func (s *Service) confirmOnce(orderID, warehouseID uint, idempotencyKey string) (*FulfillmentResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if idempotencyKey != "" {
		if result, found, err := s.lookupIdempotencyRecord(tx, orderID, OperationConfirm, idempotencyKey); err != nil {
			tx.Rollback()
			return nil, err
		} else if found {
			tx.Rollback()
			return result, nil
		}
	}

	order, err := loadOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !order.CanBeConfirmed() {
		tx.Rollback()
		return nil, shared.NewInvalidTransitionError(OperationConfirm, string(order.Status))
	}

	if err := claimOrderVersion(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	lines := make([]inventory.LineReservation, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, inventory.LineReservation{
			OrderLineID: line.ID,
			PartID:      line.PartID,
			Quantity:    line.QuantityOrdered,
		})
	}

	reservations, err := s.inventoryService.ReserveForOrder(tx, order.ID, warehouseID, lines)
	if err != nil {
		// Order stays draft; the rollback undoes any reservations already made.
		tx.Rollback()
		return nil, err
	}

	reservationIDs := make([]uint, 0, len(reservations))
	byLine := make(map[uint]uint, len(reservations))
	for _, reservation := range reservations {
		reservationIDs = append(reservationIDs, reservation.ID)
		byLine[reservation.OrderLineID] = reservation.ID
	}
	for i := range order.Lines {
		reservationID := byLine[order.Lines[i].ID]
		if err := tx.Model(&order.Lines[i]).Update("reservation_id", reservationID).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to link reservation: %w", err)
		}
		order.Lines[i].ReservationID = &reservationID
	}

	now := time.Now().UTC()
	if err := tx.Model(&SalesOrder{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":       OrderStatusConfirmed,
			"warehouse_id": warehouseID,
			"confirmed_at": now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}
	order.Status = OrderStatusConfirmed
	order.WarehouseID = warehouseID
	order.ConfirmedAt = &now

	result := &FulfillmentResult{Order: *order, ReservationIDs: reservationIDs, MovementIDs: []uint{}}

	if idempotencyKey != "" {
		if err := s.storeIdempotencyRecord(tx, order.ID, OperationConfirm, idempotencyKey, result); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}
	return result, nil
}

func (s *Service) shipOnce(orderID uint, idempotencyKey string, items []ShipItem) (*FulfillmentResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if idempotencyKey != "" {
		if result, found, err := s.lookupIdempotencyRecord(tx, orderID, OperationShip, idempotencyKey); err != nil {
			tx.Rollback()
			return nil, err
		} else if found {
			tx.Rollback()
			return result, nil
		}
	}

	order, err := loadOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !order.CanBeShipped() {
		tx.Rollback()
		return nil, shared.NewInvalidTransitionError(OperationShip, string(order.Status))
	}

	if err := claimOrderVersion(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	shipments, err := resolveShipQuantities(order, items)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	reservationIDs := make([]uint, 0, len(shipments))
	movementIDs := make([]uint, 0, len(shipments))
	for i := range order.Lines {
		line := &order.Lines[i]
		qty, ok := shipments[line.ID]
		if !ok {
			continue
		}

		reservation, err := s.inventoryService.ActiveReservationForLine(tx, order.ID, line.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		updated, entry, err := s.inventoryService.ConsumeReservation(tx, reservation.ID, qty, idempotencyKey)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		reservationIDs = append(reservationIDs, updated.ID)
		movementIDs = append(movementIDs, entry.ID)

		if err := tx.Model(line).Update("quantity_delivered", line.QuantityDelivered+qty).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update delivered quantity: %w", err)
		}
		line.QuantityDelivered += qty
	}

	newStatus := order.DeliveryStatus()
	updates := map[string]interface{}{"status": newStatus}
	var shippedAt *time.Time
	if newStatus == OrderStatusShipped {
		now := time.Now().UTC()
		shippedAt = &now
		updates["shipped_at"] = now
	}
	if err := tx.Model(&SalesOrder{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = newStatus
	if shippedAt != nil {
		order.ShippedAt = shippedAt
	}

	result := &FulfillmentResult{Order: *order, ReservationIDs: reservationIDs, MovementIDs: movementIDs}

	if idempotencyKey != "" {
		if err := s.storeIdempotencyRecord(tx, order.ID, OperationShip, idempotencyKey, result); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit shipment: %w", err)
	}
	return result, nil
}

func (s *Service) cancelOnce(orderID uint, idempotencyKey string) (*FulfillmentResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if idempotencyKey != "" {
		if result, found, err := s.lookupIdempotencyRecord(tx, orderID, OperationCancel, idempotencyKey); err != nil {
			tx.Rollback()
			return nil, err
		} else if found {
			tx.Rollback()
			return result, nil
		}
	}

	order, err := loadOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// A cancel retried without the original key lands here once the order is
	// already cancelled and is rejected like any other terminal transition.
	if !order.CanBeCancelled() {
		tx.Rollback()
		return nil, shared.NewInvalidTransitionError(OperationCancel, string(order.Status))
	}

	if err := claimOrderVersion(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	reservations, err := s.inventoryService.ActiveReservationsForOrder(tx, order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	reservationIDs := make([]uint, 0, len(reservations))
	movementIDs := make([]uint, 0, len(reservations))
	for _, reservation := range reservations {
		released, entry, err := s.inventoryService.ReleaseReservation(tx, reservation.ID, idempotencyKey)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		reservationIDs = append(reservationIDs, released.ID)
		if entry != nil {
			movementIDs = append(movementIDs, entry.ID)
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(&SalesOrder{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":       OrderStatusCancelled,
			"cancelled_at": now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	order.Status = OrderStatusCancelled
	order.CancelledAt = &now

	result := &FulfillmentResult{Order: *order, ReservationIDs: reservationIDs, MovementIDs: movementIDs}

	if idempotencyKey != "" {
		if err := s.storeIdempotencyRecord(tx, order.ID, OperationCancel, idempotencyKey, result); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return result, nil
}

// resolveShipQuantities maps order line ids to the quantities this shipment
// covers. Every requested quantity is validated before anything is consumed,
// so an over-shipment rejects the whole call without state changes.
func resolveShipQuantities(order *SalesOrder, items []ShipItem) (map[uint]int, error) {
	shipments := make(map[uint]int)

	if len(items) == 0 {
		// Ship everything still undelivered
		for _, line := range order.Lines {
			if remaining := line.RemainingQuantity(); remaining > 0 {
				shipments[line.ID] = remaining
			}
		}
		if len(shipments) == 0 {
			return nil, shared.NewInvalidTransitionError(OperationShip, string(order.Status))
		}
		return shipments, nil
	}

	// Order intake guarantees one line per part
	linesByPart := make(map[uint]*SalesOrderLine, len(order.Lines))
	for i := range order.Lines {
		linesByPart[order.Lines[i].PartID] = &order.Lines[i]
	}

	for _, item := range items {
		line, ok := linesByPart[item.PartID]
		if !ok {
			return nil, shared.ErrNotFound
		}
		if item.Quantity <= 0 {
			return nil, shared.ErrInvalidInput
		}
		if _, dup := shipments[line.ID]; dup {
			return nil, shared.ErrInvalidInput
		}
		if item.Quantity > line.RemainingQuantity() {
			return nil, shared.NewOverShipmentError(item.PartID, line.RemainingQuantity(), item.Quantity)
		}
		shipments[line.ID] = item.Quantity
	}
	return shipments, nil
}

// claimOrderVersion bumps the order's optimistic concurrency token. Two
// operations racing on the same order serialize here: the loser sees zero
// affected rows and its transaction is retried from scratch.
func claimOrderVersion(tx *gorm.DB, order *SalesOrder) error {
	result := tx.Model(&SalesOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Update("version", order.Version+1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	order.Version++
	return nil
}

func loadOrder(db *gorm.DB, orderID uint) (*SalesOrder, error) {
	var order SalesOrder
	err := db.Preload("Lines").First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}
