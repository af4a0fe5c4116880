// internal/domain/inventory/reservation.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Reservation manager. The only component permitted to create and transition
// Reservation rows, and the only caller of the stock ledger mutators. All
// methods run inside the transaction handed in by the fulfillment service, so
// a failure on any line rolls back every reservation made by the same call.

// LineReservation describes one order line to reserve stock for
type LineReservation struct {
	OrderLineID uint
	PartID      uint
	Quantity    int
}

// ReserveForOrder reserves stock for every line of a sales order, one
// reservation per line. On any line failure the surrounding transaction rolls
// back, so partial reservation of an order is never left standing; the error
// names the part that fell short.
func (s *Service) ReserveForOrder(tx *gorm.DB, orderID, warehouseID uint, lines []LineReservation) ([]Reservation, error) {
	if len(lines) == 0 {
		return nil, shared.ErrInvalidInput
	}

	reservations := make([]Reservation, 0, len(lines))
	for _, line := range lines {
		if _, err := reserveStock(tx, line.PartID, warehouseID, line.Quantity); err != nil {
			return nil, err
		}

		reservation := Reservation{
			PartID:            line.PartID,
			WarehouseID:       warehouseID,
			OrderID:           orderID,
			OrderLineID:       line.OrderLineID,
			Quantity:          line.Quantity,
			RemainingQuantity: line.Quantity,
			Status:            ReservationStatusActive,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return nil, fmt.Errorf("failed to create reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}

	return reservations, nil
}

// ConsumeReservation converts qty of a reservation into an actual stock
// decrement, writing a consumption ledger entry. The reservation stays active
// with a reduced remaining balance until its full quantity is consumed. qty
// above the remaining balance means the caller's line accounting and the
// reservation disagree, which is an invariant violation.
func (s *Service) ConsumeReservation(tx *gorm.DB, reservationID uint, qty int, idempotencyKey string) (*Reservation, *MovementEntry, error) {
	if qty <= 0 {
		return nil, nil, shared.ErrInvalidInput
	}

	reservation, err := findReservation(tx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	if !reservation.IsActive() || reservation.RemainingQuantity < qty {
		logrus.WithFields(logrus.Fields{
			"reservation_id":     reservation.ID,
			"order_id":           reservation.OrderID,
			"status":             reservation.Status,
			"remaining_quantity": reservation.RemainingQuantity,
			"quantity":           qty,
		}).Error("Reservation consumption invariant violation")
		return nil, nil, shared.ErrInvariantViolation
	}

	record, err := consumeStock(tx, reservation.PartID, reservation.WarehouseID, qty)
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{
		"remaining_quantity": reservation.RemainingQuantity - qty,
	}
	if reservation.RemainingQuantity == qty {
		now := time.Now().UTC()
		updates["status"] = ReservationStatusConsumed
		updates["consumed_at"] = now
		reservation.Status = ReservationStatusConsumed
		reservation.ConsumedAt = &now
	}

	result := tx.Model(&Reservation{}).
		Where("id = ? AND status = ? AND remaining_quantity = ?",
			reservation.ID, ReservationStatusActive, reservation.RemainingQuantity).
		Updates(updates)
	if result.Error != nil {
		return nil, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil, shared.ErrConcurrencyConflict
	}
	reservation.RemainingQuantity -= qty

	entry, err := appendMovement(tx, MovementTypeConsumption, record,
		movementDelta{onHandDelta: -qty, reservedDelta: -qty},
		movementRef{refType: "order", refID: reservation.OrderID, idempotencyKey: idempotencyKey})
	if err != nil {
		return nil, nil, err
	}

	return reservation, entry, nil
}

// ReleaseReservation returns a reservation's full remaining quantity to
// available stock. Releasing an already released or consumed reservation is a
// no-op, not an error, so the operation is idempotent by design. A
// release_noop ledger entry records the event; on-hand quantity is unchanged.
func (s *Service) ReleaseReservation(tx *gorm.DB, reservationID uint, idempotencyKey string) (*Reservation, *MovementEntry, error) {
	reservation, err := findReservation(tx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	if !reservation.IsActive() {
		return reservation, nil, nil
	}

	record, err := releaseReservedStock(tx, reservation.PartID, reservation.WarehouseID, reservation.RemainingQuantity)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	result := tx.Model(&Reservation{}).
		Where("id = ? AND status = ?", reservation.ID, ReservationStatusActive).
		Updates(map[string]interface{}{
			"status":      ReservationStatusReleased,
			"released_at": now,
		})
	if result.Error != nil {
		return nil, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil, shared.ErrConcurrencyConflict
	}
	reservation.Status = ReservationStatusReleased
	reservation.ReleasedAt = &now

	notes := fmt.Sprintf("released %d reserved", reservation.RemainingQuantity)
	entry, err := appendMovement(tx, MovementTypeReleaseNoop, record,
		movementDelta{onHandDelta: 0, reservedDelta: -reservation.RemainingQuantity},
		movementRef{refType: "order", refID: reservation.OrderID, idempotencyKey: idempotencyKey, notes: notes})
	if err != nil {
		return nil, nil, err
	}

	return reservation, entry, nil
}

// ActiveReservationsForOrder returns the reservations still backing an order
func (s *Service) ActiveReservationsForOrder(tx *gorm.DB, orderID uint) ([]Reservation, error) {
	var reservations []Reservation
	if err := tx.Where("order_id = ? AND status = ?", orderID, ReservationStatusActive).
		Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve reservations: %w", err)
	}
	return reservations, nil
}

// ActiveReservationForLine returns the active reservation backing one order
// line. The fulfillment design keeps a single reservation per original line,
// so shipments always draw down exactly one reservation.
func (s *Service) ActiveReservationForLine(tx *gorm.DB, orderID, orderLineID uint) (*Reservation, error) {
	var reservation Reservation
	err := tx.Where("order_id = ? AND order_line_id = ? AND status = ?",
		orderID, orderLineID, ReservationStatusActive).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func findReservation(tx *gorm.DB, reservationID uint) (*Reservation, error) {
	var reservation Reservation
	if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}
