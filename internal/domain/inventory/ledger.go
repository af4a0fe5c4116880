// internal/domain/inventory/ledger.go
package inventory

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/gorm"
)

// The stock ledger. These are the only code paths that may write the quantity
// columns of a StockRecord. Every mutator runs inside the caller's transaction
// and applies its change as a single conditional UPDATE: the WHERE clause
// re-checks the exact counters the decision was made against, so a concurrent
// writer turns the update into zero affected rows instead of a silently wrong
// balance. Zero rows surface as ErrConcurrencyConflict and the caller retries.

// lockStockRecord loads the current stock record for a (part, warehouse) pair.
func lockStockRecord(tx *gorm.DB, partID, warehouseID uint) (*StockRecord, error) {
	var record StockRecord
	err := tx.Where("part_id = ? AND warehouse_id = ?", partID, warehouseID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// updateStockCounters applies new counter values, guarded by the values the
// record was read with. Returns ErrConcurrencyConflict if the row moved.
func updateStockCounters(tx *gorm.DB, record *StockRecord, newOnHand, newReserved int) error {
	result := tx.Model(&StockRecord{}).
		Where("id = ? AND quantity_on_hand = ? AND quantity_reserved = ?",
			record.ID, record.QuantityOnHand, record.QuantityReserved).
		Updates(map[string]interface{}{
			"quantity_on_hand":  newOnHand,
			"quantity_reserved": newReserved,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	record.QuantityOnHand = newOnHand
	record.QuantityReserved = newReserved
	return nil
}

// reserveStock increments the reserved quantity, requiring qty > 0 and
// available >= qty. Fails with InsufficientStock otherwise.
func reserveStock(tx *gorm.DB, partID, warehouseID uint, qty int) (*StockRecord, error) {
	if qty <= 0 {
		return nil, shared.ErrInvalidInput
	}

	record, err := lockStockRecord(tx, partID, warehouseID)
	if err != nil {
		return nil, err
	}

	if !record.CanReserve(qty) {
		return nil, shared.NewInsufficientStockError(partID, record.QuantityAvailable(), qty)
	}

	if err := updateStockCounters(tx, record, record.QuantityOnHand, record.QuantityReserved+qty); err != nil {
		return nil, err
	}
	return record, nil
}

// releaseReservedStock decrements the reserved quantity. Call sites only ever
// pass a live reservation's remaining quantity, so reserved dropping below the
// requested amount means reservation tracking is broken.
func releaseReservedStock(tx *gorm.DB, partID, warehouseID uint, qty int) (*StockRecord, error) {
	if qty <= 0 {
		return nil, shared.ErrInvalidInput
	}

	record, err := lockStockRecord(tx, partID, warehouseID)
	if err != nil {
		return nil, err
	}

	if record.QuantityReserved < qty {
		logInvariantViolation("release", partID, warehouseID, qty, record)
		return nil, shared.ErrInvariantViolation
	}

	if err := updateStockCounters(tx, record, record.QuantityOnHand, record.QuantityReserved-qty); err != nil {
		return nil, err
	}
	return record, nil
}

// consumeStock decrements both on-hand and reserved quantities. Either counter
// going negative means a reservation was not tracked correctly; that is
// surfaced as a hard InvariantViolation rather than clamped, so bugs are
// caught instead of hidden.
func consumeStock(tx *gorm.DB, partID, warehouseID uint, qty int) (*StockRecord, error) {
	if qty <= 0 {
		return nil, shared.ErrInvalidInput
	}

	record, err := lockStockRecord(tx, partID, warehouseID)
	if err != nil {
		return nil, err
	}

	if record.QuantityOnHand < qty || record.QuantityReserved < qty {
		logInvariantViolation("consume", partID, warehouseID, qty, record)
		return nil, shared.ErrInvariantViolation
	}

	if err := updateStockCounters(tx, record, record.QuantityOnHand-qty, record.QuantityReserved-qty); err != nil {
		return nil, err
	}
	return record, nil
}

// receiveStock increments on-hand quantity, creating the stock record on first
// receipt for a (part, warehouse) pair. AverageCost is maintained as the
// weighted average of the quantities received.
func receiveStock(tx *gorm.DB, partID, warehouseID uint, qty int, unitCost decimal.Decimal) (*StockRecord, error) {
	if qty <= 0 || unitCost.IsNegative() {
		return nil, shared.ErrInvalidInput
	}

	record, err := lockStockRecord(tx, partID, warehouseID)
	if errors.Is(err, shared.ErrNotFound) {
		record = &StockRecord{
			PartID:         partID,
			WarehouseID:    warehouseID,
			QuantityOnHand: qty,
			AverageCost:    unitCost,
		}
		if createErr := tx.Create(record).Error; createErr != nil {
			// A concurrent first receipt hit the unique index; retry resolves it.
			return nil, shared.ErrConcurrencyConflict
		}
		return record, nil
	}
	if err != nil {
		return nil, err
	}

	newOnHand := record.QuantityOnHand + qty
	newCost := weightedAverageCost(record.AverageCost, record.QuantityOnHand, unitCost, qty)

	result := tx.Model(&StockRecord{}).
		Where("id = ? AND quantity_on_hand = ?", record.ID, record.QuantityOnHand).
		Updates(map[string]interface{}{
			"quantity_on_hand": newOnHand,
			"average_cost":     newCost,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrConcurrencyConflict
	}

	record.QuantityOnHand = newOnHand
	record.AverageCost = newCost
	return record, nil
}

// adjustStock applies a signed manual correction to on-hand quantity. Negative
// adjustments may not dip below the reserved quantity.
func adjustStock(tx *gorm.DB, partID, warehouseID uint, delta int) (*StockRecord, error) {
	if delta == 0 {
		return nil, shared.ErrInvalidInput
	}

	record, err := lockStockRecord(tx, partID, warehouseID)
	if err != nil {
		return nil, err
	}

	newOnHand := record.QuantityOnHand + delta
	if newOnHand < record.QuantityReserved {
		return nil, shared.NewInsufficientStockError(partID, record.QuantityAvailable(), -delta)
	}

	if err := updateStockCounters(tx, record, newOnHand, record.QuantityReserved); err != nil {
		return nil, err
	}
	return record, nil
}

// weightedAverageCost folds a received quantity into the running average cost.
func weightedAverageCost(currentCost decimal.Decimal, currentQty int, unitCost decimal.Decimal, receivedQty int) decimal.Decimal {
	totalQty := currentQty + receivedQty
	if totalQty <= 0 {
		return unitCost
	}
	currentValue := currentCost.Mul(decimal.NewFromInt(int64(currentQty)))
	receivedValue := unitCost.Mul(decimal.NewFromInt(int64(receivedQty)))
	return currentValue.Add(receivedValue).DivRound(decimal.NewFromInt(int64(totalQty)), 4)
}

// logInvariantViolation logs loudly; this is always a programming or data
// corruption signal, never an expected business outcome.
func logInvariantViolation(operation string, partID, warehouseID uint, qty int, record *StockRecord) {
	logrus.WithFields(logrus.Fields{
		"operation":         operation,
		"part_id":           partID,
		"warehouse_id":      warehouseID,
		"quantity":          qty,
		"quantity_on_hand":  record.QuantityOnHand,
		"quantity_reserved": record.QuantityReserved,
	}).Error("Stock ledger invariant violation")
}
