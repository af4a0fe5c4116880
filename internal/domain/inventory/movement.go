// internal/domain/inventory/movement.go
package inventory

import (
	"fmt"

	"gorm.io/gorm"
)

// Movement ledger write path. Entries are appended in the same transaction as
// the StockRecord mutation they document; either both commit or both roll back.

// movementDelta captures the counter change a ledger mutation produced, for
// building the audit row without re-reading the stock record.
type movementDelta struct {
	onHandDelta   int
	reservedDelta int
}

// movementRef identifies what caused a ledger entry: the external reference,
// the retry token for order-driven entries, and the acting user for manual ones.
type movementRef struct {
	refType        string
	refID          uint
	idempotencyKey string
	notes          string
	createdBy      uint
}

// appendMovement writes one immutable ledger entry describing the transition
// the updated stock record just went through.
func appendMovement(tx *gorm.DB, movementType MovementType, record *StockRecord, delta movementDelta, ref movementRef) (*MovementEntry, error) {
	entry := &MovementEntry{
		PartID:         record.PartID,
		WarehouseID:    record.WarehouseID,
		Type:           movementType,
		Quantity:       delta.onHandDelta,
		OnHandBefore:   record.QuantityOnHand - delta.onHandDelta,
		OnHandAfter:    record.QuantityOnHand,
		ReservedBefore: record.QuantityReserved - delta.reservedDelta,
		ReservedAfter:  record.QuantityReserved,
		ReferenceType:  ref.refType,
		ReferenceID:    ref.refID,
		IdempotencyKey: ref.idempotencyKey,
		Notes:          ref.notes,
		CreatedBy:      ref.createdBy,
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to append movement entry: %w", err)
	}
	return entry, nil
}

// GetMovementsByReference returns the ledger entries recorded for an external
// reference, oldest first. Read path for audit and reconciliation.
func (s *Service) GetMovementsByReference(refType string, refID uint) ([]MovementEntry, error) {
	var entries []MovementEntry
	if err := s.db.Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return entries, nil
}

// GetMovementsForPart returns the ledger entries for a (part, warehouse) pair,
// oldest first.
func (s *Service) GetMovementsForPart(partID, warehouseID uint) ([]MovementEntry, error) {
	var entries []MovementEntry
	if err := s.db.Where("part_id = ? AND warehouse_id = ?", partID, warehouseID).
		Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return entries, nil
}
