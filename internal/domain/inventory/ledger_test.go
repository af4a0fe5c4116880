// internal/domain/inventory/ledger_test.go
package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/workshop-backend/internal/config"
	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&Warehouse{}, &StockRecord{}, &Reservation{}, &MovementEntry{})
	require.NoError(t, err)

	cfg := &config.Config{}
	return NewService(db, cfg)
}

func seedStock(t *testing.T, svc *Service, partID, warehouseID uint, onHand, reserved int) *StockRecord {
	t.Helper()

	record := &StockRecord{
		PartID:           partID,
		WarehouseID:      warehouseID,
		QuantityOnHand:   onHand,
		QuantityReserved: reserved,
		AverageCost:      decimal.NewFromInt(10),
	}
	require.NoError(t, svc.db.Create(record).Error)
	return record
}

func currentStock(t *testing.T, svc *Service, partID, warehouseID uint) *StockRecord {
	t.Helper()

	record, err := lockStockRecord(svc.db, partID, warehouseID)
	require.NoError(t, err)
	return record
}

func TestReserveStock(t *testing.T) {
	t.Run("reserves available quantity", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		record, err := reserveStock(svc.db, 1, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, 10, record.QuantityOnHand)
		assert.Equal(t, 4, record.QuantityReserved)
		assert.Equal(t, 6, record.QuantityAvailable())
	})

	t.Run("rejects when available is insufficient", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 8)

		_, err := reserveStock(svc.db, 1, 1, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		// Nothing changed
		record := currentStock(t, svc, 1, 1)
		assert.Equal(t, 8, record.QuantityReserved)
	})

	t.Run("counts reserved stock against availability", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		_, err := reserveStock(svc.db, 1, 1, 10)
		require.NoError(t, err)

		// On-hand is untouched but nothing is left to promise
		_, err = reserveStock(svc.db, 1, 1, 1)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		_, err := reserveStock(svc.db, 1, 1, 0)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = reserveStock(svc.db, 1, 1, -2)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown part is not found", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := reserveStock(svc.db, 99, 1, 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestConsumeStock(t *testing.T) {
	t.Run("decrements both counters", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 4)

		record, err := consumeStock(svc.db, 1, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, 6, record.QuantityOnHand)
		assert.Equal(t, 0, record.QuantityReserved)
	})

	t.Run("rejects consumption beyond reserved", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 2)

		_, err := consumeStock(svc.db, 1, 1, 3)
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	})

	t.Run("rejects consumption beyond on-hand", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 2, 5)

		_, err := consumeStock(svc.db, 1, 1, 3)
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	})
}

func TestReleaseReservedStock(t *testing.T) {
	t.Run("returns reserved quantity to available", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 6)

		record, err := releaseReservedStock(svc.db, 1, 1, 6)
		require.NoError(t, err)
		assert.Equal(t, 10, record.QuantityOnHand)
		assert.Equal(t, 0, record.QuantityReserved)
	})

	t.Run("rejects release beyond reserved", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 2)

		_, err := releaseReservedStock(svc.db, 1, 1, 3)
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	})
}

func TestReceiveStock(t *testing.T) {
	t.Run("creates stock record on first receipt", func(t *testing.T) {
		svc := setupTestService(t)

		record, err := receiveStock(svc.db, 1, 1, 20, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.Equal(t, 20, record.QuantityOnHand)
		assert.Equal(t, 0, record.QuantityReserved)
		assert.True(t, record.AverageCost.Equal(decimal.NewFromInt(5)))
	})

	t.Run("maintains weighted average cost", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := receiveStock(svc.db, 1, 1, 10, decimal.NewFromInt(10))
		require.NoError(t, err)

		// 10 units at 10.00 plus 10 units at 20.00 averages to 15.00
		record, err := receiveStock(svc.db, 1, 1, 10, decimal.NewFromInt(20))
		require.NoError(t, err)
		assert.Equal(t, 20, record.QuantityOnHand)
		assert.True(t, record.AverageCost.Equal(decimal.NewFromInt(15)),
			"average cost was %s", record.AverageCost)
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := receiveStock(svc.db, 1, 1, 5, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAdjustStock(t *testing.T) {
	t.Run("applies signed correction", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		record, err := adjustStock(svc.db, 1, 1, -3)
		require.NoError(t, err)
		assert.Equal(t, 7, record.QuantityOnHand)

		record, err = adjustStock(svc.db, 1, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, 12, record.QuantityOnHand)
	})

	t.Run("rejects adjustment below reserved", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 8)

		_, err := adjustStock(svc.db, 1, 1, -3)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("rejects zero delta", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		_, err := adjustStock(svc.db, 1, 1, 0)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestUpdateStockCountersConflict(t *testing.T) {
	svc := setupTestService(t)
	seedStock(t, svc, 1, 1, 10, 0)

	stale := currentStock(t, svc, 1, 1)

	// Another writer moves the row after our read
	_, err := reserveStock(svc.db, 1, 1, 2)
	require.NoError(t, err)

	err = updateStockCounters(svc.db, stale, 10, 5)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The concurrent writer's state stands
	record := currentStock(t, svc, 1, 1)
	assert.Equal(t, 2, record.QuantityReserved)
}

func TestServiceReceiveStock(t *testing.T) {
	svc := setupTestService(t)

	record, entry, err := svc.ReceiveStock(&ReceiveStockRequest{
		PartID:      1,
		WarehouseID: 1,
		Quantity:    15,
		UnitCost:    decimal.NewFromInt(8),
		ReferenceID: 42,
		Notes:       "initial stocking",
		CreatedBy:   9,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, record.QuantityOnHand)

	require.NotNil(t, entry)
	assert.Equal(t, MovementTypeReceipt, entry.Type)
	assert.Equal(t, 15, entry.Quantity)
	assert.Equal(t, 0, entry.OnHandBefore)
	assert.Equal(t, 15, entry.OnHandAfter)
	assert.Equal(t, "replenishment", entry.ReferenceType)
	assert.Equal(t, uint(42), entry.ReferenceID)
	assert.Equal(t, uint(9), entry.CreatedBy)
}

func TestServiceAdjustStock(t *testing.T) {
	svc := setupTestService(t)
	seedStock(t, svc, 1, 1, 10, 0)

	record, entry, err := svc.AdjustStock(&AdjustStockRequest{
		PartID:      1,
		WarehouseID: 1,
		Delta:       -2,
		Notes:       "damaged during count",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, record.QuantityOnHand)

	require.NotNil(t, entry)
	assert.Equal(t, MovementTypeAdjustment, entry.Type)
	assert.Equal(t, -2, entry.Quantity)
	assert.Equal(t, 10, entry.OnHandBefore)
	assert.Equal(t, 8, entry.OnHandAfter)
}

func TestSetMinimumQuantity(t *testing.T) {
	svc := setupTestService(t)
	seedStock(t, svc, 1, 1, 10, 0)

	record, err := svc.SetMinimumQuantity(1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, record.MinimumQuantity)

	_, err = svc.SetMinimumQuantity(1, 1, -1)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.SetMinimumQuantity(99, 1, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetAvailable(t *testing.T) {
	svc := setupTestService(t)
	seedStock(t, svc, 1, 1, 10, 3)
	seedStock(t, svc, 1, 2, 5, 0)

	available, err := svc.GetAvailable(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, available)

	_, err = svc.GetAvailable(2, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	total, err := svc.GetAvailableAcrossWarehouses(1)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
}
