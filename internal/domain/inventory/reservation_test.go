// internal/domain/inventory/reservation_test.go
package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/workshop-backend/internal/domain/shared"
)

func TestReserveForOrder(t *testing.T) {
	t.Run("creates one reservation per line", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		seedStock(t, svc, 2, 1, 5, 0)

		tx := svc.db.Begin()
		reservations, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
			{OrderLineID: 1, PartID: 1, Quantity: 4},
			{OrderLineID: 2, PartID: 2, Quantity: 5},
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		require.Len(t, reservations, 2)
		assert.Equal(t, ReservationStatusActive, reservations[0].Status)
		assert.Equal(t, 4, reservations[0].RemainingQuantity)
		assert.Equal(t, uint(100), reservations[0].OrderID)

		record := currentStock(t, svc, 1, 1)
		assert.Equal(t, 4, record.QuantityReserved)
		record = currentStock(t, svc, 2, 1)
		assert.Equal(t, 5, record.QuantityReserved)
	})

	t.Run("rollback leaves no partial reservation", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		seedStock(t, svc, 2, 1, 2, 0)

		tx := svc.db.Begin()
		_, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
			{OrderLineID: 1, PartID: 1, Quantity: 4},
			{OrderLineID: 2, PartID: 2, Quantity: 5}, // more than available
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		tx.Rollback()

		// The first line's reservation was rolled back with the transaction
		record := currentStock(t, svc, 1, 1)
		assert.Equal(t, 0, record.QuantityReserved)

		var count int64
		svc.db.Model(&Reservation{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejects empty line set", func(t *testing.T) {
		svc := setupTestService(t)

		tx := svc.db.Begin()
		defer tx.Rollback()
		_, err := svc.ReserveForOrder(tx, 100, 1, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestConsumeReservation(t *testing.T) {
	reserve := func(t *testing.T, svc *Service, partID uint, qty int) Reservation {
		t.Helper()
		tx := svc.db.Begin()
		reservations, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
			{OrderLineID: 1, PartID: partID, Quantity: qty},
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)
		return reservations[0]
	}

	t.Run("partial consumption keeps reservation active", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		reservation := reserve(t, svc, 1, 6)

		tx := svc.db.Begin()
		updated, entry, err := svc.ConsumeReservation(tx, reservation.ID, 2, "key-1")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		assert.Equal(t, ReservationStatusActive, updated.Status)
		assert.Equal(t, 4, updated.RemainingQuantity)

		assert.Equal(t, MovementTypeConsumption, entry.Type)
		assert.Equal(t, -2, entry.Quantity)
		assert.Equal(t, 10, entry.OnHandBefore)
		assert.Equal(t, 8, entry.OnHandAfter)
		assert.Equal(t, 6, entry.ReservedBefore)
		assert.Equal(t, 4, entry.ReservedAfter)
		assert.Equal(t, "order", entry.ReferenceType)
		assert.Equal(t, uint(100), entry.ReferenceID)
		assert.Equal(t, "key-1", entry.IdempotencyKey)

		record := currentStock(t, svc, 1, 1)
		assert.Equal(t, 8, record.QuantityOnHand)
		assert.Equal(t, 4, record.QuantityReserved)
	})

	t.Run("full consumption closes the reservation", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		reservation := reserve(t, svc, 1, 6)

		tx := svc.db.Begin()
		updated, _, err := svc.ConsumeReservation(tx, reservation.ID, 6, "")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		assert.Equal(t, ReservationStatusConsumed, updated.Status)
		assert.Equal(t, 0, updated.RemainingQuantity)
		assert.NotNil(t, updated.ConsumedAt)
	})

	t.Run("consumption beyond remaining is an invariant violation", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		reservation := reserve(t, svc, 1, 3)

		tx := svc.db.Begin()
		defer tx.Rollback()
		_, _, err := svc.ConsumeReservation(tx, reservation.ID, 4, "")
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	})

	t.Run("consuming a released reservation is an invariant violation", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)
		reservation := reserve(t, svc, 1, 3)

		tx := svc.db.Begin()
		_, _, err := svc.ReleaseReservation(tx, reservation.ID, "")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		tx = svc.db.Begin()
		defer tx.Rollback()
		_, _, err = svc.ConsumeReservation(tx, reservation.ID, 1, "")
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	})
}

func TestReleaseReservation(t *testing.T) {
	t.Run("returns remaining quantity to available", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		tx := svc.db.Begin()
		reservations, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
			{OrderLineID: 1, PartID: 1, Quantity: 6},
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		tx = svc.db.Begin()
		released, entry, err := svc.ReleaseReservation(tx, reservations[0].ID, "cancel-key")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		assert.Equal(t, ReservationStatusReleased, released.Status)
		assert.NotNil(t, released.ReleasedAt)

		// On-hand is unchanged; only the reserved counter moved
		require.NotNil(t, entry)
		assert.Equal(t, MovementTypeReleaseNoop, entry.Type)
		assert.Equal(t, 0, entry.Quantity)
		assert.Equal(t, 10, entry.OnHandBefore)
		assert.Equal(t, 10, entry.OnHandAfter)
		assert.Equal(t, 6, entry.ReservedBefore)
		assert.Equal(t, 0, entry.ReservedAfter)

		record := currentStock(t, svc, 1, 1)
		assert.Equal(t, 10, record.QuantityOnHand)
		assert.Equal(t, 0, record.QuantityReserved)
	})

	t.Run("releasing a terminal reservation is a no-op", func(t *testing.T) {
		svc := setupTestService(t)
		seedStock(t, svc, 1, 1, 10, 0)

		tx := svc.db.Begin()
		reservations, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
			{OrderLineID: 1, PartID: 1, Quantity: 6},
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		tx = svc.db.Begin()
		_, _, err = svc.ReleaseReservation(tx, reservations[0].ID, "")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		tx = svc.db.Begin()
		released, entry, err := svc.ReleaseReservation(tx, reservations[0].ID, "")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		assert.Equal(t, ReservationStatusReleased, released.Status)
		assert.Nil(t, entry, "second release must not write a ledger entry")

		var count int64
		svc.db.Model(&MovementEntry{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}

func TestActiveReservationQueries(t *testing.T) {
	svc := setupTestService(t)
	seedStock(t, svc, 1, 1, 10, 0)
	seedStock(t, svc, 2, 1, 10, 0)

	tx := svc.db.Begin()
	reservations, err := svc.ReserveForOrder(tx, 100, 1, []LineReservation{
		{OrderLineID: 1, PartID: 1, Quantity: 2},
		{OrderLineID: 2, PartID: 2, Quantity: 3},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	tx = svc.db.Begin()
	active, err := svc.ActiveReservationsForOrder(tx, 100)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byLine, err := svc.ActiveReservationForLine(tx, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, reservations[1].ID, byLine.ID)

	_, err = svc.ActiveReservationForLine(tx, 100, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	tx.Rollback()
}
