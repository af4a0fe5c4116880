// internal/domain/order/idempotency.go
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/workshop-backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Idempotency replay support. The database record written inside the
// operation's transaction is the source of truth; Redis only shortcuts the
// lookup for hot retries and is safe to lose. A client that timed out can
// retry with the same key and is guaranteed at-most-once side effects.

func idempotencyCacheKey(orderID uint, operation, key string) string {
	return fmt.Sprintf("idempotency:%d:%s:%s", orderID, operation, key)
}

// lookupIdempotencyRecord returns the stored result of a previous execution,
// if any. Runs inside the operation's transaction so a concurrent first
// execution is observed consistently.
func (s *Service) lookupIdempotencyRecord(tx *gorm.DB, orderID uint, operation, key string) (*FulfillmentResult, bool, error) {
	var record IdempotencyRecord
	err := tx.Where("order_id = ? AND operation = ? AND idempotency_key = ?", orderID, operation, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var result FulfillmentResult
	if err := json.Unmarshal([]byte(record.Result), &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &result, true, nil
}

// storeIdempotencyRecord persists the operation result in the same transaction
// as its side effects. The unique index turns a duplicate concurrent first
// execution into a conflict the retry loop resolves via the replay path; any
// other failure is not retryable and propagates as-is.
func (s *Service) storeIdempotencyRecord(tx *gorm.DB, orderID uint, operation, key string, result *FulfillmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	record := IdempotencyRecord{
		OrderID:   orderID,
		Operation: operation,
		Key:       key,
		Result:    string(payload),
	}
	if err := tx.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// getCachedResult checks the Redis fast path. Any Redis problem is treated as
// a miss; the database record decides.
func (s *Service) getCachedResult(orderID uint, operation, key string) *FulfillmentResult {
	if s.redisClient == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := s.redisClient.Get(ctx, idempotencyCacheKey(orderID, operation, key)).Bytes()
	if err != nil {
		return nil
	}

	var result FulfillmentResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil
	}
	return &result
}

// cacheResult stores a committed result in Redis, best effort.
func (s *Service) cacheResult(orderID uint, operation, key string, result *FulfillmentResult) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.redisClient.Set(ctx, idempotencyCacheKey(orderID, operation, key), payload, s.config.Fulfillment.IdempotencyCacheTTL)
}
