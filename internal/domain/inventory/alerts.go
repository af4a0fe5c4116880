// internal/domain/inventory/alerts.go
package inventory

import "fmt"

// Stock alert evaluator. Read-only consumer of the stock ledger; it never
// writes any entity in this package. Consumed by the external reporting
// collaborator.

// AlertLevel classifies available quantity against the configured minimum
type AlertLevel string

const (
	AlertLevelOK          AlertLevel = "ok"          // at or above minimum
	AlertLevelAdvertencia AlertLevel = "advertencia" // 50-99% of minimum
	AlertLevelUrgente     AlertLevel = "urgente"     // below 50% of minimum
	AlertLevelCritico     AlertLevel = "critico"     // nothing available
)

// StockAlert is the evaluation result for one stock record
type StockAlert struct {
	PartID            uint       `json:"part_id"`
	WarehouseID       uint       `json:"warehouse_id"`
	QuantityAvailable int        `json:"quantity_available"`
	MinimumQuantity   int        `json:"minimum_quantity"`
	Level             AlertLevel `json:"level"`
}

// ClassifyStockLevel maps an available quantity to an alert level. Records
// with no configured minimum are always ok.
func ClassifyStockLevel(available, minimum int) AlertLevel {
	if minimum <= 0 {
		return AlertLevelOK
	}
	switch {
	case available <= 0:
		return AlertLevelCritico
	case available >= minimum:
		return AlertLevelOK
	case available*2 >= minimum:
		return AlertLevelAdvertencia
	default:
		return AlertLevelUrgente
	}
}

// EvaluateStockAlerts classifies every stock record with a configured minimum.
// A nil warehouseID evaluates all warehouses.
func (s *Service) EvaluateStockAlerts(warehouseID *uint) ([]StockAlert, error) {
	query := s.db.Model(&StockRecord{}).Where("minimum_quantity > 0")
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var records []StockRecord
	if err := query.Order("part_id ASC, warehouse_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to evaluate stock alerts: %w", err)
	}

	alerts := make([]StockAlert, 0, len(records))
	for _, record := range records {
		available := record.QuantityAvailable()
		alerts = append(alerts, StockAlert{
			PartID:            record.PartID,
			WarehouseID:       record.WarehouseID,
			QuantityAvailable: available,
			MinimumQuantity:   record.MinimumQuantity,
			Level:             ClassifyStockLevel(available, record.MinimumQuantity),
		})
	}
	return alerts, nil
}
