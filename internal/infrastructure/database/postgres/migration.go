// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/workshop-backend/internal/domain/inventory"
	"github.com/your-org/workshop-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// Inventory domain - Base tables
		&inventory.Warehouse{},
		&inventory.StockRecord{},
		&inventory.Reservation{},
		&inventory.MovementEntry{},

		// Order domain - Dependent tables
		&order.SalesOrder{},
		&order.SalesOrderLine{},
		&order.IdempotencyRecord{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Stock lookups during reservation and alert evaluation
		"CREATE INDEX IF NOT EXISTS idx_stock_records_warehouse ON stock_records(warehouse_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_records_minimum ON stock_records(minimum_quantity) WHERE minimum_quantity > 0",

		// Movement ledger audit queries
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_created_at ON stock_movements(created_at DESC)",

		// Order queue-style processing by status
		"CREATE INDEX IF NOT EXISTS idx_sales_orders_status_created ON sales_orders(status, created_at DESC)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData seeds development data
func (m *Migration) SeedInitialData() error {
	log.Println("🔄 Seeding initial data...")

	var count int64
	m.db.Model(&inventory.Warehouse{}).Count(&count)
	if count > 0 {
		log.Println("Warehouses already present, skipping seed")
		return nil
	}

	warehouse := inventory.Warehouse{
		Name:      "Main Workshop Store",
		Code:      "MAIN",
		IsActive:  true,
		IsDefault: true,
	}
	if err := m.db.Create(&warehouse).Error; err != nil {
		return fmt.Errorf("failed to seed default warehouse: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// GetTableInfo logs table row counts in development
func (m *Migration) GetTableInfo() {
	tables := []string{
		"warehouses",
		"stock_records",
		"stock_reservations",
		"stock_movements",
		"sales_orders",
		"sales_order_lines",
		"idempotency_records",
	}

	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			continue
		}
		log.Printf("Table %s: %d rows", table, count)
	}
}
