package infra

import (
	"fmt"

	"opticare/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates or updates all tables. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Branch{},
		&model.Product{},
		&model.BranchStock{},
		&model.Reservation{},
		&model.StockTransfer{},
		&model.StockMovement{},
		&model.RestockOrder{},
		&model.User{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Each statement uses IF NOT EXISTS semantics so re-running on an
// already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Partial index for the restock retry cron query
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_restock_orders_pending_retry') THEN
		    CREATE INDEX idx_restock_orders_pending_retry
		        ON restock_orders (next_retry_at)
		        WHERE status = 'pending' AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,
		// Quantities must never go negative — the services guard this in
		// application code, the check constraint is the backstop.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_branch_stock_nonnegative') THEN
		    ALTER TABLE branch_stock
		      ADD CONSTRAINT chk_branch_stock_nonnegative
		      CHECK (stock_quantity >= 0 AND reserved_quantity >= 0);
		  END IF;
		END $$`,
		// Partial index for the low-stock alert listing
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_branch_stock_below_threshold') THEN
		    CREATE INDEX idx_branch_stock_below_threshold
		        ON branch_stock (branch_id)
		        WHERE status IN ('Low Stock', 'Out of Stock');
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
