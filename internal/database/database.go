package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jezakh/patanabot/internal/models"
)

// DB wraps gorm.DB
type DB struct {
	*gorm.DB
}

// Connect opens (creating if necessary) the SQLite database at path.
// WAL mode keeps timer goroutines from blocking the message handler on
// concurrent writes.
func Connect(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn from the timer goroutines.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("✅ Database initialized at %s", path)
	return &DB{DB: gormDB}, nil
}

// Migrate synchronizes the schema for all models.
func (db *DB) Migrate() error {
	log.Println("🚀 Synchronizing database schema...")
	err := db.AutoMigrate(
		&models.Customer{},
		&models.Order{},
		&models.MissedOpportunity{},
		&models.PendingPaymentRec{},
		&models.StockCheckRec{},
		&models.EscalationRec{},
		&models.AdminUser{},
	)
	if err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	log.Println("✅ Schema synchronized successfully")
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
