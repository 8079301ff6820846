// internal/database/connection.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"dsn":      cfg.RedactedDSN(),
		"max_open": cfg.MaxOpenConns,
		"max_idle": cfg.MaxIdleConns,
	}).Info("Database connection established")
	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// Pinger adapts a gorm handle for the health endpoint.
type Pinger struct {
	db *gorm.DB
}

func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations")

	// gen_random_uuid() on PostgreSQL < 13
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.CardCatalogEntry{},
		&models.CollectionEntry{},
		&models.WishlistEntry{},
		&models.Match{},
		&models.MatchCardLine{},
		&models.Notification{},
		&models.InventoryEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Locations
		"CREATE INDEX IF NOT EXISTS idx_locations_active ON locations(user_id) WHERE is_active",

		// Catalog name search
		"CREATE INDEX IF NOT EXISTS idx_card_catalog_name_lower ON card_catalog(lower(name))",

		// Inventory
		"CREATE INDEX IF NOT EXISTS idx_collection_entries_user_printing ON collection_entries(user_id, printing_id)",
		"CREATE INDEX IF NOT EXISTS idx_wishlist_entries_user_oracle ON wishlist_entries(user_id, oracle_id)",

		// Matches
		"CREATE INDEX IF NOT EXISTS idx_matches_user_a_status ON matches(user_a_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_matches_user_b_status ON matches(user_b_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_matches_escrow ON matches(status) WHERE status = 'confirmed'",
		"CREATE INDEX IF NOT EXISTS idx_match_card_lines_collection ON match_card_lines(collection_entry_id)",

		// Notifications and outbox
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_events_due ON inventory_events(status, process_after)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedCatalog upserts catalog rows from a JSON file. Existing printings are
// refreshed so price updates flow in on restart.
func SeedCatalog(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog seed: %w", err)
	}

	var cards []models.CardCatalogEntry
	if err := json.Unmarshal(data, &cards); err != nil {
		return 0, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	if len(cards) == 0 {
		return 0, nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "printing_id"}},
		UpdateAll: true,
	}).CreateInBatches(cards, 500).Error
	if err != nil {
		return 0, fmt.Errorf("failed to seed catalog: %w", err)
	}

	logrus.WithField("cards", len(cards)).Info("Card catalog seeded")
	return len(cards), nil
}
