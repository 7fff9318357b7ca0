package database

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration records an applied schema version.
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationFunc is a function that performs a migration
type MigrationFunc func(*gorm.DB) error

// MigrationEntry represents a single migration
type MigrationEntry struct {
	Version string
	Name    string
	Up      MigrationFunc
}

// Migrator applies versioned migrations, each in its own transaction.
type Migrator struct {
	db         *gorm.DB
	logger     *zap.Logger
	migrations []MigrationEntry
}

// NewMigrator creates a migrator for the given entries. Entries are applied
// in version order regardless of the order passed in.
func NewMigrator(db *gorm.DB, logger *zap.Logger, migrations ...MigrationEntry) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := append([]MigrationEntry(nil), migrations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, logger: logger.Named("migrate"), migrations: sorted}
}

// Migrate runs all pending migrations and returns how many were applied.
func (m *Migrator) Migrate() (int, error) {
	pending, err := m.GetPendingMigrations()
	if err != nil {
		return 0, err
	}

	for _, migration := range pending {
		m.logger.Info("Running migration", zap.String("version", migration.Version), zap.String("name", migration.Name))

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Migration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("failed to run migration %s: %w", migration.Version, err)
		}
	}

	return len(pending), nil
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (m *Migrator) GetPendingMigrations() ([]MigrationEntry, error) {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var appliedMigrations []Migration
	if err := m.db.Find(&appliedMigrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]bool, len(appliedMigrations))
	for _, migration := range appliedMigrations {
		applied[migration.Version] = true
	}

	var pending []MigrationEntry
	for _, migration := range m.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}
