package testutil

import (
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/pkg/database"
)

// SetupSQLite opens a private in-memory catalog store with the schema
// applied. The connection is closed when the test ends.
func SetupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&database.Config{Driver: "sqlite", Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(db); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	if _, err := database.NewMigrator(db, zap.NewNop(), repository.Migrations()...).Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// TruncateTables deletes every row of the given tables.
func TruncateTables(t *testing.T, db *gorm.DB, tableNames ...string) {
	t.Helper()
	for _, table := range tableNames {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}
