package service

import (
	"context"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
)

// LibraryServiceInterface defines the interface for library service operations.
type LibraryServiceInterface interface {
	// Scan operations
	ScanLibrary(ctx context.Context, root string, createMissing bool) (*domain.ScanResult, error)
	ScanLibraries(ctx context.Context, roots []string, createMissing bool) ([]*domain.ScanResult, error)
	ScanHistory(ctx context.Context, limit int) ([]*domain.ScanRecord, error)

	// Maintenance
	PruneMissing(ctx context.Context, dryRun bool) (*domain.PruneResult, error)
}

// Ensure LibraryService implements the interface.
var _ LibraryServiceInterface = (*LibraryService)(nil)
