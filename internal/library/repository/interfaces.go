package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
)

// CatalogRepository defines the interface for catalog data access.
type CatalogRepository interface {
	ListCatalog(ctx context.Context) ([]*domain.CatalogEntry, error)
	GetCatalogEntry(ctx context.Context, id uuid.UUID) (*domain.CatalogEntry, error)
	GetCatalogEntryByLocalPath(ctx context.Context, path string) (*domain.CatalogEntry, error)
	CreateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error
	UpdateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error
	DeleteCatalogEntry(ctx context.Context, id uuid.UUID) error
	CountCatalogEntries(ctx context.Context) (int64, error)
}

// EpisodeRepository defines the interface for episode data access.
type EpisodeRepository interface {
	UpsertEpisode(ctx context.Context, episode *domain.EpisodeRecord) error
	ListEpisodesWithLocalPath(ctx context.Context) ([]*domain.EpisodeRecord, error)
}

// ScanRepository defines the interface for scan history data access.
type ScanRepository interface {
	CreateScanHistory(ctx context.Context, scan *domain.ScanRecord) error
	ListScanHistory(ctx context.Context, limit int) ([]*domain.ScanRecord, error)
}

// Repository aggregates all repository interfaces.
type Repository interface {
	CatalogRepository
	EpisodeRepository
	ScanRepository

	// ApplyChanges writes a whole change set in one transaction. Nothing is
	// stored when any write fails.
	ApplyChanges(ctx context.Context, changes *domain.ChangeSet) error

	// Transaction support
	BeginTx(ctx context.Context) (Repository, error)
	Commit() error
	Rollback() error
}
