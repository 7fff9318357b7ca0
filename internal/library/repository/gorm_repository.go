package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/pkg/repository"
)

// GormRepository implements the repository interfaces using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// ListCatalog returns every entry with its episodes, oldest first.
func (r *GormRepository) ListCatalog(ctx context.Context) ([]*domain.CatalogEntry, error) {
	var rows []*CatalogEntry
	err := r.db.WithContext(ctx).
		Preload("Episodes", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	entries := make([]*domain.CatalogEntry, len(rows))
	for i, row := range rows {
		entries[i] = entryToDomain(row)
	}
	return entries, nil
}

// GetCatalogEntry retrieves an entry by ID.
func (r *GormRepository) GetCatalogEntry(ctx context.Context, id uuid.UUID) (*domain.CatalogEntry, error) {
	row, err := repository.FindByID[CatalogEntry](ctx, r.db, id, "Episodes")
	if err != nil {
		return nil, err
	}
	return entryToDomain(row), nil
}

// GetCatalogEntryByLocalPath retrieves the entry rooted at path.
func (r *GormRepository) GetCatalogEntryByLocalPath(ctx context.Context, path string) (*domain.CatalogEntry, error) {
	row, err := repository.FindOneBy[CatalogEntry](ctx, r.db, "local_path = ?", filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("catalog_entry_id = ?", row.ID).Order("number").Find(&row.Episodes).Error; err != nil {
		return nil, fmt.Errorf("failed to load episodes: %w", err)
	}
	return entryToDomain(row), nil
}

// CreateCatalogEntry inserts an entry. Its episodes are not written.
func (r *GormRepository) CreateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	row := entryFromDomain(entry)
	if err := repository.Create(ctx, r.db, row); err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	entry.UpdatedAt = row.UpdatedAt
	return nil
}

// UpdateCatalogEntry overwrites the entry row. Its episodes are not written.
func (r *GormRepository) UpdateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	row := entryFromDomain(entry)
	if err := repository.Save(ctx, r.db, row); err != nil {
		return fmt.Errorf("failed to update catalog entry: %w", err)
	}
	entry.UpdatedAt = row.UpdatedAt
	return nil
}

// DeleteCatalogEntry deletes an entry; its episodes go with it.
func (r *GormRepository) DeleteCatalogEntry(ctx context.Context, id uuid.UUID) error {
	return repository.Delete[CatalogEntry](ctx, r.db, id)
}

// CountCatalogEntries returns the number of catalog entries.
func (r *GormRepository) CountCatalogEntries(ctx context.Context) (int64, error) {
	return repository.Count[CatalogEntry](ctx, r.db)
}

// UpsertEpisode inserts an episode or updates the row with the same entry
// and number.
func (r *GormRepository) UpsertEpisode(ctx context.Context, episode *domain.EpisodeRecord) error {
	if err := episode.Validate(); err != nil {
		return fmt.Errorf("episode %d: %w", episode.Number, err)
	}
	row := episodeFromDomain(episode)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "catalog_entry_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "status", "local_path", "file_size", "file_hash", "stream_url",
			"resolution", "video_codec", "audio_codec", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert episode %d: %w", episode.Number, err)
	}
	return nil
}

// ListEpisodesWithLocalPath returns every episode that records a local file.
func (r *GormRepository) ListEpisodesWithLocalPath(ctx context.Context) ([]*domain.EpisodeRecord, error) {
	var rows []*Episode
	if err := r.db.WithContext(ctx).Where("local_path <> ''").Order("local_path").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list local episodes: %w", err)
	}

	episodes := make([]*domain.EpisodeRecord, len(rows))
	for i, row := range rows {
		episodes[i] = episodeToDomain(row)
	}
	return episodes, nil
}

// CreateScanHistory records a run.
func (r *GormRepository) CreateScanHistory(ctx context.Context, scan *domain.ScanRecord) error {
	row := scanFromDomain(scan)
	if err := repository.Create(ctx, r.db, row); err != nil {
		return err
	}
	scan.ID = row.ID
	return nil
}

// ListScanHistory returns the most recent runs first. A limit of zero or
// less returns all of them.
func (r *GormRepository) ListScanHistory(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	rows, err := repository.List[ScanHistory](ctx, r.db, "started_at DESC, id", limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan history: %w", err)
	}

	scans := make([]*domain.ScanRecord, len(rows))
	for i, row := range rows {
		scans[i] = scanToDomain(row)
	}
	return scans, nil
}

// ApplyChanges writes the change set inside a new transaction. It must be
// called on the root repository, not on one returned by BeginTx.
func (r *GormRepository) ApplyChanges(ctx context.Context, changes *domain.ChangeSet) (err error) {
	if changes.Empty() {
		return nil
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, change := range changes.Entries {
		if change.Created {
			err = tx.CreateCatalogEntry(ctx, change.Entry)
		} else {
			err = tx.UpdateCatalogEntry(ctx, change.Entry)
		}
		if err != nil {
			return fmt.Errorf("catalog entry %q: %w", change.Entry.Title, err)
		}
	}
	for _, episode := range changes.Episodes {
		if err = tx.UpsertEpisode(ctx, episode); err != nil {
			return err
		}
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// Transaction support.
func (r *GormRepository) BeginTx(ctx context.Context) (Repository, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &GormRepository{db: tx}, nil
}

func (r *GormRepository) Commit() error {
	return r.db.Commit().Error
}

func (r *GormRepository) Rollback() error {
	return r.db.Rollback().Error
}
