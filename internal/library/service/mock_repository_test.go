package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
)

// MockLibraryRepository is a mock for library repository
type MockLibraryRepository struct {
	mock.Mock
}

func (m *MockLibraryRepository) ListCatalog(ctx context.Context) ([]*domain.CatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CatalogEntry), args.Error(1)
}

func (m *MockLibraryRepository) GetCatalogEntry(ctx context.Context, id uuid.UUID) (*domain.CatalogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogEntry), args.Error(1)
}

func (m *MockLibraryRepository) GetCatalogEntryByLocalPath(ctx context.Context, path string) (*domain.CatalogEntry, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogEntry), args.Error(1)
}

func (m *MockLibraryRepository) CreateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLibraryRepository) UpdateCatalogEntry(ctx context.Context, entry *domain.CatalogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLibraryRepository) DeleteCatalogEntry(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLibraryRepository) CountCatalogEntries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLibraryRepository) UpsertEpisode(ctx context.Context, episode *domain.EpisodeRecord) error {
	args := m.Called(ctx, episode)
	return args.Error(0)
}

func (m *MockLibraryRepository) ListEpisodesWithLocalPath(ctx context.Context) ([]*domain.EpisodeRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EpisodeRecord), args.Error(1)
}

func (m *MockLibraryRepository) CreateScanHistory(ctx context.Context, scan *domain.ScanRecord) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockLibraryRepository) ListScanHistory(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScanRecord), args.Error(1)
}

func (m *MockLibraryRepository) ApplyChanges(ctx context.Context, changes *domain.ChangeSet) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *MockLibraryRepository) BeginTx(ctx context.Context) (repository.Repository, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Repository), args.Error(1)
}

func (m *MockLibraryRepository) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockLibraryRepository) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
