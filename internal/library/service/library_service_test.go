package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/suite"

	"github.com/Dolverin/Anime-Library/internal/library/constants"
	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/internal/library/service"
	"github.com/Dolverin/Anime-Library/pkg/errors"
	"github.com/Dolverin/Anime-Library/pkg/events"
	"github.com/Dolverin/Anime-Library/pkg/interfaces"
	"github.com/Dolverin/Anime-Library/pkg/logger"
	"github.com/Dolverin/Anime-Library/test/testutil"
)

type LibraryServiceTestSuite struct {
	suite.Suite

	ctx            context.Context
	repo           *repository.GormRepository
	eventBus       *events.InMemoryEventBus
	libraryService *service.LibraryService
	root           string
	lockPath       string

	mu       sync.Mutex
	received []interfaces.Event
}

func (suite *LibraryServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repo = repository.NewGormRepository(testutil.SetupSQLite(suite.T()))
	suite.eventBus = events.NewInMemoryEventBus(logger.NewNoopLogger())
	suite.root = suite.T().TempDir()
	suite.lockPath = filepath.Join(suite.T().TempDir(), "library.lock")
	suite.received = nil

	suite.Require().NoError(suite.eventBus.Subscribe(interfaces.AllEvents, &events.HandlerFunc{
		Name: "recorder",
		Fn: func(ctx context.Context, event interfaces.Event) error {
			suite.mu.Lock()
			defer suite.mu.Unlock()
			suite.received = append(suite.received, event)
			return nil
		},
	}))

	suite.libraryService = service.NewLibraryService(suite.repo, suite.eventBus, logger.NewNoopLogger(), service.Options{
		LockPath: suite.lockPath,
	})
}

func (suite *LibraryServiceTestSuite) TearDownTest() {
	suite.NoError(suite.eventBus.Stop())
}

func (suite *LibraryServiceTestSuite) eventTypes() []string {
	suite.mu.Lock()
	defer suite.mu.Unlock()
	types := make([]string, len(suite.received))
	for i, e := range suite.received {
		types[i] = e.EventType()
	}
	return types
}

func (suite *LibraryServiceTestSuite) TestScanLibrary_Success() {
	testutil.CreateMediaTree(suite.T(), suite.root, "SoloLeveling/Episode_01.mp4", "SoloLeveling/Episode_02.mp4")

	result, err := suite.libraryService.ScanLibrary(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(2, result.FilesFound)
	suite.Equal(1, result.EntriesTouched)
	suite.Equal(2, result.EpisodesUpdated)
	suite.Equal([]string{constants.EventEntryCreated, constants.EventScanCompleted}, suite.eventTypes())

	history, err := suite.libraryService.ScanHistory(suite.ctx, 10)
	suite.Require().NoError(err)
	suite.Require().Len(history, 1)
	suite.Equal(suite.root, history[0].Root)
	suite.Equal(2, history[0].FilesFound)
	suite.Equal(1, history[0].EntriesCreated)
	suite.Equal(2, history[0].EpisodesUpdated)
	suite.Empty(history[0].ErrorMessage)
}

func (suite *LibraryServiceTestSuite) TestScanLibrary_ResolvesRelativeRoot() {
	testutil.CreateMediaTree(suite.T(), suite.root, "Show/Show - 01.mkv")
	wd, err := os.Getwd()
	suite.Require().NoError(err)
	rel, err := filepath.Rel(wd, suite.root)
	if err != nil {
		suite.T().Skip("temp dir is not reachable relative to the working directory")
	}

	result, err := suite.libraryService.ScanLibrary(suite.ctx, rel, true)

	suite.Require().NoError(err)
	suite.Equal(suite.root, result.Root)
}

func (suite *LibraryServiceTestSuite) TestScanLibrary_InvalidRoot() {
	file := filepath.Join(suite.root, "file.mkv")
	suite.Require().NoError(os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		root string
	}{
		{"empty", ""},
		{"missing", filepath.Join(suite.root, "missing")},
		{"not a directory", file},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.libraryService.ScanLibrary(suite.ctx, tt.root, true)

			suite.True(errors.IsBadRequest(err), "got %v", err)
			suite.ErrorIs(err, domain.ErrInvalidPath)
		})
	}
	suite.Empty(suite.eventTypes())
}

func (suite *LibraryServiceTestSuite) TestScanLibrary_ConflictWhileLocked() {
	held := flock.New(suite.lockPath)
	locked, err := held.TryLock()
	suite.Require().NoError(err)
	suite.Require().True(locked)
	defer held.Unlock()

	_, err = suite.libraryService.ScanLibrary(suite.ctx, suite.root, true)

	suite.True(errors.IsConflict(err), "got %v", err)
	suite.ErrorIs(err, domain.ErrScanInProgress)

	_, err = suite.libraryService.PruneMissing(suite.ctx, true)
	suite.True(errors.IsConflict(err), "got %v", err)
}

func (suite *LibraryServiceTestSuite) TestScanLibrary_ReleasesLock() {
	_, err := suite.libraryService.ScanLibrary(suite.ctx, suite.root, true)
	suite.Require().NoError(err)

	held := flock.New(suite.lockPath)
	locked, err := held.TryLock()
	suite.Require().NoError(err)
	suite.True(locked)
	suite.NoError(held.Unlock())
}

func (suite *LibraryServiceTestSuite) TestScanLibraries_ContinuesAfterBadRoot() {
	other := suite.T().TempDir()
	testutil.CreateMediaTree(suite.T(), suite.root, "Anime Movie/Your Name - 01.mkv")
	testutil.CreateMediaTree(suite.T(), other, "Frieren/Frieren - 01.mkv")

	results, err := suite.libraryService.ScanLibraries(suite.ctx,
		[]string{suite.root, filepath.Join(other, "missing"), other}, true)

	suite.True(errors.IsBadRequest(err), "got %v", err)
	suite.Require().Len(results, 2)
	suite.Equal(suite.root, results[0].Root)
	suite.Equal(other, results[1].Root)

	count, err := suite.repo.CountCatalogEntries(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)
}

func (suite *LibraryServiceTestSuite) TestPruneMissing() {
	testutil.CreateMediaTree(suite.T(), suite.root, "Show/Show - 01.mkv", "Show/Show - 02.mkv")
	_, err := suite.libraryService.ScanLibrary(suite.ctx, suite.root, true)
	suite.Require().NoError(err)
	gone := filepath.Join(suite.root, "Show", "Show - 02.mkv")
	suite.Require().NoError(os.Remove(gone))

	dry, err := suite.libraryService.PruneMissing(suite.ctx, true)
	suite.Require().NoError(err)
	suite.Equal(2, dry.Checked)
	suite.Equal([]string{gone}, dry.Missing)
	suite.Zero(dry.Pruned)
	episodes, err := suite.repo.ListEpisodesWithLocalPath(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(episodes, 2)

	result, err := suite.libraryService.PruneMissing(suite.ctx, false)
	suite.Require().NoError(err)
	suite.Equal(1, result.Pruned)
	suite.Contains(suite.eventTypes(), constants.EventEpisodesPruned)

	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal(domain.StatusOwnedLocally, entries[0].Episode(1).Status)
	pruned := entries[0].Episode(2)
	suite.Equal(domain.StatusNotAvailable, pruned.Status)
	suite.Empty(pruned.LocalPath)
}

func (suite *LibraryServiceTestSuite) TestPruneMissing_KeepsOnlineAvailability() {
	entry := testutil.CreateTestEntry("Frieren")
	ep := testutil.CreateOnlineEpisode(entry.ID, 3, "https://example.org/frieren/3")
	ep.Status = domain.StatusOwnedAndAvailableOnline
	ep.LocalPath = filepath.Join(suite.root, "gone.mkv")
	suite.Require().NoError(suite.repo.CreateCatalogEntry(suite.ctx, entry))
	suite.Require().NoError(suite.repo.UpsertEpisode(suite.ctx, ep))

	result, err := suite.libraryService.PruneMissing(suite.ctx, false)

	suite.Require().NoError(err)
	suite.Equal(1, result.Pruned)
	got, err := suite.repo.GetCatalogEntry(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusAvailableOnline, got.Episode(3).Status)
	suite.Equal("https://example.org/frieren/3", got.Episode(3).StreamURL)
}

func (suite *LibraryServiceTestSuite) TestScanHistory_RejectsNegativeLimit() {
	history, err := suite.libraryService.ScanHistory(suite.ctx, -1)

	suite.Nil(history)
	suite.True(errors.IsBadRequest(err))
}

func TestLibraryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LibraryServiceTestSuite))
}
