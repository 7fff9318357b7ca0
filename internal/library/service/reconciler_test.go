package service_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/internal/library/service"
	"github.com/Dolverin/Anime-Library/pkg/errors"
	"github.com/Dolverin/Anime-Library/pkg/logger"
	"github.com/Dolverin/Anime-Library/test/testutil"
)

type ReconcilerTestSuite struct {
	suite.Suite

	ctx        context.Context
	repo       *repository.GormRepository
	reconciler *service.Reconciler
	root       string
}

func (suite *ReconcilerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repo = repository.NewGormRepository(testutil.SetupSQLite(suite.T()))
	suite.reconciler = service.NewReconciler(suite.repo, logger.NewNoopLogger())
	suite.root = suite.T().TempDir()
}

func (suite *ReconcilerTestSuite) files(relPaths ...string) {
	testutil.CreateMediaTree(suite.T(), suite.root, relPaths...)
}

func (suite *ReconcilerTestSuite) seed(entry *domain.CatalogEntry, episodes ...*domain.EpisodeRecord) {
	suite.Require().NoError(suite.repo.CreateCatalogEntry(suite.ctx, entry))
	for _, ep := range episodes {
		suite.Require().NoError(suite.repo.UpsertEpisode(suite.ctx, ep))
	}
}

func soloLevelingSeason() []string {
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = fmt.Sprintf("SoloLeveling/Episode_%02d.mp4", i+1)
	}
	return paths
}

// Scenario A: a new series folder creates one entry with every episode owned.
func (suite *ReconcilerTestSuite) TestScanAndUpdate_CreatesMissingEntry() {
	suite.files(soloLevelingSeason()...)

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(12, result.FilesFound)
	suite.Equal(1, result.EntriesCreated)
	suite.Equal(1, result.EntriesTouched)
	suite.Equal(12, result.EpisodesUpdated)
	suite.Empty(result.Unmatched)
	suite.Require().Len(result.Created, 1)

	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	entry := entries[0]
	suite.Equal("SoloLeveling", entry.Title)
	suite.Equal(domain.OriginLocal, entry.Origin)
	suite.Equal(filepath.Join(suite.root, "SoloLeveling"), entry.LocalPath)
	suite.NotNil(entry.LastScanAt)
	suite.Require().Len(entry.Episodes, 12)
	for i, ep := range entry.Episodes {
		suite.Equal(i+1, ep.Number)
		suite.Equal(domain.StatusOwnedLocally, ep.Status)
		suite.Equal(filepath.Join(suite.root, "SoloLeveling", fmt.Sprintf("Episode_%02d.mp4", i+1)), ep.LocalPath)
	}
}

// Scenario B: a local file upgrades an online-only episode.
func (suite *ReconcilerTestSuite) TestScanAndUpdate_UpgradesOnlineEpisode() {
	entry := testutil.CreateTestEntry("Solo Leveling")
	online := testutil.CreateOnlineEpisode(entry.ID, 5, "https://example.org/solo/5")
	suite.seed(entry, online, testutil.CreateTestEpisode(entry.ID, 6))
	suite.files("Solo Leveling/Solo Leveling - 05.mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, false)

	suite.Require().NoError(err)
	suite.Equal(1, result.FilesFound)
	suite.Equal(1, result.EntriesTouched)
	suite.Equal(0, result.EntriesCreated)
	suite.Equal(1, result.EpisodesUpdated)

	got, err := suite.repo.GetCatalogEntry(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OriginBoth, got.Origin)
	suite.NotNil(got.LastScanAt)
	ep := got.Episode(5)
	suite.Require().NotNil(ep)
	suite.Equal(online.ID, ep.ID)
	suite.Equal(domain.StatusOwnedAndAvailableOnline, ep.Status)
	suite.Equal(filepath.Join(suite.root, "Solo Leveling", "Solo Leveling - 05.mkv"), ep.LocalPath)
	suite.Equal("https://example.org/solo/5", ep.StreamURL)
	suite.Equal(domain.StatusNotAvailable, got.Episode(6).Status)
}

// Scenario C: an opaque file in the scan root is reported, the rest proceeds.
func (suite *ReconcilerTestSuite) TestScanAndUpdate_ReportsUnparsableFile() {
	entry := testutil.CreateTestEntry("Solo Leveling")
	suite.seed(entry)
	suite.files("e3b0c44298fc1c149afbf4c8996fb924.mkv", "Solo Leveling/Solo Leveling - 05.mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(2, result.FilesFound)
	suite.Equal(1, result.EpisodesUpdated)
	suite.Equal(0, result.EntriesCreated)
	suite.Require().Len(result.Unmatched, 1)
	suite.Equal(domain.ReasonParse, result.Unmatched[0].Reason)
	suite.Equal([]string{filepath.Join(suite.root, "e3b0c44298fc1c149afbf4c8996fb924.mkv")}, result.UnmatchedPaths())
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_ReportsUnknownTitle() {
	suite.seed(testutil.CreateTestEntry("Solo Leveling"))
	suite.files("Sol Leveling/Episode 01.mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, false)

	suite.Require().NoError(err)
	suite.Equal(0, result.EpisodesUpdated)
	suite.Equal(0, result.EntriesTouched)
	suite.Require().Len(result.Unmatched, 1)
	miss := result.Unmatched[0]
	suite.Equal(domain.ReasonMatch, miss.Reason)
	suite.Equal("Sol Leveling", miss.Title)
	suite.Equal("Solo Leveling", miss.Suggestion)

	count, err := suite.repo.CountCatalogEntries(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_SecondRunIsIdempotent() {
	suite.files(soloLevelingSeason()...)
	first, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)
	suite.Require().NoError(err)

	second, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(first.FilesFound, second.FilesFound)
	suite.Equal(first.EntriesTouched, second.EntriesTouched)
	suite.Equal(0, second.EntriesCreated)
	suite.Equal(0, second.EpisodesUpdated)
	suite.Empty(second.Created)

	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Len(entries[0].Episodes, 12)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_GroupsRunCreatedEntries() {
	suite.files(
		"Frieren/Season 1/Frieren - 01.mkv",
		"Frieren/Season 2/Frieren - 29.mkv",
		"Dandadan - 03.mkv",
		"Dandadan - 04.mkv",
	)

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(2, result.EntriesCreated)
	suite.Equal(4, result.EpisodesUpdated)

	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 2)
	byTitle := map[string]*domain.CatalogEntry{}
	for _, e := range entries {
		byTitle[e.Title] = e
	}
	suite.Require().Contains(byTitle, "Frieren")
	suite.Require().Contains(byTitle, "Dandadan")
	suite.Equal(filepath.Join(suite.root, "Frieren"), byTitle["Frieren"].LocalPath)
	suite.Empty(byTitle["Dandadan"].LocalPath)
	suite.Len(byTitle["Frieren"].Episodes, 2)
	suite.Len(byTitle["Dandadan"].Episodes, 2)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_SameEpisodeTwiceCountsOnce() {
	suite.files("Show/Season 2/Show - 01.mkv", "Show/Show - 01.mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(1, result.EpisodesUpdated)
	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Require().Len(entries[0].Episodes, 1)
	suite.Equal(filepath.Join(suite.root, "Show", "Season 2", "Show - 01.mkv"), entries[0].Episodes[0].LocalPath)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_DuplicateCopiesSettle() {
	suite.files("Show/Show - 01 [720p].mkv", "Show/Show - 01 [1080p].mkv")

	first, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)
	suite.Require().NoError(err)
	second, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)
	suite.Require().NoError(err)
	third, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)
	suite.Require().NoError(err)

	suite.Equal(1, first.EpisodesUpdated)
	suite.Equal(0, second.EpisodesUpdated)
	suite.Equal(0, third.EpisodesUpdated)
	suite.Equal(0, second.EntriesCreated)

	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Require().Len(entries[0].Episodes, 1)
	suite.Equal(filepath.Join(suite.root, "Show", "Show - 01 [1080p].mkv"), entries[0].Episodes[0].LocalPath)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_KeepsRecordedCopy() {
	entry := testutil.CreateTestEntry("Show")
	recorded := filepath.Join(suite.root, "Show", "Show - 01 [720p].mkv")
	ep := testutil.CreateTestEpisode(entry.ID, 1)
	ep.Status = domain.StatusOwnedLocally
	ep.LocalPath = recorded
	suite.seed(entry, ep)
	suite.files("Show/Show - 01 [720p].mkv", "Show/Show - 01 [1080p].mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, false)

	suite.Require().NoError(err)
	suite.Equal(0, result.EpisodesUpdated)
	suite.Empty(result.Unmatched)
	got, err := suite.repo.GetCatalogEntry(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(got.Episode(1))
	suite.Equal(recorded, got.Episode(1).LocalPath)
	suite.Equal(ep.ID, got.Episode(1).ID)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_MatchesBySynonym() {
	entry := testutil.CreateTestEntry("Frieren: Beyond Journey's End", "Sousou no Frieren")
	suite.seed(entry)
	suite.files("Sousou no Frieren/[SubsPlease] Sousou no Frieren - 07 (1080p) [HEVC].mkv")

	result, err := suite.reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(0, result.EntriesCreated)
	got, err := suite.repo.GetCatalogEntry(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	ep := got.Episode(7)
	suite.Require().NotNil(ep)
	suite.Equal("1080p", ep.Tags.Resolution)
	suite.Equal("HEVC", ep.Tags.Codec)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_HashesFiles() {
	reconciler := service.NewReconciler(suite.repo, logger.NewNoopLogger(), service.WithFileHashing(true))
	suite.files("Show/Show - 01.mkv")

	_, err := reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Require().Len(entries[0].Episodes, 1)
	suite.Len(entries[0].Episodes[0].FileHash, 64)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_UsesClock() {
	at := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	reconciler := service.NewReconciler(suite.repo, logger.NewNoopLogger(),
		service.WithClock(func() time.Time { return at }))
	suite.files("Show/Show - 01.mkv")

	result, err := reconciler.ScanAndUpdate(suite.ctx, suite.root, true)

	suite.Require().NoError(err)
	suite.Equal(at, result.StartedAt)
	suite.Zero(result.Duration)
	entries, err := suite.repo.ListCatalog(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().NotNil(entries[0].LastScanAt)
	suite.True(at.Equal(*entries[0].LastScanAt))
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_CancelledRunPersistsNothing() {
	suite.files(soloLevelingSeason()...)
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.reconciler.ScanAndUpdate(ctx, suite.root, true)

	suite.ErrorIs(err, context.Canceled)
	count, err := suite.repo.CountCatalogEntries(suite.ctx)
	suite.Require().NoError(err)
	suite.Zero(count)
}

func (suite *ReconcilerTestSuite) TestScanAndUpdate_MissingRoot() {
	_, err := suite.reconciler.ScanAndUpdate(suite.ctx, filepath.Join(suite.root, "missing"), true)

	suite.Error(err)
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func TestScanAndUpdate_PersistenceFailureRollsBack(t *testing.T) {
	root := testutil.CreateMediaTree(t, t.TempDir(), soloLevelingSeason()...)
	repo := new(MockLibraryRepository)
	cause := stderrors.New("database is locked")
	repo.On("ListCatalog", mock.Anything).Return([]*domain.CatalogEntry{}, nil)
	repo.On("ApplyChanges", mock.Anything, mock.AnythingOfType("*domain.ChangeSet")).Return(cause)

	result, err := service.NewReconciler(repo, logger.NewNoopLogger()).ScanAndUpdate(context.Background(), root, true)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsPersistence(err))
	assert.ErrorIs(t, err, cause)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.LostEntries)
	assert.Equal(t, 12, perr.LostEpisodes)
	repo.AssertExpectations(t)
}
