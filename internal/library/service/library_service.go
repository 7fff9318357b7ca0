package service

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/pkg/errors"
	"github.com/Dolverin/Anime-Library/pkg/interfaces"
)

// Options configures a LibraryService.
type Options struct {
	// LockPath is the advisory lock file that serialises runs against one
	// catalog store.
	LockPath        string
	Extensions      []string
	GenericDirNames []string
	HashFiles       bool
}

// LibraryService owns the catalog store for reconciliation runs: it
// validates input, holds the run lock, keeps scan history and publishes
// events.
type LibraryService struct {
	repo       repository.Repository
	eventBus   interfaces.EventBus
	logger     interfaces.Logger
	reconciler *Reconciler
	lockPath   string
	now        func() time.Time
}

// NewLibraryService creates a new library service
func NewLibraryService(
	repo repository.Repository,
	eventBus interfaces.EventBus,
	logger interfaces.Logger,
	opts Options,
) *LibraryService {
	return &LibraryService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		reconciler: NewReconciler(repo, logger,
			WithScanner(domain.NewScanner(logger, opts.Extensions...)),
			WithParser(domain.NewParser(opts.GenericDirNames...)),
			WithFileHashing(opts.HashFiles),
		),
		lockPath: opts.LockPath,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScanLibrary reconciles one library root with the catalog.
func (s *LibraryService) ScanLibrary(ctx context.Context, root string, createMissing bool) (*domain.ScanResult, error) {
	root, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := s.now()
	result, err := s.reconciler.ScanAndUpdate(ctx, root, createMissing)
	s.recordHistory(ctx, root, started, result, err)
	if err != nil {
		s.publish(ctx, domain.NewScanFailedEvent(root, err))
		return nil, err
	}

	for _, entry := range result.Created {
		s.publish(ctx, domain.NewCatalogEntryCreatedEvent(entry))
	}
	s.publish(ctx, domain.NewScanCompletedEvent(result))
	return result, nil
}

// ScanLibraries runs ScanLibrary for each root in turn. A failing root does
// not stop the others; the first error is returned with the results of the
// roots that succeeded.
func (s *LibraryService) ScanLibraries(ctx context.Context, roots []string, createMissing bool) ([]*domain.ScanResult, error) {
	var (
		results  []*domain.ScanResult
		firstErr error
	)
	for _, root := range roots {
		result, err := s.ScanLibrary(ctx, root, createMissing)
		if err != nil {
			s.logger.Error("Library scan failed", interfaces.String("root", root), interfaces.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			if errors.IsConflict(err) || ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, result)
	}
	return results, firstErr
}

// PruneMissing retracts local ownership from every episode whose recorded
// file no longer exists. With dryRun nothing is written.
func (s *LibraryService) PruneMissing(ctx context.Context, dryRun bool) (*domain.PruneResult, error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	episodes, err := s.repo.ListEpisodesWithLocalPath(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.PruneResult{Checked: len(episodes), DryRun: dryRun}
	now := s.now()
	changes := &domain.ChangeSet{}
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(ep.LocalPath); err != nil {
			if !stderrors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("Cannot verify local file", interfaces.String("path", ep.LocalPath), interfaces.Error(err))
				continue
			}
			result.Missing = append(result.Missing, ep.LocalPath)
			if tr := domain.ApplyLocalRemoval(ep, now); tr.Changed {
				changes.Episodes = append(changes.Episodes, tr.Record)
			}
		}
	}

	if dryRun || changes.Empty() {
		s.logger.Info("Prune finished",
			interfaces.Int("checked", result.Checked),
			interfaces.Int("missing", len(result.Missing)),
			interfaces.Bool("dry_run", dryRun))
		return result, nil
	}

	if err := s.repo.ApplyChanges(ctx, changes); err != nil {
		return nil, errors.Persistence("failed to persist pruned episodes", &domain.PersistenceError{
			LostEpisodes: len(changes.Episodes),
			Err:          err,
		})
	}
	result.Pruned = len(changes.Episodes)

	s.logger.Info("Prune finished",
		interfaces.Int("checked", result.Checked),
		interfaces.Int("pruned", result.Pruned))
	s.publish(ctx, domain.NewEpisodesPrunedEvent(result.Missing))
	return result, nil
}

// ScanHistory returns the most recent runs first. A zero limit returns
// every run.
func (s *LibraryService) ScanHistory(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit < 0 {
		return nil, errors.BadRequestf("invalid history limit %d", limit)
	}
	return s.repo.ListScanHistory(ctx, limit)
}

// acquire takes the run lock without waiting.
func (s *LibraryService) acquire() (func(), error) {
	if s.lockPath == "" {
		return func() {}, nil
	}

	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInternal, "failed to acquire run lock", err)
	}
	if !locked {
		return nil, errors.Wrap(errors.ErrorTypeConflict, "another run holds "+s.lockPath, domain.ErrScanInProgress)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release run lock", interfaces.String("path", s.lockPath), interfaces.Error(err))
		}
	}, nil
}

func (s *LibraryService) recordHistory(ctx context.Context, root string, started time.Time, result *domain.ScanResult, runErr error) {
	rec := &domain.ScanRecord{
		Root:        root,
		StartedAt:   started,
		CompletedAt: s.now(),
	}
	if result != nil {
		rec.FilesFound = result.FilesFound
		rec.EntriesTouched = result.EntriesTouched
		rec.EntriesCreated = result.EntriesCreated
		rec.EpisodesUpdated = result.EpisodesUpdated
		rec.Unmatched = len(result.Unmatched)
	}
	if runErr != nil {
		rec.ErrorMessage = runErr.Error()
	}

	// A cancelled run still gets its history row.
	if err := s.repo.CreateScanHistory(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("Failed to record scan history", interfaces.String("root", root), interfaces.Error(err))
	}
}

func (s *LibraryService) publish(ctx context.Context, event interfaces.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			interfaces.String("event_type", event.EventType()),
			interfaces.Error(err))
	}
}

// validateRoot resolves root to an absolute directory path.
func validateRoot(root string) (string, error) {
	if root == "" {
		return "", errors.Wrap(errors.ErrorTypeBadRequest, "library root is required", domain.ErrInvalidPath)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeBadRequest, "invalid library root "+root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeBadRequest, "library root "+abs+" is not accessible", domain.ErrInvalidPath)
	}
	if !info.IsDir() {
		return "", errors.Wrap(errors.ErrorTypeBadRequest, "library root "+abs+" is not a directory", domain.ErrInvalidPath)
	}
	return abs, nil
}
