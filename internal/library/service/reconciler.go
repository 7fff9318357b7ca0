package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Dolverin/Anime-Library/internal/library/constants"
	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/pkg/errors"
	"github.com/Dolverin/Anime-Library/pkg/interfaces"
)

// Reconciler merges the media files below a root directory into the
// catalog. It holds no lock; callers serialise runs against one store.
type Reconciler struct {
	repo      repository.Repository
	scanner   *domain.Scanner
	parser    *domain.Parser
	logger    interfaces.Logger
	hashFiles bool
	now       func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithScanner replaces the default directory scanner.
func WithScanner(scanner *domain.Scanner) ReconcilerOption {
	return func(r *Reconciler) { r.scanner = scanner }
}

// WithParser replaces the default filename parser.
func WithParser(parser *domain.Parser) ReconcilerOption {
	return func(r *Reconciler) { r.parser = parser }
}

// WithFileHashing makes the reconciler record a SHA-256 for every file that
// changes an episode.
func WithFileHashing(enabled bool) ReconcilerOption {
	return func(r *Reconciler) { r.hashFiles = enabled }
}

// WithClock sets the time source used for scan timestamps.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler backed by repo.
func NewReconciler(repo repository.Repository, logger interfaces.Logger, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scanner == nil {
		r.scanner = domain.NewScanner(logger)
	}
	if r.parser == nil {
		r.parser = domain.NewParser()
	}
	return r
}

type episodeKey struct {
	entryID uuid.UUID
	number  int
}

// run is the accumulated state of one ScanAndUpdate call.
type run struct {
	root    string
	started time.Time
	matcher *domain.Matcher

	touched      map[uuid.UUID]*domain.EntryChange
	touchedOrder []uuid.UUID

	createdByPath map[string]*domain.CatalogEntry
	createdByKey  map[string]*domain.CatalogEntry

	// claimed holds the one file each episode takes its local evidence from.
	claimed      map[episodeKey]string
	pending      map[episodeKey]*domain.EpisodeRecord
	pendingOrder []episodeKey

	result *domain.ScanResult
}

// ScanAndUpdate enumerates rootDir, matches every parsable file against a
// catalog snapshot taken once at the start, and writes all resulting
// changes in a single transaction. With createMissing, titles without a
// catalog entry get a new local entry. ParseMiss and MatchMiss files are
// reported in the result and are never errors.
func (r *Reconciler) ScanAndUpdate(ctx context.Context, rootDir string, createMissing bool) (*domain.ScanResult, error) {
	started := r.now()
	root := filepath.Clean(rootDir)

	files, err := r.scanner.ScanDirectory(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	snapshot, err := r.repo.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	st := &run{
		root:          root,
		started:       started,
		matcher:       domain.NewMatcher(snapshot),
		touched:       make(map[uuid.UUID]*domain.EntryChange),
		createdByPath: make(map[string]*domain.CatalogEntry),
		createdByKey:  make(map[string]*domain.CatalogEntry),
		claimed:       make(map[episodeKey]string),
		pending:       make(map[episodeKey]*domain.EpisodeRecord),
		result: &domain.ScanResult{
			Root:       root,
			FilesFound: len(files),
			StartedAt:  started,
		},
	}

	r.logger.Info("Starting library scan",
		interfaces.String("root", root),
		interfaces.Int("files", len(files)),
		interfaces.Int("catalog_entries", st.matcher.Len()),
		interfaces.Bool("create_missing", createMissing))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.processFile(st, file, createMissing)
	}

	changes := st.changeSet()
	st.result.EntriesTouched = len(st.touchedOrder)
	st.result.EntriesCreated = changes.CreatedEntries()
	st.result.EpisodesUpdated = len(changes.Episodes)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.repo.ApplyChanges(ctx, changes); err != nil {
		r.logger.Error("Failed to persist scan results",
			interfaces.String("root", root),
			interfaces.Int("lost_entries", changes.CreatedEntries()),
			interfaces.Int("lost_episodes", len(changes.Episodes)),
			interfaces.Error(err))
		return nil, errors.Persistence("failed to persist scan results", &domain.PersistenceError{
			LostEntries:  changes.CreatedEntries(),
			LostEpisodes: len(changes.Episodes),
			Err:          err,
		})
	}

	st.result.Duration = r.now().Sub(started)
	r.logSummary(st.result)
	return st.result, nil
}

func (r *Reconciler) processFile(st *run, file *domain.MediaFile, createMissing bool) {
	info, ok := r.parser.Parse(file.RelPath)
	if !ok {
		r.logger.Debug("No parse strategy matched", interfaces.String("path", file.Path))
		st.result.Unmatched = append(st.result.Unmatched, domain.UnmatchedFile{
			Path:   file.Path,
			Reason: domain.ReasonParse,
		})
		return
	}

	entry, tier := st.matcher.FindMatch(info.Title)
	if entry == nil && createMissing {
		entry = st.findOrCreate(r.parser, info, file)
	}
	if entry == nil {
		suggestion := st.matcher.Suggest(info.Title)
		r.logger.Debug("No catalog entry for title",
			interfaces.String("path", file.Path),
			interfaces.String("title", info.Title),
			interfaces.String("suggestion", suggestion))
		st.result.Unmatched = append(st.result.Unmatched, domain.UnmatchedFile{
			Path:       file.Path,
			Reason:     domain.ReasonMatch,
			Title:      info.Title,
			Suggestion: suggestion,
		})
		return
	}

	change := st.touch(entry)
	key := episodeKey{entryID: entry.ID, number: info.Episode}
	if claimedBy, dup := st.claimed[key]; dup {
		// The file the catalog already records beats an earlier copy, so
		// repeated runs settle on the same path.
		if !entry.HasLocalFile(info.Episode, file.Path) {
			r.logger.Debug("Episode already has a file in this run",
				interfaces.String("path", file.Path),
				interfaces.String("kept", claimedBy),
				interfaces.Int("episode", info.Episode))
			return
		}
		delete(st.pending, key)
	} else {
		st.pendingOrder = append(st.pendingOrder, key)
	}
	st.claimed[key] = file.Path

	tr := domain.ApplyLocalFile(entry.Episode(info.Episode), domain.LocalEvidence{
		EntryID: entry.ID,
		Number:  info.Episode,
		Path:    file.Path,
		Size:    file.Size,
		Tags:    info.Tags,
	}, st.started)
	if !tr.Changed {
		return
	}
	if r.hashFiles {
		hash, err := domain.HashFile(file.Path)
		if err != nil {
			r.logger.Warn("Failed to hash file", interfaces.String("path", file.Path), interfaces.Error(err))
		} else {
			tr.Record.FileHash = hash
		}
	}
	if change.Entry.Origin == domain.OriginExternal {
		change.Entry.Origin = domain.OriginBoth
	}

	r.logger.Debug("Episode updated",
		interfaces.String("path", file.Path),
		interfaces.String("title", entry.Title),
		interfaces.Int("episode", info.Episode),
		interfaces.String("strategy", info.Strategy),
		interfaces.String("tier", tier.String()),
		interfaces.String("from", string(tr.From)),
		interfaces.String("to", string(tr.To)))

	st.pending[key] = tr.Record
}

// findOrCreate resolves a title the snapshot did not match: first by the
// series directory among snapshot and run-created entries, then by key
// among run-created entries, and finally by creating a local entry.
func (st *run) findOrCreate(parser *domain.Parser, info *domain.ParsedFileInfo, file *domain.MediaFile) *domain.CatalogEntry {
	localPath := ""
	if dir := parser.SeriesDir(file.RelPath); dir != "" {
		localPath = filepath.Join(st.root, filepath.FromSlash(dir))
	}

	if localPath != "" {
		if e := st.matcher.FindByLocalPath(localPath); e != nil {
			return e
		}
		if e, ok := st.createdByPath[localPath]; ok {
			return e
		}
	}
	key := domain.Normalize(info.Title)
	if e, ok := st.createdByKey[key]; ok {
		return e
	}

	entry := &domain.CatalogEntry{
		ID:        uuid.New(),
		Title:     info.Title,
		LocalPath: localPath,
		Origin:    domain.OriginLocal,
		CreatedAt: st.started,
		UpdatedAt: st.started,
	}
	st.result.Created = append(st.result.Created, entry)
	st.createdByKey[key] = entry
	if localPath != "" {
		st.createdByPath[localPath] = entry
	}
	st.touched[entry.ID] = &domain.EntryChange{Entry: entry, Created: true}
	st.touchedOrder = append(st.touchedOrder, entry.ID)
	return entry
}

// touch records entry as seen by this run and returns its pending change.
// Snapshot entries are copied so the matcher's view stays unchanged.
func (st *run) touch(entry *domain.CatalogEntry) *domain.EntryChange {
	if change, ok := st.touched[entry.ID]; ok {
		return change
	}
	working := *entry
	working.Episodes = nil
	scanAt := st.started
	working.LastScanAt = &scanAt

	change := &domain.EntryChange{Entry: &working}
	st.touched[entry.ID] = change
	st.touchedOrder = append(st.touchedOrder, entry.ID)
	return change
}

func (st *run) changeSet() *domain.ChangeSet {
	changes := &domain.ChangeSet{
		Entries:  make([]*domain.EntryChange, 0, len(st.touchedOrder)),
		Episodes: make([]*domain.EpisodeRecord, 0, len(st.pendingOrder)),
	}
	for _, id := range st.touchedOrder {
		change := st.touched[id]
		if change.Created {
			scanAt := st.started
			change.Entry.LastScanAt = &scanAt
		}
		changes.Entries = append(changes.Entries, change)
	}
	for _, key := range st.pendingOrder {
		if rec, ok := st.pending[key]; ok {
			changes.Episodes = append(changes.Episodes, rec)
		}
	}
	return changes
}

func (r *Reconciler) logSummary(result *domain.ScanResult) {
	r.logger.Info("Library scan completed",
		interfaces.String("root", result.Root),
		interfaces.Int("files_found", result.FilesFound),
		interfaces.Int("entries_touched", result.EntriesTouched),
		interfaces.Int("entries_created", result.EntriesCreated),
		interfaces.Int("episodes_updated", result.EpisodesUpdated),
		interfaces.Int("unmatched", len(result.Unmatched)),
		interfaces.Duration("duration", result.Duration))

	if len(result.Unmatched) == 0 {
		return
	}
	paths := result.UnmatchedPaths()
	if len(paths) > constants.MaxLoggedUnmatched {
		paths = paths[:constants.MaxLoggedUnmatched]
	}
	r.logger.Warn("Files left unmatched",
		interfaces.Int("count", len(result.Unmatched)),
		interfaces.Strings("paths", paths))
}
