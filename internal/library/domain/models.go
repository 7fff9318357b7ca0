package domain

import (
	"time"

	"github.com/google/uuid"
)

// Origin records which pipeline introduced a catalog entry.
type Origin string

const (
	OriginExternal Origin = "external"
	OriginLocal    Origin = "local"
	OriginBoth     Origin = "both"
)

// AvailabilityStatus combines "owned locally" and "available online" for one
// episode.
type AvailabilityStatus string

const (
	StatusNotAvailable            AvailabilityStatus = "NOT_AVAILABLE"
	StatusAvailableOnline         AvailabilityStatus = "AVAILABLE_ONLINE"
	StatusOwnedLocally            AvailabilityStatus = "OWNED_LOCALLY"
	StatusOwnedAndAvailableOnline AvailabilityStatus = "OWNED_AND_AVAILABLE_ONLINE"
)

// Owned reports whether the status includes a local copy.
func (s AvailabilityStatus) Owned() bool {
	return s == StatusOwnedLocally || s == StatusOwnedAndAvailableOnline
}

// Online reports whether the status includes an online stream.
func (s AvailabilityStatus) Online() bool {
	return s == StatusAvailableOnline || s == StatusOwnedAndAvailableOnline
}

// Valid reports whether s is one of the four known states.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusNotAvailable, StatusAvailableOnline, StatusOwnedLocally, StatusOwnedAndAvailableOnline:
		return true
	}
	return false
}

// StatusFor builds the status for the given combination of evidence.
func StatusFor(owned, online bool) AvailabilityStatus {
	switch {
	case owned && online:
		return StatusOwnedAndAvailableOnline
	case owned:
		return StatusOwnedLocally
	case online:
		return StatusAvailableOnline
	}
	return StatusNotAvailable
}

// TechnicalTags are the encoding hints found in a file name.
type TechnicalTags struct {
	Resolution string
	Codec      string
	Audio      string
}

// IsZero reports whether no tag was found.
func (t TechnicalTags) IsZero() bool {
	return t == TechnicalTags{}
}

// CatalogEntry is a tracked series.
type CatalogEntry struct {
	ID              uuid.UUID
	Title           string
	SecondaryTitles []string
	LocalPath       string
	LastScanAt      *time.Time
	Origin          Origin
	Episodes        []*EpisodeRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Episode returns the record with the given number, or nil.
func (e *CatalogEntry) Episode(number int) *EpisodeRecord {
	for _, ep := range e.Episodes {
		if ep.Number == number {
			return ep
		}
	}
	return nil
}

// HasLocalFile reports whether the entry already records path for the episode.
func (e *CatalogEntry) HasLocalFile(number int, path string) bool {
	ep := e.Episode(number)
	return ep != nil && ep.LocalPath == path
}

// Validate checks the entry invariants.
func (e *CatalogEntry) Validate() error {
	if trimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	switch e.Origin {
	case OriginExternal, OriginLocal, OriginBoth:
	default:
		return ErrInvalidOrigin
	}
	return nil
}

// EpisodeRecord is the per-episode availability row of an entry.
type EpisodeRecord struct {
	ID             uuid.UUID
	CatalogEntryID uuid.UUID
	Number         int
	Title          string
	Status         AvailabilityStatus
	LocalPath      string
	FileSize       int64
	FileHash       string
	Tags           TechnicalTags
	StreamURL      string
	UpdatedAt      time.Time
}

// Validate checks that the status agrees with the local path and stream
// reference.
func (r *EpisodeRecord) Validate() error {
	if r.Number < 1 {
		return ErrInvalidEpisodeNumber
	}
	if !r.Status.Valid() {
		return ErrInconsistentAvailability
	}
	if r.Status.Owned() != (r.LocalPath != "") {
		return ErrInconsistentAvailability
	}
	if r.Status.Online() && r.StreamURL == "" {
		return ErrInconsistentAvailability
	}
	return nil
}

// Clone returns a copy that can be mutated without touching the snapshot.
func (r *EpisodeRecord) Clone() *EpisodeRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// MediaFile is a file found by the scanner.
type MediaFile struct {
	Path    string // absolute
	RelPath string // relative to the scan root, slash separated
	Size    int64
	ModTime time.Time
}

// ParsedFileInfo is what the parser extracted from one path.
type ParsedFileInfo struct {
	Path     string
	Title    string
	Episode  int
	Season   int
	Tags     TechnicalTags
	Strategy string
}

// UnmatchedReason says where a file dropped out of the pipeline.
type UnmatchedReason string

const (
	ReasonParse UnmatchedReason = "parse"
	ReasonMatch UnmatchedReason = "match"
)

// UnmatchedFile is a diagnostic for a file that updated nothing.
type UnmatchedFile struct {
	Path       string
	Reason     UnmatchedReason
	Title      string
	Suggestion string
}

// ScanResult summarises one reconciliation run.
type ScanResult struct {
	Root            string
	FilesFound      int
	EntriesTouched  int
	EntriesCreated  int
	EpisodesUpdated int
	Unmatched       []UnmatchedFile
	StartedAt       time.Time
	Duration        time.Duration

	// Created lists the entries the run added to the catalog.
	Created []*CatalogEntry
}

// UnmatchedPaths returns the paths of all unmatched files in scan order.
func (r *ScanResult) UnmatchedPaths() []string {
	paths := make([]string, len(r.Unmatched))
	for i, u := range r.Unmatched {
		paths[i] = u.Path
	}
	return paths
}

// EntryChange is an entry the run created or whose scan bookkeeping changed.
type EntryChange struct {
	Entry   *CatalogEntry
	Created bool
}

// ChangeSet is everything a run wants to write, applied atomically.
type ChangeSet struct {
	Entries  []*EntryChange
	Episodes []*EpisodeRecord
}

// CreatedEntries counts entries the change set would insert.
func (c *ChangeSet) CreatedEntries() int {
	n := 0
	for _, e := range c.Entries {
		if e.Created {
			n++
		}
	}
	return n
}

// Empty reports whether there is nothing to write.
func (c *ChangeSet) Empty() bool {
	return c == nil || (len(c.Entries) == 0 && len(c.Episodes) == 0)
}

// ScanRecord is the persisted history row of one run.
type ScanRecord struct {
	ID              uuid.UUID
	Root            string
	StartedAt       time.Time
	CompletedAt     time.Time
	FilesFound      int
	EntriesTouched  int
	EntriesCreated  int
	EpisodesUpdated int
	Unmatched       int
	ErrorMessage    string
}

// PruneResult summarises a verify-and-prune pass.
type PruneResult struct {
	Checked int
	Missing []string
	Pruned  int
	DryRun  bool
}
