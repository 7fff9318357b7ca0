package domain

import (
	"time"

	"github.com/Dolverin/Anime-Library/internal/library/constants"
)

// ScanCompletedEvent is published after a run has been persisted
type ScanCompletedEvent struct {
	Result    *ScanResult
	timestamp int64
}

func NewScanCompletedEvent(result *ScanResult) *ScanCompletedEvent {
	return &ScanCompletedEvent{
		Result:    result,
		timestamp: time.Now().Unix(),
	}
}

func (e *ScanCompletedEvent) EventType() string {
	return constants.EventScanCompleted
}

func (e *ScanCompletedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *ScanCompletedEvent) AggregateID() string {
	return e.Result.Root
}

// ScanFailedEvent is published when a run could not be persisted
type ScanFailedEvent struct {
	Root      string
	Reason    string
	timestamp int64
}

func NewScanFailedEvent(root string, err error) *ScanFailedEvent {
	return &ScanFailedEvent{
		Root:      root,
		Reason:    err.Error(),
		timestamp: time.Now().Unix(),
	}
}

func (e *ScanFailedEvent) EventType() string {
	return constants.EventScanFailed
}

func (e *ScanFailedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *ScanFailedEvent) AggregateID() string {
	return e.Root
}

// CatalogEntryCreatedEvent is published for every entry a run created
type CatalogEntryCreatedEvent struct {
	Entry     *CatalogEntry
	timestamp int64
}

func NewCatalogEntryCreatedEvent(entry *CatalogEntry) *CatalogEntryCreatedEvent {
	return &CatalogEntryCreatedEvent{
		Entry:     entry,
		timestamp: time.Now().Unix(),
	}
}

func (e *CatalogEntryCreatedEvent) EventType() string {
	return constants.EventEntryCreated
}

func (e *CatalogEntryCreatedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *CatalogEntryCreatedEvent) AggregateID() string {
	return e.Entry.ID.String()
}

// EpisodesPrunedEvent is published after stale local files were retracted
type EpisodesPrunedEvent struct {
	Paths     []string
	timestamp int64
}

func NewEpisodesPrunedEvent(paths []string) *EpisodesPrunedEvent {
	return &EpisodesPrunedEvent{
		Paths:     paths,
		timestamp: time.Now().Unix(),
	}
}

func (e *EpisodesPrunedEvent) EventType() string {
	return constants.EventEpisodesPruned
}

func (e *EpisodesPrunedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *EpisodesPrunedEvent) AggregateID() string {
	return "library"
}
