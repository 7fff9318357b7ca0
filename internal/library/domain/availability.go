package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LocalEvidence is the fact "a local file for this episode was found".
type LocalEvidence struct {
	EntryID uuid.UUID
	Number  int
	Path    string
	Size    int64
	Hash    string
	Tags    TechnicalTags
}

// Transition is the outcome of applying evidence to an episode.
type Transition struct {
	Record  *EpisodeRecord
	From    AvailabilityStatus
	To      AvailabilityStatus
	Created bool
	Changed bool
}

// ApplyLocalFile computes the next episode state after a local file was
// found. current may be nil when no record exists. current is never
// mutated; the returned record is a copy.
//
//	NOT_AVAILABLE              -> OWNED_LOCALLY
//	AVAILABLE_ONLINE           -> OWNED_AND_AVAILABLE_ONLINE
//	OWNED_LOCALLY              -> OWNED_LOCALLY
//	OWNED_AND_AVAILABLE_ONLINE -> OWNED_AND_AVAILABLE_ONLINE
//	(no record)                -> OWNED_LOCALLY
//
// Once an episode is owned, a different path only refreshes the file
// metadata; the same path changes nothing.
func ApplyLocalFile(current *EpisodeRecord, ev LocalEvidence, now time.Time) Transition {
	if current == nil {
		rec := &EpisodeRecord{
			ID:             uuid.New(),
			CatalogEntryID: ev.EntryID,
			Number:         ev.Number,
			Title:          fmt.Sprintf("Episode %d", ev.Number),
			Status:         StatusOwnedLocally,
		}
		writeLocalFile(rec, ev, now)
		return Transition{Record: rec, From: StatusNotAvailable, To: StatusOwnedLocally, Created: true, Changed: true}
	}

	next := current.Clone()
	t := Transition{Record: next, From: current.Status}

	if current.Status.Owned() {
		t.To = current.Status
		if current.LocalPath == ev.Path {
			return t
		}
		writeLocalFile(next, ev, now)
		t.Changed = true
		return t
	}

	next.Status = StatusFor(true, current.Status.Online())
	writeLocalFile(next, ev, now)
	t.To = next.Status
	t.Changed = true
	return t
}

// ApplyLocalRemoval retracts local ownership after the file disappeared. It
// is the inverse of ApplyLocalFile and is only used by the prune pass.
//
//	OWNED_LOCALLY              -> NOT_AVAILABLE
//	OWNED_AND_AVAILABLE_ONLINE -> AVAILABLE_ONLINE
func ApplyLocalRemoval(current *EpisodeRecord, now time.Time) Transition {
	if current == nil {
		return Transition{}
	}
	next := current.Clone()
	t := Transition{Record: next, From: current.Status, To: current.Status}
	if !current.Status.Owned() {
		return t
	}

	next.Status = StatusFor(false, current.Status.Online())
	next.LocalPath = ""
	next.FileSize = 0
	next.FileHash = ""
	next.Tags = TechnicalTags{}
	next.UpdatedAt = now
	t.To = next.Status
	t.Changed = true
	return t
}

func writeLocalFile(rec *EpisodeRecord, ev LocalEvidence, now time.Time) {
	rec.LocalPath = ev.Path
	rec.FileSize = ev.Size
	rec.FileHash = ev.Hash
	rec.Tags = ev.Tags
	rec.UpdatedAt = now
}
