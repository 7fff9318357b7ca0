package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
)

// CreateTestEntry creates an external catalog entry with default values.
func CreateTestEntry(title string, secondary ...string) *domain.CatalogEntry {
	now := time.Now().UTC()
	return &domain.CatalogEntry{
		ID:              uuid.New(),
		Title:           title,
		SecondaryTitles: secondary,
		Origin:          domain.OriginExternal,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateTestEpisode creates an episode that is neither owned nor online.
func CreateTestEpisode(entryID uuid.UUID, number int) *domain.EpisodeRecord {
	return &domain.EpisodeRecord{
		ID:             uuid.New(),
		CatalogEntryID: entryID,
		Number:         number,
		Title:          "Episode",
		Status:         domain.StatusNotAvailable,
		UpdatedAt:      time.Now().UTC(),
	}
}

// CreateOnlineEpisode creates an episode that is only streamable.
func CreateOnlineEpisode(entryID uuid.UUID, number int, streamURL string) *domain.EpisodeRecord {
	ep := CreateTestEpisode(entryID, number)
	ep.Status = domain.StatusAvailableOnline
	ep.StreamURL = streamURL
	return ep
}

// CreateMediaTree writes an empty file for every slash separated relative
// path below root and returns root.
func CreateMediaTree(t *testing.T, root string, relPaths ...string) string {
	t.Helper()
	for _, rel := range relPaths {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			t.Fatalf("Failed to create %s: %v", rel, err)
		}
	}
	return root
}
