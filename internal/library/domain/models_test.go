package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.StatusNotAvailable, domain.StatusFor(false, false))
	assert.Equal(t, domain.StatusAvailableOnline, domain.StatusFor(false, true))
	assert.Equal(t, domain.StatusOwnedLocally, domain.StatusFor(true, false))
	assert.Equal(t, domain.StatusOwnedAndAvailableOnline, domain.StatusFor(true, true))

	for _, s := range []domain.AvailabilityStatus{
		domain.StatusNotAvailable, domain.StatusAvailableOnline,
		domain.StatusOwnedLocally, domain.StatusOwnedAndAvailableOnline,
	} {
		assert.True(t, s.Valid())
		assert.Equal(t, s, domain.StatusFor(s.Owned(), s.Online()))
	}
	assert.False(t, domain.AvailabilityStatus("DOWNLOADING").Valid())
}

func TestEpisodeRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.EpisodeRecord
		want error
	}{
		{"not available", domain.EpisodeRecord{Number: 1, Status: domain.StatusNotAvailable}, nil},
		{"owned", domain.EpisodeRecord{Number: 1, Status: domain.StatusOwnedLocally, LocalPath: "/a.mkv"}, nil},
		{"online", domain.EpisodeRecord{Number: 1, Status: domain.StatusAvailableOnline, StreamURL: "u"}, nil},
		{"both", domain.EpisodeRecord{Number: 1, Status: domain.StatusOwnedAndAvailableOnline, LocalPath: "/a.mkv", StreamURL: "u"}, nil},
		{"episode zero", domain.EpisodeRecord{Number: 0, Status: domain.StatusNotAvailable}, domain.ErrInvalidEpisodeNumber},
		{"owned without path", domain.EpisodeRecord{Number: 1, Status: domain.StatusOwnedLocally}, domain.ErrInconsistentAvailability},
		{"path without ownership", domain.EpisodeRecord{Number: 1, Status: domain.StatusNotAvailable, LocalPath: "/a.mkv"}, domain.ErrInconsistentAvailability},
		{"online without stream", domain.EpisodeRecord{Number: 1, Status: domain.StatusAvailableOnline}, domain.ErrInconsistentAvailability},
		{"unknown status", domain.EpisodeRecord{Number: 1, Status: "X"}, domain.ErrInconsistentAvailability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Validate())
		})
	}
}

func TestCatalogEntry(t *testing.T) {
	e := &domain.CatalogEntry{
		ID:     uuid.New(),
		Title:  "Solo Leveling",
		Origin: domain.OriginLocal,
		Episodes: []*domain.EpisodeRecord{
			{Number: 1, Status: domain.StatusOwnedLocally, LocalPath: "/lib/01.mkv"},
			{Number: 2, Status: domain.StatusNotAvailable},
		},
	}

	assert.NoError(t, e.Validate())
	assert.Equal(t, 2, e.Episode(2).Number)
	assert.Nil(t, e.Episode(3))
	assert.True(t, e.HasLocalFile(1, "/lib/01.mkv"))
	assert.False(t, e.HasLocalFile(1, "/lib/other.mkv"))
	assert.False(t, e.HasLocalFile(2, ""))

	assert.Equal(t, domain.ErrEmptyTitle, (&domain.CatalogEntry{Title: "  ", Origin: domain.OriginLocal}).Validate())
	assert.Equal(t, domain.ErrInvalidOrigin, (&domain.CatalogEntry{Title: "x", Origin: "web"}).Validate())
}

func TestChangeSet(t *testing.T) {
	var empty *domain.ChangeSet
	assert.True(t, empty.Empty())

	cs := &domain.ChangeSet{
		Entries: []*domain.EntryChange{
			{Entry: &domain.CatalogEntry{}, Created: true},
			{Entry: &domain.CatalogEntry{}},
		},
	}
	assert.False(t, cs.Empty())
	assert.Equal(t, 1, cs.CreatedEntries())
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := &domain.PersistenceError{LostEntries: 2, LostEpisodes: 7, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "2 new entries")
	assert.Contains(t, err.Error(), "7 episode updates")
}
