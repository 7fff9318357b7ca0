package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/pkg/database"
)

// CatalogEntry represents a tracked series in the database.
type CatalogEntry struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title           string    `gorm:"not null;index"`
	SecondaryTitles []string  `gorm:"serializer:json"`
	LocalPath       string    `gorm:"index"`
	LastScanAt      *time.Time
	Origin          string `gorm:"type:varchar(16);not null;default:'external'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Relationships
	Episodes []Episode `gorm:"foreignKey:CatalogEntryID;constraint:OnDelete:CASCADE"`
}

// Episode represents the availability row of one episode. The pair
// (catalog_entry_id, number) is unique.
type Episode struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CatalogEntryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_episode_entry_number"`
	Number         int       `gorm:"not null;uniqueIndex:idx_episode_entry_number"`
	Title          string
	Status         string `gorm:"type:varchar(32);not null;default:'NOT_AVAILABLE';index"`
	LocalPath      string `gorm:"index"`
	FileSize       int64
	FileHash       string `gorm:"type:varchar(64)"`
	StreamURL      string

	// Media info
	Resolution string `gorm:"type:varchar(20)"`
	VideoCodec string `gorm:"type:varchar(50)"`
	AudioCodec string `gorm:"type:varchar(50)"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"` // set by the scan, not by GORM
}

// ScanHistory represents one reconciliation run.
type ScanHistory struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Root            string    `gorm:"not null;index"`
	StartedAt       time.Time `gorm:"not null;index"`
	CompletedAt     *time.Time
	FilesFound      int    `gorm:"default:0"`
	EntriesTouched  int    `gorm:"default:0"`
	EntriesCreated  int    `gorm:"default:0"`
	EpisodesUpdated int    `gorm:"default:0"`
	Unmatched       int    `gorm:"default:0"`
	ErrorMessage    string `gorm:"type:text"`
}

// BeforeCreate assigns an ID when the caller did not.
func (e *CatalogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an ID when the caller did not.
func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an ID when the caller did not.
func (s *ScanHistory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (CatalogEntry) TableName() string {
	return "catalog_entries"
}

func (Episode) TableName() string {
	return "episodes"
}

func (ScanHistory) TableName() string {
	return "scan_history"
}

// Migrations returns the schema history of the catalog store.
func Migrations() []database.MigrationEntry {
	return []database.MigrationEntry{
		{
			Version: "001",
			Name:    "create_catalog",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&CatalogEntry{}, &Episode{})
			},
		},
		{
			Version: "002",
			Name:    "create_scan_history",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&ScanHistory{})
			},
		},
	}
}

func entryToDomain(m *CatalogEntry) *domain.CatalogEntry {
	e := &domain.CatalogEntry{
		ID:              m.ID,
		Title:           m.Title,
		SecondaryTitles: m.SecondaryTitles,
		LocalPath:       m.LocalPath,
		LastScanAt:      m.LastScanAt,
		Origin:          domain.Origin(m.Origin),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if len(m.Episodes) > 0 {
		e.Episodes = make([]*domain.EpisodeRecord, len(m.Episodes))
		for i := range m.Episodes {
			e.Episodes[i] = episodeToDomain(&m.Episodes[i])
		}
	}
	return e
}

// entryFromDomain maps the entry row only; episodes are written separately.
func entryFromDomain(e *domain.CatalogEntry) *CatalogEntry {
	return &CatalogEntry{
		ID:              e.ID,
		Title:           e.Title,
		SecondaryTitles: e.SecondaryTitles,
		LocalPath:       e.LocalPath,
		LastScanAt:      e.LastScanAt,
		Origin:          string(e.Origin),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func episodeToDomain(m *Episode) *domain.EpisodeRecord {
	return &domain.EpisodeRecord{
		ID:             m.ID,
		CatalogEntryID: m.CatalogEntryID,
		Number:         m.Number,
		Title:          m.Title,
		Status:         domain.AvailabilityStatus(m.Status),
		LocalPath:      m.LocalPath,
		FileSize:       m.FileSize,
		FileHash:       m.FileHash,
		Tags: domain.TechnicalTags{
			Resolution: m.Resolution,
			Codec:      m.VideoCodec,
			Audio:      m.AudioCodec,
		},
		StreamURL: m.StreamURL,
		UpdatedAt: m.UpdatedAt,
	}
}

func episodeFromDomain(r *domain.EpisodeRecord) *Episode {
	return &Episode{
		ID:             r.ID,
		CatalogEntryID: r.CatalogEntryID,
		Number:         r.Number,
		Title:          r.Title,
		Status:         string(r.Status),
		LocalPath:      r.LocalPath,
		FileSize:       r.FileSize,
		FileHash:       r.FileHash,
		StreamURL:      r.StreamURL,
		Resolution:     r.Tags.Resolution,
		VideoCodec:     r.Tags.Codec,
		AudioCodec:     r.Tags.Audio,
		UpdatedAt:      r.UpdatedAt,
	}
}

func scanToDomain(m *ScanHistory) *domain.ScanRecord {
	rec := &domain.ScanRecord{
		ID:              m.ID,
		Root:            m.Root,
		StartedAt:       m.StartedAt,
		FilesFound:      m.FilesFound,
		EntriesTouched:  m.EntriesTouched,
		EntriesCreated:  m.EntriesCreated,
		EpisodesUpdated: m.EpisodesUpdated,
		Unmatched:       m.Unmatched,
		ErrorMessage:    m.ErrorMessage,
	}
	if m.CompletedAt != nil {
		rec.CompletedAt = *m.CompletedAt
	}
	return rec
}

func scanFromDomain(r *domain.ScanRecord) *ScanHistory {
	m := &ScanHistory{
		ID:              r.ID,
		Root:            r.Root,
		StartedAt:       r.StartedAt,
		FilesFound:      r.FilesFound,
		EntriesTouched:  r.EntriesTouched,
		EntriesCreated:  r.EntriesCreated,
		EpisodesUpdated: r.EpisodesUpdated,
		Unmatched:       r.Unmatched,
		ErrorMessage:    r.ErrorMessage,
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		m.CompletedAt = &completed
	}
	return m
}
