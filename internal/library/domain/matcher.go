package domain

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MatchTier says which strategy produced a match.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierSubstring
	TierSynonym
	TierFranchise
	TierTokenOverlap
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierSynonym:
		return "synonym"
	case TierFranchise:
		return "franchise"
	case TierTokenOverlap:
		return "token-overlap"
	}
	return "none"
}

type indexedEntry struct {
	entry    *CatalogEntry
	key      string
	tokens   map[string]struct{}
	synonyms []string
}

// Matcher resolves titles against a catalog snapshot. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	entries []indexedEntry
	byPath  map[string]*CatalogEntry
}

// NewMatcher indexes a snapshot. Entries are held in a canonical order
// (normalised title, creation time, ID) so that ties resolve the same way
// whatever order the catalog was read in.
func NewMatcher(catalog []*CatalogEntry) *Matcher {
	m := &Matcher{
		entries: make([]indexedEntry, 0, len(catalog)),
		byPath:  make(map[string]*CatalogEntry),
	}
	for _, e := range catalog {
		if e == nil {
			continue
		}
		key := Normalize(e.Title)
		synonyms := make([]string, 0, len(e.SecondaryTitles))
		for _, s := range e.SecondaryTitles {
			if n := Normalize(s); n != "" {
				synonyms = append(synonyms, n)
			}
		}
		m.entries = append(m.entries, indexedEntry{
			entry:    e,
			key:      key,
			tokens:   tokenSet(key),
			synonyms: synonyms,
		})
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return canonicalLess(m.entries[i], m.entries[j])
	})
	for _, ie := range m.entries {
		if ie.entry.LocalPath == "" {
			continue
		}
		p := cleanPath(ie.entry.LocalPath)
		if _, seen := m.byPath[p]; !seen {
			m.byPath[p] = ie.entry
		}
	}
	return m
}

func canonicalLess(a, b indexedEntry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
		return a.entry.CreatedAt.Before(b.entry.CreatedAt)
	}
	return a.entry.ID.String() < b.entry.ID.String()
}

// Len returns the number of indexed entries.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// FindMatch returns the best entry for a raw title and the tier that found
// it. Tiers are tried in order exact, substring, synonym, franchise and
// token overlap; the first tier with a hit wins.
func (m *Matcher) FindMatch(title string) (*CatalogEntry, MatchTier) {
	key := Normalize(title)
	if key == "" {
		return nil, TierNone
	}

	for _, ie := range m.entries {
		if ie.key == key {
			return ie.entry, TierExact
		}
	}

	if e := m.substringMatch(key); e != nil {
		return e, TierSubstring
	}

	for _, ie := range m.entries {
		for _, s := range ie.synonyms {
			if s == key {
				return ie.entry, TierSynonym
			}
		}
	}

	if f, ok := franchiseFor(key); ok {
		for _, ie := range m.entries {
			if f.Matches(ie.key) && f.IsQualified(key) == f.IsQualified(ie.key) {
				return ie.entry, TierFranchise
			}
		}
	}

	if looksLikeDirectoryName(title) {
		if e := m.tokenOverlapMatch(key); e != nil {
			return e, TierTokenOverlap
		}
	}

	return nil, TierNone
}

// substringMatch prefers the candidate whose key length is closest to the
// input, which is the most specific containment.
func (m *Matcher) substringMatch(key string) *CatalogEntry {
	var best *CatalogEntry
	bestDiff := -1
	for _, ie := range m.entries {
		if ie.key == "" {
			continue
		}
		if !strings.Contains(ie.key, key) && !strings.Contains(key, ie.key) {
			continue
		}
		diff := len(ie.key) - len(key)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = ie.entry, diff
		}
	}
	return best
}

// tokenOverlapMatch accepts a candidate whose shared tokens cover more than
// half of either token set, preferring the highest coverage.
func (m *Matcher) tokenOverlapMatch(key string) *CatalogEntry {
	input := tokenSet(key)
	var best *CatalogEntry
	bestScore := 0.0
	for _, ie := range m.entries {
		if len(ie.tokens) == 0 {
			continue
		}
		common := 0
		for t := range input {
			if _, ok := ie.tokens[t]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		score := float64(common) / float64(len(ie.tokens))
		if s := float64(common) / float64(len(input)); s > score {
			score = s
		}
		if score > 0.5 && score > bestScore {
			best, bestScore = ie.entry, score
		}
	}
	return best
}

// FindByLocalPath returns the entry whose recorded library root is path.
func (m *Matcher) FindByLocalPath(path string) *CatalogEntry {
	if path == "" {
		return nil
	}
	return m.byPath[cleanPath(path)]
}

// Suggest returns the catalog title closest to an unmatched title, for
// diagnostics only. It returns "" when nothing is plausibly close.
func (m *Matcher) Suggest(title string) string {
	key := Normalize(title)
	if key == "" {
		return ""
	}
	best := ""
	bestDist := -1
	for _, ie := range m.entries {
		if !fuzzy.MatchNormalizedFold(key, ie.key) && !fuzzy.MatchNormalizedFold(ie.key, key) {
			continue
		}
		d := fuzzy.LevenshteinDistance(key, ie.key)
		if bestDist < 0 || d < bestDist {
			best, bestDist = ie.entry.Title, d
		}
	}
	return best
}

// looksLikeDirectoryName guesses whether a title came from a folder rather
// than a descriptive release name.
func looksLikeDirectoryName(raw string) bool {
	return strings.ContainsAny(raw, `/\`) || len(strings.Fields(raw)) < 3
}

func tokenSet(key string) map[string]struct{} {
	fields := strings.Fields(key)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func cleanPath(p string) string {
	return filepath.Clean(p)
}
