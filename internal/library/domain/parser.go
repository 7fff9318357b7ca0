package domain

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/Dolverin/Anime-Library/internal/library/constants"
)

// DefaultGenericDirNames are directory names that never name a series.
var DefaultGenericDirNames = []string{
	"anime", "anime movie", "media", "mediathek", "downloads", "videos", "tv", "series",
}

// parseInput is a file path split the way the rules need it.
type parseInput struct {
	rel  string   // slash separated, relative to the scan root
	base string   // file name with extension
	stem string   // file name without extension
	dirs []string // directories between the scan root and the file
}

func newParseInput(relPath string) *parseInput {
	rel := strings.Trim(path.Clean(strings.ReplaceAll(relPath, `\`, "/")), "/")
	segments := strings.Split(rel, "/")
	base := segments[len(segments)-1]
	dirs := segments[:len(segments)-1]
	if len(dirs) > 0 && dirs[0] == ".." {
		dirs = nil
	}
	return &parseInput{
		rel:  rel,
		base: base,
		stem: strings.TrimSuffix(base, path.Ext(base)),
		dirs: dirs,
	}
}

// candidate is what a rule extracted before validation.
type candidate struct {
	title   string
	episode int
	season  int
}

// parseRule is one strategy of the cascade. Rules are evaluated in order by
// Parse; the first candidate with a usable title and episode wins.
type parseRule struct {
	Name  string
	Apply func(p *Parser, in *parseInput) (candidate, bool)
}

var (
	reGroupDash = regexp.MustCompile(
		`^\[(?P<group>[^\]]+)\]\s*(?P<title>.+?)(?:\s+-\s*|-\s+)(?P<episode>[0-9]{1,4})(?:[vV][0-9]+)?(?:[\s_.\[(].*)?\.[[:alnum:]]+$`)

	reTitleDash = regexp.MustCompile(
		`^(?P<title>.+?)(?:\s+-\s*|-\s+)(?P<episode>[0-9]{1,4})(?:[vV][0-9]+)?(?:[\s_.\[(].*)?\.[[:alnum:]]+$`)

	reTitleDashTight = regexp.MustCompile(
		`^(?P<title>[^-]+)-(?P<episode>[0-9]{1,4})(?:[vV][0-9]+)?(?:[\s_.\[(].*)?\.[[:alnum:]]+$`)

	reTitleDigits = regexp.MustCompile(
		`^(?P<title>.*?)(?P<episode>[0-9]{2,3})(?:[vV][0-9]+)?\.[[:alnum:]]+$`)

	reDottedTV = regexp.MustCompile(
		`^(?P<title>.*?)\.[Ss](?P<season>[0-9]{1,3})[Ee](?P<episode>[0-9]{1,4})\.(?:.*\.)?[[:alnum:]]+$`)

	reSpacedTV = regexp.MustCompile(
		`^(?P<title>.*?)\s[Ss](?P<season>[0-9]{1,3})[Ee](?P<episode>[0-9]{1,4})\.[[:alnum:]]+$`)

	reTVMarker = regexp.MustCompile(`(?:^|[^[:alpha:]])[Ss]([0-9]{1,3})[Ee]([0-9]{1,4})(?:[^0-9]|$)`)

	reSeasonDir   = regexp.MustCompile(`(?i)^(?:season|staffel|s)[\s._-]*([0-9]{1,3})(?:[\s._-].*)?$`)
	reSpecialsDir = regexp.MustCompile(`(?i)^(?:specials?|extras?|ova|ovas)$`)
	reSeasonToken = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(?:(?:season|staffel)[\s._-]*[0-9]{1,3}|s[0-9]{1,2})(?:[^[:alnum:]]|$)`)
	reBracketed   = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	reDigitRun    = regexp.MustCompile(`[0-9]+`)
	reHex         = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

var parseRules = []parseRule{
	{"directory", (*Parser).fromDirectory},
	{"season-path", (*Parser).fromSeasonPath},
	{"group-dash", filenameRule(reGroupDash, false)},
	{"title-dash", filenameRule(reTitleDash, false)},
	{"title-dash-tight", filenameRule(reTitleDashTight, false)},
	{"title-digits", filenameRule(reTitleDigits, true)},
	{"dotted-tv", filenameRule(reDottedTV, false)},
	{"spaced-tv", filenameRule(reSpacedTV, false)},
	{"tv-marker", (*Parser).fromTVMarker},
}

// Parser turns a media file path into a title and an episode number.
type Parser struct {
	genericDirs map[string]bool
}

// NewParser creates a parser. Directory names in genericDirNames (compared
// case-insensitively) are never used as series titles; with none given
// DefaultGenericDirNames applies.
func NewParser(genericDirNames ...string) *Parser {
	if len(genericDirNames) == 0 {
		genericDirNames = DefaultGenericDirNames
	}
	generic := make(map[string]bool, len(genericDirNames))
	for _, name := range genericDirNames {
		generic[strings.ToLower(cleanTitle(name))] = true
	}
	return &Parser{genericDirs: generic}
}

// Parse runs the rule cascade over a path relative to the scan root. It
// returns false when no rule produced a non-empty title and an episode of at
// least 1. It never panics on malformed input.
func (p *Parser) Parse(relPath string) (*ParsedFileInfo, bool) {
	in := newParseInput(relPath)
	if in.stem == "" || in.base == "." {
		return nil, false
	}

	for _, rule := range parseRules {
		c, ok := rule.Apply(p, in)
		if !ok {
			continue
		}
		c.title = cleanTitle(c.title)
		if c.title == "" || c.episode < 1 || c.episode > constants.MaxEpisodeNumber || looksOpaque(c.title) {
			continue
		}
		return &ParsedFileInfo{
			Path:     relPath,
			Title:    c.title,
			Episode:  c.episode,
			Season:   c.season,
			Tags:     ExtractTags(in.rel),
			Strategy: rule.Name,
		}, true
	}
	return nil, false
}

// SeriesDir returns the directory that holds a series, relative to the scan
// root: the parent, or the grandparent when the parent is a season folder.
// It returns "" for files directly in the scan root and for generic folders.
func (p *Parser) SeriesDir(relPath string) string {
	in := newParseInput(relPath)
	dirs := in.dirs
	if len(dirs) > 0 {
		if _, ok := seasonNumber(dirs[len(dirs)-1]); ok {
			dirs = dirs[:len(dirs)-1]
		}
	}
	if len(dirs) == 0 || p.isGeneric(dirs[len(dirs)-1]) {
		return ""
	}
	return strings.Join(dirs, "/")
}

// fromDirectory names the series after its folder and looks for the episode
// in the file name.
func (p *Parser) fromDirectory(in *parseInput) (candidate, bool) {
	series, season, ok := p.seriesFolder(in)
	if !ok {
		return candidate{}, false
	}
	if m := reTVMarker.FindStringSubmatch(in.stem); m != nil {
		return candidate{title: series, season: atoi(m[1]), episode: atoi(m[2])}, true
	}
	if ep, ok := episodeFromStem(in.stem, series, 3); ok {
		return candidate{title: series, season: season, episode: ep}, true
	}
	return candidate{}, false
}

// fromSeasonPath handles <title>/Season <n>/<file> layouts whose episode
// number is longer than the directory rule accepts.
func (p *Parser) fromSeasonPath(in *parseInput) (candidate, bool) {
	if len(in.dirs) < 2 {
		return candidate{}, false
	}
	season, ok := seasonNumber(in.dirs[len(in.dirs)-1])
	if !ok {
		return candidate{}, false
	}
	title := in.dirs[len(in.dirs)-2]
	if p.isGeneric(title) {
		return candidate{}, false
	}
	if ep, ok := episodeFromStem(in.stem, title, 4); ok {
		return candidate{title: title, season: season, episode: ep}, true
	}
	return candidate{}, false
}

// fromTVMarker splits the file name at the first S<season>E<episode> marker.
func (p *Parser) fromTVMarker(in *parseInput) (candidate, bool) {
	loc := reTVMarker.FindStringSubmatchIndex(in.stem)
	if loc == nil {
		return candidate{}, false
	}
	return candidate{
		title:   in.stem[:loc[2]-1],
		season:  atoi(in.stem[loc[2]:loc[3]]),
		episode: atoi(in.stem[loc[4]:loc[5]]),
	}, true
}

// filenameRule adapts a file name pattern with title/episode/season groups.
// With rejectTV the rule yields to the TV rules for names carrying a marker.
func filenameRule(re *regexp.Regexp, rejectTV bool) func(*Parser, *parseInput) (candidate, bool) {
	titleIdx := re.SubexpIndex("title")
	episodeIdx := re.SubexpIndex("episode")
	seasonIdx := re.SubexpIndex("season")

	return func(_ *Parser, in *parseInput) (candidate, bool) {
		if rejectTV && reTVMarker.MatchString(in.stem) {
			return candidate{}, false
		}
		m := re.FindStringSubmatch(in.base)
		if m == nil {
			return candidate{}, false
		}
		c := candidate{title: m[titleIdx], episode: atoi(m[episodeIdx])}
		if seasonIdx >= 0 {
			c.season = atoi(m[seasonIdx])
		}
		if rejectTV && endsWithDigit(c.title) {
			return candidate{}, false
		}
		return c, true
	}
}

// seriesFolder returns the series directory of a file and the season its
// parent folder names, if any.
func (p *Parser) seriesFolder(in *parseInput) (string, int, bool) {
	if len(in.dirs) == 0 {
		return "", 0, false
	}
	series := in.dirs[len(in.dirs)-1]
	season := 0
	if s, ok := seasonNumber(series); ok {
		if len(in.dirs) < 2 {
			return "", 0, false
		}
		series = in.dirs[len(in.dirs)-2]
		season = s
	}
	if p.isGeneric(series) {
		return "", 0, false
	}
	return series, season, true
}

func (p *Parser) isGeneric(dir string) bool {
	name := strings.ToLower(cleanTitle(dir))
	return name == "" || p.genericDirs[name]
}

// seasonNumber recognises season folders. Specials folders count as season 0.
func seasonNumber(dir string) (int, bool) {
	if m := reSeasonDir.FindStringSubmatch(strings.TrimSpace(dir)); m != nil {
		return atoi(m[1]), true
	}
	if reSpecialsDir.MatchString(strings.TrimSpace(dir)) {
		return 0, true
	}
	return 0, false
}

// episodeFromStem returns the first digit run of at most maxDigits digits
// with a value of at least 1, ignoring bracketed tags, release tokens, season
// tokens and the series name itself.
func episodeFromStem(stem, series string, maxDigits int) (int, bool) {
	s := reBracketed.ReplaceAllString(stem, " ")
	if re := seriesPattern(series); re != nil {
		s = re.ReplaceAllString(s, " ")
	}
	s = stripReleaseNoise(s)
	s = reSeasonToken.ReplaceAllString(s, " ")

	for _, run := range reDigitRun.FindAllString(s, -1) {
		if len(run) > maxDigits {
			continue
		}
		if n := atoi(run); n >= 1 {
			return n, true
		}
	}
	return 0, false
}

// seriesPattern matches the series name with any separator between words.
func seriesPattern(series string) *regexp.Regexp {
	words := strings.Fields(cleanTitle(series))
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, `[\s._-]*`))
}

// cleanTitle drops bracketed tags, turns dots and underscores into spaces,
// collapses whitespace and trims separators from both ends.
func cleanTitle(raw string) string {
	s := reBracketed.ReplaceAllString(raw, " ")
	s = strings.Map(func(r rune) rune {
		if r == '.' || r == '_' {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -~")
}

// looksOpaque reports single-token hexadecimal titles such as content hashes.
func looksOpaque(title string) bool {
	if len(title) < 8 || strings.ContainsAny(title, " ") || !reHex.MatchString(title) {
		return false
	}
	return strings.ContainsAny(title, "0123456789") && strings.ContainsAny(strings.ToLower(title), "abcdef")
}

func endsWithDigit(s string) bool {
	s = strings.TrimRight(s, " ._-")
	return s != "" && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
