package domain

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var reNonWord = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]+`)

// titleAliases maps alternate renderings of a franchise to one key. Keys and
// values are in normalised form, so every value is a fixed point of
// Normalize.
var titleAliases = map[string]string{
	"a certain magical index":      "toaru majutsu no index",
	"index die zauberin":           "toaru majutsu no index",
	"to aru majutsu no index":      "toaru majutsu no index",
	"a certain scientific railgun": "toaru kagaku no railgun",
	"railgun":                      "toaru kagaku no railgun",
	"to aru kagaku no railgun":     "toaru kagaku no railgun",
	"to love ru":                   "toloveru trouble",
	"to love ru trouble":           "toloveru trouble",
	"to loveru":                    "toloveru trouble",
	"to loveru trouble":            "toloveru trouble",
	"to love ru darkness":          "toloveru trouble darkness",
	"to loveru darkness":           "toloveru trouble darkness",
}

// FranchiseException special-cases a franchise whose titles share a keyword
// but split into a base series and a qualified sequel.
type FranchiseException struct {
	Name      string
	Keywords  []string // any of these marks the franchise
	Qualifier string   // present only in the sequel's titles
	Base      string
	Qualified string
}

// franchiseExceptions is consulted after the alias table. Outputs are fixed
// points of Normalize.
var franchiseExceptions = []FranchiseException{
	{
		Name:      "to-love-ru",
		Keywords:  []string{"to love ru", "to loveru", "toloveru"},
		Qualifier: "darkness",
		Base:      "toloveru trouble",
		Qualified: "toloveru trouble darkness",
	},
}

// Matches reports whether a normalised key contains one of the franchise
// keywords as whole words.
func (f FranchiseException) Matches(key string) bool {
	for _, kw := range f.Keywords {
		if containsWords(key, kw) {
			return true
		}
	}
	return false
}

// IsQualified reports whether a normalised key carries the qualifier word.
func (f FranchiseException) IsQualified(key string) bool {
	return containsWords(key, f.Qualifier)
}

// containsWords reports whether the space separated words of phrase occur
// contiguously in key.
func containsWords(key, phrase string) bool {
	return strings.Contains(" "+key+" ", " "+phrase+" ")
}

// Normalize converts a raw title into its comparison key: lower-cased, with
// everything but letters, digits, underscores and whitespace removed,
// whitespace collapsed, then resolved through the alias table and the
// franchise exceptions. It is total and idempotent.
func Normalize(raw string) string {
	key := normalizeKey(raw)
	if alias, ok := titleAliases[key]; ok {
		return alias
	}
	for _, f := range franchiseExceptions {
		if f.Matches(key) {
			if f.IsQualified(key) {
				return f.Qualified
			}
			return f.Base
		}
	}
	return key
}

func normalizeKey(raw string) string {
	if raw == "" {
		return ""
	}
	lowered := cases.Lower(language.Und).String(raw)
	stripped := reNonWord.ReplaceAllString(lowered, "")
	return strings.Join(strings.Fields(stripped), " ")
}

// franchiseFor returns the exception table entry a key belongs to.
func franchiseFor(key string) (FranchiseException, bool) {
	for _, f := range franchiseExceptions {
		if f.Matches(key) {
			return f, true
		}
	}
	return FranchiseException{}, false
}
