// Package canonical turns free-text team and event names into join keys.
//
// EventKey is the only link between a Polymarket event and a sportsbook event.
// Two titles that word the same game differently will not match, and that is accepted.
package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

//nolint:gochecknoglobals // static alias table
var teamAliases = map[string]string{
	// basketball
	"la clippers": "los angeles clippers",
	"ny knicks":   "new york knicks",
	"okc thunder": "oklahoma city thunder",
	// baseball
	"ny yankees": "new york yankees",
}

// Normalize decomposes s, strips combining marks and punctuation, lowercases it and
// collapses whitespace. Only [a-z0-9] and single spaces survive.
func Normalize(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeTeam normalizes a team name and resolves known abbreviations.
func NormalizeTeam(name string) string {
	base := Normalize(name)
	if alias, ok := teamAliases[base]; ok {
		return alias
	}
	return base
}

// TeamKey returns the underscore-joined normalized team name.
func TeamKey(name string) string {
	return underscore(NormalizeTeam(name))
}

// SportCode lowercases a sport label and replaces spaces with underscores.
func SportCode(sport string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sport)), " ", "_")
}

// EventKey builds the cross-source join key "sport:normalized_title[:date]".
// dateHint is appended only when non-empty.
func EventKey(sport, title, dateHint string) string {
	key := SportCode(sport) + ":" + underscore(Normalize(title))
	if dateHint != "" {
		key += ":" + underscore(Normalize(dateHint))
	}
	return key
}

func underscore(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}
