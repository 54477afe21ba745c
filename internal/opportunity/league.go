package opportunity

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/mselser95/polymarket-edge/pkg/canonical"
	"gopkg.in/yaml.v3"
)

// League maps a sportsbook sport key to the names that identify it in free text.
type League struct {
	Code  string   `yaml:"code"`
	Names []string `yaml:"names"`
}

// DefaultLeagues is the built-in inference table. Order decides ties.
func DefaultLeagues() []League {
	return []League{
		{Code: "basketball_nba", Names: []string{"nba", "national basketball association"}},
		{Code: "americanfootball_nfl", Names: []string{"nfl", "national football league"}},
		{Code: "baseball_mlb", Names: []string{"mlb", "major league baseball"}},
		{Code: "icehockey_nhl", Names: []string{"nhl", "national hockey league"}},
		{Code: "soccer_epl", Names: []string{"epl", "english premier league", "premier league"}},
	}
}

// LoadLeagues reads a league table from a YAML file of the form:
//
//	leagues:
//	  - code: basketball_nba
//	    names: [nba, national basketball association]
func LoadLeagues(path string) ([]League, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read leagues file %q: %w", path, err)
	}

	var file struct {
		Leagues []League `yaml:"leagues"`
	}
	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("parse leagues file %q: %w", path, err)
	}

	for i, lg := range file.Leagues {
		if strings.TrimSpace(lg.Code) == "" {
			return nil, fmt.Errorf("league %d: code is required", i)
		}
		if len(lg.Names) == 0 {
			return nil, fmt.Errorf("league %s: at least one name is required", lg.Code)
		}
	}
	return file.Leagues, nil
}

// leagueTable matches normalized text against league names.
type leagueTable struct {
	leagues []League
	codes   map[string]struct{}
}

func newLeagueTable(leagues []League) *leagueTable {
	t := &leagueTable{codes: make(map[string]struct{}, len(leagues))}
	for _, lg := range leagues {
		names := make([]string, 0, len(lg.Names))
		for _, n := range lg.Names {
			if norm := canonical.Normalize(n); norm != "" {
				names = append(names, norm)
			}
		}
		code := canonical.SportCode(lg.Code)
		t.leagues = append(t.leagues, League{Code: code, Names: names})
		t.codes[code] = struct{}{}
	}
	return t
}

func (t *leagueTable) known(code string) bool {
	_, ok := t.codes[code]
	return ok
}

// infer returns the first league whose name occurs as whole words in the joined,
// normalized text, or "". Punctuation separates words, so "nba-lal-bos" matches nba
// while "conflict" does not match nfl.
func (t *leagueTable) infer(texts ...string) string {
	hay := canonical.Normalize(strings.Map(punctToSpace, strings.Join(texts, " ")))
	if hay == "" {
		return ""
	}
	hay = " " + hay + " "
	for _, lg := range t.leagues {
		for _, name := range lg.Names {
			if strings.Contains(hay, " "+name+" ") {
				return lg.Code
			}
		}
	}
	return ""
}

func punctToSpace(r rune) rune {
	if unicode.IsPunct(r) || unicode.IsSymbol(r) {
		return ' '
	}
	return r
}
