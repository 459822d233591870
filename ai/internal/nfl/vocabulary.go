// Package nfl holds the football vocabulary shared by routing and answer scoring.
package nfl

import (
	"regexp"
	"slices"
	"strings"

	"github.com/hrygo/gridiron/internal/strutil"
)

// Team is one NFL franchise.
type Team struct {
	Abbr     string
	City     string
	Nickname string
}

// Teams lists the 32 franchises with nflfastR abbreviations.
var Teams = []Team{
	{"ARI", "Arizona", "Cardinals"}, {"ATL", "Atlanta", "Falcons"}, {"BAL", "Baltimore", "Ravens"},
	{"BUF", "Buffalo", "Bills"}, {"CAR", "Carolina", "Panthers"}, {"CHI", "Chicago", "Bears"},
	{"CIN", "Cincinnati", "Bengals"}, {"CLE", "Cleveland", "Browns"}, {"DAL", "Dallas", "Cowboys"},
	{"DEN", "Denver", "Broncos"}, {"DET", "Detroit", "Lions"}, {"GB", "Green Bay", "Packers"},
	{"HOU", "Houston", "Texans"}, {"IND", "Indianapolis", "Colts"}, {"JAX", "Jacksonville", "Jaguars"},
	{"KC", "Kansas City", "Chiefs"}, {"LV", "Las Vegas", "Raiders"}, {"LAC", "Los Angeles", "Chargers"},
	{"LA", "Los Angeles", "Rams"}, {"MIA", "Miami", "Dolphins"}, {"MIN", "Minnesota", "Vikings"},
	{"NE", "New England", "Patriots"}, {"NO", "New Orleans", "Saints"}, {"NYG", "New York", "Giants"},
	{"NYJ", "New York", "Jets"}, {"PHI", "Philadelphia", "Eagles"}, {"PIT", "Pittsburgh", "Steelers"},
	{"SF", "San Francisco", "49ers"}, {"SEA", "Seattle", "Seahawks"}, {"TB", "Tampa Bay", "Buccaneers"},
	{"TEN", "Tennessee", "Titans"}, {"WAS", "Washington", "Commanders"},
}

// teamNicknames includes common short forms next to the official nicknames.
func teamNicknames() []string {
	names := []string{"niners", "bucs", "pats", "jags", "commies"}
	for _, t := range Teams {
		names = append(names, t.Nickname)
	}
	return names
}

// Abbreviations that read as ordinary words in upper-case text.
var wordAbbrs = map[string]bool{"NO": true, "LA": true, "WAS": true, "TEN": true, "MIN": true, "CAR": true, "SEA": true, "DEN": true}

// Place names that are shared by two teams or name a state rather than a city.
var ambiguousCities = map[string]bool{
	"New York": true, "Los Angeles": true, "Washington": true,
	"Arizona": true, "Carolina": true, "Minnesota": true, "Tennessee": true,
}

func teamAbbrPattern() *regexp.Regexp {
	var abbrs []string
	for _, t := range Teams {
		if !wordAbbrs[t.Abbr] {
			abbrs = append(abbrs, t.Abbr)
		}
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(abbrs, "|") + `)\b`)
}

func teamCities() []string {
	var cities []string
	for _, t := range Teams {
		if !ambiguousCities[t.City] {
			cities = append(cities, t.City)
		}
	}
	return cities
}

var teamAbbrs = teamAbbrPattern()

// FindTeamAbbrs returns the distinct upper-case team abbreviations in text, in order of appearance.
// Matching is case-sensitive so "kc" or "Buf" do not count.
func FindTeamAbbrs(text string) []string {
	var found []string
	for _, m := range teamAbbrs.FindAllString(text, -1) {
		if !slices.Contains(found, m) {
			found = append(found, m)
		}
	}
	return found
}

var (
	// TeamNames matches team nicknames.
	TeamNames = strutil.NewKeywordSet(teamNicknames()...)

	// TeamCities matches the home cities that identify a single franchise.
	TeamCities = strutil.NewKeywordSet(teamCities()...)

	// StatTerms is football-specific statistical vocabulary.
	StatTerms = strutil.NewKeywordSet(
		"touchdown", "touchdowns", "td", "tds", "yards", "yardage", "rushing", "passing", "receiving",
		"receptions", "catches", "targets", "carries", "quarterback", "quarterbacks", "qb", "qbs",
		"running back", "wide receiver", "tight end", "linebacker", "cornerback", "kicker", "punter",
		"sack", "sacks", "interception", "interceptions", "fumble", "fumbles", "turnover", "turnovers",
		"field goal", "field goals", "extra point", "punt", "punts", "kickoff", "touchback",
		"red zone", "first down", "first downs", "third down", "3rd down", "fourth down", "4th down",
		"two-point", "epa", "cpoe", "wpa", "completion percentage", "passer rating", "qbr",
		"point spread", "spread", "over/under", "super bowl", "playoff", "playoffs", "postseason",
		"regular season", "wild card", "draft", "scrimmage", "snaps", "play-by-play", "win probability",
		"nfl", "football", "afc", "nfc", "gridiron", "offense", "defense", "offensive", "defensive",
	)

	// SoftDomainTerms are generic sports words that pass the screen once other leagues are ruled out.
	SoftDomainTerms = strutil.NewKeywordSet(
		"stats", "statistics", "wins", "losses", "season", "league", "points", "scored", "record",
		"standings", "efficiency", "led the league", "covered the spread",
	)

	// OtherLeagues names leagues and sports outside the NFL.
	OtherLeagues = strutil.NewKeywordSet(
		"nba", "wnba", "mlb", "nhl", "mls", "basketball", "baseball", "hockey", "soccer", "tennis",
		"golf", "cricket", "rugby", "premier league", "fifa", "world cup", "stanley cup", "world series",
		"formula 1", "f1", "ufc", "boxing",
	)

	// OffTopic marks subjects unrelated to sport.
	OffTopic = strutil.NewKeywordSet(
		"weather", "forecast", "recipe", "cook", "cooking", "bake", "lasagna", "capital of", "joke",
		"president", "prime minister", "stock", "stocks", "stock price", "bitcoin", "movie", "movies",
		"film", "tv show", "programming", "python", "javascript", "tire", "homework",
		"translate", "poem",
	)
)
