package routing

import (
	"fmt"

	"github.com/hrygo/gridiron/internal/strutil"
)

// Table names in the stats database.
type Table string

const (
	TableTeamStats  Table = "team_stats"
	TablePlayByPlay Table = "nflfastR_pbp"
	TablePregame    Table = "pregame_matchups"
)

// TableContext is the guidance handed to the database agent.
type TableContext struct {
	Table    Table
	Keywords []string
	Guidance string
}

var tableDescriptions = map[Table]string{
	TableTeamStats: "team_stats holds one row per team per game with season aggregates: " +
		"win/loss records and streaks, win percentage, rolling averages (16, 8 and 4 games), " +
		"offensive and defensive EPA, quarterback performance and against-the-spread records. " +
		"Use it for team rankings, comparisons and season performance.",
	TablePlayByPlay: "nflfastR_pbp is the play-by-play table with one row per play: " +
		"play_type, down, ydstogo, yardline_100, yards_gained, touchdown, pass_touchdown, rush_touchdown, " +
		"interception, sack, field_goal_result, epa, success, passer_player_name, rusher_player_name, " +
		"receiver_player_name, posteam, defteam, season, week, season_type, spread_line and running scores. " +
		"Use it for individual plays, player statistics, down and distance situations and drives.",
	TablePregame: "pregame_matchups holds one row per scheduled game with pre-game context: " +
		"Vegas spread, over/under total, moneyline odds, win probability and head-to-head history. " +
		"Use it for predictions, odds, betting lines and matchup questions.",
}

var (
	atsMarkers = strutil.NewKeywordSet(
		"against the spread", "ats", "ats record", "cover rate",
	)
	pregameMarkers = strutil.NewKeywordSet(
		"vegas", "spread", "point spread", "odds", "betting", "bet", "bets", "moneyline", "over/under",
		"win probability", "head-to-head", "head to head", "matchup", "matchups", "prediction",
		"predicted", "favorite", "favored", "underdog", "pregame", "pre-game",
	)
	playMarkers = strutil.NewKeywordSet(
		"play", "plays", "play type", "play-by-play", "down", "1st down", "2nd down", "3rd down", "4th down",
		"third down", "fourth down", "attempts", "drive", "drives", "throw", "threw", "thrown",
		"rushed", "carries", "targets", "receptions", "quarter", "snap", "snaps", "scramble",
		"penalty", "penalties", "yards gained", "red zone", "two-minute", "goal line", "success rate",
	)
	teamMarkers = strutil.NewKeywordSet(
		"win percentage", "win pct", "record", "records", "streak", "win streak", "losing streak",
		"rolling", "rolling average", "rank", "ranking", "rankings", "teams by", "top teams",
		"compare quarterbacks", "quarterbacks by", "offensive epa", "defensive epa", "standings",
		"season performance", "averages",
	)
)

// TableRouter maps a question to the most relevant stats table.
type TableRouter struct{}

// NewTableRouter creates a table router.
func NewTableRouter() *TableRouter {
	return &TableRouter{}
}

// Select applies, in order: against-the-spread records, pre-game and betting vocabulary,
// play-level vocabulary, team aggregate vocabulary. Play-by-play is the default.
func (r *TableRouter) Select(question string) TableContext {
	steps := []struct {
		markers *strutil.KeywordSet
		table   Table
	}{
		{atsMarkers, TableTeamStats},
		{pregameMarkers, TablePregame},
		{playMarkers, TablePlayByPlay},
		{teamMarkers, TableTeamStats},
	}
	for _, step := range steps {
		if kws := step.markers.Find(question); len(kws) > 0 {
			return newTableContext(step.table, kws)
		}
	}
	return newTableContext(TablePlayByPlay, nil)
}

func newTableContext(table Table, keywords []string) TableContext {
	guidance := fmt.Sprintf("Most relevant table: %s.\n%s", table, tableDescriptions[table])
	for _, other := range []Table{TableTeamStats, TablePlayByPlay, TablePregame} {
		if other != table {
			guidance += "\nAlso available: " + tableDescriptions[other]
		}
	}
	return TableContext{Table: table, Keywords: keywords, Guidance: guidance}
}
