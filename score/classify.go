package score

import (
	"fmt"
	"strings"
)

const (
	lobbyTypeUnranked = 0
	lobbyTypeRanked   = 7
	gameModeTurbo     = 23
)

// matchType buckets a record by format. Ranked is decided purely by lobby
// type; turbo uses an ordinary lobby code and is recognized by game mode.
func matchType(rec MatchRecord) string {
	switch {
	case rec.LobbyType == lobbyTypeRanked:
		return "ranked"
	case rec.GameMode == gameModeTurbo:
		return "turbo"
	default:
		return "unranked"
	}
}

// sideAndResult reports whether the tracked side won. The second return is
// false when the match cannot be counted: no tracked player in the slot list,
// or the outcome still unknown. Side inference relies on the ten-slot layout
// (first half Radiant, second half Dire).
func sideAndResult(rec MatchRecord, accounts []int64) (won, counted bool) {
	if rec.RadiantWin == nil {
		return false, false
	}
	idx := -1
	for i, p := range rec.Players {
		if containsAccount(accounts, p.AccountID) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, false
	}
	radiant := idx < len(rec.Players)/2
	return radiant == *rec.RadiantWin, true
}

func containsAccount(accounts []int64, id int64) bool {
	for _, a := range accounts {
		if a == id {
			return true
		}
	}
	return false
}

// counters is one win/loss tally per match type.
type counters struct {
	win, lose int
}

// matchTypeOrder fixes the render order of the summary segments.
var matchTypeOrder = []string{"ranked", "unranked", "turbo"}

// tally classifies every resolved record and folds it into per-type counters.
func tally(records []MatchRecord, accounts []int64) map[string]counters {
	byType := map[string]counters{}
	for _, rec := range records {
		won, counted := sideAndResult(rec, accounts)
		if !counted {
			continue
		}
		c := byType[matchType(rec)]
		if won {
			c.win++
		} else {
			c.lose++
		}
		byType[matchType(rec)] = c
	}
	return byType
}

// renderRecord produces the chat reply: one "<Type> W <n> - L <n>" segment per
// type with at least one counted game, in ranked/unranked/turbo order.
func renderRecord(byType map[string]counters) string {
	segments := make([]string, 0, len(matchTypeOrder))
	for _, mt := range matchTypeOrder {
		c := byType[mt]
		if c.win+c.lose == 0 {
			continue
		}
		label := strings.ToUpper(mt[:1]) + mt[1:]
		segments = append(segments, fmt.Sprintf("%s W %d - L %d", label, c.win, c.lose))
	}
	if len(segments) == 0 {
		return "No games played on stream yet"
	}
	return strings.Join(segments, " | ")
}
