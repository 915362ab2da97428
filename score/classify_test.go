package score

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestMatchType(t *testing.T) {
	tests := []struct {
		name string
		rec  MatchRecord
		want string
	}{
		{"ranked lobby", MatchRecord{LobbyType: 7}, "ranked"},
		{"unranked lobby", MatchRecord{LobbyType: 0, GameMode: 22}, "unranked"},
		{"turbo", MatchRecord{LobbyType: 0, GameMode: 23}, "turbo"},
		{"ranked wins over turbo mode", MatchRecord{LobbyType: 7, GameMode: 23}, "ranked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchType(tt.rec); got != tt.want {
				t.Errorf("matchType = %q, want %q", got, tt.want)
			}
		})
	}
}

func tenSlots(tracked int64, at int) []Player {
	players := make([]Player, 10)
	for i := range players {
		players[i] = Player{AccountID: int64(1000 + i)}
	}
	if at >= 0 {
		players[at] = Player{AccountID: tracked}
	}
	return players
}

func TestSideAndResult(t *testing.T) {
	accounts := []int64{42}

	tests := []struct {
		name        string
		rec         MatchRecord
		wantWon     bool
		wantCounted bool
	}{
		{
			name:        "radiant win on radiant side",
			rec:         MatchRecord{Players: tenSlots(42, 2), RadiantWin: boolPtr(true)},
			wantWon:     true,
			wantCounted: true,
		},
		{
			name:        "radiant win on dire side",
			rec:         MatchRecord{Players: tenSlots(42, 7), RadiantWin: boolPtr(true)},
			wantWon:     false,
			wantCounted: true,
		},
		{
			name:        "dire win on dire side",
			rec:         MatchRecord{Players: tenSlots(42, 5), RadiantWin: boolPtr(false)},
			wantWon:     true,
			wantCounted: true,
		},
		{
			name:        "last radiant slot",
			rec:         MatchRecord{Players: tenSlots(42, 4), RadiantWin: boolPtr(true)},
			wantWon:     true,
			wantCounted: true,
		},
		{
			name:        "unknown outcome not counted",
			rec:         MatchRecord{Players: tenSlots(42, 0)},
			wantWon:     false,
			wantCounted: false,
		},
		{
			name:        "tracked player absent not counted",
			rec:         MatchRecord{Players: tenSlots(42, -1), RadiantWin: boolPtr(true)},
			wantWon:     false,
			wantCounted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			won, counted := sideAndResult(tt.rec, accounts)
			if won != tt.wantWon || counted != tt.wantCounted {
				t.Errorf("sideAndResult = (%v, %v), want (%v, %v)",
					won, counted, tt.wantWon, tt.wantCounted)
			}
		})
	}
}

func TestTallyAndRender(t *testing.T) {
	accounts := []int64{42}
	records := []MatchRecord{
		{LobbyType: 7, Players: tenSlots(42, 0), RadiantWin: boolPtr(true)},   // ranked win
		{LobbyType: 7, Players: tenSlots(42, 6), RadiantWin: boolPtr(true)},   // ranked loss
		{GameMode: 23, Players: tenSlots(42, 1), RadiantWin: boolPtr(false)},  // turbo loss
		{LobbyType: 0, Players: tenSlots(42, 0)},                              // unresolved, skipped
		{LobbyType: 0, Players: tenSlots(42, -1), RadiantWin: boolPtr(true)},  // untracked, skipped
	}

	got := renderRecord(tally(records, accounts))
	want := "Ranked W 1 - L 1 | Turbo W 0 - L 1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderRecordEmpty(t *testing.T) {
	got := renderRecord(map[string]counters{})
	if got != "No games played on stream yet" {
		t.Errorf("got %q", got)
	}
}

func TestRenderRecordOrder(t *testing.T) {
	byType := map[string]counters{
		"turbo":    {win: 1},
		"ranked":   {lose: 2},
		"unranked": {win: 3, lose: 1},
	}
	got := renderRecord(byType)
	want := "Ranked W 0 - L 2 | Unranked W 3 - L 1 | Turbo W 1 - L 0"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeAdjacent(t *testing.T) {
	recs := []MatchRecord{
		{MatchID: 3}, {MatchID: 3}, {MatchID: 2}, {MatchID: 1}, {MatchID: 1}, {MatchID: 1},
	}
	got := dedupeAdjacent(recs)
	wantIDs := []int64{3, 2, 1}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d records, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].MatchID != id {
			t.Errorf("record %d: match id %d, want %d", i, got[i].MatchID, id)
		}
	}
}

func TestDedupeAdjacentKeepsSeparatedDuplicates(t *testing.T) {
	// Only runs are collapsed; a repeat separated by another match survives.
	recs := []MatchRecord{{MatchID: 5}, {MatchID: 4}, {MatchID: 5}}
	got := dedupeAdjacent(recs)
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
}
