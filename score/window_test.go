package score

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"full", "1h23m45s", 5025},
		{"minutes only", "45m", 2700},
		{"seconds only", "30s", 30},
		{"hours and seconds", "2h5s", 7205},
		{"empty", "", 0},
		{"no units", "1234", 0},
		{"garbage", "abc", 0},
		{"unit without digits", "h30m", 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.in); got != tt.want {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveSessionStart(t *testing.T) {
	liveSince := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	t.Run("no archives", func(t *testing.T) {
		got := resolveSessionStart(liveSince, nil)
		want := liveSince.Add(-preRollSeconds * time.Second)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("archive within grace window extends session", func(t *testing.T) {
		// Archive started 4000s before the live timestamp and ran for an hour:
		// its padded end (start + 3600 + 1800) lands past the boundary, so the
		// session start pulls back to the archive's start.
		prev := Broadcast{CreatedAt: liveSince.Add(-4000 * time.Second), Duration: "1h"}
		got := resolveSessionStart(liveSince, []Broadcast{prev})
		want := prev.CreatedAt.Add(-preRollSeconds * time.Second)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("stale archive breaks the walk", func(t *testing.T) {
		// Ended hours before the boundary even with grace applied.
		old := Broadcast{CreatedAt: liveSince.Add(-24 * time.Hour), Duration: "2h"}
		got := resolveSessionStart(liveSince, []Broadcast{old})
		want := liveSince.Add(-preRollSeconds * time.Second)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("chained restarts walk back through each archive", func(t *testing.T) {
		// Newest first: two back-to-back archives, then a stale one that stops
		// the walk before it is reached.
		a1 := Broadcast{CreatedAt: liveSince.Add(-30 * time.Minute), Duration: "25m"}
		a2 := Broadcast{CreatedAt: a1.CreatedAt.Add(-90 * time.Minute), Duration: "1h5m"}
		stale := Broadcast{CreatedAt: a2.CreatedAt.Add(-12 * time.Hour), Duration: "3h"}
		got := resolveSessionStart(liveSince, []Broadcast{a1, a2, stale})
		want := a2.CreatedAt.Add(-preRollSeconds * time.Second)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("unparseable duration still counts grace", func(t *testing.T) {
		// Duration parses to 0, so only the grace padding can reach the
		// boundary. Started 20 minutes ago: 0 + 1800s grace overlaps.
		a := Broadcast{CreatedAt: liveSince.Add(-20 * time.Minute), Duration: "???"}
		got := resolveSessionStart(liveSince, []Broadcast{a})
		want := a.CreatedAt.Add(-preRollSeconds * time.Second)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}
