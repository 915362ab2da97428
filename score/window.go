package score

import "time"

const (
	// graceSeconds pads each archive's end estimate so a broadcast that dropped
	// and came back within half an hour still counts as the same session.
	graceSeconds = 1800
	// preRollSeconds backdates the final boundary to tolerate the lag between
	// an actual game start and the stream metadata catching up.
	preRollSeconds = 600
)

// ParseDuration converts a Twitch archive duration like "1h23m45s" to seconds.
// Any subset of units may be present ("45m", "30s"); units are never reordered.
// Strings with no recognizable unit yield 0: archive durations are best-effort
// data and a zero-length estimate only narrows the grace window.
func ParseDuration(s string) int {
	total := 0
	cur := 0
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			seen = true
			continue
		}
		if !seen {
			continue
		}
		switch r {
		case 'h':
			total += cur * 3600
		case 'm':
			total += cur * 60
		case 's':
			total += cur
		}
		cur, seen = 0, false
	}
	return total
}

// resolveSessionStart derives the lower bound for history lookups from the
// reported stream start and the channel's archive list (newest first, an input
// precondition). Each archive whose estimated end, padded by the grace window,
// overlaps the running boundary pulls the boundary back to that archive's
// start; the walk stops at the first archive that doesn't. The result is then
// backdated by the pre-roll allowance.
func resolveSessionStart(liveSince time.Time, archives []Broadcast) time.Time {
	boundary := liveSince
	for _, a := range archives {
		end := a.CreatedAt.Add(time.Duration(ParseDuration(a.Duration)+graceSeconds) * time.Second)
		if !end.After(boundary) {
			break
		}
		boundary = a.CreatedAt
	}
	return boundary.Add(-preRollSeconds * time.Second)
}
