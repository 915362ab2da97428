package score

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/dotascore/telemetry"
)

// resolveOutcomes fills in radiant_win for records that lack it. Records with
// a known outcome pass through untouched. The remote fetches fan out
// concurrently; a session holds at most a handful of matches, so no cap is
// placed on the fan-out width. A failed fetch falls back to the cached record,
// leaving the outcome unknown for this invocation.
func (s *Service) resolveOutcomes(ctx context.Context, records []MatchRecord) []MatchRecord {
	resolved := make([]MatchRecord, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		if rec.RadiantWin != nil {
			resolved[i] = rec
			continue
		}
		wg.Add(1)
		go func(i int, cached MatchRecord) {
			defer wg.Done()
			resolved[i] = s.resolveOne(ctx, cached)
		}(i, rec)
	}
	wg.Wait()
	return resolved
}

func (s *Service) resolveOne(ctx context.Context, cached MatchRecord) MatchRecord {
	telemetry.IncMatchDetailFetches()
	remote, err := s.Details.GetMatchDetails(ctx, cached.MatchID)
	if err != nil {
		telemetry.IncMatchDetailFetchFailures()
		slog.Debug("match details fetch failed; using cached record",
			slog.Int64("match_id", cached.MatchID), slog.Any("err", err))
		return cached
	}
	merged := mergePlayerIdentities(remote, cached)
	if merged.MatchID != 0 && merged.RadiantWin != nil {
		s.writeBackOutcome(ctx, merged.MatchID, *merged.RadiantWin)
	}
	return merged
}

// mergePlayerIdentities overlays the cached record's account ids onto the
// remote result by position: the Steam match details endpoint anonymizes
// account ids, but both providers list players in slot order, so the player at
// index i of the remote result is the player at index i of the cache. This
// positional assumption is fragile by nature and deliberately lives in this
// one function.
func mergePlayerIdentities(remote, cached MatchRecord) MatchRecord {
	for i := range remote.Players {
		if i < len(cached.Players) {
			remote.Players[i].AccountID = cached.Players[i].AccountID
		}
	}
	if remote.CreatedAt.IsZero() {
		remote.CreatedAt = cached.CreatedAt
	}
	return remote
}

// writeBackOutcome patches the resolved outcome into the history cache without
// blocking the reply. The write is a single-field upsert keyed by match id and
// the value comes from the authoritative source, so concurrent resolutions
// racing on the same match are harmless. Failures are logged and counted,
// never surfaced.
func (s *Service) writeBackOutcome(ctx context.Context, matchID int64, radiantWin bool) {
	wctx := context.WithoutCancel(ctx)
	go func() {
		wctx, cancel := context.WithTimeout(wctx, 10*time.Second)
		defer cancel()
		if err := s.History.UpsertOutcome(wctx, matchID, radiantWin); err != nil {
			telemetry.IncOutcomeWritebackFailures()
			slog.Warn("outcome write-back failed",
				slog.Int64("match_id", matchID), slog.Any("err", err))
		}
	}()
}
