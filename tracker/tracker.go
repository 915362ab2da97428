// Package tracker polls the Steam match history endpoint for every tracked
// account and records new matches in game_history, so score lookups have a
// local record even when the details endpoint is slow or down. It also keeps
// the hero list in sync.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/dotascore/db"
	"github.com/onnwee/dotascore/score"
	"github.com/onnwee/dotascore/steamapi"
	"github.com/onnwee/dotascore/telemetry"
)

// Steam account ids of players with hidden profiles come back as this marker.
const anonymousAccountID = 4294967295

const historyPageSize = 10

// MatchSource is the slice of the Steam client the tracker uses.
type MatchSource interface {
	GetMatchHistory(ctx context.Context, accountID int64, limit int) ([]score.MatchRecord, error)
	GetMatchDetails(ctx context.Context, matchID int64) (score.MatchRecord, error)
}

// Start runs the match poller until ctx is canceled. One poll walks every
// tracked account's recent history and inserts matches not seen before.
func Start(ctx context.Context, store *db.Store, steam MatchSource, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	slog.Info("tracker: starting", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if err := pollOnce(ctx, store, steam); err != nil {
		slog.Warn("tracker: poll", slog.Any("err", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("tracker: stopped")
			return
		case <-ticker.C:
			if err := pollOnce(ctx, store, steam); err != nil {
				slog.Warn("tracker: poll", slog.Any("err", err))
			}
		}
	}
}

func pollOnce(ctx context.Context, store *db.Store, steam MatchSource) error {
	accounts, err := store.AllTrackedAccounts(ctx)
	if err != nil {
		return err
	}
	inserted := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		recent, err := steam.GetMatchHistory(ctx, account, historyPageSize)
		if err != nil {
			slog.Debug("tracker: match history", slog.Int64("account_id", account), slog.Any("err", err))
			continue
		}
		for _, rec := range recent {
			known, err := store.HasMatch(ctx, rec.MatchID)
			if err != nil {
				return err
			}
			if known {
				continue
			}
			full := resolveMatch(ctx, steam, rec)
			ok, err := store.InsertMatch(ctx, full)
			if err != nil {
				slog.Warn("tracker: insert match", slog.Int64("match_id", rec.MatchID), slog.Any("err", err))
				continue
			}
			if ok {
				inserted++
			}
		}
	}
	if inserted > 0 {
		telemetry.AddTrackerInserts(inserted)
		slog.Info("tracker: recorded matches", slog.Int("count", inserted))
	}
	return nil
}

// resolveMatch upgrades a history entry with the match details. The details
// endpoint carries lobby type, game mode, and the outcome but hides account
// ids for private profiles, so identities from the history entry win.
func resolveMatch(ctx context.Context, steam MatchSource, rec score.MatchRecord) score.MatchRecord {
	details, err := steam.GetMatchDetails(ctx, rec.MatchID)
	if err != nil {
		slog.Debug("tracker: match details", slog.Int64("match_id", rec.MatchID), slog.Any("err", err))
		return rec
	}
	for i := range details.Players {
		if details.Players[i].AccountID != 0 && details.Players[i].AccountID != anonymousAccountID {
			continue
		}
		if i < len(rec.Players) && rec.Players[i].AccountID != anonymousAccountID {
			details.Players[i].AccountID = rec.Players[i].AccountID
		}
	}
	if details.CreatedAt.IsZero() {
		details.CreatedAt = rec.CreatedAt
	}
	if details.MatchID == 0 {
		details.MatchID = rec.MatchID
	}
	return details
}

// StartHeroSync refreshes the heroes table from the Steam hero list once a
// day, so name lookups work without shipping a static list.
func StartHeroSync(ctx context.Context, store *db.Store, steam *steamapi.Client) {
	sync := func() {
		heroes, err := steam.GetHeroes(ctx)
		if err != nil {
			slog.Warn("tracker: fetch heroes", slog.Any("err", err))
			return
		}
		rows := make([]db.Hero, 0, len(heroes))
		for _, h := range heroes {
			rows = append(rows, db.Hero{ID: h.ID, Name: h.Name})
		}
		if err := store.SyncHeroes(ctx, rows); err != nil {
			slog.Warn("tracker: sync heroes", slog.Any("err", err))
			return
		}
		slog.Info("tracker: hero list synced", slog.Int("count", len(rows)))
	}
	sync()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}
