// Package score computes a streamer's win/loss record for the current broadcast.
// It reconciles Twitch live status, the channel's archived VODs and the locally
// cached Dota match history into one session window, resolves missing match
// outcomes through the Steam Web API, and renders the summary line the chat bot
// replies with.
package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/dotascore/telemetry"
)

// Error text is sent to chat verbatim, hence the capitalization.
var (
	ErrStreamNotLive = errors.New("Stream isn't live")
	ErrNoAccounts    = errors.New("No accounts connected")
)

// Player is one slot in a match. Slot order encodes side: the first half of the
// list is Radiant, the second half Dire.
type Player struct {
	AccountID int64 `json:"account_id"`
	HeroID    int   `json:"hero_id"`
}

// MatchRecord is a row of the game_history cache. RadiantWin is nil until the
// authoritative outcome has been resolved; once set it is never changed here.
type MatchRecord struct {
	MatchID    int64     `json:"match_id"`
	Players    []Player  `json:"players"`
	LobbyType  int       `json:"lobby_type"`
	GameMode   int       `json:"game_mode"`
	RadiantWin *bool     `json:"radiant_win,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LiveStatus reports whether a channel is currently broadcasting.
type LiveStatus struct {
	Live      bool
	StartedAt time.Time
}

// Broadcast is an archived VOD: when it started and its free-form duration
// string ("1h23m45s", partial units allowed).
type Broadcast struct {
	CreatedAt time.Time
	Duration  string
}

// LiveStatusSource reports the channel's current broadcast state.
type LiveStatusSource interface {
	GetLiveStatus(ctx context.Context, channelID int64) (LiveStatus, error)
}

// ArchiveSource lists a channel's archived VODs, newest first.
type ArchiveSource interface {
	ListBroadcasts(ctx context.Context, channelID int64) ([]Broadcast, error)
}

// ChannelConfigSource returns the Dota account ids a channel tracks.
type ChannelConfigSource interface {
	TrackedAccounts(ctx context.Context, channelID int64) ([]int64, error)
}

// ActiveGameFinder looks up the match id of a game currently in progress for
// any of the given accounts. It is best-effort: errors and "no game" are
// equivalent to the caller.
type ActiveGameFinder interface {
	FindActiveMatch(ctx context.Context, accounts []int64) (int64, error)
}

// HistoryStore reads candidate matches for a session window and patches
// resolved outcomes back into the cache.
type HistoryStore interface {
	// SessionMatches returns records newest-first where at least one player is
	// in accounts, at least one player has a nonzero hero id, the lobby type is
	// ranked (7) or unranked (0), the match id differs from excludeMatchID
	// (when nonzero), and the record is not older than since.
	SessionMatches(ctx context.Context, accounts []int64, excludeMatchID int64, since time.Time) ([]MatchRecord, error)
	// UpsertOutcome writes radiant_win for a match id. Idempotent; writing the
	// same value twice is harmless.
	UpsertOutcome(ctx context.Context, matchID int64, radiantWin bool) error
}

// MatchDetailsFetcher retrieves authoritative match details remotely.
type MatchDetailsFetcher interface {
	GetMatchDetails(ctx context.Context, matchID int64) (MatchRecord, error)
}

// Service wires the collaborators the computation needs. All fields are
// required except Finder, which may be nil when no live-game source exists.
type Service struct {
	Live    LiveStatusSource
	Archive ArchiveSource
	Config  ChannelConfigSource
	Finder  ActiveGameFinder
	History HistoryStore
	Details MatchDetailsFetcher
}

// ComputeSessionRecord returns the rendered win/loss summary for the channel's
// current broadcast, or ErrStreamNotLive / ErrNoAccounts when the channel is
// offline or has no linked accounts.
func (s *Service) ComputeSessionRecord(ctx context.Context, channelID int64) (string, error) {
	start := time.Now()
	defer func() { telemetry.ObserveScoreDuration(time.Since(start)) }()
	telemetry.IncScoreComputations()

	var (
		status   LiveStatus
		archives []Broadcast
		accounts []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = s.Live.GetLiveStatus(gctx, channelID)
		if err != nil {
			return fmt.Errorf("live status: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		archives, err = s.Archive.ListBroadcasts(gctx, channelID)
		if err != nil {
			return fmt.Errorf("list broadcasts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		accounts, err = s.Config.TrackedAccounts(gctx, channelID)
		if err != nil {
			return fmt.Errorf("tracked accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	if !status.Live || status.StartedAt.IsZero() {
		return "", ErrStreamNotLive
	}
	if len(accounts) == 0 {
		return "", ErrNoAccounts
	}

	boundary := resolveSessionStart(status.StartedAt, archives)

	activeMatch := s.findActiveMatch(ctx, accounts)

	records, err := s.History.SessionMatches(ctx, accounts, activeMatch, boundary)
	if err != nil {
		return "", fmt.Errorf("session matches: %w", err)
	}
	records = dedupeAdjacent(records)

	resolved := s.resolveOutcomes(ctx, records)

	return renderRecord(tally(resolved, accounts)), nil
}

// findActiveMatch is best-effort: a failed or absent lookup only means the
// in-progress game is not excluded from the history query, which is harmless
// since it has no outcome yet.
func (s *Service) findActiveMatch(ctx context.Context, accounts []int64) int64 {
	if s.Finder == nil {
		return 0
	}
	id, err := s.Finder.FindActiveMatch(ctx, accounts)
	if err != nil {
		return 0
	}
	return id
}

// dedupeAdjacent collapses runs of records sharing a match id, keeping the
// first of each run. The input is sorted newest-first, so duplicates of one
// match are expected to be adjacent; duplicates interleaved by created_at ties
// across distinct matches are not collapsed. That is the store's historical
// behavior and is kept as-is.
func dedupeAdjacent(records []MatchRecord) []MatchRecord {
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.MatchID == records[i-1].MatchID {
			continue
		}
		out = append(out, rec)
	}
	return out
}
