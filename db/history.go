package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/dotascore/score"
)

// int64ArrayLiteral renders a Postgres bigint[] literal. Built by hand so the
// same statement works regardless of driver-side slice support.
func int64ArrayLiteral(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// SessionMatches returns cached match records for the session window, newest
// first: at least one tracked account in the player list, at least one player
// that actually loaded a hero, ranked or unranked lobby, not the actively
// running match. Duplicate rows per match id are returned as stored; the score
// pipeline collapses adjacent ones.
func (s *Store) SessionMatches(ctx context.Context, accounts []int64, excludeMatchID int64, since time.Time) ([]score.MatchRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT match_id, players, lobby_type, game_mode, radiant_win, created_at
		FROM game_history
		WHERE ($1 = 0 OR match_id <> $1)
		  AND created_at >= $2
		  AND lobby_type IN (0, 7)
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(players) p
			WHERE (p->>'account_id')::bigint = ANY($3::bigint[])
		  )
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(players) p
			WHERE COALESCE((p->>'hero_id')::int, 0) <> 0
		  )
		ORDER BY created_at DESC`,
		excludeMatchID, since, int64ArrayLiteral(accounts))
	if err != nil {
		return nil, fmt.Errorf("query game_history: %w", err)
	}
	defer rows.Close()

	var out []score.MatchRecord
	for rows.Next() {
		var (
			rec        score.MatchRecord
			players    []byte
			radiantWin sql.NullBool
		)
		if err := rows.Scan(&rec.MatchID, &players, &rec.LobbyType, &rec.GameMode, &radiantWin, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game_history row: %w", err)
		}
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, fmt.Errorf("decode players for match %d: %w", rec.MatchID, err)
		}
		if radiantWin.Valid {
			v := radiantWin.Bool
			rec.RadiantWin = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertOutcome writes the resolved outcome for a match. All cached rows of
// the match are patched; when none exist a stub row is inserted so the outcome
// survives until the tracker backfills the full record. Idempotent.
func (s *Store) UpsertOutcome(ctx context.Context, matchID int64, radiantWin bool) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE game_history SET radiant_win=$2 WHERE match_id=$1`, matchID, radiantWin)
	if err != nil {
		return fmt.Errorf("update game_history outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO game_history (match_id, radiant_win) VALUES ($1, $2)`, matchID, radiantWin)
	if err != nil {
		return fmt.Errorf("insert game_history outcome: %w", err)
	}
	return nil
}

// InsertMatch records a match seen by the tracker unless a row for it already
// exists. Reports whether a row was inserted.
func (s *Store) InsertMatch(ctx context.Context, rec score.MatchRecord) (bool, error) {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return false, fmt.Errorf("encode players: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_history (match_id, players, lobby_type, game_mode, radiant_win, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (SELECT 1 FROM game_history WHERE match_id = $1)`,
		rec.MatchID, players, rec.LobbyType, rec.GameMode, nullBool(rec.RadiantWin), createdAt)
	if err != nil {
		return false, fmt.Errorf("insert game_history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasMatch reports whether a game_history row exists for the match.
func (s *Store) HasMatch(ctx context.Context, matchID int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_history WHERE match_id = $1)`, matchID).Scan(&exists)
	return exists, err
}

// FindActiveMatch looks for a live game involving any of the accounts. The
// live_games table is fed by the game-coordinator watcher and may be stale, so
// entries older than ten minutes are ignored. sql.ErrNoRows surfaces to the
// caller, which treats any error as "no active match".
func (s *Store) FindActiveMatch(ctx context.Context, accounts []int64) (int64, error) {
	var matchID int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT match_id FROM live_games
		WHERE updated_at > NOW() - INTERVAL '10 minutes'
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(players) p
			WHERE (p->>'account_id')::bigint = ANY($1::bigint[])
		  )
		ORDER BY updated_at DESC
		LIMIT 1`,
		int64ArrayLiteral(accounts)).Scan(&matchID)
	if err != nil {
		return 0, err
	}
	return matchID, nil
}

// ActiveGamePlayers returns the player list of the freshest live game
// involving any of the accounts, for hero lookups in chat.
func (s *Store) ActiveGamePlayers(ctx context.Context, accounts []int64) ([]score.Player, error) {
	var encoded []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT players FROM live_games
		WHERE updated_at > NOW() - INTERVAL '10 minutes'
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(players) p
			WHERE (p->>'account_id')::bigint = ANY($1::bigint[])
		  )
		ORDER BY updated_at DESC
		LIMIT 1`,
		int64ArrayLiteral(accounts)).Scan(&encoded)
	if err != nil {
		return nil, err
	}
	var players []score.Player
	if err := json.Unmarshal(encoded, &players); err != nil {
		return nil, fmt.Errorf("decode live game players: %w", err)
	}
	return players, nil
}

// UpsertLiveGame records or refreshes a live game entry.
func (s *Store) UpsertLiveGame(ctx context.Context, matchID int64, players []score.Player) error {
	encoded, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO live_games (match_id, players, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (match_id) DO UPDATE SET players=EXCLUDED.players, updated_at=NOW()`,
		matchID, encoded)
	return err
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
