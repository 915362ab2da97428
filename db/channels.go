package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Channel is one row of the channels table: a Twitch channel the bot sits in,
// keyed by its numeric Twitch user id.
type Channel struct {
	ID           int64
	Name         string
	GlobalMod    bool
	ShowSelf     bool
	Emotes       bool
	DelayEnabled bool
	DelaySeconds int
}

// ErrChannelNotFound is returned by GetChannel for unknown channel ids.
var ErrChannelNotFound = errors.New("channel not found")

// GetChannel loads a channel row.
func (s *Store) GetChannel(ctx context.Context, id int64) (Channel, error) {
	var (
		ch   Channel
		name sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, global_mod, show_self, emotes, delay_enabled, delay_seconds
		FROM channels WHERE id=$1`, id).
		Scan(&ch.ID, &name, &ch.GlobalMod, &ch.ShowSelf, &ch.Emotes, &ch.DelayEnabled, &ch.DelaySeconds)
	if err == sql.ErrNoRows {
		return Channel{}, ErrChannelNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("query channel %d: %w", id, err)
	}
	ch.Name = name.String
	return ch, nil
}

// ListChannelNames returns the login names of every joined channel, for the
// bot to join at startup. Channels parted with "part" have a NULL name and are
// skipped.
func (s *Store) ListChannelNames(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name FROM channels WHERE name IS NOT NULL AND name <> ''`)
	if err != nil {
		return nil, fmt.Errorf("query channel names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// JoinChannel upserts a channel row with its login name set.
func (s *Store) JoinChannel(ctx context.Context, id int64, name string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO channels (id, name, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, updated_at=NOW()`, id, name)
	return err
}

// PartChannel clears a channel's login name so the bot stops joining it.
func (s *Store) PartChannel(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE channels SET name=NULL, updated_at=NOW() WHERE id=$1`, id)
	return err
}

// TrackedAccounts returns the Dota account ids linked to a channel. Implements
// score.ChannelConfigSource; an empty result means no accounts are connected.
func (s *Store) TrackedAccounts(ctx context.Context, channelID int64) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT account_id FROM channel_accounts WHERE channel_id=$1 ORDER BY account_id`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel accounts: %w", err)
	}
	defer rows.Close()
	var accounts []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		accounts = append(accounts, id)
	}
	return accounts, rows.Err()
}

// AllTrackedAccounts returns every distinct account id linked to any channel.
func (s *Store) AllTrackedAccounts(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT account_id FROM channel_accounts ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("query tracked accounts: %w", err)
	}
	defer rows.Close()
	var accounts []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		accounts = append(accounts, id)
	}
	return accounts, rows.Err()
}

// AddAccount links a Dota account to a channel. Idempotent.
func (s *Store) AddAccount(ctx context.Context, channelID, accountID int64) error {
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO channel_accounts (channel_id, account_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, channelID, accountID)
	return err
}

// RemoveAccount unlinks a Dota account from a channel.
func (s *Store) RemoveAccount(ctx context.Context, channelID, accountID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM channel_accounts WHERE channel_id=$1 AND account_id=$2`, channelID, accountID)
	return err
}

// IsMod reports whether a user is on the channel's bot mod list.
func (s *Store) IsMod(ctx context.Context, channelID, userID int64) (bool, error) {
	var ok bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM channel_mods WHERE channel_id=$1 AND user_id=$2)`,
		channelID, userID).Scan(&ok)
	return ok, err
}

// IsGlobalMod reports whether the user's own channel row carries the global
// mod flag.
func (s *Store) IsGlobalMod(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE id=$1 AND global_mod)`, userID).Scan(&ok)
	return ok, err
}

// AddMod puts a user on the channel's bot mod list. Idempotent.
func (s *Store) AddMod(ctx context.Context, channelID, userID int64) error {
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO channel_mods (channel_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, channelID, userID)
	return err
}

// RemoveMod takes a user off the channel's bot mod list.
func (s *Store) RemoveMod(ctx context.Context, channelID, userID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM channel_mods WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	return err
}

// SetChannelFlag toggles one of the boolean channel settings. Only the columns
// named here may be targeted; the column name never comes from user input.
func (s *Store) SetChannelFlag(ctx context.Context, channelID int64, flag string, value bool) error {
	var column string
	switch flag {
	case "show_self", "emotes", "delay_enabled":
		column = flag
	default:
		return fmt.Errorf("unknown channel flag %q", flag)
	}
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET `+column+`=$2, updated_at=NOW() WHERE id=$1`, channelID, value)
	return err
}

// SetDelaySeconds updates the configured broadcast delay.
func (s *Store) SetDelaySeconds(ctx context.Context, channelID int64, seconds int) error {
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET delay_seconds=$2, updated_at=NOW() WHERE id=$1`, channelID, seconds)
	return err
}

// NotablePlayer is a named account shown in place of a raw id, either for one
// channel or globally (channel id 0).
type NotablePlayer struct {
	AccountID     int64
	ChannelID     int64
	Name          string
	Enabled       bool
	LastChanged   time.Time
	LastChangedBy int64
}

// UpsertNotablePlayer enables (or renames) a notable player entry.
func (s *Store) UpsertNotablePlayer(ctx context.Context, np NotablePlayer) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO notable_players (account_id, channel_id, name, enabled, last_changed, last_changed_by)
		VALUES ($1, $2, $3, TRUE, NOW(), $4)
		ON CONFLICT (account_id, channel_id) DO UPDATE SET
		  name=EXCLUDED.name, enabled=TRUE, last_changed=NOW(), last_changed_by=EXCLUDED.last_changed_by`,
		np.AccountID, np.ChannelID, np.Name, np.LastChangedBy)
	return err
}

// DisableNotablePlayer soft-deletes a notable player entry.
func (s *Store) DisableNotablePlayer(ctx context.Context, accountID, channelID, changedBy int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE notable_players SET enabled=FALSE, last_changed=NOW(), last_changed_by=$3
		WHERE account_id=$1 AND channel_id=$2`, accountID, channelID, changedBy)
	return err
}

func (s *Store) ensureChannel(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO channels (id) VALUES ($1) ON CONFLICT DO NOTHING`, id)
	return err
}
