package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Hero is one row of the heroes table, synced from the Steam hero list.
type Hero struct {
	ID   int
	Name string
}

// ErrHeroNotFound is returned when no hero matches a name lookup.
var ErrHeroNotFound = errors.New("hero not found")

// FindHeroByName matches a hero by case-insensitive substring of the
// localized name, shortest match first, so "mag" resolves to Magnus rather
// than Anti-Mage.
func (s *Store) FindHeroByName(ctx context.Context, name string) (Hero, error) {
	var h Hero
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, localized_name FROM heroes
		WHERE localized_name ILIKE '%' || $1 || '%'
		ORDER BY length(localized_name) ASC
		LIMIT 1`, name).Scan(&h.ID, &h.Name)
	if err == sql.ErrNoRows {
		return Hero{}, ErrHeroNotFound
	}
	if err != nil {
		return Hero{}, fmt.Errorf("query hero by name: %w", err)
	}
	return h, nil
}

// GetHero loads a hero by id.
func (s *Store) GetHero(ctx context.Context, id int) (Hero, error) {
	var h Hero
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, localized_name FROM heroes WHERE id=$1`, id).Scan(&h.ID, &h.Name)
	if err == sql.ErrNoRows {
		return Hero{}, ErrHeroNotFound
	}
	if err != nil {
		return Hero{}, fmt.Errorf("query hero %d: %w", id, err)
	}
	return h, nil
}

// SyncHeroes replaces the hero list with the given set (insert or rename).
func (s *Store) SyncHeroes(ctx context.Context, heroes []Hero) error {
	for _, h := range heroes {
		if _, err := s.DB.ExecContext(ctx, `
			INSERT INTO heroes (id, localized_name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET localized_name=EXCLUDED.localized_name`,
			h.ID, h.Name); err != nil {
			return fmt.Errorf("upsert hero %d: %w", h.ID, err)
		}
	}
	return nil
}

// AddHeroEmotes registers an emote string shown in place of a hero name.
func (s *Store) AddHeroEmotes(ctx context.Context, heroID int, emotes string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO hero_emotes (hero_id, emotes) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, heroID, emotes)
	return err
}

// RemoveHeroEmotes deletes an emote registration.
func (s *Store) RemoveHeroEmotes(ctx context.Context, heroID int, emotes string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM hero_emotes WHERE hero_id=$1 AND emotes=$2`, heroID, emotes)
	return err
}

// ListHeroEmotes returns hero name -> emote strings for every registration.
func (s *Store) ListHeroEmotes(ctx context.Context) (map[string][]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT h.localized_name, e.emotes
		FROM hero_emotes e JOIN heroes h ON h.id = e.hero_id
		ORDER BY h.localized_name, e.emotes`)
	if err != nil {
		return nil, fmt.Errorf("query hero emotes: %w", err)
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var name, emotes string
		if err := rows.Scan(&name, &emotes); err != nil {
			return nil, err
		}
		out[name] = append(out[name], emotes)
	}
	return out, rows.Err()
}

// HeroChallenge is one tracked hero with its challenge start time.
type HeroChallenge struct {
	HeroID    int
	StartedAt time.Time
}

// AddHeroChallenge starts a challenge for a hero. Reports false when the hero
// is already on the list (use SetHeroChallengeTime to move the start).
func (s *Store) AddHeroChallenge(ctx context.Context, channelID int64, heroID int, start time.Time) (bool, error) {
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO hero_challenges (channel_id, hero_id, started_at) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, channelID, heroID, start)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveHeroChallenge drops a hero from the challenge list.
func (s *Store) RemoveHeroChallenge(ctx context.Context, channelID int64, heroID int) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM hero_challenges WHERE channel_id=$1 AND hero_id=$2`, channelID, heroID)
	return err
}

// SetHeroChallengeTime moves the start time of an existing challenge.
func (s *Store) SetHeroChallengeTime(ctx context.Context, channelID int64, heroID int, start time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE hero_challenges SET started_at=$3 WHERE channel_id=$1 AND hero_id=$2`,
		channelID, heroID, start)
	return err
}

// ListHeroChallenges returns a channel's challenges joined with hero names,
// oldest start first. The map carries hero id -> name for rendering.
func (s *Store) ListHeroChallenges(ctx context.Context, channelID int64) ([]HeroChallenge, map[int]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.hero_id, c.started_at, h.localized_name
		FROM hero_challenges c JOIN heroes h ON h.id = c.hero_id
		WHERE c.channel_id=$1
		ORDER BY c.started_at`, channelID)
	if err != nil {
		return nil, nil, fmt.Errorf("query hero challenges: %w", err)
	}
	defer rows.Close()
	var list []HeroChallenge
	names := map[int]string{}
	for rows.Next() {
		var (
			hc   HeroChallenge
			name string
		)
		if err := rows.Scan(&hc.HeroID, &hc.StartedAt, &name); err != nil {
			return nil, nil, err
		}
		list = append(list, hc)
		names[hc.HeroID] = name
	}
	return list, names, rows.Err()
}
