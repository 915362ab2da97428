// Package steamapi is a minimal Steam Web API client for the Dota 2 match
// endpoints: match details, per-account match history, and the hero list.
package steamapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/onnwee/dotascore/score"
)

// Client calls api.steampowered.com with a Web API key. The zero value is not
// usable; construct with NewClient.
type Client struct {
	Key        string
	HTTPClient *http.Client

	heroes *ttlcache.Cache[string, []Hero]
}

// NewClient returns a client with a hero-list cache attached. The hero list
// changes a few times a year; a day of staleness is acceptable.
func NewClient(key string) *Client {
	c := &Client{
		Key: key,
		heroes: ttlcache.New[string, []Hero](
			ttlcache.WithTTL[string, []Hero](24 * time.Hour),
		),
	}
	go c.heroes.Start()
	return c
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.steampowered.com/"+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("key", c.Key)
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type matchPlayer struct {
	AccountID int64 `json:"account_id"`
	HeroID    int   `json:"hero_id"`
}

// GetMatchDetails fetches the authoritative record for a finished match.
// Implements score.MatchDetailsFetcher. Note the Steam endpoint anonymizes
// account ids for players with hidden profiles; callers that need identities
// must merge them from their own cache.
func (c *Client) GetMatchDetails(ctx context.Context, matchID int64) (score.MatchRecord, error) {
	var body struct {
		Result struct {
			Error      string        `json:"error"`
			MatchID    int64         `json:"match_id"`
			RadiantWin *bool         `json:"radiant_win"`
			LobbyType  int           `json:"lobby_type"`
			GameMode   int           `json:"game_mode"`
			StartTime  int64         `json:"start_time"`
			Players    []matchPlayer `json:"players"`
		} `json:"result"`
	}
	q := map[string]string{"match_id": strconv.FormatInt(matchID, 10)}
	if err := c.get(ctx, "IDOTA2Match_570/GetMatchDetails/v1", q, &body); err != nil {
		return score.MatchRecord{}, err
	}
	if body.Result.Error != "" {
		return score.MatchRecord{}, fmt.Errorf("match details for %d: %s", matchID, body.Result.Error)
	}
	rec := score.MatchRecord{
		MatchID:    body.Result.MatchID,
		LobbyType:  body.Result.LobbyType,
		GameMode:   body.Result.GameMode,
		RadiantWin: body.Result.RadiantWin,
	}
	if body.Result.StartTime > 0 {
		rec.CreatedAt = time.Unix(body.Result.StartTime, 0).UTC()
	}
	for _, p := range body.Result.Players {
		rec.Players = append(rec.Players, score.Player{AccountID: p.AccountID, HeroID: p.HeroID})
	}
	return rec, nil
}

// GetMatchHistory lists an account's most recent matches, newest first. Only
// the fields the tracker needs are decoded; outcomes are not part of this
// endpoint and stay unknown.
func (c *Client) GetMatchHistory(ctx context.Context, accountID int64, limit int) ([]score.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var body struct {
		Result struct {
			Status  int `json:"status"`
			Matches []struct {
				MatchID   int64         `json:"match_id"`
				LobbyType int           `json:"lobby_type"`
				StartTime int64         `json:"start_time"`
				Players   []matchPlayer `json:"players"`
			} `json:"matches"`
		} `json:"result"`
	}
	q := map[string]string{
		"account_id":        strconv.FormatInt(accountID, 10),
		"matches_requested": strconv.Itoa(limit),
	}
	if err := c.get(ctx, "IDOTA2Match_570/GetMatchHistory/v1", q, &body); err != nil {
		return nil, err
	}
	if body.Result.Status != 1 {
		return nil, fmt.Errorf("match history for %d: status %d", accountID, body.Result.Status)
	}
	out := make([]score.MatchRecord, 0, len(body.Result.Matches))
	for _, m := range body.Result.Matches {
		rec := score.MatchRecord{MatchID: m.MatchID, LobbyType: m.LobbyType}
		if m.StartTime > 0 {
			rec.CreatedAt = time.Unix(m.StartTime, 0).UTC()
		}
		for _, p := range m.Players {
			rec.Players = append(rec.Players, score.Player{AccountID: p.AccountID, HeroID: p.HeroID})
		}
		out = append(out, rec)
	}
	return out, nil
}

// Hero is one entry of the Dota hero list.
type Hero struct {
	ID   int
	Name string
}

// GetHeroes returns the localized hero list, served from the in-process cache
// when fresh.
func (c *Client) GetHeroes(ctx context.Context) ([]Hero, error) {
	if c.heroes != nil {
		if item := c.heroes.Get("heroes"); item != nil {
			return item.Value(), nil
		}
	}
	var body struct {
		Result struct {
			Heroes []struct {
				ID            int    `json:"id"`
				LocalizedName string `json:"localized_name"`
			} `json:"heroes"`
		} `json:"result"`
	}
	q := map[string]string{"language": "en_us"}
	if err := c.get(ctx, "IEconDOTA2_570/GetHeroes/v1", q, &body); err != nil {
		return nil, err
	}
	out := make([]Hero, 0, len(body.Result.Heroes))
	for _, h := range body.Result.Heroes {
		out = append(out, Hero{ID: h.ID, Name: h.LocalizedName})
	}
	if c.heroes != nil {
		c.heroes.Set("heroes", out, ttlcache.DefaultTTL)
	}
	return out, nil
}
