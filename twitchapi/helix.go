// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for user lookup, live stream status, and listing archived VODs, using an app
// access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// HelixClient provides the Helix calls the bot needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/"+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// User is a Helix user record.
type User struct {
	ID    int64
	Login string
}

// GetUserByLogin resolves a login name to its user record.
func (hc *HelixClient) GetUserByLogin(ctx context.Context, login string) (User, error) {
	if login == "" {
		return User{}, fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID    string `json:"id"`
			Login string `json:"login"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "users", map[string]string{"login": login}, &body); err != nil {
		return User{}, err
	}
	if len(body.Data) == 0 {
		return User{}, fmt.Errorf("user not found")
	}
	id, err := strconv.ParseInt(body.Data[0].ID, 10, 64)
	if err != nil {
		return User{}, fmt.Errorf("non-numeric user id %q", body.Data[0].ID)
	}
	return User{ID: id, Login: body.Data[0].Login}, nil
}

// Stream is a live broadcast as reported by /helix/streams.
type Stream struct {
	Type      string
	StartedAt time.Time
}

// GetStream returns the user's current live stream, or nil when offline.
func (hc *HelixClient) GetStream(ctx context.Context, userID string) (*Stream, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	var body struct {
		Data []struct {
			Type      string `json:"type"`
			StartedAt string `json:"started_at"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "streams", map[string]string{"user_id": userID}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	started, _ := time.Parse(time.RFC3339, body.Data[0].StartedAt)
	return &Stream{Type: body.Data[0].Type, StartedAt: started}, nil
}

// VideoMeta is one archived VOD. Duration stays in Twitch's free-form
// "3h15m42s" shape; parsing it is the caller's concern.
type VideoMeta struct{ ID, Title, Duration, CreatedAt string }

// ListVideos lists archive videos for a user, newest first.
func (hc *HelixClient) ListVideos(ctx context.Context, userID string, first int) ([]VideoMeta, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	if first <= 0 {
		first = 20
	}
	var body struct {
		Data []struct {
			ID, Title, Duration string
			CreatedAt           string `json:"created_at"`
		} `json:"data"`
	}
	q := map[string]string{"user_id": userID, "type": "archive", "first": strconv.Itoa(first)}
	if err := hc.get(ctx, "videos", q, &body); err != nil {
		return nil, err
	}
	out := make([]VideoMeta, 0, len(body.Data))
	for _, v := range body.Data {
		out = append(out, VideoMeta{ID: v.ID, Title: v.Title, Duration: v.Duration, CreatedAt: v.CreatedAt})
	}
	return out, nil
}
