package steamapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/dotascore/testutil"
)

// rewriteTransport redirects requests to the mock server regardless of the
// hardcoded production host.
type rewriteTransport struct {
	Transport http.RoundTripper
	host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	if t.host != "" {
		host := t.host
		host = strings.TrimPrefix(host, "http://")
		host = strings.TrimPrefix(host, "https://")
		req.URL.Host = host
	}
	return t.Transport.RoundTrip(req)
}

func testSteamClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c := NewClient("test-key")
	c.HTTPClient = &http.Client{
		Transport: &rewriteTransport{Transport: http.DefaultTransport, host: serverURL},
	}
	return c
}

func TestGetMatchDetails(t *testing.T) {
	t.Run("decodes match", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.MockMatchDetails(map[string]interface{}{
			"match_id":    int64(7000000001),
			"radiant_win": true,
			"lobby_type":  7,
			"game_mode":   22,
			"start_time":  int64(1710093600),
			"players": []map[string]interface{}{
				{"account_id": int64(42), "hero_id": 14},
				{"account_id": int64(4294967295), "hero_id": 8},
			},
		})

		c := testSteamClient(t, server.URL)
		rec, err := c.GetMatchDetails(context.Background(), 7000000001)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.MatchID != 7000000001 {
			t.Errorf("match id = %d", rec.MatchID)
		}
		if rec.RadiantWin == nil || !*rec.RadiantWin {
			t.Errorf("radiant_win = %v, want true", rec.RadiantWin)
		}
		if rec.LobbyType != 7 || rec.GameMode != 22 {
			t.Errorf("lobby/mode = %d/%d", rec.LobbyType, rec.GameMode)
		}
		want := time.Unix(1710093600, 0).UTC()
		if !rec.CreatedAt.Equal(want) {
			t.Errorf("created_at = %v, want %v", rec.CreatedAt, want)
		}
		if len(rec.Players) != 2 || rec.Players[0].AccountID != 42 || rec.Players[1].HeroID != 8 {
			t.Errorf("players = %+v", rec.Players)
		}
	})

	t.Run("api error payload", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.MockMatchDetails(map[string]interface{}{"error": "Match ID not found"})

		c := testSteamClient(t, server.URL)
		_, err := c.GetMatchDetails(context.Background(), 1)
		if err == nil || !strings.Contains(err.Error(), "Match ID not found") {
			t.Errorf("err = %v, want match details error", err)
		}
	})

	t.Run("unresolved outcome stays nil", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.MockMatchDetails(map[string]interface{}{
			"match_id":   int64(5),
			"lobby_type": 0,
		})

		c := testSteamClient(t, server.URL)
		rec, err := c.GetMatchDetails(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.RadiantWin != nil {
			t.Errorf("radiant_win = %v, want nil", rec.RadiantWin)
		}
	})

	t.Run("http error", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.Handlers["/IDOTA2Match_570/GetMatchDetails/v1"] = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		c := testSteamClient(t, server.URL)
		if _, err := c.GetMatchDetails(context.Background(), 1); err == nil {
			t.Error("error = nil, want status error")
		}
	})
}

func TestGetMatchHistory(t *testing.T) {
	t.Run("decodes matches", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.MockMatchHistory([]map[string]interface{}{
			{
				"match_id":   int64(100),
				"lobby_type": 7,
				"start_time": int64(1710090000),
				"players":    []map[string]interface{}{{"account_id": int64(42), "hero_id": 1}},
			},
			{
				"match_id":   int64(99),
				"lobby_type": 0,
			},
		})

		c := testSteamClient(t, server.URL)
		got, err := c.GetMatchHistory(context.Background(), 42, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d matches, want 2", len(got))
		}
		if got[0].MatchID != 100 || got[0].LobbyType != 7 {
			t.Errorf("first match = %+v", got[0])
		}
		if got[0].Players[0].AccountID != 42 {
			t.Errorf("players = %+v", got[0].Players)
		}
		if !got[1].CreatedAt.IsZero() {
			t.Errorf("missing start_time should leave created_at zero, got %v", got[1].CreatedAt)
		}
	})

	t.Run("non-ok status", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.Handlers["/IDOTA2Match_570/GetMatchHistory/v1"] = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":{"status":15,"matches":[]}}`))
		}

		c := testSteamClient(t, server.URL)
		_, err := c.GetMatchHistory(context.Background(), 42, 10)
		if err == nil || !strings.Contains(err.Error(), "status 15") {
			t.Errorf("err = %v, want status 15 error", err)
		}
	})

	t.Run("sends key and limit", func(t *testing.T) {
		server := testutil.NewMockSteamServer(t)
		server.Handlers["/IDOTA2Match_570/GetMatchHistory/v1"] = func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("key"); got != "test-key" {
				t.Errorf("key = %q", got)
			}
			if got := r.URL.Query().Get("matches_requested"); got != "10" {
				t.Errorf("matches_requested = %q, want default 10", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":{"status":1,"matches":[]}}`))
		}

		c := testSteamClient(t, server.URL)
		if _, err := c.GetMatchHistory(context.Background(), 42, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestGetHeroes(t *testing.T) {
	server := testutil.NewMockSteamServer(t)
	calls := 0
	server.Handlers["/IEconDOTA2_570/GetHeroes/v1"] = func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("language"); got != "en_us" {
			t.Errorf("language = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"heroes":[{"id":1,"localized_name":"Anti-Mage"},{"id":14,"localized_name":"Pudge"}]}}`))
	}

	c := testSteamClient(t, server.URL)
	heroes, err := c.GetHeroes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(heroes) != 2 || heroes[1].Name != "Pudge" {
		t.Errorf("heroes = %+v", heroes)
	}

	// Second call is served from the cache.
	if _, err := c.GetHeroes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("heroes endpoint hit %d times, want 1", calls)
	}
}
