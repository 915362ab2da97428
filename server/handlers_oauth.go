package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/onnwee/dotascore/config"
	dbpkg "github.com/onnwee/dotascore/db"
)

func twitchOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		RedirectURL:  cfg.TwitchRedirectURI,
		Scopes:       strings.Fields(cfg.TwitchScopes),
		Endpoint:     endpoints.Twitch,
	}
}

// HandleTwitchOAuthStart initiates the Twitch OAuth flow by redirecting to
// Twitch.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load()
	if cfg.TwitchClientID == "" || cfg.TwitchRedirectURI == "" {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + TWITCH_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, time.Now().Add(10*time.Minute))
	http.Redirect(w, r, twitchOAuthConfig(cfg).AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusFound)
}

// HandleTwitchOAuthCallback handles the OAuth callback from Twitch and stores
// the bot user token, encrypted at rest.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load()
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	if !h.takeOAuthState(st) {
		http.Error(w, "invalid state", 400)
		return
	}
	ctx := r.Context()
	tok, err := twitchOAuthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if err := dbpkg.UpsertOAuthToken(ctx, h.db, "twitch", tok.AccessToken, tok.RefreshToken, tok.Expiry, cfg.TwitchScopes); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "expiry": tok.Expiry}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
