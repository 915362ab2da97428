// Command dotascore is the main entrypoint for the Dota 2 chat bot and its
// background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Joins Twitch chat and answers the score and moderation commands.
//   - Starts background jobs: match history tracker, hero list sync, and the
//     OAuth token refresher for the bot account.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics,
//     and the Twitch account-linking flow.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/dotascore/bot"
	"github.com/onnwee/dotascore/config"
	"github.com/onnwee/dotascore/db"
	"github.com/onnwee/dotascore/oauth"
	"github.com/onnwee/dotascore/score"
	"github.com/onnwee/dotascore/server"
	"github.com/onnwee/dotascore/steamapi"
	"github.com/onnwee/dotascore/telemetry"
	"github.com/onnwee/dotascore/tracker"
	"github.com/onnwee/dotascore/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("dotascore", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Helix app token (client-credentials) for live status, VOD listing, and
	// user lookups. It is NOT used for IRC chat.
	ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	helix := &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if tok, err := ts.Get(ctx2); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			slog.Info("twitch app token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
		}
		cancel()
	}

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first, embedded SQL as fallback for deployments
	// without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := db.NewStore(database)
	steam := steamapi.NewClient(cfg.SteamAPIKey)
	session := &twitchapi.SessionSource{Client: helix}
	svc := &score.Service{
		Live:    session,
		Archive: session,
		Config:  store,
		Finder:  store,
		History: store,
		Details: steam,
	}

	// Chat bot. The IRC token comes from the stored user token when present,
	// falling back to the env token.
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat not configured", slog.Any("err", err))
		os.Exit(1)
	}
	ircToken := cfg.TwitchOAuthToken
	if access, _, _, _, err := db.GetOAuthToken(ctx, database, "twitch"); err == nil && access != "" {
		ircToken = access
	}
	if ircToken == "" {
		slog.Error("no twitch user token available; set TWITCH_OAUTH_TOKEN or link via /auth/twitch/start")
		os.Exit(1)
	}
	if !strings.HasPrefix(ircToken, "oauth:") {
		ircToken = "oauth:" + ircToken
	}
	b := bot.New(cfg, store, svc, ircToken, helix)
	go func() {
		if err := b.Run(ctx, cfg.TwitchChannels); err != nil {
			slog.Error("chat bot exited with error", slog.Any("err", err))
			stop()
		}
	}()

	// Background jobs
	if cfg.SteamAPIKey != "" {
		go tracker.Start(ctx, store, steam, cfg.TrackerPollInterval)
		go tracker.StartHeroSync(ctx, store, steam)
	} else {
		slog.Warn("STEAM_API_KEY not set; match tracker and hero sync disabled")
	}

	// OAuth token refresher for the bot account
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
	})

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/oauth)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, database, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
