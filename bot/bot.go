// Package bot connects to Twitch chat, joins the configured channels, and
// dispatches the score and moderation commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/google/uuid"

	"github.com/onnwee/dotascore/config"
	"github.com/onnwee/dotascore/db"
	"github.com/onnwee/dotascore/score"
	"github.com/onnwee/dotascore/telemetry"
	"github.com/onnwee/dotascore/twitchapi"
)

// UserError is a command failure whose message is safe to send to chat
// verbatim. Anything else is logged and produces no reply.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

func userErrorf(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// UserLookup resolves a Twitch login to its user record. Satisfied by
// *twitchapi.HelixClient.
type UserLookup interface {
	GetUserByLogin(ctx context.Context, login string) (twitchapi.User, error)
}

// Bot wires the chat client to the store, the Helix client, and the score
// service.
type Bot struct {
	Client *twitch.Client
	Store  *db.Store
	Helix  UserLookup
	Score  *score.Service
	Prefix string
}

// New builds a bot with a connected-on-Run chat client.
func New(cfg *config.Config, store *db.Store, svc *score.Service, oauthToken string, lookup UserLookup) *Bot {
	client := twitch.NewClient(cfg.TwitchBotUsername, oauthToken)
	return &Bot{
		Client: client,
		Store:  store,
		Helix:  lookup,
		Score:  svc,
		Prefix: cfg.CommandPrefix,
	}
}

// Run joins the configured channels plus every channel stored in the database,
// then blocks on the IRC connection until ctx is canceled.
func (b *Bot) Run(ctx context.Context, configured []string) error {
	channels, err := b.Store.ListChannelNames(ctx)
	if err != nil {
		slog.Warn("bot: list channels", slog.Any("err", err))
	}
	seen := map[string]bool{}
	for _, ch := range append(append([]string{}, configured...), channels...) {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
	}
	joined := make([]string, 0, len(seen))
	for ch := range seen {
		joined = append(joined, ch)
	}
	sort.Strings(joined)

	b.Client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		b.handleMessage(ctx, msg)
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := b.Client.Disconnect(); err != nil {
			slog.Debug("bot: disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	b.Client.Join(joined...)
	telemetry.SetJoinedChannels(len(joined))
	slog.Info("bot: connecting", slog.Int("channels", len(joined)))
	if err := b.Client.Connect(); err != nil && ctx.Err() == nil {
		return err
	}
	<-done
	return nil
}

func (b *Bot) handleMessage(parent context.Context, msg twitch.PrivateMessage) {
	fields := strings.Fields(msg.Message)
	if len(fields) == 0 {
		return
	}
	var (
		cmd  string
		args []string
	)
	switch strings.ToLower(fields[0]) {
	case "!score", "!wl":
		cmd, args = "score", nil
	case b.Prefix:
		if len(fields) == 1 {
			return
		}
		cmd, args = strings.ToLower(fields[1]), fields[2:]
	default:
		return
	}

	roomID, err := strconv.ParseInt(msg.RoomID, 10, 64)
	if err != nil {
		return
	}
	userID, err := strconv.ParseInt(msg.User.ID, 10, 64)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "bot", "command")
	defer span.End()

	telemetry.IncCommandHandled(cmd)
	reply, err := b.dispatch(ctx, cmd, args, msg.Channel, roomID, userID, msg.User.Name)
	if err != nil {
		telemetry.IncCommandErrors()
		telemetry.RecordError(span, err)
		var ue *UserError
		if errors.As(err, &ue) {
			b.Client.Say(msg.Channel, ue.Message)
			return
		}
		slog.Error("bot: command failed",
			slog.String("command", cmd),
			slog.String("channel", msg.Channel),
			slog.String("correlation_id", telemetry.GetCorrelation(ctx)),
			slog.Any("err", err))
		return
	}
	telemetry.SetSpanSuccess(span)
	if reply != "" {
		b.Client.Say(msg.Channel, reply)
	}
}

func (b *Bot) dispatch(ctx context.Context, cmd string, args []string, channel string, roomID, userID int64, username string) (string, error) {
	if cmd == "score" {
		return b.runScore(ctx, roomID)
	}
	return b.moderation(ctx, cmd, args, channel, roomID, userID, username)
}

func (b *Bot) runScore(ctx context.Context, roomID int64) (string, error) {
	out, err := b.Score.ComputeSessionRecord(ctx, roomID)
	if errors.Is(err, score.ErrStreamNotLive) || errors.Is(err, score.ErrNoAccounts) {
		return "", &UserError{Message: err.Error()}
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
