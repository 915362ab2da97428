package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/dotascore/score"
)

func TestParseAccountID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"account id", "86745912", 86745912, false},
		{"steam id folds to account id", "76561198046011640", 85745912, false},
		{"offset itself", "76561197960265728", 0, false},
		{"negative", "-5", 0, true},
		{"garbage", "notanid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAccountID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAccountID(%q) error = nil", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAccountID(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseAccountID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatChallengeTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 7, 3, 0, time.UTC)
	if got := formatChallengeTime(ts); got != "2024/3/5 9:07:03" {
		t.Errorf("got %q", got)
	}
}

func TestParseChallengeTime(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024/3/5 9:07:03", true},
		{"2024-03-05 09:07:03", true},
		{"2024-03-05T09:07:03Z", true},
		{"yesterday", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseChallengeTime(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseChallengeTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got.IsZero() {
				t.Errorf("parseChallengeTime(%q) returned zero time", tt.in)
			}
		})
	}
}

func TestLoginRe(t *testing.T) {
	valid := []string{"streamer", "a", "User_123", "9kmmrbot"}
	for _, s := range valid {
		if !loginRe.MatchString(s) {
			t.Errorf("login %q rejected", s)
		}
	}
	invalid := []string{"", "_leading", "has space", "waytoolongloginnamethatkeepsgoing"}
	for _, s := range invalid {
		if loginRe.MatchString(s) {
			t.Errorf("login %q accepted", s)
		}
	}
}

type staticLive struct{ status score.LiveStatus }

func (s staticLive) GetLiveStatus(ctx context.Context, channelID int64) (score.LiveStatus, error) {
	return s.status, nil
}

type staticArchive struct{}

func (staticArchive) ListBroadcasts(ctx context.Context, channelID int64) ([]score.Broadcast, error) {
	return nil, nil
}

type staticConfig struct{ accounts []int64 }

func (s staticConfig) TrackedAccounts(ctx context.Context, channelID int64) ([]int64, error) {
	return s.accounts, nil
}

type staticHistory struct{ err error }

func (s staticHistory) SessionMatches(ctx context.Context, accounts []int64, excludeMatchID int64, since time.Time) ([]score.MatchRecord, error) {
	return nil, s.err
}

func (staticHistory) UpsertOutcome(ctx context.Context, matchID int64, radiantWin bool) error {
	return nil
}

type staticDetails struct{}

func (staticDetails) GetMatchDetails(ctx context.Context, matchID int64) (score.MatchRecord, error) {
	return score.MatchRecord{}, nil
}

func scoreService(live score.LiveStatus, accounts []int64, historyErr error) *score.Service {
	return &score.Service{
		Live:    staticLive{status: live},
		Archive: staticArchive{},
		Config:  staticConfig{accounts: accounts},
		History: staticHistory{err: historyErr},
		Details: staticDetails{},
	}
}

func TestRunScore(t *testing.T) {
	liveNow := score.LiveStatus{Live: true, StartedAt: time.Now().Add(-time.Hour)}

	t.Run("offline maps to user error", func(t *testing.T) {
		b := &Bot{Score: scoreService(score.LiveStatus{}, []int64{42}, nil)}
		_, err := b.runScore(context.Background(), 1)
		var ue *UserError
		if !errors.As(err, &ue) {
			t.Fatalf("err = %v, want UserError", err)
		}
		if ue.Message != "Stream isn't live" {
			t.Errorf("message = %q", ue.Message)
		}
	})

	t.Run("no accounts maps to user error", func(t *testing.T) {
		b := &Bot{Score: scoreService(liveNow, nil, nil)}
		_, err := b.runScore(context.Background(), 1)
		var ue *UserError
		if !errors.As(err, &ue) {
			t.Fatalf("err = %v, want UserError", err)
		}
		if ue.Message != "No accounts connected" {
			t.Errorf("message = %q", ue.Message)
		}
	})

	t.Run("internal error passes through", func(t *testing.T) {
		b := &Bot{Score: scoreService(liveNow, []int64{42}, errors.New("db down"))}
		_, err := b.runScore(context.Background(), 1)
		var ue *UserError
		if errors.As(err, &ue) {
			t.Fatalf("internal error surfaced to chat: %v", err)
		}
		if err == nil {
			t.Fatal("err = nil, want error")
		}
	})

	t.Run("empty session", func(t *testing.T) {
		b := &Bot{Score: scoreService(liveNow, []int64{42}, nil)}
		out, err := b.runScore(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "No games played on stream yet" {
			t.Errorf("out = %q", out)
		}
	})
}

func TestUserErrorf(t *testing.T) {
	err := userErrorf("Wrong syntax: %s addacc id", "!9kmmrbot")
	if err.Error() != "Wrong syntax: !9kmmrbot addacc id" {
		t.Errorf("got %q", err.Error())
	}
}
