package twitchapi

import (
	"context"
	"strconv"
	"time"

	"github.com/onnwee/dotascore/score"
)

// SessionSource adapts HelixClient to the live-status and broadcast-archive
// interfaces the score pipeline consumes. Channel ids are the numeric Twitch
// user ids carried on chat messages.
type SessionSource struct {
	Client *HelixClient
}

// GetLiveStatus implements score.LiveStatusSource.
func (s *SessionSource) GetLiveStatus(ctx context.Context, channelID int64) (score.LiveStatus, error) {
	stream, err := s.Client.GetStream(ctx, strconv.FormatInt(channelID, 10))
	if err != nil {
		return score.LiveStatus{}, err
	}
	if stream == nil || stream.Type != "live" || stream.StartedAt.IsZero() {
		return score.LiveStatus{}, nil
	}
	return score.LiveStatus{Live: true, StartedAt: stream.StartedAt}, nil
}

// ListBroadcasts implements score.ArchiveSource. Videos arrive newest first
// from Helix, which is the order the session window walk expects. A created_at
// that fails to parse yields a zero Broadcast that cannot extend the window.
func (s *SessionSource) ListBroadcasts(ctx context.Context, channelID int64) ([]score.Broadcast, error) {
	videos, err := s.Client.ListVideos(ctx, strconv.FormatInt(channelID, 10), 20)
	if err != nil {
		return nil, err
	}
	out := make([]score.Broadcast, 0, len(videos))
	for _, v := range videos {
		created, _ := time.Parse(time.RFC3339, v.CreatedAt)
		out = append(out, score.Broadcast{CreatedAt: created, Duration: v.Duration})
	}
	return out, nil
}
