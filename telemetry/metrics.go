// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsHandled          *prometheus.CounterVec
	CommandErrors            prometheus.Counter
	ScoreComputations        prometheus.Counter
	MatchDetailFetches       prometheus.Counter
	MatchDetailFetchFailures prometheus.Counter
	OutcomeWritebackFailures prometheus.Counter
	TrackerMatchesInserted   prometheus.Counter

	// Histograms (seconds)
	ScoreDuration prometheus.Observer

	// Gauges
	JoinedChannelsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_handled_total", Help: "Chat commands handled, by command name"}, []string{"command"})
		CommandErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_command_errors_total", Help: "Chat commands that failed with a non-user-facing error"})
		ScoreComputations = promauto.NewCounter(prometheus.CounterOpts{Name: "score_computations_total", Help: "Session record computations started"})
		MatchDetailFetches = promauto.NewCounter(prometheus.CounterOpts{Name: "score_match_detail_fetches_total", Help: "Remote match detail lookups issued"})
		MatchDetailFetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "score_match_detail_fetch_failures_total", Help: "Remote match detail lookups that fell back to the cached record"})
		OutcomeWritebackFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "score_outcome_writeback_failures_total", Help: "Failed radiant_win upserts into game_history"})
		TrackerMatchesInserted = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_matches_inserted_total", Help: "New match history rows inserted by the tracker job"})
		ScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "score_computation_duration_seconds", Help: "Session record computation duration seconds", Buckets: prometheus.DefBuckets})
		JoinedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_joined_channels", Help: "Number of IRC channels the bot has joined"})
	})
}

// IncCommandHandled counts a handled chat command. All helpers are safe to
// call before Init; they simply drop the observation.
func IncCommandHandled(command string) {
	if CommandsHandled != nil {
		CommandsHandled.WithLabelValues(command).Inc()
	}
}

// IncCommandErrors counts a command that failed unexpectedly.
func IncCommandErrors() {
	if CommandErrors != nil {
		CommandErrors.Inc()
	}
}

// IncScoreComputations counts a session record computation.
func IncScoreComputations() {
	if ScoreComputations != nil {
		ScoreComputations.Inc()
	}
}

// IncMatchDetailFetches counts a remote match detail lookup.
func IncMatchDetailFetches() {
	if MatchDetailFetches != nil {
		MatchDetailFetches.Inc()
	}
}

// IncMatchDetailFetchFailures counts a lookup that degraded to the cache.
func IncMatchDetailFetchFailures() {
	if MatchDetailFetchFailures != nil {
		MatchDetailFetchFailures.Inc()
	}
}

// IncOutcomeWritebackFailures counts a failed radiant_win upsert.
func IncOutcomeWritebackFailures() {
	if OutcomeWritebackFailures != nil {
		OutcomeWritebackFailures.Inc()
	}
}

// AddTrackerInserts records rows inserted by one tracker poll.
func AddTrackerInserts(n int) {
	if TrackerMatchesInserted != nil && n > 0 {
		TrackerMatchesInserted.Add(float64(n))
	}
}

// ObserveScoreDuration records a computation duration.
func ObserveScoreDuration(d time.Duration) {
	if ScoreDuration != nil {
		ScoreDuration.Observe(d.Seconds())
	}
}

// SetJoinedChannels records the current IRC channel count.
func SetJoinedChannels(n int) {
	if JoinedChannelsGauge != nil {
		JoinedChannelsGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
