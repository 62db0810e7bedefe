package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GiveawaysStarted counts successfully created giveaways.
	GiveawaysStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giveaways_started_total",
		Help: "Number of giveaways started",
	})

	// GiveawaysCompleted counts ended=false -> ended=true transitions.
	GiveawaysCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giveaways_completed_total",
		Help: "Number of giveaways transitioned to ended",
	})

	// CompletionDuration tracks the latency of the completion path,
	// persistence only, announcements excluded.
	CompletionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "giveaway_completion_duration_seconds",
		Help:    "Duration of giveaway completion in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	})

	// AnnouncementFailures counts failed chat platform posts. Failures do
	// not roll back the persisted state.
	AnnouncementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "announcement_failures_total",
		Help: "Number of failed announcement posts",
	})

	// InviteAttributions counts join events by attribution outcome.
	InviteAttributions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invite_attributions_total",
		Help: "Number of join events by attribution outcome",
	}, []string{"outcome"}) // attributed or unattributed

	// ModerationViolations counts recorded rule violations.
	ModerationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_violations_total",
		Help: "Number of recorded message rule violations",
	})
)
