package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

// Metrics counts rounds and scoring outcomes from bus events.
type Metrics struct {
	roundsStarted  *prometheus.CounterVec
	roundsRevealed prometheus.Counter
	revealLateness prometheus.Histogram
	pointsAwarded  prometheus.Counter
	scoringFailed  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "rounds_started_total",
			Help:      "Rounds posted to a channel.",
		}, []string{"kind"}),
		roundsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "rounds_revealed_total",
			Help:      "Rounds whose answer was revealed.",
		}),
		revealLateness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trivia",
			Name:      "reveal_lateness_seconds",
			Help:      "How long after the scheduled time a reveal ran.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "points_awarded_total",
			Help:      "Leaderboard points handed out.",
		}),
		scoringFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "scoring_failures_total",
			Help:      "Rounds whose scores could not be updated.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.roundsStarted, m.roundsRevealed, m.revealLateness, m.pointsAwarded, m.scoringFailed)

	return m
}

// Subscribe feeds the metrics from eb.
func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameRoundStarted, event.On(func(_ context.Context, e domain.EventRoundStarted) error {
		m.roundsStarted.WithLabelValues(e.Round.Question.Kind.String()).Inc()
		return nil
	}))

	eb.Subscribe(domain.EventNameRoundRevealed, event.On(func(_ context.Context, e domain.EventRoundRevealed) error {
		m.roundsRevealed.Inc()
		m.revealLateness.Observe(max(e.Late, 0))
		return nil
	}))

	eb.Subscribe(domain.EventNameScoresUpdated, event.On(func(_ context.Context, e domain.EventScoresUpdated) error {
		m.pointsAwarded.Add(float64(len(e.Users)))
		return nil
	}))

	eb.Subscribe(domain.EventNameScoresFailed, event.On(func(_ context.Context, e domain.EventScoresFailed) error {
		m.scoringFailed.WithLabelValues(e.Reason).Inc()
		return nil
	}))
}
