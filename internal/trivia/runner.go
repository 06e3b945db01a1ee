package trivia

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

const (
	MinSeconds     = 5
	MaxSeconds     = 300
	DefaultSeconds = 30
	DailySeconds   = 600
)

type QuestionProvider interface {
	FetchOne(ctx context.Context, f domain.Filters) (domain.RawQuestion, error)
}

type ChatClient interface {
	PostMessage(ctx context.Context, channel string, msg domain.Message) (string, error)
	AddReaction(ctx context.Context, channel, ts string, m domain.Marker) error
}

type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func(ctx context.Context)) error
}

// Settler scores a round from the reactions on its anchor message.
type Settler interface {
	SettleRound(ctx context.Context, channel, ts string, correct domain.Marker) error
}

type Config struct {
	Provider  QuestionProvider
	Chat      ChatClient
	Scheduler Scheduler
	Settler   Settler
	EventBus  *event.Bus
	Shuffle   Shuffle
}

// Runner runs trivia rounds: post a question, then reveal and score it after a delay.
type Runner struct {
	provider QuestionProvider
	chat     ChatClient
	sched    Scheduler
	settler  Settler
	eb       *event.Bus
	shuffle  Shuffle
	now      func() time.Time
}

func NewRunner(c Config) *Runner {
	return &Runner{
		provider: c.Provider,
		chat:     c.Chat,
		sched:    c.Scheduler,
		settler:  c.Settler,
		eb:       c.EventBus,
		shuffle:  c.Shuffle,
		now:      time.Now,
	}
}

// Options configure a single round.
type Options struct {
	Filters domain.Filters
	// Seconds before the answer is revealed.
	Seconds int
	// Scheduled rounds are not interactive and skip the seconds clamp.
	Scheduled bool
	// ScoreCounts settles the leaderboard at reveal time.
	ScoreCounts bool
}

// ClampSeconds constrains an interactive delay to [MinSeconds, MaxSeconds].
func ClampSeconds(s int) int {
	return min(max(s, MinSeconds), MaxSeconds)
}

func (o Options) delay() time.Duration {
	s := o.Seconds
	if !o.Scheduled {
		s = ClampSeconds(s)
	}
	return time.Duration(s) * time.Second
}

// StartRound posts a new question to channel and schedules its reveal. It returns without
// waiting for the reveal. Retrieval errors are returned before anything is posted.
func (r *Runner) StartRound(ctx context.Context, channel string, opts Options) (*domain.RoundHandle, error) {
	raw, err := r.provider.FetchOne(ctx, opts.Filters)
	if err != nil {
		return nil, err
	}

	q, err := NewQuestion(raw, r.shuffle)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate round ID: %w", err)
	}

	ts, err := r.postQuestion(ctx, channel, q)
	if err != nil {
		return nil, err
	}

	delay := opts.delay()
	correct := CorrectMarker(q)
	rc := domain.RoundContext{
		RoundID:          id.String(),
		Channel:          channel,
		MessageTimestamp: ts,
		Question:         q,
		CorrectMarker:    correct,
		AnswerText:       AnswerText(q),
		ScoreCounts:      opts.ScoreCounts,
		RevealAt:         r.now().Add(delay),
	}

	if err := r.sched.ScheduleOnce(delay, func(ctx context.Context) {
		r.Reveal(ctx, rc)
	}); err != nil {
		r.cancel(ctx, channel, q)
		return nil, fmt.Errorf("schedule reveal: %w", err)
	}

	h := &domain.RoundHandle{
		ID:               rc.RoundID,
		Channel:          channel,
		MessageTimestamp: ts,
		Question:         q,
		RevealAt:         rc.RevealAt,
	}

	slog.InfoContext(ctx, "trivia: round started",
		"round", h.ID,
		"channel", channel,
		"kind", q.Kind.String(),
		"delay", delay.String(),
		"score_counts", opts.ScoreCounts,
	)
	r.eb.Publish(ctx, domain.EventRoundStarted{Round: *h})

	return h, nil
}

// postQuestion posts the prompt, the choices if any, and the answer reactions.
// It returns the timestamp of the message users react to.
func (r *Runner) postQuestion(ctx context.Context, channel string, q domain.Question) (string, error) {
	ts, err := r.chat.PostMessage(ctx, channel, domain.Message{Text: fmt.Sprintf("*%s*", q.Prompt)})
	if err != nil {
		return "", fmt.Errorf("post question: %w", err)
	}

	markers := domain.FamilyFor(q.Kind)
	if q.Kind == domain.KindMultipleChoice {
		markers = markers[:len(q.Answers)]

		msg := domain.Message{Attachments: make([]domain.Attachment, 0, len(q.Answers))}
		for i, a := range q.Answers {
			msg.Attachments = append(msg.Attachments, domain.Attachment{
				Text:  a,
				Color: markers[i].Color,
			})
		}

		ts, err = r.chat.PostMessage(ctx, channel, msg)
		if err != nil {
			r.cancel(ctx, channel, q)
			return "", fmt.Errorf("post answers: %w", err)
		}
	}

	for _, m := range markers {
		if err := r.chat.AddReaction(ctx, channel, ts, m); err != nil {
			slog.WarnContext(ctx, "trivia: add reaction failed",
				"channel", channel,
				"marker", m.Name,
				"error", err,
			)
		}
	}

	return ts, nil
}

// cancel tells the channel that an already posted question will not be revealed.
func (r *Runner) cancel(ctx context.Context, channel string, q domain.Question) {
	text := fmt.Sprintf("The question *%s* was cancelled and will not be revealed", q.Prompt)
	if _, err := r.chat.PostMessage(ctx, channel, domain.Message{Text: text}); err != nil {
		slog.ErrorContext(ctx, "trivia: post cancellation failed",
			"channel", channel,
			"error", err,
		)
	}
}

// Reveal settles the round if it counts and posts the answer. A failed settlement
// never prevents the answer from being posted.
func (r *Runner) Reveal(ctx context.Context, rc domain.RoundContext) {
	if rc.ScoreCounts && r.settler != nil {
		if err := r.settler.SettleRound(ctx, rc.Channel, rc.MessageTimestamp, rc.CorrectMarker); err != nil {
			slog.ErrorContext(ctx, "trivia: settle round failed",
				"round", rc.RoundID,
				"channel", rc.Channel,
				"error", err,
			)
		}
	}

	text := fmt.Sprintf("The answer to the question *%s* is: *%s*", rc.Question.Prompt, rc.AnswerText)
	if _, err := r.chat.PostMessage(ctx, rc.Channel, domain.Message{Text: text}); err != nil {
		slog.ErrorContext(ctx, "trivia: post answer failed",
			"round", rc.RoundID,
			"channel", rc.Channel,
			"error", err,
		)
	}

	late := r.now().Sub(rc.RevealAt)
	r.eb.Publish(ctx, domain.EventRoundRevealed{Round: rc, Late: late.Seconds()})
}
