package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/trivia"
)

type RoundStarter interface {
	StartRound(ctx context.Context, channel string, opts trivia.Options) (*domain.RoundHandle, error)
}

type LeaderboardRenderer interface {
	RenderLeaderboard(ctx context.Context) (string, error)
}

type CategoryLister interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

type Poster interface {
	PostMessage(ctx context.Context, channel string, msg domain.Message) (string, error)
}

type Config struct {
	Rounds      RoundStarter
	Leaderboard LeaderboardRenderer
	Categories  CategoryLister
	Chat        Poster

	// DailyChannel receives the scheduled round.
	DailyChannel string
}

// Handler turns trivia commands into rounds and replies.
type Handler struct {
	rounds       RoundStarter
	leaderboard  LeaderboardRenderer
	categories   CategoryLister
	chat         Poster
	dailyChannel string
}

func NewHandler(c Config) *Handler {
	return &Handler{
		rounds:       c.Rounds,
		leaderboard:  c.Leaderboard,
		categories:   c.Categories,
		chat:         c.Chat,
		dailyChannel: c.DailyChannel,
	}
}

// Handle runs one command. Failures the user should see are posted to channel and also returned.
func (h *Handler) Handle(ctx context.Context, channel string, args []string) error {
	a, err := ParseArgs(args)
	if err != nil {
		return h.reply(ctx, channel, err)
	}

	switch {
	case a.Help:
		return h.post(ctx, channel, Usage())

	case a.Leaderboard:
		board, err := h.leaderboard.RenderLeaderboard(ctx)
		if err != nil {
			return h.reply(ctx, channel, err)
		}
		return h.post(ctx, channel, board)

	case a.Cats:
		cats, err := h.categories.Categories(ctx)
		if err != nil {
			return h.reply(ctx, channel, err)
		}
		return h.post(ctx, channel, FormatCategories(cats))
	}

	_, err = h.rounds.StartRound(ctx, channel, trivia.Options{
		Filters:     a.Filters(),
		Seconds:     a.Seconds,
		ScoreCounts: true,
	})
	if err != nil {
		return h.reply(ctx, channel, err)
	}

	return nil
}

// Daily starts the scheduled round in the daily channel.
func (h *Handler) Daily(ctx context.Context) error {
	_, err := h.rounds.StartRound(ctx, h.dailyChannel, trivia.Options{
		Seconds:     trivia.DailySeconds,
		Scheduled:   true,
		ScoreCounts: true,
	})
	if err != nil {
		return h.reply(ctx, h.dailyChannel, err)
	}

	slog.InfoContext(ctx, "bot: daily round started", "channel", h.dailyChannel)

	return h.post(ctx, h.dailyChannel, fmt.Sprintf("Answer in %d minutes", trivia.DailySeconds/60))
}

// FormatCategories renders categories as an id/name table in a code block.
func FormatCategories(cats []domain.Category) string {
	var b strings.Builder
	b.WriteString("```Use the id to specify a specific category \n\nID  Name\n")
	for _, c := range cats {
		fmt.Fprintf(&b, "%-4d%s\n", c.ID, c.Name)
	}
	b.WriteString("```")
	return b.String()
}

func (h *Handler) post(ctx context.Context, channel, text string) error {
	if _, err := h.chat.PostMessage(ctx, channel, domain.Message{Text: text}); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	return nil
}

// reply posts the user facing message of err and returns err.
func (h *Handler) reply(ctx context.Context, channel string, err error) error {
	e := errors.Convert(err)
	if perr := h.post(ctx, channel, e.Message); perr != nil {
		slog.ErrorContext(ctx, "bot: failed to report error", "channel", channel, "error", perr)
	}
	return err
}
