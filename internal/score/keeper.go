package score

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
)

// Store persists leaderboard rows.
type Store interface {
	// GetRecord returns nil when the user has never scored.
	GetRecord(ctx context.Context, userID string) (*domain.ScoreRecord, error)
	// UpsertIncrement adds one point to every user in a single transaction,
	// creating missing rows with a score of 1.
	UpsertIncrement(ctx context.Context, users domain.UserSet) error
	ListAll(ctx context.Context) ([]domain.ScoreRecord, error)
}

type ReactionReader interface {
	Reactions(ctx context.Context, channel, ts string) (domain.Tally, error)
}

type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Poster interface {
	PostMessage(ctx context.Context, channel string, msg domain.Message) (string, error)
}

type Config struct {
	Store     Store
	Reactions ReactionReader
	Directory UserDirectory
	Chat      Poster
	EventBus  *event.Bus
}

// Keeper settles rounds into the leaderboard and renders it.
type Keeper struct {
	store     Store
	reactions ReactionReader
	directory UserDirectory
	chat      Poster
	eb        *event.Bus
}

func NewKeeper(c Config) *Keeper {
	return &Keeper{
		store:     c.Store,
		reactions: c.Reactions,
		directory: c.Directory,
		chat:      c.Chat,
		eb:        c.EventBus,
	}
}

// ResolveCorrectUsers returns the users who reacted with correct and with no other marker
// of family. Markers outside family are ignored.
func ResolveCorrectUsers(tally domain.Tally, correct domain.Marker, family domain.Family) domain.UserSet {
	users, ok := tally[correct.Name]
	if !ok {
		return domain.UserSet{}
	}

	out := make(domain.UserSet, len(users))
	for u := range users {
		out[u] = struct{}{}
	}

	for name, others := range tally {
		if name == correct.Name || !family.Contains(name) {
			continue
		}
		for u := range others {
			delete(out, u)
		}
	}

	return out
}

// SettleRound reads the reactions on the round's message and credits every user who
// picked the correct marker. Failures are reported to the channel and leave scores untouched.
func (k *Keeper) SettleRound(ctx context.Context, channel, ts string, correct domain.Marker) error {
	tally, err := k.reactions.Reactions(ctx, channel, ts)
	if err != nil {
		if !errors.Is(err, errors.CodeReactionQuery) {
			err = errors.New(errors.CodeReactionQuery, errors.WithCause(err))
		}
		return k.fail(ctx, channel, ts, err)
	}

	users := ResolveCorrectUsers(tally, correct, domain.FamilyOf(correct))

	if err := k.ApplyScores(ctx, users); err != nil {
		return k.fail(ctx, channel, ts, err)
	}

	slog.InfoContext(ctx, "score: round settled",
		"channel", channel,
		"ts", ts,
		"marker", correct.Name,
		"correct_users", len(users),
	)

	k.eb.Publish(ctx, domain.EventScoresUpdated{
		Channel:          channel,
		MessageTimestamp: ts,
		Marker:           correct.Name,
		Users:            users.Sorted(),
	})

	return nil
}

func (k *Keeper) fail(ctx context.Context, channel, ts string, err error) error {
	e := errors.Convert(err)

	if _, perr := k.chat.PostMessage(ctx, channel, domain.Message{Text: e.Message}); perr != nil {
		slog.ErrorContext(ctx, "score: report failure failed", "channel", channel, "error", perr)
	}

	k.eb.Publish(ctx, domain.EventScoresFailed{
		Channel:          channel,
		MessageTimestamp: ts,
		Reason:           e.Code.String(),
	})

	return fmt.Errorf("settle round: %w", err)
}

// ApplyScores adds one point to each user, all or nothing.
func (k *Keeper) ApplyScores(ctx context.Context, users domain.UserSet) error {
	if len(users) == 0 {
		return nil
	}

	if err := k.store.UpsertIncrement(ctx, users); err != nil {
		return errors.New(errors.CodePersistence, errors.WithCause(err))
	}

	return nil
}

// Leaderboard returns every record with its display name, highest score first.
// Users that cannot be resolved are shown by id.
func (k *Keeper) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	records, err := k.store.ListAll(ctx)
	if err != nil {
		return nil, errors.New(errors.CodePersistence, errors.WithCause(err))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      r.UserID,
			DisplayName: k.displayName(ctx, r.UserID),
			Score:       r.Score,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	return entries, nil
}

func (k *Keeper) displayName(ctx context.Context, userID string) string {
	if k.directory == nil {
		return userID
	}

	name, err := k.directory.DisplayName(ctx, userID)
	if err != nil || name == "" {
		slog.WarnContext(ctx, "score: lookup display name failed",
			"user", userID,
			"error", errors.New(errors.CodeLookup, errors.WithCause(err)),
		)
		return userID
	}

	return name
}

// RenderLeaderboard formats the leaderboard as a fixed-width table in a code block.
func (k *Keeper) RenderLeaderboard(ctx context.Context) (string, error) {
	entries, err := k.Leaderboard(ctx)
	if err != nil {
		return "", err
	}

	return FormatLeaderboard(entries), nil
}

func FormatLeaderboard(entries []domain.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No one is on the trivia leaderboard yet"
	}

	width := len("Name")
	for _, e := range entries {
		width = max(width, len([]rune(e.DisplayName)))
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  |  Score", width, "Name")
	b.WriteString("```\n")
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")
	for _, e := range entries {
		pad := width - len([]rune(e.DisplayName))
		fmt.Fprintf(&b, "%s%s  |  %s\n", e.DisplayName, strings.Repeat(" ", pad), humanize.Comma(int64(e.Score)))
	}
	b.WriteString("```")

	return b.String()
}
