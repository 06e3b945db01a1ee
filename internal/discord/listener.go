package discord

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type CommandHandler interface {
	Handle(ctx context.Context, channel string, args []string) error
}

// Listener routes "<prefix> args..." messages to a handler.
type Listener struct {
	prefix  string
	handler CommandHandler
	timeout time.Duration
}

func NewListener(prefix string, h CommandHandler) *Listener {
	return &Listener{
		prefix:  prefix,
		handler: h,
		timeout: 30 * time.Second,
	}
}

// Attach registers the listener on s and returns a func that detaches it.
func (l *Listener) Attach(s *discordgo.Session) func() {
	return s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		l.dispatch(m.ChannelID, m.Content)
	})
}

func (l *Listener) dispatch(channel, content string) {
	args, ok := parseCommand(l.prefix, content)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if err := l.handler.Handle(ctx, channel, args); err != nil {
		slog.ErrorContext(ctx, "discord: command failed", "channel", channel, "args", args, "error", err)
	}
}

// parseCommand reports whether content invokes prefix and returns the words after it.
func parseCommand(prefix, content string) ([]string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.EqualFold(fields[0], prefix) {
		return nil, false
	}
	return fields[1:], true
}
