package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

const (
	// reactionPageSize is the largest page the reactions endpoint serves.
	reactionPageSize = 100
	guildPageSize    = 200
)

// api is the part of *discordgo.Session the client talks to.
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserGuilds(limit int, beforeID, afterID string, withCounts bool, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

type Config struct {
	Token string `mapstructure:"token"`
}

// Open connects a bot session able to read messages and reactions in guild channels.
func Open(c Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + c.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open discord session: %w", err)
	}

	return s, nil
}

// Client posts rounds and reads answers through a Discord session. Message ids play the
// role of message timestamps.
type Client struct {
	api    api
	selfID func() string
}

func NewClient(s *discordgo.Session) *Client {
	return &Client{
		api: s,
		selfID: func() string {
			if s.State == nil || s.State.User == nil {
				return ""
			}
			return s.State.User.ID
		},
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, msg domain.Message) (string, error) {
	data := &discordgo.MessageSend{Content: msg.Text}
	for _, a := range msg.Attachments {
		data.Embeds = append(data.Embeds, &discordgo.MessageEmbed{
			Description: a.Text,
			Color:       parseColor(a.Color),
		})
	}

	m, err := c.api.ChannelMessageSendComplex(channel, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("post message: channel=%s: %w", channel, err)
	}

	return m.ID, nil
}

func (c *Client) AddReaction(ctx context.Context, channel, ts string, m domain.Marker) error {
	if err := c.api.MessageReactionAdd(channel, ts, m.Emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction %s: %w", m.Name, err)
	}
	return nil
}

// Reactions returns who reacted with what on a message, keyed by marker name. Reactions
// that are not a known marker are keyed by their emoji. The bot's own reactions are left out.
func (c *Client) Reactions(ctx context.Context, channel, ts string) (domain.Tally, error) {
	msg, err := c.api.ChannelMessage(channel, ts, discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.New(errors.CodeReactionQuery, errors.WithCause(fmt.Errorf("get message: %w", err)))
	}

	self := c.selfID()
	tally := make(domain.Tally, len(msg.Reactions))

	for _, r := range msg.Reactions {
		if r.Emoji == nil {
			continue
		}

		users, err := c.reactionUsers(ctx, channel, ts, r.Emoji.APIName())
		if err != nil {
			return nil, errors.New(errors.CodeReactionQuery, errors.WithCause(err))
		}

		key := r.Emoji.APIName()
		if m, ok := domain.LookupMarker(r.Emoji.Name); ok {
			key = m.Name
		}

		set, ok := tally[key]
		if !ok {
			set = domain.UserSet{}
			tally[key] = set
		}
		for _, u := range users {
			if u.ID == self || u.Bot {
				continue
			}
			set[u.ID] = struct{}{}
		}
	}

	return tally, nil
}

func (c *Client) reactionUsers(ctx context.Context, channel, ts, emoji string) ([]*discordgo.User, error) {
	var (
		out   []*discordgo.User
		after string
	)

	for {
		page, err := c.api.MessageReactions(channel, ts, emoji, reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list reactions %s: %w", emoji, err)
		}

		out = append(out, page...)
		if len(page) < reactionPageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

// DisplayName prefers the user's global display name over the account name.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := c.api.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.New(errors.CodeLookup, errors.WithCause(err))
	}

	if u.GlobalName != "" {
		return u.GlobalName, nil
	}
	return u.Username, nil
}

// ResolveChannel returns the id of a text channel given either its id or its name, as
// in "general" or "#general". Names are matched across every guild the bot is in and
// must be unambiguous.
func (c *Client) ResolveChannel(ctx context.Context, nameOrID string) (string, error) {
	if _, err := strconv.ParseUint(nameOrID, 10, 64); err == nil {
		return nameOrID, nil
	}

	name := strings.TrimPrefix(nameOrID, "#")
	if name == "" {
		return "", errors.New(errors.CodeInvalidArgument, errors.WithMessagef("channel name is empty"))
	}

	var (
		found []string
		after string
	)
	for {
		guilds, err := c.api.UserGuilds(guildPageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("list guilds: %w", err)
		}

		for _, g := range guilds {
			channels, err := c.api.GuildChannels(g.ID, discordgo.WithContext(ctx))
			if err != nil {
				return "", fmt.Errorf("list channels: guild=%s: %w", g.ID, err)
			}
			for _, ch := range channels {
				if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, name) {
					found = append(found, ch.ID)
				}
			}
		}

		if len(guilds) < guildPageSize {
			break
		}
		after = guilds[len(guilds)-1].ID
	}

	switch len(found) {
	case 0:
		return "", errors.New(errors.CodeNotFound, errors.WithMessagef("channel %q not found", nameOrID))
	case 1:
		return found[0], nil
	default:
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("channel %q is ambiguous, use its id (one of %s)", nameOrID, strings.Join(found, ", ")))
	}
}

// parseColor turns "#RRGGBB" into the integer colour embeds use. Bad input yields 0.
func parseColor(hex string) int {
	if hex == "" {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		slog.Warn("discord: invalid colour", "color", hex)
		return 0
	}
	return int(v)
}
