package domain

import (
	"sort"
	"time"
)

type Kind int

const (
	KindMultipleChoice Kind = iota
	KindBoolean
)

func (k Kind) String() string {
	if k == KindBoolean {
		return "boolean"
	}
	return "multiple"
}

// Filters narrow the question requested from the provider. Zero values mean "any".
type Filters struct {
	CategoryID int
	Difficulty string
	Kind       string
}

// RawQuestion is a question as returned by a provider, already decoded from its transport encoding.
type RawQuestion struct {
	Category         string
	Difficulty       string
	Prompt           string
	CorrectAnswer    string
	IncorrectAnswers []string
}

// Question is a validated trivia question. Answers is shuffled and holds CorrectAnswer exactly once.
type Question struct {
	Kind          Kind
	Category      string
	Difficulty    string
	Prompt        string
	CorrectAnswer string
	Answers       []string
}

// Category is a trivia category offered by a provider.
type Category struct {
	ID   int
	Name string
}

// UserSet is a set of chat user identifiers.
type UserSet map[string]struct{}

func NewUserSet(ids ...string) UserSet {
	s := make(UserSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s UserSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s UserSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tally maps a marker name to the users who reacted with it, captured at one instant.
type Tally map[string]UserSet

// ScoreRecord is a single leaderboard row.
type ScoreRecord struct {
	UserID string
	Score  int
}

// LeaderboardEntry is a ScoreRecord resolved for display.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// Attachment is a coloured block of text attached to a chat message.
type Attachment struct {
	Text  string
	Color string
}

// Message is an outgoing chat message.
type Message struct {
	Text        string
	Attachments []Attachment
}

// RoundHandle identifies an in-flight round. It lives in memory only.
type RoundHandle struct {
	ID               string
	Channel          string
	MessageTimestamp string
	Question         Question
	RevealAt         time.Time
}

// RoundContext carries everything the reveal needs, so the scheduled callback does not
// depend on any state captured from the round that created it.
type RoundContext struct {
	RoundID          string
	Channel          string
	MessageTimestamp string
	Question         Question
	CorrectMarker    Marker
	AnswerText       string
	ScoreCounts      bool
	RevealAt         time.Time
}
