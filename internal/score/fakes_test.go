package score_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/score"
)

// memStore is an in-memory score.Store. UpsertIncrement holds the lock for the whole batch.
type memStore struct {
	mu        sync.Mutex
	scores    map[string]int
	upsertErr error
}

func newMemStore(init map[string]int) *memStore {
	s := &memStore{scores: make(map[string]int)}
	for u, sc := range init {
		s.scores[u] = sc
	}
	return s
}

func (s *memStore) GetRecord(_ context.Context, userID string) (*domain.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scores[userID]
	if !ok {
		return nil, nil
	}
	return &domain.ScoreRecord{UserID: userID, Score: sc}, nil
}

func (s *memStore) UpsertIncrement(_ context.Context, users domain.UserSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return s.upsertErr
	}
	for u := range users {
		s.scores[u]++
	}
	return nil
}

func (s *memStore) ListAll(_ context.Context) ([]domain.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ScoreRecord, 0, len(s.scores))
	for u, sc := range s.scores {
		out = append(out, domain.ScoreRecord{UserID: u, Score: sc})
	}
	return out, nil
}

func (s *memStore) snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.scores))
	for u, sc := range s.scores {
		out[u] = sc
	}
	return out
}

type fakeReactions struct {
	tally domain.Tally
	err   error
}

func (r *fakeReactions) Reactions(context.Context, string, string) (domain.Tally, error) {
	return r.tally, r.err
}

type fakeDirectory map[string]string

func (d fakeDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := d[userID]
	if !ok {
		return "", fmt.Errorf("user %s not found", userID)
	}
	return name, nil
}

type fakeChat struct {
	mu     sync.Mutex
	posted []domain.Message
}

func (c *fakeChat) PostMessage(_ context.Context, _ string, msg domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posted = append(c.posted, msg)
	return fmt.Sprintf("ts-%d", len(c.posted)), nil
}

func makeKeeper(t *testing.T, opts ...options) (*score.Keeper, score.Config) {
	t.Helper()

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	c := score.Config{
		Store:     newMemStore(nil),
		Reactions: &fakeReactions{tally: domain.Tally{}},
		Directory: fakeDirectory{},
		Chat:      &fakeChat{},
		EventBus:  eb,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return score.NewKeeper(c), c
}

type options func(c *score.Config)

func withStore(s score.Store) options {
	return func(c *score.Config) { c.Store = s }
}

func withReactions(r score.ReactionReader) options {
	return func(c *score.Config) { c.Reactions = r }
}

func withDirectory(d score.UserDirectory) options {
	return func(c *score.Config) { c.Directory = d }
}

func withChat(p score.Poster) options {
	return func(c *score.Config) { c.Chat = p }
}

func withEventBus(eb *event.Bus) options {
	return func(c *score.Config) { c.EventBus = eb }
}
