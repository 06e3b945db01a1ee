package trivia_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/victornm/trivia/internal/domain"
)

type fakeProvider struct {
	raw domain.RawQuestion
	err error

	mu      sync.Mutex
	filters []domain.Filters
}

func (p *fakeProvider) FetchOne(_ context.Context, f domain.Filters) (domain.RawQuestion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = append(p.filters, f)
	return p.raw, p.err
}

type reaction struct {
	channel, ts, marker string
}

type fakeChat struct {
	mu        sync.Mutex
	posted    []domain.Message
	reactions []reaction
	postErr   error

	// failOn makes only the n-th post attempt fail, counting from 1.
	failOn   int
	attempts int
}

func (c *fakeChat) PostMessage(_ context.Context, _ string, msg domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.postErr != nil {
		return "", c.postErr
	}
	if c.failOn == c.attempts {
		return "", errors.New("chat unavailable")
	}
	c.posted = append(c.posted, msg)
	return fmt.Sprintf("ts-%d", len(c.posted)), nil
}

func (c *fakeChat) AddReaction(_ context.Context, channel, ts string, m domain.Marker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactions = append(c.reactions, reaction{channel: channel, ts: ts, marker: m.Name})
	return nil
}

func (c *fakeChat) markersOn(ts string) []string {
	var out []string
	for _, r := range c.reactions {
		if r.ts == ts {
			out = append(out, r.marker)
		}
	}
	return out
}

type fakeScheduler struct {
	delays []time.Duration
	jobs   []func(ctx context.Context)
	err    error
}

func (s *fakeScheduler) ScheduleOnce(delay time.Duration, fn func(ctx context.Context)) error {
	if s.err != nil {
		return s.err
	}
	s.delays = append(s.delays, delay)
	s.jobs = append(s.jobs, fn)
	return nil
}

func (s *fakeScheduler) fireAll() {
	for _, j := range s.jobs {
		j(context.Background())
	}
}

type settleCall struct {
	channel, ts string
	marker      domain.Marker
}

type fakeSettler struct {
	calls []settleCall
	err   error
}

func (s *fakeSettler) SettleRound(_ context.Context, channel, ts string, correct domain.Marker) error {
	s.calls = append(s.calls, settleCall{channel: channel, ts: ts, marker: correct})
	return s.err
}

// noShuffle keeps answers in construction order: correct answer first.
func noShuffle(int, func(i, j int)) {}

// reverse puts the correct answer last.
func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}
