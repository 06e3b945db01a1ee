package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	ScoresUpdated struct {
		Channel   string   `json:"channel"`
		MessageID string   `json:"message_id"`
		Marker    string   `json:"marker"`
		Users     []string `json:"users"`
	}
)

// PublishScoresUpdated announces a settled round on "<prefix>:scores" and tells every
// credited user on "<prefix>:user:<id>".
func (a *API) PublishScoresUpdated(ctx context.Context, e domain.EventScoresUpdated) error {
	data := ScoresUpdated{
		Channel:   e.Channel,
		MessageID: e.MessageTimestamp,
		Marker:    e.Marker,
		Users:     e.Users,
	}
	if data.Users == nil {
		data.Users = []string{}
	}

	if err := a.publishNotification(ctx, fmt.Sprintf("%s:scores", a.prefix), e.Name(), data); err != nil {
		return err
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, u := range data.Users {
		eg.Go(func() error {
			return a.publishNotification(ctx, fmt.Sprintf("%s:user:%s", a.prefix, u), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}
