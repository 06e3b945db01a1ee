package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
)

type Config struct {
	EventBus     *event.Bus
	Leaderboard  LeaderboardReader
	Checks       map[string]Check
	Redis        Redis
	PubsubPrefix string
}

type LeaderboardReader interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API exposes the leaderboard over HTTP and forwards score updates to Redis subscribers.
type API struct {
	leaderboard LeaderboardReader
	checks      map[string]Check

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		leaderboard: c.Leaderboard,
		checks:      c.Checks,
		redis:       c.Redis,
		prefix:      c.PubsubPrefix,
	}

	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameScoresUpdated, event.On(a.PublishScoresUpdated))
	}

	return a
}

// Register mounts the HTTP routes on r.
func (a *API) Register(r gin.IRouter) {
	r.GET("/leaderboard", a.GetLeaderboard)
	r.GET("/healthz", a.Healthz)
}

type (
	LeaderboardResponse struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}

	HealthResponse struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}
)

func (a *API) GetLeaderboard(c *gin.Context) {
	entries, err := a.leaderboard.Leaderboard(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, LeaderboardResponse{Entries: entries})
}

func (a *API) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(a.checks))}
	status := http.StatusOK

	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, resp)
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
