package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/bot"
	"github.com/victornm/trivia/internal/discord"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/opentdb"
	"github.com/victornm/trivia/internal/scheduler"
	"github.com/victornm/trivia/internal/score"
	"github.com/victornm/trivia/internal/telemetry"
	"github.com/victornm/trivia/internal/trivia"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Postgres PostgresConfig

	Discord discord.Config

	OpenTDB opentdb.Config `mapstructure:"opentdb"`

	Trivia struct {
		// Store selects the leaderboard backend: postgres or redis.
		Store         string
		// DailyChannel is a channel id or a text channel name, resolved to an id at startup.
		DailyChannel  string `mapstructure:"daily_channel"`
		CommandPrefix string `mapstructure:"command_prefix"`
		DailyCron     string `mapstructure:"daily_cron"`
		Timezone      string
	}
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
}

// DSN is the connection string of the database.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", c.User, c.Pass, c.Addr, c.Name)
}

// DefaultConfig is the configuration used for keys a config file leaves out.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.Redis.Prefix = "trivia"
	c.Trivia.Store = StorePostgres
	c.Trivia.CommandPrefix = bot.Command
	c.Trivia.DailyChannel = "general"
	c.Trivia.DailyCron = "0 12 * * *"
	c.Trivia.Timezone = "Australia/Brisbane"
	c.OpenTDB.BaseURL = opentdb.DefaultBaseURL
	c.OpenTDB.Timeout = 10 * time.Second
	c.OpenTDB.CategoryTTL = time.Hour
	return c
}

type Server struct {
	c Config

	eb      *event.Bus
	sched   *scheduler.Scheduler
	metrics *telemetry.Metrics

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
		discord  *discordgo.Session
	}

	service struct {
		store   score.Store
		chat    *discord.Client
		keeper  *score.Keeper
		runner  *trivia.Runner
		handler *bot.Handler
	}

	detach   func()
	location *time.Location
	http     *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	loc, err := time.LoadLocation(c.Trivia.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server: load timezone %q: %w", c.Trivia.Timezone, err)
	}
	s.location = loc

	s.eb = event.NewBus()
	s.sched = scheduler.New(scheduler.Config{})
	s.metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	s.metrics.Subscribe(s.eb)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if s.c.Trivia.Store == StorePostgres {
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	d, err := discord.Open(s.c.Discord)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	s.infra.discord = d

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(s.c.Postgres.DSN())
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() error {
	switch s.c.Trivia.Store {
	case StorePostgres:
		s.service.store = leaderboard.NewPostgresStore(s.infra.postgres)
	case StoreRedis:
		s.service.store = leaderboard.NewRedisStore(s.infra.redis, s.c.Redis.Prefix)
	default:
		return fmt.Errorf("unknown leaderboard store %q", s.c.Trivia.Store)
	}

	s.service.chat = discord.NewClient(s.infra.discord)

	dailyChannel := s.c.Trivia.DailyChannel
	if s.c.Trivia.DailyCron != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		id, err := s.service.chat.ResolveChannel(ctx, dailyChannel)
		if err != nil {
			return fmt.Errorf("resolve daily channel %q: %w", dailyChannel, err)
		}
		slog.InfoContext(ctx, "server: daily channel resolved", "channel", dailyChannel, "id", id)
		dailyChannel = id
	}

	s.service.keeper = score.NewKeeper(score.Config{
		Store:     s.service.store,
		Reactions: s.service.chat,
		Directory: s.service.chat,
		Chat:      s.service.chat,
		EventBus:  s.eb,
	})

	quiz := opentdb.NewClient(s.c.OpenTDB)

	s.service.runner = trivia.NewRunner(trivia.Config{
		Provider:  quiz,
		Chat:      s.service.chat,
		Scheduler: s.sched,
		Settler:   s.service.keeper,
		EventBus:  s.eb,
	})

	s.service.handler = bot.NewHandler(bot.Config{
		Rounds:       s.service.runner,
		Leaderboard:  s.service.keeper,
		Categories:   quiz,
		Chat:         s.service.chat,
		DailyChannel: dailyChannel,
	})

	s.detach = discord.NewListener(s.c.Trivia.CommandPrefix, s.service.handler).Attach(s.infra.discord)

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPLogger())

	checks := map[string]api.Check{
		"redis": func(ctx context.Context) error { return s.infra.redis.Ping(ctx).Err() },
	}
	if s.infra.postgres != nil {
		checks["postgres"] = s.infra.postgres.Ping
	}

	api.New(api.Config{
		EventBus:     s.eb,
		Leaderboard:  s.service.keeper,
		Checks:       checks,
		Redis:        s.infra.redis,
		PubsubPrefix: s.c.Redis.Prefix,
	}).Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Start serves HTTP and runs the daily round until ctx is done.
func (s *Server) Start(ctx context.Context) {
	if s.c.Trivia.DailyCron != "" {
		err := s.sched.Cron(ctx, s.c.Trivia.DailyCron, s.location, func(ctx context.Context) {
			if err := s.service.handler.Daily(ctx); err != nil {
				slog.ErrorContext(ctx, "server: daily round failed", "error", err)
			}
		})
		if err != nil {
			slog.ErrorContext(ctx, "server: schedule daily round failed", "error", err)
		}
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err := eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

// Shutdown stops taking commands and waits for pending reveals before closing connections.
// The context passed to Start must already be cancelled so the daily loop exits.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.detach != nil {
		s.detach()
	}

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	if err := s.sched.Stop(ctx); err != nil {
		slog.ErrorContext(ctx, "server: pending rounds dropped", "error", err)
	}

	s.eb.Stop()

	if err := s.infra.discord.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close discord failed", "error", err)
	}
	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}
	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
