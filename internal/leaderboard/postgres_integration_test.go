//go:build integration_test

package leaderboard_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/leaderboard"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t, ctx)

	require.NoError(t, leaderboard.Migrate(ctx, dsn))
	require.NoError(t, leaderboard.Migrate(ctx, dsn), "migrating twice should be a no-op")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := leaderboard.NewPostgresStore(pool)

	r, err := s.GetRecord(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, r)

	for range 4 {
		require.NoError(t, s.UpsertIncrement(ctx, domain.NewUserSet("u1")))
	}
	require.NoError(t, s.UpsertIncrement(ctx, domain.NewUserSet("u1", "u3")))

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.ScoreRecord{
		{UserID: "u1", Score: 5},
		{UserID: "u3", Score: 1},
	}, records)

	const rounds = 10
	var wg sync.WaitGroup
	for i := range rounds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.UpsertIncrement(ctx, domain.NewUserSet("u3", fmt.Sprintf("p%d", i))))
		}()
	}
	wg.Wait()

	r, err = s.GetRecord(ctx, "u3")
	require.NoError(t, err)
	require.Equal(t, 1+rounds, r.Score)
}

func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "trivia", "POSTGRES_DB": "trivia"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://trivia:trivia@%s:%s/trivia?sslmode=disable", host, port.Port())
}
