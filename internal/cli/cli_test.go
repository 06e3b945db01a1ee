package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/server"
)

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
redis:
  addrs: ["localhost:6379"]
trivia:
  store: redis
  daily_channel: "1234567890"
opentdb:
  timeout: 3s
`), 0o600))

	c, err := loadConfig(p)
	require.NoError(t, err)

	require.Equal(t, []string{"localhost:6379"}, c.Redis.Addrs)
	require.Equal(t, server.StoreRedis, c.Trivia.Store)
	require.Equal(t, "1234567890", c.Trivia.DailyChannel)
	require.Equal(t, 3*time.Second, c.OpenTDB.Timeout)

	// Untouched keys keep their defaults.
	require.EqualValues(t, 8080, c.HTTP.Port)
	require.Equal(t, "0 12 * * *", c.Trivia.DailyCron)
	require.Equal(t, "Australia/Brisbane", c.Trivia.Timezone)
	require.Equal(t, "!trivia", c.Trivia.CommandPrefix)
}

func TestMigrateCmd_RequiresPostgres(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("trivia:\n  store: redis\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", p, "--env-file", filepath.Join(t.TempDir(), "none.env")})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.ErrorContains(t, err, "postgres addr not configured")
}
