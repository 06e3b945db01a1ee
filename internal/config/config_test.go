package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Trivia struct {
		DailyChannel string        `mapstructure:"daily_channel"`
		Timeout      time.Duration `mapstructure:"timeout"`
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	p := writeFile(t, "config.yaml", `
http:
  port: 8080
trivia:
  daily_channel: general
  timeout: 15s
`)

	var c testConfig
	require.NoError(t, config.Load(p, &c))

	require.EqualValues(t, 8080, c.HTTP.Port)
	require.Equal(t, "general", c.Trivia.DailyChannel)
	require.Equal(t, 15*time.Second, c.Trivia.Timeout)
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeFile(t, "config.yaml", `
http:
  port: 9090
`)

	var c testConfig
	c.Trivia.DailyChannel = "trivia"

	require.NoError(t, config.Load(p, &c))

	require.EqualValues(t, 9090, c.HTTP.Port)
	require.Equal(t, "trivia", c.Trivia.DailyChannel)
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, ".env", "TRIVIA_TEST_DOTENV=loaded\n")
	t.Setenv("TRIVIA_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("TRIVIA_TEST_DOTENV"))

	require.NoError(t, config.LoadDotEnv(p, filepath.Join(t.TempDir(), "missing.env")))
	require.Equal(t, "loaded", os.Getenv("TRIVIA_TEST_DOTENV"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeFile(t, "config.yaml", `
http:
  port: 8080
`)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("TRIVIA_DAILY_CHANNEL", "random")

	var c testConfig
	require.NoError(t, config.Load(p, &c))

	require.EqualValues(t, 7070, c.HTTP.Port)
	require.Equal(t, "random", c.Trivia.DailyChannel, "env should override keys missing from the file")
}
