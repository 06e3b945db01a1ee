package bot_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/bot"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

func TestParseArgs(t *testing.T) {
	tests := map[string]struct {
		args   []string
		assert func(t *testing.T, a bot.Args, err error)
	}{
		"defaults": {
			args: nil,
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.Equal(t, bot.Args{Difficulty: "random", Category: -1, Type: "random", Seconds: 30}, a)
				require.Equal(t, domain.Filters{}, a.Filters())
			},
		},

		"short flags": {
			args: []string{"-d", "HARD", "-c", "18", "-t", "multiple", "-s", "45"},
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.Equal(t, domain.Filters{CategoryID: 18, Difficulty: "hard", Kind: "multiple"}, a.Filters())
				require.Equal(t, 45, a.Seconds)
			},
		},

		"long flags": {
			args: []string{"--difficulty=easy", "--type", "boolean", "--seconds", "10"},
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.Equal(t, "easy", a.Difficulty)
				require.Equal(t, "boolean", a.Type)
				require.Equal(t, 10, a.Seconds)
			},
		},

		"tf is an alias of boolean": {
			args: []string{"-t", "tf"},
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.Equal(t, "boolean", a.Filters().Kind)
			},
		},

		"seconds are clamped": {
			args: []string{"-s", "10000"},
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.Equal(t, 300, a.Seconds)
			},
		},

		"toggles": {
			args: []string{"-l", "--cats", "-h"},
			assert: func(t *testing.T, a bot.Args, err error) {
				require.NoError(t, err)
				require.True(t, a.Leaderboard)
				require.True(t, a.Cats)
				require.True(t, a.Help)
			},
		},

		"unknown difficulty is a usage error": {
			args: []string{"-d", "insane"},
			assert: func(t *testing.T, _ bot.Args, err error) {
				require.True(t, errors.Is(err, errors.CodeInvalidArgument))
				require.Equal(t, bot.Usage(), errors.Convert(err).Message)
			},
		},

		"unknown type is a usage error": {
			args: []string{"-t", "essay"},
			assert: func(t *testing.T, _ bot.Args, err error) {
				require.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},

		"non numeric category is a usage error": {
			args: []string{"-c", "science"},
			assert: func(t *testing.T, _ bot.Args, err error) {
				require.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},

		"unknown flag is a usage error": {
			args: []string{"--nope"},
			assert: func(t *testing.T, _ bot.Args, err error) {
				require.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},

		"positional arguments are a usage error": {
			args: []string{"what", "is", "this"},
			assert: func(t *testing.T, _ bot.Args, err error) {
				require.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a, err := bot.ParseArgs(tt.args)
			tt.assert(t, a, err)
		})
	}
}

func TestUsage(t *testing.T) {
	u := bot.Usage()
	require.Contains(t, u, "usage: !trivia")
	require.Contains(t, u, "--difficulty")
	require.Contains(t, u, "--cats")
}
