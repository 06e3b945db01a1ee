package bot

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/trivia"
)

const (
	Command = "!trivia"

	random      = "random"
	anyCategory = -1
)

// Args are the parsed flags of a trivia command.
type Args struct {
	Difficulty  string
	Category    int
	Type        string
	Seconds     int
	Leaderboard bool
	Cats        bool
	Help        bool
}

// Filters translates the args into provider filters. "random" and -1 mean no filter.
func (a Args) Filters() domain.Filters {
	f := domain.Filters{}
	if a.Category != anyCategory {
		f.CategoryID = a.Category
	}
	if a.Difficulty != random {
		f.Difficulty = a.Difficulty
	}
	if a.Type != random {
		f.Kind = a.Type
	}
	return f
}

func newFlagSet(a *Args) *pflag.FlagSet {
	fs := pflag.NewFlagSet(Command, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&a.Difficulty, "difficulty", "d", random, "The difficulty of the question: easy, medium or hard")
	fs.IntVarP(&a.Category, "category", "c", anyCategory, "Specifies a category by id, see --cats")
	fs.StringVarP(&a.Type, "type", "t", random, "The type of question: boolean (or tf) or multiple")
	fs.IntVarP(&a.Seconds, "seconds", "s", trivia.DefaultSeconds, "Number of seconds before posting answer")
	fs.BoolVarP(&a.Leaderboard, "leaderboard", "l", false, "Shows the current trivia leaderboard")
	fs.BoolVar(&a.Cats, "cats", false, "Sends a list of valid categories")
	fs.BoolVarP(&a.Help, "help", "h", false, "Prints this help message")

	return fs
}

// Usage is the help text of the trivia command.
func Usage() string {
	var a Args
	return fmt.Sprintf("```usage: %s [-d {easy,medium,hard}] [-c CATEGORY] [-t {boolean,multiple}] [-s SECONDS] [-l] [--cats] [-h]\n\n%s```",
		Command, newFlagSet(&a).FlagUsages())
}

// ParseArgs parses the words after the command. A usage error carries the usage text as its message.
func ParseArgs(args []string) (Args, error) {
	var a Args
	fs := newFlagSet(&a)

	if err := fs.Parse(args); err != nil {
		return Args{}, usageError(err)
	}
	if fs.NArg() > 0 {
		return Args{}, usageError(fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}

	a.Difficulty = strings.ToLower(a.Difficulty)
	switch a.Difficulty {
	case random, "easy", "medium", "hard":
	default:
		return Args{}, usageError(fmt.Errorf("invalid difficulty %q", a.Difficulty))
	}

	a.Type = strings.ToLower(a.Type)
	switch a.Type {
	case random, domain.KindBoolean.String(), domain.KindMultipleChoice.String():
	case "tf":
		a.Type = domain.KindBoolean.String()
	default:
		return Args{}, usageError(fmt.Errorf("invalid type %q", a.Type))
	}

	a.Seconds = trivia.ClampSeconds(a.Seconds)

	return a, nil
}

func usageError(err error) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithCause(err),
		errors.WithMessagef("%s", Usage()),
	)
}
