package trivia

import (
	"math/rand/v2"
	"strings"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

// Shuffle permutes n elements through swap. rand.Shuffle is the default.
type Shuffle func(n int, swap func(i, j int))

// NewQuestion validates a raw provider record and builds a question with shuffled answers.
func NewQuestion(raw domain.RawQuestion, shuffle Shuffle) (domain.Question, error) {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	if strings.TrimSpace(raw.Prompt) == "" || strings.TrimSpace(raw.CorrectAnswer) == "" {
		return domain.Question{}, errors.New(errors.CodeFetch,
			errors.WithCause(errMalformed("question or correct answer is empty")))
	}

	q := domain.Question{
		Kind:          domain.KindMultipleChoice,
		Category:      raw.Category,
		Difficulty:    raw.Difficulty,
		Prompt:        raw.Prompt,
		CorrectAnswer: raw.CorrectAnswer,
	}
	if len(raw.IncorrectAnswers) == 1 {
		q.Kind = domain.KindBoolean
	}

	q.Answers = make([]string, 0, len(raw.IncorrectAnswers)+1)
	q.Answers = append(q.Answers, raw.CorrectAnswer)
	for _, a := range raw.IncorrectAnswers {
		if a == raw.CorrectAnswer {
			return domain.Question{}, errors.New(errors.CodeFetch,
				errors.WithCause(errMalformed("incorrect answer duplicates the correct one")))
		}
		q.Answers = append(q.Answers, a)
	}

	if q.Kind == domain.KindMultipleChoice && len(q.Answers) > domain.MaxChoices {
		return domain.Question{}, errors.New(errors.CodeFetch,
			errors.WithCause(errMalformed("too many answers")))
	}

	shuffle(len(q.Answers), func(i, j int) {
		q.Answers[i], q.Answers[j] = q.Answers[j], q.Answers[i]
	})

	return q, nil
}

// CorrectMarker is the marker users must react with to answer q correctly.
func CorrectMarker(q domain.Question) domain.Marker {
	if q.Kind == domain.KindBoolean {
		if q.CorrectAnswer == "True" {
			return domain.MarkerTrue
		}
		return domain.MarkerFalse
	}

	for i, a := range q.Answers {
		if a == q.CorrectAnswer {
			return domain.ChoiceMarkers[i]
		}
	}

	// NewQuestion guarantees the correct answer is present.
	panic("trivia: correct answer missing from answers")
}

// AnswerText is what the reveal message shows as the answer.
func AnswerText(q domain.Question) string {
	if q.Kind == domain.KindBoolean {
		return CorrectMarker(q).Label()
	}
	return q.CorrectAnswer
}

type errMalformed string

func (e errMalformed) Error() string { return "trivia: malformed question: " + string(e) }
