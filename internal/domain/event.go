package domain

const (
	EventNameRoundStarted  = "round.started"
	EventNameRoundRevealed = "round.revealed"
	EventNameScoresUpdated = "scores.updated"
	EventNameScoresFailed  = "scores.failed"
)

type EventRoundStarted struct {
	Round RoundHandle
}

func (EventRoundStarted) Name() string { return EventNameRoundStarted }

type EventRoundRevealed struct {
	Round RoundContext
	// Late is how long after RevealAt the reveal actually ran.
	Late float64
}

func (EventRoundRevealed) Name() string { return EventNameRoundRevealed }

type EventScoresUpdated struct {
	Channel          string
	MessageTimestamp string
	Marker           string
	Users            []string
}

func (EventScoresUpdated) Name() string { return EventNameScoresUpdated }

type EventScoresFailed struct {
	Channel          string
	MessageTimestamp string
	Reason           string
}

func (EventScoresFailed) Name() string { return EventNameScoresFailed }
