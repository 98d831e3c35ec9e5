package abci

// RoundID names a round of an app.
type RoundID string

// Event is the outcome of a round, driving the transition table.
type Event string

// Events every app shares.
const (
	EventNoMajority   Event = "no_majority"
	EventRoundTimeout Event = "round_timeout"
)

func (r RoundID) String() string { return string(r) }

func (e Event) String() string { return string(e) }
