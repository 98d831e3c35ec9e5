package abci

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
)

var (
	// ErrUnknownEvent is fatal: the transition table is total over the events rounds emit.
	ErrUnknownEvent = errors.New("event has no transition")
	ErrNotInitial   = errors.New("round is not an initial state")
	ErrFinished     = errors.New("app reached a final state")
)

// App is the running state machine of an AppSpec.
type App struct {
	spec *AppSpec
	db   *DB

	current RoundID
	history []RoundID
	// entered counts round entries so that a stale timeout is ignored.
	entered uint64

	log log.Logger
}

// Timeout is a scheduled event of the current round.
type Timeout struct {
	Round    RoundID
	Event    Event
	Deadline time.Time
	entry    uint64
}

// NewApp starts the app at start, the initial round if empty.
func NewApp(spec *AppSpec, db *DB, start RoundID) (*App, error) {
	if start == "" {
		start = spec.InitialRound
	}
	if !spec.IsInitial(start) {
		return nil, pkgerrors.Wrap(ErrNotInitial, start.String())
	}
	for _, k := range spec.DBPreConditions[start] {
		if !db.Has(k) {
			return nil, pkgerrors.Wrapf(ErrKeyNotFound, "%s requires %q", start, k)
		}
	}
	a := &App{
		spec:    spec,
		db:      db,
		current: start,
		history: []RoundID{start},
		entered: 1,
		log:     log.New("app", spec.Name),
	}
	a.log.Debug("Entered round", "round", start, "period", db.Period())
	return a, nil
}

// Spec returns the static description.
func (a *App) Spec() *AppSpec {
	return a.spec
}

// DB returns the synchronized data store.
func (a *App) DB() *DB {
	return a.db
}

// CurrentRound returns the current round id.
func (a *App) CurrentRound() RoundID {
	return a.current
}

// History returns the rounds entered so far.
func (a *App) History() []RoundID {
	return append([]RoundID(nil), a.history...)
}

// IsFinal reports whether the app reached a final state.
func (a *App) IsFinal() bool {
	return a.spec.IsFinal(a.current)
}

// NewRound makes an instance of the current round.
func (a *App) NewRound(participants *pos.Participants) (Round, error) {
	if a.IsFinal() {
		return nil, pkgerrors.Wrap(ErrFinished, a.current.String())
	}
	return a.spec.Rounds[a.current].New(a.current, a.db, participants), nil
}

// Process applies the event to the current round.
func (a *App) Process(e Event) (RoundID, error) {
	next, ok := a.spec.Transitions[a.current][e]
	if !ok {
		return a.current, pkgerrors.Wrapf(ErrUnknownEvent, "%s in round %s", e, a.current)
	}
	a.log.Debug("Transition", "from", a.current, "event", e, "to", next)
	a.current = next
	a.history = append(a.history, next)
	a.entered++

	if a.IsFinal() {
		for _, k := range a.spec.DBPostConditions[next] {
			if !a.db.Has(k) {
				a.log.Warn("Final state without produced data", "round", next, "key", k)
			}
		}
	}
	return next, nil
}

// ScheduleTimeouts returns the deadlines of the timeout events the current round handles.
func (a *App) ScheduleTimeouts(now time.Time) []Timeout {
	var res []Timeout
	for e, d := range a.spec.EventToTimeout {
		if _, ok := a.spec.Transitions[a.current][e]; !ok {
			continue
		}
		res = append(res, Timeout{
			Round:    a.current,
			Event:    e,
			Deadline: now.Add(d),
			entry:    a.entered,
		})
	}
	return res
}

// OnTimeout fires the timeout event if its round is still running.
// Firing a stale timeout is a no-op, so calling it twice is safe.
func (a *App) OnTimeout(t Timeout) (bool, error) {
	if t.Round != a.current || t.entry != a.entered {
		return false, nil
	}
	if _, err := a.Process(t.Event); err != nil {
		return false, err
	}
	return true, nil
}
