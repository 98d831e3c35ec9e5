// Package driver runs the agents of an app in process, standing in for the
// consensus layer: every round, each agent runs its behaviour and the
// payloads are delivered to the round in arrival order.
package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
	"github.com/Fantom-foundation/mech-interact-abci/utils/workers"
)

var (
	// ErrNoBehaviour is returned for a round no factory serves.
	ErrNoBehaviour = errors.New("no behaviour for round")
	// ErrStalled is returned when a round is undecided and cannot time out.
	ErrStalled = errors.New("round undecided without timeout")
	// ErrTooManyRounds is returned when a period does not reach a final state.
	ErrTooManyRounds = errors.New("too many rounds in period")
)

// Config of the driver.
type Config struct {
	// Workers is the number of agents running at once.
	Workers int
	// MaxTasks is the capacity of the task queue.
	MaxTasks int
	// MaxRounds bounds the rounds of one period, re-entries included.
	MaxRounds int
}

// DefaultConfig for livenet.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		MaxTasks:  16,
		MaxRounds: 64,
	}
}

// LiteConfig is for tests.
func LiteConfig() Config {
	return Config{
		Workers:   2,
		MaxTasks:  2,
		MaxRounds: 16,
	}
}

// Period is the outcome of a period.
type Period struct {
	ID      uuid.UUID
	Final   abci.RoundID
	History []abci.RoundID
}

// Driver runs periods of an app over a shared db.
type Driver struct {
	cfg          Config
	spec         *abci.AppSpec
	db           *abci.DB
	participants *pos.Participants
	factories    map[abci.RoundID]behaviour.Factory

	// Now returns the time timeouts are scheduled from.
	Now func() time.Time

	workers *workers.Workers
	wg      sync.WaitGroup
	quit    chan struct{}
	stopped bool
	periods int
	mu      deadlock.Mutex

	log log.Logger
}

// New starts the worker pool. Call Stop to release it.
func New(cfg Config, spec *abci.AppSpec, db *abci.DB, participants *pos.Participants, factories map[abci.RoundID]behaviour.Factory) *Driver {
	d := &Driver{
		cfg:          cfg,
		spec:         spec,
		db:           db,
		participants: participants,
		factories:    factories,
		Now:          time.Now,
		quit:         make(chan struct{}),
		log:          log.New("module", "driver", "app", spec.Name),
	}
	d.workers = workers.New(&d.wg, d.quit, cfg.MaxTasks)
	d.workers.Start(cfg.Workers)
	return d
}

// Stop terminates the worker pool and waits for it.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.quit)
	d.mu.Unlock()

	d.wg.Wait()
	d.workers.Drain()
}

// RunPeriod drives the app from start, the initial round if empty, until a
// final state. A period after the first one starts from a fresh period of
// the db, only the cross-period keys carried over.
func (d *Driver) RunPeriod(ctx context.Context, start abci.RoundID) (Period, error) {
	period := Period{ID: uuid.New()}
	d.mu.Lock()
	if d.periods > 0 {
		d.db.CreatePeriod()
	}
	d.periods++
	d.mu.Unlock()
	logger := d.log.New("period", period.ID, "n", d.db.Period())

	app, err := abci.NewApp(d.spec, d.db, start)
	if err != nil {
		return period, err
	}
	logger.Info("Period started", "round", app.CurrentRound())

	for i := 0; !app.IsFinal(); i++ {
		if i == d.cfg.MaxRounds {
			period.History = app.History()
			return period, pkgerrors.Wrapf(ErrTooManyRounds, "%d rounds", i)
		}
		if err := d.runRound(ctx, app, logger); err != nil {
			period.History = app.History()
			return period, err
		}
	}

	period.Final = app.CurrentRound()
	period.History = app.History()
	logger.Info("Period finished", "final", period.Final, "rounds", len(period.History))
	return period, nil
}

// runRound runs every agent's behaviour until the round deadline, then
// delivers the payloads to the round and applies its event.
func (d *Driver) runRound(ctx context.Context, app *abci.App, logger log.Logger) error {
	id := app.CurrentRound()
	factory, ok := d.factories[id]
	if !ok {
		return pkgerrors.Wrap(ErrNoBehaviour, id.String())
	}
	round, err := app.NewRound(d.participants)
	if err != nil {
		return err
	}

	timeouts := app.ScheduleTimeouts(d.Now())
	roundCtx, cancel := withEarliest(ctx, timeouts)
	defer cancel()

	var (
		mu       deadlock.Mutex
		payloads []abci.Payload
	)
	agents := d.participants.SortedIDs()
	tasks := make([]func(), len(agents))
	for i, agent := range agents {
		agent := agent
		tasks[i] = func() {
			b := factory(agent, d.db)
			b.Setup()
			defer b.Cleanup()
			p, err := b.Run(roundCtx)
			if err != nil {
				if roundCtx.Err() == nil {
					logger.Warn("Agent abstains", "round", id, "agent", agent, "err", err)
				}
				return
			}
			mu.Lock()
			payloads = append(payloads, p)
			mu.Unlock()
		}
	}
	if err := d.workers.Batch(ctx, tasks...); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, p := range payloads {
		if err := round.Process(p); err != nil {
			logger.Warn("Payload rejected", "round", id, "sender", p.Sender, "err", err)
			continue
		}
		event, decided, err := round.EndBlock()
		if err != nil {
			return pkgerrors.Wrapf(err, "round %s", id)
		}
		if decided {
			next, err := app.Process(event)
			if err != nil {
				return err
			}
			logger.Info("Round decided", "round", id, "event", event, "next", next, "payloads", len(payloads))
			return nil
		}
	}

	for _, t := range timeouts {
		fired, err := app.OnTimeout(t)
		if err != nil {
			return err
		}
		if fired {
			logger.Warn("Round timed out", "round", id, "event", t.Event, "payloads", len(payloads))
			return nil
		}
	}
	return pkgerrors.Wrap(ErrStalled, id.String())
}

func withEarliest(ctx context.Context, timeouts []abci.Timeout) (context.Context, context.CancelFunc) {
	if len(timeouts) == 0 {
		return context.WithCancel(ctx)
	}
	deadline := timeouts[0].Deadline
	for _, t := range timeouts[1:] {
		if t.Deadline.Before(deadline) {
			deadline = t.Deadline
		}
	}
	return context.WithDeadline(ctx, deadline)
}
