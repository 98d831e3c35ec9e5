package behaviour

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
	pkgerrors "github.com/pkg/errors"
)

var (
	ErrRetriesExceeded = errors.New("retries exceeded")
	ErrStepFailed      = errors.New("step failed")
	ErrAborted         = errors.New("sequence aborted")
)

// Step is one dependent action of a sequence.
type Step struct {
	Name string
	Do   func(ctx context.Context) Outcome
	// Specs owns the retry budget. A step without specs is not retryable.
	Specs *ApiSpecs
}

// Sequencer runs steps strictly in order. A later step may assume all
// earlier ones succeeded.
type Sequencer struct {
	name    string
	steps   []Step
	sleeper Sleeper

	// SuspendInterval is the pause before a suspended step is re-invoked.
	SuspendInterval time.Duration

	log log.Logger
}

// NewSequencer constructor.
func NewSequencer(name string, sleeper Sleeper, logger log.Logger, steps ...Step) *Sequencer {
	return &Sequencer{
		name:            name,
		steps:           steps,
		sleeper:         sleeper,
		SuspendInterval: time.Second,
		log:             logger.New("sequence", name),
	}
}

// Run executes every step until all succeed, one aborts, a budget runs out or ctx ends.
func (s *Sequencer) Run(ctx context.Context) error {
	for i := range s.steps {
		if err := s.runStep(ctx, &s.steps[i]); err != nil {
			return pkgerrors.Wrapf(err, "%s: step %s", s.name, s.steps[i].Name)
		}
	}
	return nil
}

func (s *Sequencer) runStep(ctx context.Context, step *Step) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch out := step.Do(ctx); out {
		case Succeeded:
			if step.Specs != nil {
				step.Specs.ResetRetries()
			}
			return nil

		case Suspended:
			s.log.Trace("Step suspended", "step", step.Name)
			if err := s.sleeper.Sleep(ctx, s.SuspendInterval); err != nil {
				return err
			}

		case Failed:
			if step.Specs == nil {
				return ErrStepFailed
			}
			step.Specs.IncrementRetries()
			if step.Specs.IsRetriesExceeded() {
				step.Specs.ResetRetries()
				return ErrRetriesExceeded
			}
			sleep := step.Specs.SuggestedSleepTime()
			s.log.Warn("Step failed, retrying", "step", step.Name, "attempt", step.Specs.Retries(), "sleep", sleep)
			if err := s.sleeper.Sleep(ctx, sleep); err != nil {
				return err
			}

		default:
			return pkgerrors.Wrap(ErrAborted, out.String())
		}
	}
}

// WaitForCondition checks cond every sleep until it holds or ctx ends.
func WaitForCondition(ctx context.Context, sleeper Sleeper, sleep time.Duration, cond func() bool) error {
	for !cond() {
		if err := sleeper.Sleep(ctx, sleep); err != nil {
			return err
		}
	}
	return nil
}
