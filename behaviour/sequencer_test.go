package behaviour

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.slept = append(f.slept, d)
	return nil
}

func outcomes(oo ...Outcome) func(ctx context.Context) Outcome {
	i := 0
	return func(ctx context.Context) Outcome {
		o := oo[i]
		if i < len(oo)-1 {
			i++
		}
		return o
	}
}

func TestSequencer_Order(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Do: func(ctx context.Context) Outcome {
			order = append(order, name)
			return Succeeded
		}}
	}
	seq := NewSequencer("test", &fakeSleeper{}, log.Root(), step("a"), step("b"), step("c"))
	require.NoError(t, seq.Run(context.Background()))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSequencer_Outcomes(t *testing.T) {
	specs := func() *ApiSpecs {
		return NewApiSpecs("", "", nil, RetriesConfig{MaxRetries: 2, BackoffFactor: 2})
	}
	for name, tc := range map[string]struct {
		do    func(ctx context.Context) Outcome
		specs *ApiSpecs
		err   error
		slept []time.Duration
	}{
		"retry then succeed": {
			do:    outcomes(Failed, Failed, Succeeded),
			specs: specs(),
			slept: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		"retries exceeded": {
			do:    outcomes(Failed),
			specs: specs(),
			err:   ErrRetriesExceeded,
			slept: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		"not retryable": {
			do:  outcomes(Failed),
			err: ErrStepFailed,
		},
		"aborted": {
			do:  outcomes(Aborted),
			err: ErrAborted,
		},
		"suspended does not spend budget": {
			do:    outcomes(Suspended, Suspended, Suspended, Succeeded),
			specs: specs(),
			slept: []time.Duration{time.Second, time.Second, time.Second},
		},
	} {
		t.Run(name, func(t *testing.T) {
			sleeper := &fakeSleeper{}
			seq := NewSequencer("test", sleeper, log.Root(), Step{Name: "s", Do: tc.do, Specs: tc.specs})
			err := seq.Run(context.Background())
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.slept, sleeper.slept)
			if tc.specs != nil {
				require.Zero(t, tc.specs.Retries())
			}
		})
	}
}

func TestSequencer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	seq := NewSequencer("test", &fakeSleeper{}, log.Root(), Step{Name: "s", Do: func(ctx context.Context) Outcome {
		calls++
		return Succeeded
	}})
	require.ErrorIs(t, seq.Run(ctx), context.Canceled)
	require.Zero(t, calls)
}

func TestWaitForCondition(t *testing.T) {
	sleeper := &fakeSleeper{}
	n := 0
	err := WaitForCondition(context.Background(), sleeper, time.Minute, func() bool {
		n++
		return n == 3
	})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Minute, time.Minute}, sleeper.slept)
}

func TestApiSpecs(t *testing.T) {
	s := NewApiSpecs("http://x", "GET", nil, RetriesConfig{MaxRetries: 1, BackoffFactor: 3})
	require.Equal(t, time.Second, s.SuggestedSleepTime())
	s.IncrementRetries()
	require.False(t, s.IsRetriesExceeded())
	require.Equal(t, 3*time.Second, s.SuggestedSleepTime())
	s.IncrementRetries()
	require.True(t, s.IsRetriesExceeded())
	s.ResetRetries()
	require.Zero(t, s.Retries())
}
