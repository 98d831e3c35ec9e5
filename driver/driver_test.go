package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
)

type stub struct {
	round abci.RoundID
	run   func(ctx context.Context) (abci.Payload, error)
}

func (s *stub) Round() abci.RoundID { return s.round }
func (s *stub) Setup()              {}
func (s *stub) Cleanup()            {}
func (s *stub) Run(ctx context.Context) (abci.Payload, error) {
	return s.run(ctx)
}

func factory(round abci.RoundID, content func(agent string) (abci.Content, error)) behaviour.Factory {
	return func(agent string, _ *abci.DB) behaviour.Behaviour {
		return &stub{round: round, run: func(context.Context) (abci.Payload, error) {
			c, err := content(agent)
			if err != nil {
				return abci.Payload{}, err
			}
			return abci.NewPayload(agent, round, c), nil
		}}
	}
}

func str(s string) *string { return &s }

func boolean(b bool) *bool { return &b }

func buyAndPurchase() map[abci.RoundID]behaviour.Factory {
	return map[abci.RoundID]behaviour.Factory{
		mech.RequestRound: factory(mech.RequestRound, func(string) (abci.Content, error) {
			return mech.MechRequestPayload{}, nil
		}),
		mech.PurchaseSubscriptionRound: factory(mech.PurchaseSubscriptionRound, func(agent string) (abci.Content, error) {
			if agent == "d" {
				return nil, errors.New("rpc down")
			}
			return mech.PrepareTxPayload{
				TxSubmitter: str(string(mech.PurchaseSubscriptionRound)),
				TxHash:      str("0xab"),
			}, nil
		}),
	}
}

func newDriver(t *testing.T, spec *abci.AppSpec, factories map[abci.RoundID]behaviour.Factory) (*Driver, *abci.DB) {
	db := abci.NewMemDB(spec.CrossPeriodPersistedKeys...)
	d := New(LiteConfig(), spec, db, pos.EqualWeights("a", "b", "c", "d"), factories)
	t.Cleanup(d.Stop)
	return d, db
}

func TestDriver_RunPeriod(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, db := newDriver(t, mech.NewAppSpec(nil, nil), buyAndPurchase())
	period, err := d.RunPeriod(context.Background(), mech.RequestRound)
	require.NoError(t, err)
	d.Stop()

	assert.Equal(t, mech.FinishedMechPurchaseSubscriptionRound, period.Final)
	assert.Equal(t, []abci.RoundID{
		mech.RequestRound,
		mech.PurchaseSubscriptionRound,
		mech.FinishedMechPurchaseSubscriptionRound,
	}, period.History)
	assert.Equal(t, "0xab", db.Get(mech.KeyMostVotedTxHash, nil))
	assert.NotEqual(t, uuid.Nil, period.ID)
}

func TestDriver_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	spec := mech.NewAppSpec(nil, nil)
	spec.EventToTimeout[mech.EventRoundTimeout] = 20 * time.Millisecond
	blocked := map[abci.RoundID]behaviour.Factory{
		mech.ResponseRound: func(agent string, _ *abci.DB) behaviour.Behaviour {
			return &stub{round: mech.ResponseRound, run: func(ctx context.Context) (abci.Payload, error) {
				<-ctx.Done()
				return abci.Payload{}, ctx.Err()
			}}
		},
	}
	d, _ := newDriver(t, spec, blocked)
	period, err := d.RunPeriod(context.Background(), mech.ResponseRound)
	require.NoError(t, err)
	d.Stop()

	assert.Equal(t, mech.FinishedMechResponseTimeoutRound, period.Final)
}

func TestDriver_Failures(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("no majority forever", func(t *testing.T) {
		split := map[abci.RoundID]behaviour.Factory{
			mech.VersionDetectionRound: factory(mech.VersionDetectionRound, func(agent string) (abci.Content, error) {
				return mech.VotingPayload{Value: boolean(agent < "c")}, nil
			}),
		}
		d, _ := newDriver(t, mech.NewAppSpec(nil, nil), split)
		period, err := d.RunPeriod(context.Background(), "")
		require.ErrorIs(t, err, ErrTooManyRounds)
		assert.Len(t, period.History, LiteConfig().MaxRounds+1)
		for _, r := range period.History {
			assert.Equal(t, mech.VersionDetectionRound, r)
		}
	})

	t.Run("no behaviour", func(t *testing.T) {
		d, _ := newDriver(t, mech.NewAppSpec(nil, nil), nil)
		_, err := d.RunPeriod(context.Background(), "")
		require.ErrorIs(t, err, ErrNoBehaviour)
	})

	t.Run("cancelled", func(t *testing.T) {
		d, _ := newDriver(t, mech.NewAppSpec(nil, nil), buyAndPurchase())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := d.RunPeriod(ctx, mech.RequestRound)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDriver_NextPeriod(t *testing.T) {
	defer goleak.VerifyNone(t)

	factories := buyAndPurchase()
	var (
		mu               sync.Mutex
		carried, dropped []bool
	)
	factories[mech.ResponseRound] = func(agent string, db *abci.DB) behaviour.Behaviour {
		mu.Lock()
		defer mu.Unlock()
		carried = append(carried, db.Has(mech.KeyMechResponses))
		dropped = append(dropped, !db.Has(mech.KeyMostVotedTxHash))
		return factory(mech.ResponseRound, func(string) (abci.Content, error) {
			return mech.JSONPayload{Information: str(mech.SerializedEmptyList)}, nil
		})(agent, db)
	}
	d, db := newDriver(t, mech.NewAppSpec(nil, nil), factories)
	require.NoError(t, db.Update(abci.Values{mech.KeyMechResponses: mech.SerializedEmptyList}))

	_, err := d.RunPeriod(context.Background(), mech.RequestRound)
	require.NoError(t, err)
	period, err := d.RunPeriod(context.Background(), mech.ResponseRound)
	require.NoError(t, err)
	d.Stop()

	assert.Equal(t, mech.FinishedMechResponseRound, period.Final)
	assert.Equal(t, []bool{true, true, true, true}, carried)
	assert.Equal(t, []bool{true, true, true, true}, dropped)
}
