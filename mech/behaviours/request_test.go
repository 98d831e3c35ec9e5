package behaviours

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/multisend"
)

const twoRequests = `[{"prompt": "p1", "tool": "t", "nonce": "n1"}, {"prompt": "p2", "tool": "t", "nonce": "n2"}]`

var trackerAddr = common.HexToAddress("0x7D686bD1fD3CFF6E45a40165154D61043af7D67c")

func (e *env) withRequests(t *testing.T, requests string) {
	require.NoError(t, e.db.Update(abci.Values{mech.KeyMechRequests: requests}))
}

// uploads expects one upload per request and returns the digest of the stored metadata.
func (e *env) uploads(t *testing.T, n int) string {
	c, digest := cidOf(t, "metadata")
	e.store.EXPECT().Store(gomock.Any(), metadataFilename, gomock.Any()).Times(n).
		DoAndReturn(func(ctx context.Context, name string, payload []byte) (string, error) {
			var m mechs.Metadata
			assert.NoError(t, json.Unmarshal(payload, &m))
			assert.NotEmpty(t, m.Nonce)
			return c, nil
		})
	return digest
}

func requestPayload(t *testing.T, p abci.Payload) mech.MechRequestPayload {
	require.Equal(t, mech.RequestRound, p.Round)
	return p.Content.(mech.MechRequestPayload)
}

func TestRequest_Skip(t *testing.T) {
	e := newEnv(t)
	p := requestPayload(t, run(t, NewRequest("agent_0", e.synced(), e.deps)))

	assert.Equal(t, string(mech.RequestRound), *p.TxSubmitter)
	assert.Nil(t, p.TxHash)
	assert.Nil(t, p.Price)
	assert.Equal(t, "gnosis", *p.ChainID)
	assert.Equal(t, safeAddr.Hex(), *p.SafeContractAddress)
	assert.Equal(t, mech.SerializedEmptyList, *p.MechRequests)
	assert.Equal(t, mech.SerializedEmptyList, *p.MechResponses)
	assert.Empty(t, e.calls)
}

func TestRequest_DirectMech(t *testing.T) {
	e := newEnv(t)
	e.withRequests(t, twoRequests)
	e.answers[contracts.Mech+".get_price"] = ok(map[string]interface{}{"price": big.NewInt(100)})
	e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").Return(big.NewInt(1000), nil)
	digest := e.uploads(t, 1)

	b := NewRequest("agent_0", e.synced(), e.deps)
	p := requestPayload(t, run(t, b))

	assert.Equal(t, []string{
		contracts.Mech + ".get_price",
		contracts.Mech + ".get_request_data",
		contracts.GnosisSafe + ".get_nonce",
	}, e.calls)
	assert.Equal(t, string(mech.RequestRound), *p.TxSubmitter)
	assert.Equal(t, b.tx.PayloadHex(), *p.TxHash)
	assert.Equal(t, big.NewInt(100), p.Price)

	// the last request is sent, the first one waits for the next period
	remaining, err := mechs.ParseMetadata(*p.MechRequests)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "n1", remaining[0].Nonce)
	pending, err := mechs.ParseResponses(*p.MechResponses)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "n2", pending[0].Nonce)
	assert.Equal(t, digest, pending[0].Data)
	assert.Equal(t, mechs.UnknownError, pending[0].Error)

	legs := b.batcher.Batches()
	require.Len(t, legs, 1)
	assert.Equal(t, priorityMech, legs[0].To)
	assert.Equal(t, big.NewInt(100), legs[0].Value)
	assert.Equal(t, multisend.Call, legs[0].Operation)
	assert.Equal(t, multisend.DelegateCall, b.tx.Operation)
	assert.Equal(t, e.cfg.MultisendAddress, b.tx.To)
}

func TestRequest_UnwrapAfterRefill(t *testing.T) {
	e := newEnv(t)
	e.withRequests(t, twoRequests)
	e.cfg.MechRequestPrice = big.NewInt(100)
	e.cfg.MechWrappedNativeTokenAddress = wrappedAddr
	e.cfg.MultisendBatchSize = 2

	gomock.InOrder(
		e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").Return(big.NewInt(10), nil),
		e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").Return(big.NewInt(50), nil),
	)
	wrapped := []int64{20, 200}
	e.answers[contracts.ERC20+".check_balance"] = func(req behaviour.ContractRequest) (behaviour.ContractResponse, error) {
		assert.Equal(t, wrappedAddr, req.Address)
		balance := wrapped[0]
		wrapped = wrapped[1:]
		return behaviour.ContractResponse{Status: behaviour.ContractOK, Data: map[string]interface{}{"token": big.NewInt(balance)}}, nil
	}
	e.uploads(t, 2)

	b := NewRequest("agent_0", e.synced(), e.deps)
	p := requestPayload(t, run(t, b))

	// the shortfall is re-checked after the interaction sleep time
	assert.Equal(t, []time.Duration{e.cfg.SleepTime()}, e.sleeper.Slept)
	assert.Contains(t, e.logs, shortfallMsg)
	// both requests are paid from the same balance
	assert.Equal(t, big.NewInt(170), e.logged(shortfallMsg, "shortage"))

	legs := b.batcher.Batches()
	require.Len(t, legs, 3)
	assert.Equal(t, wrappedAddr, legs[0].To)
	assert.Equal(t, 0, legs[0].Value.Sign())
	withdraw, err := contracts.NewRouter(nil).Call(context.Background(), behaviour.ContractRequest{
		Contract: contracts.ERC20,
		Callable: "build_withdraw_tx",
		Args:     map[string]interface{}{"amount": big.NewInt(150)},
	})
	require.NoError(t, err)
	assert.Equal(t, withdraw.Data[contracts.DataKey], legs[0].Data)
	for _, leg := range legs[1:] {
		assert.Equal(t, priorityMech, leg.To)
		assert.Equal(t, big.NewInt(100), leg.Value)
	}
	assert.Equal(t, big.NewInt(200), b.tx.Value)

	assert.Equal(t, mech.SerializedEmptyList, *p.MechRequests)
	pending, err := mechs.ParseResponses(*p.MechResponses)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "n2", pending[0].Nonce)
	assert.Equal(t, "n1", pending[1].Nonce)
}

const shortfallMsg = "The balance is not enough to pay for the mech's price, please refill the safe"

func TestRequest_Shortfall(t *testing.T) {
	e := newEnv(t)
	e.withRequests(t, twoRequests)
	e.cfg.MechRequestPrice = big.NewInt(100)

	// nothing to unwrap: the step pauses, cancel while it waits
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").
		DoAndReturn(func(context.Context, common.Address, string) (*big.Int, error) {
			cancel()
			return big.NewInt(80), nil
		})

	b := NewRequest("agent_0", e.synced(), e.deps)
	b.Setup()
	_, err := b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, big.NewInt(20), e.logged(shortfallMsg, "shortage"))
	assert.Equal(t, "native tokens", e.logged(shortfallMsg, "with"))
	assert.Zero(t, b.batcher.Len())
	assert.NotContains(t, e.calls, contracts.ERC20+".check_balance")
}

func TestRequest_Unwrap(t *testing.T) {
	e := newEnv(t)
	e.withRequests(t, twoRequests)
	e.cfg.MechRequestPrice = big.NewInt(100)
	e.cfg.MechWrappedNativeTokenAddress = wrappedAddr
	e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").Return(big.NewInt(80), nil)
	e.answers[contracts.ERC20+".check_balance"] = ok(map[string]interface{}{"token": big.NewInt(30)})
	e.uploads(t, 1)

	b := NewRequest("agent_0", e.synced(), e.deps)
	run(t, b)

	assert.Empty(t, e.sleeper.Slept)
	legs := b.batcher.Batches()
	require.Len(t, legs, 2)
	assert.Equal(t, wrappedAddr, legs[0].To)
	assert.Equal(t, priorityMech, legs[1].To)
	withdraw, err := contracts.NewRouter(nil).Call(context.Background(), behaviour.ContractRequest{
		Contract: contracts.ERC20,
		Callable: "build_withdraw_tx",
		Args:     map[string]interface{}{"amount": big.NewInt(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, withdraw.Data[contracts.DataKey], legs[0].Data)
}

func TestRequest_Marketplace(t *testing.T) {
	nativePaymentType := common.HexToHash("0xba699a34be8fe0e7725e93dcbce1701b0211a8ca61330aaeb8a05bf2ec7abed1")
	for name, tc := range map[string]struct {
		isV2        bool
		paymentType common.Hash
		credits     int64
		contract    string
		value       *big.Int
	}{
		"legacy marketplace": {
			contract: contracts.MarketplaceLegacy,
			value:    big.NewInt(100),
		},
		"v2 native payment": {
			isV2:        true,
			paymentType: nativePaymentType,
			contract:    contracts.Marketplace,
			value:       big.NewInt(100),
		},
		"v2 nevermined with credits": {
			isV2:        true,
			paymentType: NVMNativePaymentType,
			credits:     200,
			contract:    contracts.Marketplace,
			value:       new(big.Int),
		},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			e.useMarketplace(boolean(tc.isV2))
			e.cfg.NVMBalanceTrackerAddress = trackerAddr
			e.withRequests(t, twoRequests)
			e.answers[contracts.Mech+".get_price"] = ok(map[string]interface{}{"price": big.NewInt(100)})
			e.answers[contracts.MechMM+".get_max_delivery_rate"] = ok(map[string]interface{}{"max_delivery_rate": big.NewInt(100)})
			e.answers[contracts.MechMM+".get_payment_type"] = ok(map[string]interface{}{"payment_type": [32]byte(tc.paymentType)})
			e.answers[contracts.BalanceTracker+".get_balance"] = ok(map[string]interface{}{"balance": big.NewInt(0)})
			e.answers[contracts.BalanceTracker+".get_subscription_nft"] = ok(map[string]interface{}{"address": common.HexToAddress("0x1b5DeaD7309b56ca7663b3301A503e077Be18cba")})
			e.answers[contracts.BalanceTracker+".get_subscription_token_id"] = ok(map[string]interface{}{"id": big.NewInt(1)})
			e.answers[contracts.ERC1155+".get_balance"] = ok(map[string]interface{}{"balance": big.NewInt(tc.credits)})
			if tc.credits == 0 {
				e.ledger.EXPECT().Balance(gomock.Any(), safeAddr, "gnosis").Return(big.NewInt(1000), nil)
			}
			e.uploads(t, 1)

			b := NewRequest("agent_0", e.synced(), e.deps)
			p := requestPayload(t, run(t, b))
			require.NotNil(t, p.TxHash)
			assert.Equal(t, big.NewInt(100), p.Price)
			assert.Contains(t, e.calls, tc.contract+".get_request_data")
			assert.NotContains(t, e.calls, contracts.Marketplace+".get_max_fee_factor")

			legs := b.batcher.Batches()
			require.Len(t, legs, 1)
			assert.Equal(t, marketplaceAddr, legs[0].To)
			assert.Equal(t, tc.value, legs[0].Value)
		})
	}
}

func TestRequest_BuySubscription(t *testing.T) {
	e := newEnv(t)
	e.useMarketplace(boolean(true))
	e.cfg.NVMBalanceTrackerAddress = trackerAddr
	e.withRequests(t, twoRequests)
	e.answers[contracts.MechMM+".get_max_delivery_rate"] = ok(map[string]interface{}{"max_delivery_rate": big.NewInt(100)})
	e.answers[contracts.MechMM+".get_payment_type"] = ok(map[string]interface{}{"payment_type": [32]byte(NVMTokenPaymentType)})
	e.answers[contracts.BalanceTracker+".get_balance"] = func(req behaviour.ContractRequest) (behaviour.ContractResponse, error) {
		assert.Equal(t, trackerAddr, req.Address)
		assert.Equal(t, safeAddr, req.Args["address"])
		return behaviour.ContractResponse{Status: behaviour.ContractOK, Data: map[string]interface{}{"balance": big.NewInt(10)}}, nil
	}
	nft := common.HexToAddress("0xd5318d1A17819F65771B6c9277534C08Dd765498")
	e.answers[contracts.BalanceTracker+".get_subscription_nft"] = ok(map[string]interface{}{"address": nft})
	e.answers[contracts.BalanceTracker+".get_subscription_token_id"] = ok(map[string]interface{}{"id": big.NewInt(1)})
	e.answers[contracts.ERC1155+".get_balance"] = func(req behaviour.ContractRequest) (behaviour.ContractResponse, error) {
		assert.Equal(t, nft, req.Address)
		assert.Equal(t, big.NewInt(1), req.Args["subscription_id"])
		return behaviour.ContractResponse{Status: behaviour.ContractOK, Data: map[string]interface{}{"balance": big.NewInt(20)}}, nil
	}

	p := run(t, NewRequest("agent_0", e.synced(), e.deps))
	assert.True(t, abci.IsNone(p.Content))
	assert.Equal(t, []string{
		contracts.MechMM + ".get_max_delivery_rate",
		contracts.MechMM + ".get_payment_type",
		contracts.BalanceTracker + ".get_balance",
		contracts.BalanceTracker + ".get_subscription_nft",
		contracts.BalanceTracker + ".get_subscription_token_id",
		contracts.ERC1155 + ".get_balance",
	}, e.calls)
}

func TestRequest_Failures(t *testing.T) {
	t.Run("price retries exceeded", func(t *testing.T) {
		e := newEnv(t)
		e.withRequests(t, twoRequests)
		e.answers[contracts.Mech+".get_price"] = fails

		b := NewRequest("agent_0", e.synced(), e.deps)
		b.Setup()
		_, err := b.Run(context.Background())
		require.ErrorIs(t, err, behaviour.ErrRetriesExceeded)
		assert.Len(t, e.calls, e.cfg.Retries.MaxRetries+1)
	})

	t.Run("no safe", func(t *testing.T) {
		e := newEnv(t)
		e.withRequests(t, twoRequests)
		require.NoError(t, e.db.Update(abci.Values{mech.KeySafeContractAddress: nil}))

		b := NewRequest("agent_0", e.synced(), e.deps)
		b.Setup()
		_, err := b.Run(context.Background())
		require.ErrorIs(t, err, ErrNoSafe)
	})

	t.Run("setup restarts from the agreed requests", func(t *testing.T) {
		e := newEnv(t)
		e.withRequests(t, twoRequests)
		e.answers[contracts.Mech+".get_price"] = fails

		b := NewRequest("agent_0", e.synced(), e.deps)
		b.Setup()
		_, err := b.Run(context.Background())
		require.Error(t, err)
		b.Setup()
		assert.Len(t, b.requests, 2)
		assert.Nil(t, b.price)
	})
}
