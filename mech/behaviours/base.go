// Package behaviours implements the agent side of the mech interact rounds.
package behaviours

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/config"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/multisend"
)

const (
	v1 = "v1"
	v2 = "v2"
)

// ErrNoSafe is returned when the agents' safe is unknown.
var ErrNoSafe = errors.New("safe contract address not set")

var errSeed = errors.New("no agreement id seed")

// Deps are the collaborators shared by the behaviours of one agent.
type Deps struct {
	Config *config.Config
	IO     *behaviour.IO
	// Hasher signs off the multisend transactions, the safe's own hash by default.
	Hasher  multisend.SafeHasher
	Encoder multisend.Encoder
	// Tools caches the tools of the mechs by metadata.
	Tools *lru.Cache
	// Rand seeds the subscription agreements.
	Rand io.Reader
}

// NewToolsCache makes a tools cache of the configured size.
func NewToolsCache(cfg *config.Config) (*lru.Cache, error) {
	size := cfg.ToolsCacheSize
	if size <= 0 {
		size = 1
	}
	return lru.New(size)
}

func (d *Deps) withDefaults() Deps {
	res := *d
	if res.Hasher == nil {
		res.Hasher = contracts.NewSafeHasher(res.IO.Contracts)
	}
	if res.Encoder == nil {
		res.Encoder = multisend.PackedEncoder{}
	}
	if res.Tools == nil {
		res.Tools, _ = NewToolsCache(res.Config)
	}
	if res.Rand == nil {
		res.Rand = rand.Reader
	}
	return res
}

// Factories returns the behaviour factory of every round agents act in.
func Factories(deps Deps) map[abci.RoundID]behaviour.Factory {
	d := deps.withDefaults()
	return map[abci.RoundID]behaviour.Factory{
		mech.VersionDetectionRound: func(agent string, db *abci.DB) behaviour.Behaviour {
			return NewVersionDetection(agent, mech.NewSynchronizedData(db), d)
		},
		mech.InformationRound: func(agent string, db *abci.DB) behaviour.Behaviour {
			return NewInformation(agent, mech.NewSynchronizedData(db), d)
		},
		mech.RequestRound: func(agent string, db *abci.DB) behaviour.Behaviour {
			return NewRequest(agent, mech.NewSynchronizedData(db), d)
		},
		mech.PurchaseSubscriptionRound: func(agent string, db *abci.DB) behaviour.Behaviour {
			return NewPurchaseSubscription(agent, mech.NewSynchronizedData(db), d)
		},
		mech.ResponseRound: func(agent string, db *abci.DB) behaviour.Behaviour {
			return NewResponse(agent, mech.NewSynchronizedData(db), d)
		},
	}
}

type base struct {
	agent  string
	round  abci.RoundID
	cfg    *config.Config
	io     *behaviour.IO
	synced *mech.SynchronizedData

	log log.Logger
}

func newBase(agent string, round abci.RoundID, synced *mech.SynchronizedData, deps Deps) base {
	return base{
		agent:  agent,
		round:  round,
		cfg:    deps.Config,
		io:     deps.IO,
		synced: synced,
		log:    deps.IO.Log.New("round", round, "agent", agent),
	}
}

func (b *base) Round() abci.RoundID {
	return b.round
}

func (b *base) retrySpecs(url, method string) *behaviour.ApiSpecs {
	return behaviour.NewApiSpecs(url, method, nil, b.cfg.Retries)
}

func (b *base) sequencer(name string, steps ...behaviour.Step) *behaviour.Sequencer {
	return behaviour.NewSequencer(name, b.io.Sleeper, b.log, steps...)
}

// read calls a callable on the mech chain and returns one named result.
func (b *base) read(ctx context.Context, contract string, at common.Address, callable, key string, args map[string]interface{}) (interface{}, bool) {
	return b.io.ContractValue(ctx, behaviour.ContractRequest{
		Contract: contract,
		Address:  at,
		Callable: callable,
		Args:     args,
		ChainID:  b.cfg.MechChainID,
	}, key)
}

func (b *base) readBig(ctx context.Context, contract string, at common.Address, callable, key string, args map[string]interface{}) (*big.Int, bool) {
	v, ok := b.read(ctx, contract, at, callable, key, args)
	if !ok {
		return nil, false
	}
	n, ok := contracts.ToBig(v)
	if !ok {
		b.log.Error("Unexpected contract value", "contract", contract, "callable", callable, key, v)
		return nil, false
	}
	return n, true
}

func (b *base) readWord(ctx context.Context, contract string, at common.Address, callable, key string, args map[string]interface{}) (common.Hash, bool) {
	v, ok := b.read(ctx, contract, at, callable, key, args)
	if !ok {
		return common.Hash{}, false
	}
	switch w := v.(type) {
	case [32]byte:
		return common.Hash(w), true
	case common.Hash:
		return w, true
	case []byte:
		if len(w) == common.HashLength {
			return common.BytesToHash(w), true
		}
	}
	b.log.Error("Unexpected contract value", "contract", contract, "callable", callable, key, v)
	return common.Hash{}, false
}

// build encodes the call data of a build callable.
func (b *base) build(ctx context.Context, contract string, at common.Address, callable string, args map[string]interface{}) ([]byte, bool) {
	v, ok := b.read(ctx, contract, at, callable, contracts.DataKey, args)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		b.log.Error("Unexpected call data", "contract", contract, "callable", callable, "data", v)
		return nil, false
	}
	return data, true
}

// safeAddress returns the agents' safe.
func (b *base) safeAddress() (common.Address, error) {
	s := b.synced.SafeContractAddress()
	if s == nil {
		return common.Address{}, ErrNoSafe
	}
	if !common.IsHexAddress(*s) {
		return common.Address{}, errors.Wrapf(ErrNoSafe, "invalid address %q", *s)
	}
	return common.HexToAddress(*s), nil
}

// marketplaceVersion returns true for v2, false for v1 and nil without
// marketplace. The agreed version wins over a new detection.
func (b *base) marketplaceVersion(ctx context.Context) *bool {
	if !b.cfg.UseMechMarketplace {
		return nil
	}
	if b.synced.VersioningCheckPerformed() {
		if isV2, err := b.synced.IsMarketplaceV2(); err == nil && isV2 != nil {
			return isV2
		}
	}

	at := b.cfg.Marketplace.MechMarketplaceAddress
	b.log.Info("Detecting marketplace compatibility", "marketplace", at)
	// maxFeeFactor exists only in the v2 marketplace, a failing call is no error
	resp, err := b.io.Contracts.Call(ctx, behaviour.ContractRequest{
		Contract: contracts.Marketplace,
		Address:  at,
		Callable: "get_max_fee_factor",
		ChainID:  b.cfg.MechChainID,
	})
	isV2 := err == nil && resp.Status == behaviour.ContractOK
	if ctx.Err() != nil {
		return nil
	}
	b.log.Info("Marketplace version detected", "marketplace", at, "version", versionName(isV2))
	return &isV2
}

func versionName(isV2 bool) string {
	if isV2 {
		return v2
	}
	return v1
}

// multisendStep builds the multisend transaction of the legs and its safe hash.
func multisendStep(batcher func() *multisend.Batcher, enc multisend.Encoder, hasher multisend.SafeHasher, out **multisend.Tx, logger log.Logger) behaviour.Step {
	return behaviour.Step{
		Name: "build multisend",
		Do: func(ctx context.Context) behaviour.Outcome {
			tx, err := batcher().Build(ctx, enc, hasher)
			if err != nil {
				logger.Error("Could not build the multisend transaction", "err", err)
				return behaviour.Aborted
			}
			logger.Info("Built the multisend transaction", "legs", batcher().Len(), "value", tx.Value, "hash", tx.Hash.Hex())
			*out = tx
			return behaviour.Succeeded
		},
	}
}

func strPtr(s string) *string {
	return &s
}
