package behaviours

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/golang/mock/gomock"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour/iomock"
	"github.com/Fantom-foundation/mech-interact-abci/config"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
)

var (
	safeAddr        = common.HexToAddress("0x5afe000000000000000000000000000000000001")
	marketplaceAddr = common.HexToAddress("0x4d4d000000000000000000000000000000000001")
	priorityMech    = common.HexToAddress("0x77af31De935740567Cf4fF1986D04B2c964A786a")
	wrappedAddr     = common.HexToAddress("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d")
)

type answer func(req behaviour.ContractRequest) (behaviour.ContractResponse, error)

func ok(data map[string]interface{}) answer {
	return func(behaviour.ContractRequest) (behaviour.ContractResponse, error) {
		return behaviour.ContractResponse{Status: behaviour.ContractOK, Data: data}, nil
	}
}

func fails(behaviour.ContractRequest) (behaviour.ContractResponse, error) {
	return behaviour.ContractResponse{Status: behaviour.ContractError, Message: "reverted"}, nil
}

// env wires mocked collaborators. Contract reads are answered by the
// registered answers, encodings by the real router.
type env struct {
	cfg  config.Config
	db   *abci.DB
	deps Deps

	caller  *iomock.MockContractCaller
	fetcher *iomock.MockHTTPFetcher
	store   *iomock.MockIPFSStore
	ledger  *iomock.MockLedgerReader
	sleeper *iomock.Sleeper

	answers map[string]answer
	calls   []string
	logs    []string
	records []*log.Record
}

func newEnv(t *testing.T) *env {
	ctrl := gomock.NewController(t)
	e := &env{
		cfg:     config.LiteConfig(),
		db:      abci.NewMemDB(mech.KeyMechResponses),
		caller:  iomock.NewMockContractCaller(ctrl),
		fetcher: iomock.NewMockHTTPFetcher(ctrl),
		store:   iomock.NewMockIPFSStore(ctrl),
		ledger:  iomock.NewMockLedgerReader(ctrl),
		sleeper: &iomock.Sleeper{},
		answers: map[string]answer{},
	}
	e.cfg.MultisendAddress = common.HexToAddress("0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761")
	e.cfg.MechContractAddress = priorityMech

	logger := log.New()
	logger.SetHandler(log.FuncHandler(func(r *log.Record) error {
		e.logs = append(e.logs, r.Msg)
		e.records = append(e.records, r)
		return nil
	}))

	router := contracts.NewRouter(nil)
	e.caller.EXPECT().Call(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(ctx context.Context, req behaviour.ContractRequest) (behaviour.ContractResponse, error) {
			name := req.Contract + "." + req.Callable
			e.calls = append(e.calls, name)
			if a, exists := e.answers[name]; exists {
				return a(req)
			}
			return router.Call(ctx, req)
		})
	e.answers[contracts.GnosisSafe+".get_nonce"] = ok(map[string]interface{}{"nonce": big.NewInt(7)})

	tools, err := NewToolsCache(&e.cfg)
	require.NoError(t, err)
	e.deps = Deps{
		Config: &e.cfg,
		Tools:  tools,
		IO: &behaviour.IO{
			Contracts: e.caller,
			HTTP:      e.fetcher,
			IPFS:      e.store,
			Ledger:    e.ledger,
			Sleeper:   e.sleeper,
			Log:       logger,
		},
	}
	require.NoError(t, e.db.Update(abci.Values{mech.KeySafeContractAddress: safeAddr.Hex()}))
	return e
}

func (e *env) synced() *mech.SynchronizedData {
	return mech.NewSynchronizedData(e.db)
}

func (e *env) useMarketplace(isV2 *bool) {
	e.cfg.UseMechMarketplace = true
	e.cfg.Marketplace.MechMarketplaceAddress = marketplaceAddr
	e.cfg.Marketplace.PriorityMechAddress = priorityMech
	if isV2 != nil {
		_ = e.db.Update(abci.Values{mech.KeyIsMarketplaceV2: *isV2})
	}
}

// run sets a behaviour up and runs it once.
func run(t *testing.T, b behaviour.Behaviour) abci.Payload {
	b.Setup()
	defer b.Cleanup()
	p, err := b.Run(context.Background())
	require.NoError(t, err)
	return p
}

// cidOf returns the v0 cid of data and its sha2-256 digest in hex.
func cidOf(t *testing.T, data string) (string, string) {
	mh, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	require.NoError(t, err)
	decoded, err := multihash.Decode(mh)
	require.NoError(t, err)
	return cid.NewCidV0(mh).String(), fmt.Sprintf("%x", decoded.Digest)
}

// logged returns the value logged under key by the first record with msg.
func (e *env) logged(msg, key string) interface{} {
	for _, r := range e.records {
		if r.Msg != msg {
			continue
		}
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			if r.Ctx[i] == key {
				return r.Ctx[i+1]
			}
		}
	}
	return nil
}

func boolean(b bool) *bool { return &b }
