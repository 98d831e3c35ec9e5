package behaviour

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// ContractStatus is the outcome of a contract call.
type ContractStatus int

const (
	ContractOK ContractStatus = iota
	ContractError
)

// ContractRequest addresses one callable of a known contract.
type ContractRequest struct {
	Contract string
	Address  common.Address
	Callable string
	Args     map[string]interface{}
	ChainID  string
}

// ContractResponse carries the named results of a callable.
type ContractResponse struct {
	Status  ContractStatus
	Data    map[string]interface{}
	Message string
}

//go:generate go run github.com/golang/mock/mockgen -package=iomock -destination=iomock/io.go github.com/Fantom-foundation/mech-interact-abci/behaviour ContractCaller,HTTPFetcher,IPFSStore,LedgerReader

// ContractCaller performs contract reads and local call-data encodings.
type ContractCaller interface {
	Call(ctx context.Context, req ContractRequest) (ContractResponse, error)
}

// HTTPRequest is a plain http call.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse of HTTPFetcher.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// HTTPFetcher performs http calls.
type HTTPFetcher interface {
	Fetch(ctx context.Context, req HTTPRequest) (HTTPResponse, error)
}

// IPFSStore publishes a payload off-chain and returns its content identifier.
type IPFSStore interface {
	Store(ctx context.Context, filename string, payload []byte) (string, error)
}

// LedgerReader reads native balances.
type LedgerReader interface {
	Balance(ctx context.Context, account common.Address, chainID string) (*big.Int, error)
}

// Sleeper pauses the sequence.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

// Sleep waits for d or until ctx is done.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IO routes every external call of a behaviour. These calls are the only
// places a sequence may block; each one checks the context first and turns
// failures into an ok flag after logging them.
type IO struct {
	Contracts ContractCaller
	HTTP      HTTPFetcher
	IPFS      IPFSStore
	Ledger    LedgerReader
	Sleeper   Sleeper

	Log log.Logger
}

// Contract calls a callable and returns its data if the call succeeded.
func (io *IO) Contract(ctx context.Context, req ContractRequest) (map[string]interface{}, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	resp, err := io.Contracts.Call(ctx, req)
	if err != nil {
		io.Log.Error("Contract call failed", "contract", req.Contract, "address", req.Address, "callable", req.Callable, "err", err)
		return nil, false
	}
	if resp.Status != ContractOK {
		io.Log.Error("Unexpected contract response", "contract", req.Contract, "address", req.Address, "callable", req.Callable, "response", resp.Message)
		return nil, false
	}
	return resp.Data, true
}

// ContractValue calls a callable and extracts one named result.
func (io *IO) ContractValue(ctx context.Context, req ContractRequest, key string) (interface{}, bool) {
	data, ok := io.Contract(ctx, req)
	if !ok {
		return nil, false
	}
	v, ok := data[key]
	if !ok {
		io.Log.Error("Contract response misses a key", "contract", req.Contract, "callable", req.Callable, "key", key, "data", data)
		return nil, false
	}
	return v, true
}

// Fetch performs an http call and returns the response regardless of the status code.
func (io *IO) Fetch(ctx context.Context, req HTTPRequest) (HTTPResponse, bool) {
	if ctx.Err() != nil {
		return HTTPResponse{}, false
	}
	resp, err := io.HTTP.Fetch(ctx, req)
	if err != nil {
		io.Log.Error("Http request failed", "method", req.Method, "url", req.URL, "err", err)
		return HTTPResponse{}, false
	}
	return resp, true
}

// Store publishes a payload to ipfs.
func (io *IO) Store(ctx context.Context, filename string, payload []byte) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	cid, err := io.IPFS.Store(ctx, filename, payload)
	if err != nil {
		io.Log.Error("Ipfs upload failed", "file", filename, "err", err)
		return "", false
	}
	return cid, true
}

// Balance reads the native balance of an account.
func (io *IO) Balance(ctx context.Context, account common.Address, chainID string) (*big.Int, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	b, err := io.Ledger.Balance(ctx, account, chainID)
	if err != nil {
		io.Log.Error("Could not read balance", "account", account, "chain", chainID, "err", err)
		return nil, false
	}
	return b, true
}

// Sleep pauses for d.
func (io *IO) Sleep(ctx context.Context, d time.Duration) error {
	return io.Sleeper.Sleep(ctx, d)
}
