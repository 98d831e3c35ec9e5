package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// Backend is a node of one chain.
type Backend interface {
	bind.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Dial connects to the rpc endpoint of every chain.
func Dial(rpc map[string]string) (map[string]Backend, error) {
	backends := make(map[string]Backend, len(rpc))
	for chain, url := range rpc {
		client, err := ethclient.Dial(url)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %s", chain)
		}
		backends[chain] = client
	}
	return backends, nil
}

// Callers returns the backends as contract callers.
func Callers(backends map[string]Backend) map[string]bind.ContractCaller {
	res := make(map[string]bind.ContractCaller, len(backends))
	for chain, b := range backends {
		res[chain] = b
	}
	return res
}

// Ledger reads the native balances, implementing behaviour.LedgerReader.
type Ledger struct {
	backends map[string]Backend
}

// NewLedger constructor.
func NewLedger(backends map[string]Backend) *Ledger {
	return &Ledger{backends: backends}
}

// Balance returns the latest balance of the account.
func (l *Ledger) Balance(ctx context.Context, account common.Address, chainID string) (*big.Int, error) {
	b, ok := l.backends[chainID]
	if !ok {
		return nil, errors.Wrap(ErrNoBackend, chainID)
	}
	return b.BalanceAt(ctx, account, nil)
}
