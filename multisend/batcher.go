package multisend

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/hash"
)

// ErrInvalidBatch is fatal to the current attempt: the batch is structurally wrong.
var ErrInvalidBatch = errors.New("invalid multisend batch")

// SafeTx is a transaction executed by a Gnosis safe.
type SafeTx struct {
	Safe      common.Address
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation Operation
	SafeTxGas *big.Int
	ChainID   string
}

// SafeHasher returns the hash the safe owners sign.
type SafeHasher interface {
	SafeTxHash(ctx context.Context, tx SafeTx) ([]byte, error)
}

// Tx is the built multisend transaction.
type Tx struct {
	SafeTx
	Hash hash.Hash
}

// PayloadHex is the settlement encoding of the transaction: hash, value,
// safe gas, operation, base gas, gas price, gas token, refund receiver,
// target and data, concatenated as hex without prefix.
func (tx *Tx) PayloadHex() string {
	word := func(v *big.Int) []byte {
		if v == nil {
			v = new(big.Int)
		}
		return common.LeftPadBytes(v.Bytes(), 32)
	}
	var buf []byte
	buf = append(buf, tx.Hash.Bytes()...)
	buf = append(buf, word(tx.Value)...)
	buf = append(buf, word(tx.SafeTxGas)...)
	buf = append(buf, byte(tx.Operation))
	buf = append(buf, word(nil)...)                // base gas
	buf = append(buf, word(nil)...)                // gas price
	buf = append(buf, common.Address{}.Bytes()...) // gas token
	buf = append(buf, common.Address{}.Bytes()...) // refund receiver
	buf = append(buf, tx.To.Bytes()...)
	buf = append(buf, tx.Data...)
	return hex.EncodeToString(buf)
}

// Batcher accumulates the legs of one multisend transaction.
type Batcher struct {
	multisend common.Address
	safe      common.Address
	chainID   string

	batches []Batch
}

// NewBatcher constructor.
func NewBatcher(multisend, safe common.Address, chainID string) *Batcher {
	return &Batcher{
		multisend: multisend,
		safe:      safe,
		chainID:   chainID,
	}
}

// Append validates and appends a leg. Legs execute in order.
func (b *Batcher) Append(batch Batch) error {
	if err := batch.Validate(); err != nil {
		return pkgerrors.Wrapf(ErrInvalidBatch, "leg %d: %v", len(b.batches), err)
	}
	batch.Value = new(big.Int).Set(batch.value())
	batch.Data = common.CopyBytes(batch.Data)
	b.batches = append(b.batches, batch)
	return nil
}

// Len returns the number of legs.
func (b *Batcher) Len() int {
	return len(b.batches)
}

// Batches returns a copy of the legs.
func (b *Batcher) Batches() []Batch {
	return append([]Batch(nil), b.batches...)
}

// TotalValue is the sum of the legs' values.
func (b *Batcher) TotalValue() *big.Int {
	total := new(big.Int)
	for i := range b.batches {
		total.Add(total, b.batches[i].value())
	}
	return total
}

// Build encodes the legs and hashes the resulting safe transaction.
// Any failure wraps ErrInvalidBatch and must not be retried.
func (b *Batcher) Build(ctx context.Context, enc Encoder, hasher SafeHasher) (*Tx, error) {
	if len(b.batches) == 0 {
		return nil, pkgerrors.Wrap(ErrInvalidBatch, "no legs")
	}
	data, err := enc.Encode(b.batches)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrInvalidBatch, "encoding: %v", err)
	}

	tx := SafeTx{
		Safe:      b.safe,
		To:        b.multisend,
		Value:     b.TotalValue(),
		Data:      data,
		Operation: DelegateCall,
		SafeTxGas: new(big.Int),
		ChainID:   b.chainID,
	}
	h, err := hasher.SafeTxHash(ctx, tx)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrInvalidBatch, "hashing: %v", err)
	}
	if len(h) != hash.HashLength {
		return nil, pkgerrors.Wrapf(ErrInvalidBatch, "hash has %d bytes", len(h))
	}
	return &Tx{SafeTx: tx, Hash: hash.BytesToHash(h)}, nil
}
