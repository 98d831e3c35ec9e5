// Package multisend folds elementary calls into one atomic Gnosis MultiSend transaction.
package multisend

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Operation of a safe transaction leg.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

func (op Operation) String() string {
	switch op {
	case Call:
		return "CALL"
	case DelegateCall:
		return "DELEGATE_CALL"
	}
	return fmt.Sprintf("Operation(%d)", uint8(op))
}

var (
	ErrEmptyTo          = errors.New("batch has no target")
	ErrNegativeValue    = errors.New("batch value is negative")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Batch is one leg of a multisend transaction.
type Batch struct {
	To        common.Address
	Data      []byte
	Value     *big.Int
	Operation Operation
}

// Validate checks the leg.
func (b *Batch) Validate() error {
	if b.To == (common.Address{}) {
		return ErrEmptyTo
	}
	if b.Value != nil && b.Value.Sign() < 0 {
		return ErrNegativeValue
	}
	if b.Operation != Call && b.Operation != DelegateCall {
		return ErrUnknownOperation
	}
	return nil
}

func (b *Batch) value() *big.Int {
	if b.Value == nil {
		return new(big.Int)
	}
	return b.Value
}
