package multisend

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const multiSendABI = `[{"inputs":[{"internalType":"bytes","name":"transactions","type":"bytes"}],"name":"multiSend","outputs":[],"stateMutability":"payable","type":"function"}]`

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(multiSendABI))
	if err != nil {
		panic(err)
	}
}

// Encoder turns legs into the multisend call data.
type Encoder interface {
	Encode(batches []Batch) ([]byte, error)
}

// PackedEncoder is the Gnosis MultiSend encoding: every leg is packed as
// uint8 operation | address to | uint256 value | uint256 len | bytes data,
// the concatenation is the argument of multiSend(bytes).
type PackedEncoder struct{}

// Pack returns the packed legs.
func (PackedEncoder) Pack(batches []Batch) []byte {
	var packed []byte
	for i := range batches {
		b := &batches[i]
		packed = append(packed, byte(b.Operation))
		packed = append(packed, b.To.Bytes()...)
		packed = append(packed, common.LeftPadBytes(b.value().Bytes(), 32)...)
		packed = append(packed, common.LeftPadBytes(big.NewInt(int64(len(b.Data))).Bytes(), 32)...)
		packed = append(packed, b.Data...)
	}
	return packed
}

// Encode returns the multiSend(bytes) call data.
func (e PackedEncoder) Encode(batches []Batch) ([]byte, error) {
	return parsedABI.Pack("multiSend", e.Pack(batches))
}
