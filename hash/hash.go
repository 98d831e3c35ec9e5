// Package hash holds the 32-byte safe transaction digest.
package hash

import (
	"fmt"
	"math/rand"
	"reflect"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength of a safe tx digest.
const HashLength = 32

var (
	// Zero is an empty hash.
	Zero  = Hash{}
	hashT = reflect.TypeOf(Hash{})
)

// Hash is a keccak256 digest.
type Hash [HashLength]byte

// BytesToHash keeps the last HashLength bytes of b, left-padding shorter input.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// FromHex parses a 0x-prefixed hex string of exactly HashLength bytes.
func FromHex(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Zero, err
	}
	if len(b) != HashLength {
		return Zero, fmt.Errorf("hash %q has %d bytes, want %d", s, len(b), HashLength)
	}
	return BytesToHash(b), nil
}

// Of returns the keccak256 of the concatenated data.
func Of(data ...[]byte) Hash {
	return BytesToHash(crypto.Keccak256(data...))
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return hexutil.Encode(h[:]) }

func (h Hash) IsZero() bool { return h == Zero }

func (h Hash) String() string { return h.Hex() }

// TerminalString is the short form used by the console logger.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x…%x", h[:3], h[29:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}

func (h *Hash) UnmarshalJSON(input []byte) error {
	return hexutil.UnmarshalFixedJSON(hashT, input, h[:])
}

// FakeHash is a deterministic pseudo-random hash for tests. Without a seed
// it is random.
func FakeHash(seed ...int64) (h Hash) {
	read := rand.Read
	if len(seed) > 0 {
		read = rand.New(rand.NewSource(seed[0])).Read
	}
	if _, err := read(h[:]); err != nil {
		panic(err)
	}
	return h
}
