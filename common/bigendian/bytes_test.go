package bigendian

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64RoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 255, 256, 1 << 40, ^uint64(0)} {
		assert.Equal(t, n, BytesToUint64(Uint64ToBytes(n)))
	}
	assert.Equal(t, uint64(0x0102), BytesToUint64([]byte{1, 2}))
}

func TestAppendUint64Order(t *testing.T) {
	prefix := []byte("p")
	a := AppendUint64(prefix, 9)
	b := AppendUint64(prefix, 10)
	assert.True(t, bytes.Compare(a, b) < 0)
	assert.Equal(t, prefix, a[:1])
	assert.Equal(t, []byte("p"), prefix)
}
