package idx

import (
	"github.com/Fantom-foundation/mech-interact-abci/common/bigendian"
)

type (
	// Period numeration. A period is one pass from an initial round to a final round.
	Period uint64

	// Snapshot numeration inside a period.
	Snapshot uint64

	// Participant is an offset of an agent in the participants set.
	Participant uint32
)

// Bytes gets the byte representation of the index.
func (p Period) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(p))
}

// Bytes gets the byte representation of the index.
func (s Snapshot) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(s))
}

// BytesToPeriod converts bytes to period index.
func BytesToPeriod(b []byte) Period {
	return Period(bigendian.BytesToUint64(b))
}

// BytesToSnapshot converts bytes to snapshot index.
func BytesToSnapshot(b []byte) Snapshot {
	return Snapshot(bigendian.BytesToUint64(b))
}
