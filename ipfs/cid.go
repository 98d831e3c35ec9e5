package ipfs

import (
	"encoding/hex"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

const (
	// V1HexPrefix is the base16 multibase prefix followed by the cid version.
	V1HexPrefix = "f01"
	// DagPBSha256Prefix precedes the digest of a v1 hex dag-pb sha2-256 cid.
	DagPBSha256Prefix = "f01701220"
)

// ToV1Hex converts a cid to its v1 base16 form without the leading version
// varint, as expected by the mechs: "f01" + codec + multihash.
func ToV1Hex(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", errors.Wrapf(err, "cid %q", s)
	}
	if _, err := multihash.Decode(c.Hash()); err != nil {
		return "", errors.Wrapf(err, "cid %q", s)
	}
	v1 := cid.NewCidV1(c.Type(), c.Hash())
	return V1HexPrefix + hex.EncodeToString(v1.Bytes()[1:]), nil
}

// RequestData returns the digest part of a v1 hex cid, the data of a mech request.
func RequestData(v1Hex string) (string, error) {
	if !strings.HasPrefix(v1Hex, DagPBSha256Prefix) {
		return "", errors.Errorf("%q is not a dag-pb sha2-256 cid", v1Hex)
	}
	return v1Hex[len(DagPBSha256Prefix):], nil
}

// Link returns the gateway url of a digest published as dag-pb sha2-256.
func Link(gateway, digestHex string) string {
	return gateway + DagPBSha256Prefix + strings.TrimPrefix(digestHex, "0x")
}
