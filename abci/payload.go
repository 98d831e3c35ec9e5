package abci

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Content is the round-specific part of a payload.
type Content interface {
	// Values returns the selection fields in order.
	Values() []interface{}
}

// IsNone reports whether every selection field of c is null.
func IsNone(c Content) bool {
	for _, v := range c.Values() {
		if !isNil(v) {
			return false
		}
	}
	return true
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Payload is one participant's contribution to a round.
type Payload struct {
	Sender  string
	Round   RoundID
	Content Content
}

var canonicalMode cbor.EncMode

func init() {
	var err error
	canonicalMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// NewPayload constructor.
func NewPayload(sender string, round RoundID, content Content) Payload {
	return Payload{
		Sender:  sender,
		Round:   round,
		Content: content,
	}
}

// Canonical returns the deterministic encoding of the content.
// Payloads agree iff their canonical bytes are equal.
func (p Payload) Canonical() ([]byte, error) {
	if p.Content == nil {
		return nil, errors.New("payload without content")
	}
	b, err := canonicalMode.Marshal(p.Content)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding payload of %s", p.Sender)
	}
	return b, nil
}
