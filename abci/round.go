package abci

import (
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
)

var (
	ErrWrongRound      = errors.New("payload is addressed to another round")
	ErrNotParticipant  = errors.New("sender is not a participant")
	ErrDuplicateSender = errors.New("sender has already sent a payload")
	ErrWrongContent    = errors.New("unexpected payload content")
)

// Round is one consensus step. It collects one payload per participant and
// eventually emits exactly one event.
type Round interface {
	ID() RoundID
	// Process accepts a payload.
	Process(p Payload) error
	// EndBlock returns the terminal event once decided, writing the agreed
	// data into the db as a side effect.
	EndBlock() (Event, bool, error)
}

// RoundSpec describes a round and builds its instances.
type RoundSpec interface {
	// Events returns every event the round may emit from EndBlock.
	Events() []Event
	New(id RoundID, db *DB, participants *pos.Participants) Round
}

// collector accumulates payloads grouped by canonical content.
type collector struct {
	id           RoundID
	participants *pos.Participants

	payloads map[string]Payload
	values   map[string]string // sender -> canonical content
	counters map[string]*pos.WeightCounter
	received *pos.WeightCounter
}

func newCollector(id RoundID, participants *pos.Participants) collector {
	return collector{
		id:           id,
		participants: participants,
		payloads:     make(map[string]Payload),
		values:       make(map[string]string),
		counters:     make(map[string]*pos.WeightCounter),
		received:     participants.NewCounter(),
	}
}

func (c *collector) ID() RoundID {
	return c.id
}

func (c *collector) Process(p Payload) error {
	if p.Round != c.id {
		return pkgerrors.Wrapf(ErrWrongRound, "%s sent %s to %s", p.Sender, p.Round, c.id)
	}
	if !c.participants.Exists(p.Sender) {
		return pkgerrors.Wrap(ErrNotParticipant, p.Sender)
	}
	if _, ok := c.payloads[p.Sender]; ok {
		return pkgerrors.Wrap(ErrDuplicateSender, p.Sender)
	}
	b, err := p.Canonical()
	if err != nil {
		return err
	}

	key := string(b)
	counter, ok := c.counters[key]
	if !ok {
		counter = c.participants.NewCounter()
		c.counters[key] = counter
	}
	counter.Count(p.Sender)
	c.received.Count(p.Sender)
	c.payloads[p.Sender] = p
	c.values[p.Sender] = key
	return nil
}

// majority returns the content agreed by a quorum, scanning senders in a fixed order.
func (c *collector) majority() (Content, bool) {
	for _, id := range c.participants.SortedIDs() {
		key, ok := c.values[id]
		if !ok {
			continue
		}
		if c.counters[key].HasQuorum() {
			return c.payloads[id].Content, true
		}
	}
	return nil, false
}

// majorityPossible reports whether some value can still reach the quorum.
func (c *collector) majorityPossible() bool {
	quorum := c.participants.Quorum()
	remaining := c.received.Remaining()
	if len(c.counters) == 0 {
		return remaining >= quorum
	}
	for _, counter := range c.counters {
		if counter.Sum()+remaining >= quorum {
			return true
		}
	}
	return false
}

func (c *collector) collection() map[string]Content {
	res := make(map[string]Content, len(c.payloads))
	for sender, p := range c.payloads {
		res[sender] = p.Content
	}
	return res
}

// Len returns the number of accepted payloads.
func (c *collector) Len() int {
	return len(c.payloads)
}
