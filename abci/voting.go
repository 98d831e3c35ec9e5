package abci

import (
	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
)

// Vote is a tri-state payload content.
type Vote interface {
	Content
	// Vote returns true, false or nil for none.
	Vote() *bool
}

// VotingSpec configures a round resolving a tri-state vote.
type VotingSpec struct {
	DoneEvent       Event // true
	NegativeEvent   Event // false
	NoneEvent       Event // null
	NoMajorityEvent Event
	CollectionKey   string
	// VoteKey receives the resolved vote, null for none.
	VoteKey string
}

// Events returns every event the round may emit.
func (s *VotingSpec) Events() []Event {
	return []Event{s.DoneEvent, s.NegativeEvent, s.NoneEvent, s.NoMajorityEvent}
}

// New makes a round instance.
func (s *VotingSpec) New(id RoundID, db *DB, participants *pos.Participants) Round {
	return &VotingRound{
		collector: newCollector(id, participants),
		spec:      s,
		db:        db,
	}
}

// VotingRound resolves a tri-state vote into one of three events.
type VotingRound struct {
	collector
	spec *VotingSpec
	db   *DB

	decided bool
	event   Event
}

// Process accepts a vote payload.
func (r *VotingRound) Process(p Payload) error {
	if _, ok := p.Content.(Vote); !ok {
		return errors.Wrapf(ErrWrongContent, "%T in voting round %s", p.Content, r.id)
	}
	return r.collector.Process(p)
}

// EndBlock writes the resolved vote and emits the matching event.
func (r *VotingRound) EndBlock() (Event, bool, error) {
	if r.decided {
		return r.event, true, nil
	}

	if agreed, ok := r.majority(); ok {
		vote := agreed.(Vote).Vote()
		event := r.spec.NoneEvent
		var value interface{}
		if vote != nil {
			value = *vote
			event = r.spec.NegativeEvent
			if *vote {
				event = r.spec.DoneEvent
			}
		}

		update := Values{}
		if r.spec.CollectionKey != "" {
			update[r.spec.CollectionKey] = r.collection()
		}
		if r.spec.VoteKey != "" {
			update[r.spec.VoteKey] = value
		}
		if err := r.db.Update(update); err != nil {
			return "", false, errors.Wrapf(err, "round %s", r.id)
		}
		r.decided, r.event = true, event
		return event, true, nil
	}

	if !r.majorityPossible() {
		r.decided, r.event = true, r.spec.NoMajorityEvent
		return r.event, true, nil
	}
	return "", false, nil
}
