package abci

import (
	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
)

// CollectSameSpec configures a round that waits until a quorum of
// participants sends the same content.
type CollectSameSpec struct {
	DoneEvent       Event
	NoMajorityEvent Event
	// NoneEvent is emitted when the agreed content is none. Without it such
	// agreement leaves the round undecided until it times out.
	NoneEvent     Event
	CollectionKey string
	// SelectionKeys receive the content values, in order.
	SelectionKeys []string

	// Decide picks the event for agreed content, DoneEvent if nil.
	Decide func(agreed Content) Event
	// DecideEvents lists the events Decide may return.
	DecideEvents []Event
	// Derive returns extra entries computed from the agreed content.
	Derive func(db *DB, agreed Content) (Values, error)
}

// Events returns every event the round may emit.
func (s *CollectSameSpec) Events() []Event {
	ee := []Event{s.DoneEvent, s.NoMajorityEvent}
	if s.NoneEvent != "" {
		ee = append(ee, s.NoneEvent)
	}
	for _, e := range s.DecideEvents {
		if e != s.DoneEvent {
			ee = append(ee, e)
		}
	}
	return ee
}

// New makes a round instance.
func (s *CollectSameSpec) New(id RoundID, db *DB, participants *pos.Participants) Round {
	return &CollectSameUntilThresholdRound{
		collector: newCollector(id, participants),
		spec:      s,
		db:        db,
	}
}

// CollectSameUntilThresholdRound turns identical observations of a quorum into one agreed value.
type CollectSameUntilThresholdRound struct {
	collector
	spec *CollectSameSpec
	db   *DB

	decided bool
	event   Event
}

// Process accepts a payload with one value per selection key.
func (r *CollectSameUntilThresholdRound) Process(p Payload) error {
	if p.Content != nil && len(p.Content.Values()) != len(r.spec.SelectionKeys) {
		return errors.Wrapf(ErrWrongContent, "%T has %d values, round %s selects %d",
			p.Content, len(p.Content.Values()), r.id, len(r.spec.SelectionKeys))
	}
	return r.collector.Process(p)
}

// EndBlock emits DoneEvent (or the one chosen by Decide) once a quorum agrees,
// NoneEvent if the agreed content is none, NoMajorityEvent once no value can
// reach the quorum any more.
func (r *CollectSameUntilThresholdRound) EndBlock() (Event, bool, error) {
	if r.decided {
		return r.event, true, nil
	}

	if agreed, ok := r.majority(); ok {
		if IsNone(agreed) {
			if r.spec.NoneEvent == "" {
				return "", false, nil
			}
			return r.decide(r.spec.NoneEvent), true, nil
		}

		event := r.spec.DoneEvent
		if r.spec.Decide != nil {
			event = r.spec.Decide(agreed)
		}

		update := Values{}
		for i, v := range agreed.Values() {
			update[r.spec.SelectionKeys[i]] = v
		}
		if r.spec.Derive != nil {
			extra, err := r.spec.Derive(r.db, agreed)
			if err != nil {
				return "", false, errors.Wrapf(err, "round %s", r.id)
			}
			for k, v := range extra {
				update[k] = v
			}
		}
		if r.spec.CollectionKey != "" {
			update[r.spec.CollectionKey] = r.collection()
		}
		if err := r.db.Update(update); err != nil {
			return "", false, errors.Wrapf(err, "round %s", r.id)
		}
		return r.decide(event), true, nil
	}

	if !r.majorityPossible() {
		return r.decide(r.spec.NoMajorityEvent), true, nil
	}
	return "", false, nil
}

func (r *CollectSameUntilThresholdRound) decide(e Event) Event {
	r.decided = true
	r.event = e
	return e
}
