package abci

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testRound RoundID = "test_round"

var testSpec = &CollectSameSpec{
	DoneEvent:       "done",
	NoMajorityEvent: EventNoMajority,
	NoneEvent:       "none",
	CollectionKey:   "participant_to_test",
	SelectionKeys:   []string{"value"},
}

func TestCollectSame_Process(t *testing.T) {
	require := require.New(t)
	r := testSpec.New(testRound, NewMemDB(), fourAgents())

	require.NoError(r.Process(NewPayload("a", testRound, testContent{str("x")})))
	require.ErrorIs(r.Process(NewPayload("a", testRound, testContent{str("x")})), ErrDuplicateSender)
	require.ErrorIs(r.Process(NewPayload("z", testRound, testContent{str("x")})), ErrNotParticipant)
	require.ErrorIs(r.Process(NewPayload("b", "other", testContent{str("x")})), ErrWrongRound)
	require.Error(r.Process(NewPayload("b", testRound, nil)))
	require.ErrorIs(r.Process(NewPayload("b", testRound, twoValues{})), ErrWrongContent)
}

type twoValues struct{}

func (twoValues) Values() []interface{} { return []interface{}{1, 2} }

func TestIsNone(t *testing.T) {
	var nilStr *string
	require.True(t, IsNone(testContent{}))
	require.True(t, IsNone(testContent{Value: nilStr}))
	require.False(t, IsNone(testContent{Value: str("")}))
	require.False(t, IsNone(twoValues{}))
}

func TestCollectSame_EndBlock(t *testing.T) {
	type vote struct {
		sender string
		value  *string
	}
	for name, tc := range map[string]struct {
		votes   []vote
		event   Event
		decided bool
		written bool
	}{
		"undecided": {
			votes: []vote{{"a", str("x")}, {"b", str("x")}},
		},
		"quorum": {
			votes:   []vote{{"a", str("x")}, {"b", str("x")}, {"c", str("x")}},
			event:   "done",
			decided: true,
			written: true,
		},
		"quorum despite dissent": {
			votes:   []vote{{"a", str("x")}, {"d", str("y")}, {"b", str("x")}, {"c", str("x")}},
			event:   "done",
			decided: true,
			written: true,
		},
		"none": {
			votes:   []vote{{"a", nil}, {"b", nil}, {"c", nil}},
			event:   "none",
			decided: true,
		},
		"fragmented": {
			votes:   []vote{{"a", str("x")}, {"b", str("y")}, {"c", str("z")}},
			event:   EventNoMajority,
			decided: true,
		},
		"still possible": {
			votes: []vote{{"a", str("x")}, {"b", str("x")}, {"c", str("y")}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			db := NewMemDB()
			r := testSpec.New(testRound, db, fourAgents())
			for _, v := range tc.votes {
				require.NoError(r.Process(NewPayload(v.sender, testRound, testContent{v.value})))
			}
			event, decided, err := r.EndBlock()
			require.NoError(err)
			require.Equal(tc.decided, decided)
			require.Equal(tc.event, event)
			require.Equal(tc.written, db.Has("value"))
			require.Equal(tc.written, db.Has("participant_to_test"))
			if tc.written {
				require.Equal("x", db.Get("value", nil))
			}
		})
	}
}

func TestCollectSame_NoneWithoutEvent(t *testing.T) {
	spec := &CollectSameSpec{DoneEvent: "done", NoMajorityEvent: EventNoMajority, SelectionKeys: []string{"value"}}
	r := spec.New(testRound, NewMemDB(), fourAgents())
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, r.Process(NewPayload(s, testRound, testContent{})))
	}
	_, decided, err := r.EndBlock()
	require.NoError(t, err)
	require.False(t, decided)
}

func TestCollectSame_DecideAndDerive(t *testing.T) {
	require := require.New(t)
	spec := &CollectSameSpec{
		DoneEvent:       "done",
		NoMajorityEvent: EventNoMajority,
		SelectionKeys:   []string{"value"},
		Decide: func(agreed Content) Event {
			if *agreed.(testContent).Value == "skip" {
				return "skip"
			}
			return "done"
		},
		DecideEvents: []Event{"done", "skip"},
		Derive: func(db *DB, agreed Content) (Values, error) {
			return Values{"derived": *agreed.(testContent).Value + "!"}, nil
		},
	}
	require.ElementsMatch([]Event{"done", EventNoMajority, "skip"}, spec.Events())

	db := NewMemDB()
	r := spec.New(testRound, db, fourAgents())
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(r.Process(NewPayload(s, testRound, testContent{str("skip")})))
	}
	event, decided, err := r.EndBlock()
	require.NoError(err)
	require.True(decided)
	require.Equal(Event("skip"), event)
	require.Equal("skip!", db.Get("derived", nil))

	// decision is sticky
	snapshot := db.Snapshot()
	event, _, _ = r.EndBlock()
	require.Equal(Event("skip"), event)
	require.Equal(snapshot, db.Snapshot())
}

func TestVotingRound(t *testing.T) {
	spec := &VotingSpec{
		DoneEvent:       "v2",
		NegativeEvent:   "v1",
		NoneEvent:       "no_marketplace",
		NoMajorityEvent: EventNoMajority,
		CollectionKey:   "participant_to_votes",
		VoteKey:         "is_marketplace_v2",
	}
	for name, tc := range map[string]struct {
		vote  *bool
		event Event
		value interface{}
	}{
		"true":  {boolean(true), "v2", true},
		"false": {boolean(false), "v1", false},
		"none":  {nil, "no_marketplace", nil},
	} {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			db := NewMemDB()
			r := spec.New("version", db, fourAgents())
			for _, s := range []string{"a", "b", "c", "d"} {
				require.NoError(r.Process(NewPayload(s, "version", testVote{tc.vote})))
			}
			event, decided, err := r.EndBlock()
			require.NoError(err)
			require.True(decided)
			require.Equal(tc.event, event)
			require.True(db.Has("is_marketplace_v2"))
			require.Equal(tc.value, db.Get("is_marketplace_v2", "unset"))
		})
	}

	t.Run("split", func(t *testing.T) {
		require := require.New(t)
		r := spec.New("version", NewMemDB(), fourAgents())
		require.NoError(r.Process(NewPayload("a", "version", testVote{boolean(true)})))
		require.NoError(r.Process(NewPayload("b", "version", testVote{boolean(false)})))
		require.NoError(r.Process(NewPayload("c", "version", testVote{nil})))
		event, decided, err := r.EndBlock()
		require.NoError(err)
		require.True(decided)
		require.Equal(EventNoMajority, event)
	})

	t.Run("wrong content", func(t *testing.T) {
		r := spec.New("version", NewMemDB(), fourAgents())
		require.ErrorIs(t, r.Process(NewPayload("a", "version", testContent{})), ErrWrongContent)
	})
}

func TestPayload_Canonical(t *testing.T) {
	require := require.New(t)
	a, err := NewPayload("a", testRound, testContent{str("x")}).Canonical()
	require.NoError(err)
	b, err := NewPayload("b", "other", testContent{str("x")}).Canonical()
	require.NoError(err)
	c, err := NewPayload("a", testRound, testContent{str("y")}).Canonical()
	require.NoError(err)

	require.Equal(a, b)
	require.NotEqual(a, c)
}
