package abci

import (
	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
)

type testContent struct {
	Value *string `json:"value"`
}

func (c testContent) Values() []interface{} {
	return []interface{}{c.Value}
}

type testVote struct {
	V *bool `json:"vote"`
}

func (v testVote) Values() []interface{} { return []interface{}{v.V} }

func (v testVote) Vote() *bool { return v.V }

func str(s string) *string { return &s }

func boolean(b bool) *bool { return &b }

func fourAgents() *pos.Participants {
	return pos.EqualWeights("a", "b", "c", "d")
}
