package mech

import (
	"math/big"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
)

// VotingPayload votes on the marketplace version: true for v2, false for
// v1, nil when no marketplace is used.
type VotingPayload struct {
	Value *bool `json:"vote"`
}

// NewVotingPayload constructor.
func NewVotingPayload(sender string, vote *bool) abci.Payload {
	return abci.NewPayload(sender, VersionDetectionRound, VotingPayload{Value: vote})
}

// Values implements abci.Content.
func (p VotingPayload) Values() []interface{} { return []interface{}{p.Value} }

// Vote implements abci.Vote.
func (p VotingPayload) Vote() *bool { return p.Value }

// JSONPayload carries serialized information, nil on failure.
type JSONPayload struct {
	Information *string `json:"information"`
}

// NewJSONPayload constructor.
func NewJSONPayload(sender string, round abci.RoundID, information *string) abci.Payload {
	return abci.NewPayload(sender, round, JSONPayload{Information: information})
}

// Values implements abci.Content.
func (p JSONPayload) Values() []interface{} { return []interface{}{p.Information} }

// MechRequestPayload carries the prepared request transaction. A payload
// with every field nil asks for a subscription purchase.
type MechRequestPayload struct {
	TxSubmitter         *string  `json:"tx_submitter"`
	TxHash              *string  `json:"tx_hash"`
	Price               *big.Int `json:"price"`
	ChainID             *string  `json:"chain_id"`
	SafeContractAddress *string  `json:"safe_contract_address"`
	MechRequests        *string  `json:"mech_requests"`
	MechResponses       *string  `json:"mech_responses"`
}

// Values implements abci.Content.
func (p MechRequestPayload) Values() []interface{} {
	return []interface{}{
		p.TxSubmitter,
		p.TxHash,
		p.Price,
		p.ChainID,
		p.SafeContractAddress,
		p.MechRequests,
		p.MechResponses,
	}
}

// PrepareTxPayload carries a prepared transaction, nil fields on failure.
type PrepareTxPayload struct {
	TxSubmitter *string `json:"tx_submitter"`
	TxHash      *string `json:"tx_hash"`
}

// Values implements abci.Content.
func (p PrepareTxPayload) Values() []interface{} {
	return []interface{}{p.TxSubmitter, p.TxHash}
}
