package behaviours

import (
	"context"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
)

// Response proposes the responses of the sent requests, as far as they are
// known. Answers are filled in outside of this app.
type Response struct {
	base
}

// NewResponse constructor.
func NewResponse(agent string, synced *mech.SynchronizedData, deps Deps) *Response {
	return &Response{
		base: newBase(agent, mech.ResponseRound, synced, deps),
	}
}

// Setup implements behaviour.Behaviour.
func (b *Response) Setup() {}

// Run implements behaviour.Behaviour.
func (b *Response) Run(ctx context.Context) (abci.Payload, error) {
	if err := ctx.Err(); err != nil {
		return abci.Payload{}, err
	}
	responses, err := b.synced.MechResponses()
	if err != nil {
		return abci.Payload{}, err
	}
	serialized, err := mechs.Serialize(responses)
	if err != nil {
		return abci.Payload{}, err
	}
	pending := 0
	for _, r := range responses {
		if r.Result == nil {
			pending++
		}
	}
	b.log.Info("Proposing mech responses", "total", len(responses), "pending", pending)
	return mech.NewJSONPayload(b.agent, mech.ResponseRound, &serialized), nil
}

// Cleanup implements behaviour.Behaviour.
func (b *Response) Cleanup() {}
