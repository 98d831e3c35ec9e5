// Package behaviour runs the per-agent procedures producing round payloads.
package behaviour

import (
	"context"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
)

// Behaviour produces the payload one agent contributes to its matching round.
// Setup must be safe to call again from scratch after the round timed out.
type Behaviour interface {
	Round() abci.RoundID
	Setup()
	Run(ctx context.Context) (abci.Payload, error)
	Cleanup()
}

// Factory builds the behaviour of one agent over the agreed data.
type Factory func(agent string, db *abci.DB) Behaviour
