package behaviours

import (
	"context"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
)

// VersionDetection votes on the version of the marketplace.
type VersionDetection struct {
	base
}

// NewVersionDetection constructor.
func NewVersionDetection(agent string, synced *mech.SynchronizedData, deps Deps) *VersionDetection {
	return &VersionDetection{
		base: newBase(agent, mech.VersionDetectionRound, synced, deps),
	}
}

// Setup implements behaviour.Behaviour.
func (b *VersionDetection) Setup() {}

// Run votes true for v2, false for v1 and nil without marketplace.
func (b *VersionDetection) Run(ctx context.Context) (abci.Payload, error) {
	isV2 := b.marketplaceVersion(ctx)
	if err := ctx.Err(); err != nil {
		return abci.Payload{}, err
	}
	if isV2 == nil {
		b.log.Warn("Failed to detect the marketplace's version")
	}
	return mech.NewVotingPayload(b.agent, isV2), nil
}

// Cleanup implements behaviour.Behaviour.
func (b *VersionDetection) Cleanup() {}
