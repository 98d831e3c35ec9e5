package mech

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/ranking"
)

// AppName of the mech interact app.
const AppName = "MechInteractAbciApp"

// RoundTimeout is the default deadline of every round.
const RoundTimeout = 30 * time.Second

// Clock returns the time agreed by the agents, typically the block time.
type Clock func() time.Time

// NewAppSpec returns the mech interact app. The information round ranks the
// mechs with ranker at the time given by clock.
func NewAppSpec(ranker *ranking.Ranker, clock Clock) *abci.AppSpec {
	if ranker == nil {
		ranker = ranking.New(ranking.DefaultConfig())
	}
	if clock == nil {
		clock = time.Now
	}

	return &abci.AppSpec{
		Name:         AppName,
		InitialRound: VersionDetectionRound,
		InitialStates: []abci.RoundID{
			VersionDetectionRound,
			RequestRound,
			ResponseRound,
		},
		FinalStates: []abci.RoundID{
			FinishedMarketplaceLegacyDetectedRound,
			FinishedMechLegacyDetectedRound,
			FinishedMechInformationRound,
			FailedMechInformationRound,
			FinishedMechRequestRound,
			FinishedMechResponseRound,
			FinishedMechResponseTimeoutRound,
			FinishedMechRequestSkipRound,
			FinishedMechPurchaseSubscriptionRound,
		},
		Rounds: map[abci.RoundID]abci.RoundSpec{
			VersionDetectionRound: &abci.VotingSpec{
				DoneEvent:       EventV2,
				NegativeEvent:   EventV1,
				NoneEvent:       EventNoMarketplace,
				NoMajorityEvent: EventNoMajority,
				CollectionKey:   KeyParticipantToVotes,
				VoteKey:         KeyIsMarketplaceV2,
			},
			InformationRound: &abci.CollectSameSpec{
				DoneEvent:       EventDone,
				NoMajorityEvent: EventNoMajority,
				NoneEvent:       EventNone,
				CollectionKey:   KeyParticipantToInfo,
				SelectionKeys:   []string{KeyMechInfo},
				Derive: func(_ *abci.DB, agreed abci.Content) (abci.Values, error) {
					return deriveInformation(ranker, clock(), agreed)
				},
			},
			RequestRound: &abci.CollectSameSpec{
				DoneEvent:       EventDone,
				NoMajorityEvent: EventNoMajority,
				NoneEvent:       EventBuySubscription,
				CollectionKey:   KeyParticipantToRequests,
				SelectionKeys: []string{
					KeyTxSubmitter,
					KeyMostVotedTxHash,
					KeyMechPrice,
					KeyChainID,
					KeySafeContractAddress,
					KeyMechRequests,
					KeyMechResponses,
				},
				Decide:       decideRequest,
				DecideEvents: []abci.Event{EventDone, EventSkipRequest},
			},
			PurchaseSubscriptionRound: &abci.CollectSameSpec{
				DoneEvent:       EventDone,
				NoMajorityEvent: EventNoMajority,
				NoneEvent:       EventNone,
				CollectionKey:   KeyParticipantToPurchase,
				SelectionKeys:   []string{KeyTxSubmitter, KeyMostVotedTxHash},
			},
			ResponseRound: &abci.CollectSameSpec{
				DoneEvent:       EventDone,
				NoMajorityEvent: EventNoMajority,
				CollectionKey:   KeyParticipantToResponses,
				SelectionKeys:   []string{KeyMechResponses},
			},
		},
		Transitions: map[abci.RoundID]map[abci.Event]abci.RoundID{
			VersionDetectionRound: {
				EventV2:            InformationRound,
				EventV1:            FinishedMarketplaceLegacyDetectedRound,
				EventNoMarketplace: FinishedMechLegacyDetectedRound,
				EventNoMajority:    VersionDetectionRound,
				EventRoundTimeout:  VersionDetectionRound,
			},
			InformationRound: {
				EventDone:         FinishedMechInformationRound,
				EventNone:         FailedMechInformationRound,
				EventNoMajority:   InformationRound,
				EventRoundTimeout: InformationRound,
			},
			RequestRound: {
				EventDone:            FinishedMechRequestRound,
				EventSkipRequest:     FinishedMechRequestSkipRound,
				EventBuySubscription: PurchaseSubscriptionRound,
				EventNoMajority:      RequestRound,
				EventRoundTimeout:    RequestRound,
			},
			PurchaseSubscriptionRound: {
				EventDone:         FinishedMechPurchaseSubscriptionRound,
				EventNone:         PurchaseSubscriptionRound,
				EventNoMajority:   PurchaseSubscriptionRound,
				EventRoundTimeout: PurchaseSubscriptionRound,
			},
			ResponseRound: {
				EventDone:         FinishedMechResponseRound,
				EventNoMajority:   ResponseRound,
				EventRoundTimeout: FinishedMechResponseTimeoutRound,
			},
			FinishedMarketplaceLegacyDetectedRound: {},
			FinishedMechLegacyDetectedRound:        {},
			FinishedMechInformationRound:           {},
			FailedMechInformationRound:             {},
			FinishedMechRequestRound:               {},
			FinishedMechResponseRound:              {},
			FinishedMechResponseTimeoutRound:       {},
			FinishedMechRequestSkipRound:           {},
			FinishedMechPurchaseSubscriptionRound:  {},
		},
		EventToTimeout: map[abci.Event]time.Duration{
			EventRoundTimeout: RoundTimeout,
		},
		CrossPeriodPersistedKeys: []string{KeyMechResponses},
		// mech_requests and final_tx_hash are read by the request and the
		// response rounds but cannot be required here, every final state
		// reachable from them writes those keys.
		DBPreConditions: map[abci.RoundID][]string{
			VersionDetectionRound: {},
			RequestRound:          {},
			ResponseRound:         {},
		},
		DBPostConditions: map[abci.RoundID][]string{
			FinishedMarketplaceLegacyDetectedRound: {KeyIsMarketplaceV2},
			FinishedMechLegacyDetectedRound:        {KeyIsMarketplaceV2},
			FinishedMechInformationRound: {
				KeyIsMarketplaceV2,
				KeyMechsInfo,
				KeyRelevantMechsInfo,
				KeyMechTools,
				KeyPriorityMechAddress,
			},
			FailedMechInformationRound:            {},
			FinishedMechRequestRound:              {KeyTxSubmitter, KeyMostVotedTxHash, KeyMechPrice},
			FinishedMechRequestSkipRound:          {},
			FinishedMechPurchaseSubscriptionRound: {KeyTxSubmitter, KeyMostVotedTxHash},
			FinishedMechResponseRound:             {KeyMechResponses},
			FinishedMechResponseTimeoutRound:      {},
		},
	}
}

// decideRequest skips the settlement when there was nothing to send. A
// missing transaction with requests still pending is re-run.
func decideRequest(agreed abci.Content) abci.Event {
	p, ok := agreed.(MechRequestPayload)
	if !ok || p.TxHash != nil {
		return EventDone
	}
	if pendingRequests(p.MechRequests) {
		return EventNoMajority
	}
	return EventSkipRequest
}

func pendingRequests(serialized *string) bool {
	if serialized == nil {
		return false
	}
	requests, err := mechs.ParseMetadata(*serialized)
	return err != nil || len(requests) != 0
}

// deriveInformation computes the data depending on the agreed mechs.
func deriveInformation(ranker *ranking.Ranker, now time.Time, agreed abci.Content) (abci.Values, error) {
	p, ok := agreed.(JSONPayload)
	if !ok || p.Information == nil {
		return nil, errors.Errorf("unexpected information %T", agreed)
	}
	all, err := mechs.ParseInfos(*p.Information)
	if err != nil {
		return nil, errors.Wrap(err, "agreed mechs info")
	}

	rel := relevant(all)
	var priority interface{}
	if best := ranker.Best(rel, now); best != nil {
		priority = best.Address
	}
	return abci.Values{
		KeyMechsInfo:           all,
		KeyRelevantMechsInfo:   rel,
		KeyMechTools:           toolsOf(all),
		KeyPriorityMechAddress: priority,
	}, nil
}
