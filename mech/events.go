package mech

import "github.com/Fantom-foundation/mech-interact-abci/abci"

// Events of the mech interact app.
const (
	EventDone            abci.Event = "done"
	EventNone            abci.Event = "none"
	EventV1              abci.Event = "v1"
	EventV2              abci.Event = "v2"
	EventNoMarketplace   abci.Event = "no_marketplace"
	EventNoMajority                 = abci.EventNoMajority
	EventRoundTimeout               = abci.EventRoundTimeout
	EventSkipRequest     abci.Event = "skip_request"
	EventBuySubscription abci.Event = "buy_subscription"
)

// Rounds of the mech interact app.
const (
	VersionDetectionRound     abci.RoundID = "mech_version_detection_round"
	InformationRound          abci.RoundID = "mech_information_round"
	RequestRound              abci.RoundID = "mech_request_round"
	PurchaseSubscriptionRound abci.RoundID = "mech_purchase_subscription_round"
	ResponseRound             abci.RoundID = "mech_response_round"

	FinishedMarketplaceLegacyDetectedRound abci.RoundID = "finished_marketplace_legacy_detected_round"
	FinishedMechLegacyDetectedRound        abci.RoundID = "finished_mech_legacy_detected_round"
	FinishedMechInformationRound           abci.RoundID = "finished_mech_information_round"
	FailedMechInformationRound             abci.RoundID = "failed_mech_information_round"
	FinishedMechRequestRound               abci.RoundID = "finished_mech_request_round"
	FinishedMechRequestSkipRound           abci.RoundID = "finished_mech_request_skip_round"
	FinishedMechPurchaseSubscriptionRound  abci.RoundID = "finished_mech_purchase_subscription_round"
	FinishedMechResponseRound              abci.RoundID = "finished_mech_response_round"
	FinishedMechResponseTimeoutRound       abci.RoundID = "finished_mech_response_timeout_round"
)

// Synchronized data keys.
const (
	KeyIsMarketplaceV2        = "is_marketplace_v2"
	KeyMechInfo               = "mech_info"
	KeyMechsInfo              = "mechs_info"
	KeyRelevantMechsInfo      = "relevant_mechs_info"
	KeyMechTools              = "mech_tools"
	KeyPriorityMechAddress    = "priority_mech_address"
	KeyMechPrice              = "mech_price"
	KeyMechRequests           = "mech_requests"
	KeyMechResponses          = "mech_responses"
	KeyTxSubmitter            = "tx_submitter"
	KeyMostVotedTxHash        = "most_voted_tx_hash"
	KeyFinalTxHash            = "final_tx_hash"
	KeyChainID                = "chain_id"
	KeySafeContractAddress    = "safe_contract_address"
	KeyParticipantToVotes     = "participant_to_votes"
	KeyParticipantToInfo      = "participant_to_info"
	KeyParticipantToRequests  = "participant_to_requests"
	KeyParticipantToPurchase  = "participant_to_purchase"
	KeyParticipantToResponses = "participant_to_responses"
)

// SerializedEmptyList is the stored form of an empty collection.
const SerializedEmptyList = "[]"
