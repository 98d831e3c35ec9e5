package mech

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/ranking"
)

// SynchronizedData gives typed access to the data the agents agreed on.
type SynchronizedData struct {
	db *abci.DB
}

// NewSynchronizedData wraps db.
func NewSynchronizedData(db *abci.DB) *SynchronizedData {
	return &SynchronizedData{db: db}
}

// DB returns the underlying store.
func (s *SynchronizedData) DB() *abci.DB {
	return s.db
}

// MechsInfo returns the mechs found by the information round.
func (s *SynchronizedData) MechsInfo() (mechs.Infos, error) {
	raw, err := s.jsonString(KeyMechInfo, SerializedEmptyList)
	if err != nil {
		return nil, err
	}
	return mechs.ParseInfos(raw)
}

// RelevantMechsInfo returns the mechs offering at least one relevant tool.
func (s *SynchronizedData) RelevantMechsInfo() (mechs.Infos, error) {
	all, err := s.MechsInfo()
	if err != nil {
		return nil, err
	}
	return relevant(all), nil
}

// MechTools returns the union of the mechs' relevant tools.
func (s *SynchronizedData) MechTools() (mechs.Tools, error) {
	all, err := s.MechsInfo()
	if err != nil {
		return nil, err
	}
	return toolsOf(all), nil
}

// PriorityMech returns the best ranked relevant mech, nil if none.
func (s *SynchronizedData) PriorityMech(r *ranking.Ranker, now time.Time) (*mechs.Info, error) {
	rel, err := s.RelevantMechsInfo()
	if err != nil {
		return nil, err
	}
	return r.Best(rel, now), nil
}

// PriorityMechAddress returns the agreed priority mech address, nil if none.
func (s *SynchronizedData) PriorityMechAddress() *string {
	return s.optString(KeyPriorityMechAddress)
}

// MechPrice returns the agreed request price.
func (s *SynchronizedData) MechPrice() (*big.Int, error) {
	v, err := s.db.GetStrict(KeyMechPrice)
	if err != nil {
		return nil, err
	}
	price, ok := new(big.Int).SetString(fmt.Sprint(v), 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %v", KeyMechPrice, v)
	}
	return price, nil
}

// MechRequests returns the requests waiting to be sent.
func (s *SynchronizedData) MechRequests() ([]mechs.Metadata, error) {
	raw, err := s.jsonString(KeyMechRequests, SerializedEmptyList)
	if err != nil {
		return nil, err
	}
	return mechs.ParseMetadata(raw)
}

// MechResponses returns the responses of the sent requests.
func (s *SynchronizedData) MechResponses() ([]*mechs.InteractionResponse, error) {
	raw, err := s.jsonString(KeyMechResponses, SerializedEmptyList)
	if err != nil {
		return nil, err
	}
	return mechs.ParseResponses(raw)
}

// ParticipantToVotes returns the version votes.
func (s *SynchronizedData) ParticipantToVotes() (map[string]VotingPayload, error) {
	res := map[string]VotingPayload{}
	return res, s.collection(KeyParticipantToVotes, &res)
}

// ParticipantToInfo returns the information payloads.
func (s *SynchronizedData) ParticipantToInfo() (map[string]JSONPayload, error) {
	res := map[string]JSONPayload{}
	return res, s.collection(KeyParticipantToInfo, &res)
}

// ParticipantToRequests returns the request payloads.
func (s *SynchronizedData) ParticipantToRequests() (map[string]MechRequestPayload, error) {
	res := map[string]MechRequestPayload{}
	return res, s.collection(KeyParticipantToRequests, &res)
}

// ParticipantToResponses returns the response payloads.
func (s *SynchronizedData) ParticipantToResponses() (map[string]JSONPayload, error) {
	res := map[string]JSONPayload{}
	return res, s.collection(KeyParticipantToResponses, &res)
}

// ParticipantToPurchase returns the purchase payloads.
func (s *SynchronizedData) ParticipantToPurchase() (map[string]PrepareTxPayload, error) {
	res := map[string]PrepareTxPayload{}
	return res, s.collection(KeyParticipantToPurchase, &res)
}

// FinalTxHash returns the settled transaction hash.
func (s *SynchronizedData) FinalTxHash() *string {
	return s.optString(KeyFinalTxHash)
}

// ChainID returns the chain the transactions are sent to.
func (s *SynchronizedData) ChainID() *string {
	return s.optString(KeyChainID)
}

// SafeContractAddress returns the agents' safe.
func (s *SynchronizedData) SafeContractAddress() *string {
	return s.optString(KeySafeContractAddress)
}

// TxSubmitter returns the round that prepared the transaction to settle.
func (s *SynchronizedData) TxSubmitter() (string, error) {
	v, err := s.db.GetStrict(KeyTxSubmitter)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

// MostVotedTxHash returns the agreed transaction payload.
func (s *SynchronizedData) MostVotedTxHash() (string, error) {
	v, err := s.db.GetStrict(KeyMostVotedTxHash)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is %v", KeyMostVotedTxHash, v)
	}
	return str, nil
}

// VersioningCheckPerformed reports whether the marketplace version is known.
func (s *SynchronizedData) VersioningCheckPerformed() bool {
	return s.db.Get(KeyIsMarketplaceV2, nil) != nil
}

// IsMarketplaceV2 returns true for v2, false for v1 and nil when no marketplace is used.
func (s *SynchronizedData) IsMarketplaceV2() (*bool, error) {
	v, err := s.db.GetStrict(KeyIsMarketplaceV2)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("%s is %v", KeyIsMarketplaceV2, v)
	}
	return &b, nil
}

// jsonString returns a collection stored either serialized or as a JSON value.
func (s *SynchronizedData) jsonString(key, def string) (string, error) {
	v := s.db.Get(key, def)
	switch vv := v.(type) {
	case nil:
		return def, nil
	case string:
		return vv, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, key)
	}
	return string(b), nil
}

func (s *SynchronizedData) optString(key string) *string {
	v := s.db.Get(key, nil)
	if v == nil {
		return nil
	}
	str := fmt.Sprint(v)
	return &str
}

func (s *SynchronizedData) collection(key string, to interface{}) error {
	v, err := s.db.GetStrict(key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, key)
	}
	return errors.Wrap(json.Unmarshal(b, to), key)
}

func relevant(all mechs.Infos) mechs.Infos {
	res := make(mechs.Infos, 0, len(all))
	for _, m := range all {
		if len(m.RelevantTools) != 0 {
			res = append(res, m)
		}
	}
	return res
}

func toolsOf(all mechs.Infos) mechs.Tools {
	tools := mechs.Tools{}
	for _, m := range all {
		for t := range m.RelevantTools {
			tools[t] = struct{}{}
		}
	}
	return tools
}
