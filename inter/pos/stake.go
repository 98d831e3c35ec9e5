package pos

import (
	"github.com/Fantom-foundation/mech-interact-abci/inter/idx"
)

// WeightCounter counts weights of distinct participants.
type WeightCounter struct {
	participants *Participants
	already      []bool // idx.Participant -> bool

	quorum Weight
	sum    Weight
}

// NewCounter constructor.
func (pp *Participants) NewCounter() *WeightCounter {
	return &WeightCounter{
		participants: pp,
		quorum:       pp.Quorum(),
		already:      make([]bool, pp.Len()),
	}
}

// Count participant and return true if it hadn't counted before.
// Unknown participants are never counted.
func (s *WeightCounter) Count(id string) bool {
	if !s.participants.Exists(id) {
		return false
	}
	return s.CountByIdx(s.participants.GetIdx(id))
}

// CountByIdx participant and return true if it hadn't counted before.
func (s *WeightCounter) CountByIdx(i idx.Participant) bool {
	if s.already[i] {
		return false
	}
	s.already[i] = true

	s.sum += s.participants.GetWeightByIdx(i)
	return true
}

// HasQuorum achieved.
func (s *WeightCounter) HasQuorum() bool {
	return s.sum >= s.quorum
}

// Sum of counted weights.
func (s *WeightCounter) Sum() Weight {
	return s.sum
}

// Remaining weight not counted yet.
func (s *WeightCounter) Remaining() Weight {
	return s.participants.TotalWeight() - s.sum
}
