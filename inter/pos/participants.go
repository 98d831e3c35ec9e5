package pos

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Fantom-foundation/mech-interact-abci/inter/idx"
)

type (
	// Weight of a participant's vote.
	Weight uint32

	cache struct {
		indexes     map[string]idx.Participant
		weights     []Weight
		ids         []string
		totalWeight Weight
	}
	// Participants is the set of agents allowed to submit payloads in a period.
	// Read-only.
	Participants struct {
		values map[string]Weight
		cache  cache
	}

	// Builder is a helper to create Participants object
	Builder map[string]Weight
)

// NewBuilder creates new mutable Builder
func NewBuilder() Builder {
	return Builder{}
}

// Set appends item to Builder object
func (pb Builder) Set(id string, weight Weight) {
	if weight == 0 {
		delete(pb, id)
	} else {
		pb[id] = weight
	}
}

// Build new read-only Participants object
func (pb Builder) Build() *Participants {
	return newParticipants(pb)
}

// EqualWeights builds new read-only Participants object where every agent has weight 1.
func EqualWeights(ids ...string) *Participants {
	builder := NewBuilder()
	for _, id := range ids {
		builder.Set(id, 1)
	}
	return builder.Build()
}

func newParticipants(values Builder) *Participants {
	valuesCopy := make(Builder)
	for id, w := range values {
		valuesCopy.Set(id, w)
	}

	pp := &Participants{
		values: valuesCopy,
	}
	pp.cache = pp.calcCaches()
	return pp
}

// Len returns count of participants
func (pp *Participants) Len() int {
	return len(pp.values)
}

func (pp *Participants) calcCaches() cache {
	cache := cache{
		indexes: make(map[string]idx.Participant),
		weights: make([]Weight, pp.Len()),
		ids:     make([]string, pp.Len()),
	}

	for i, p := range pp.sortedArray() {
		cache.indexes[p.ID] = idx.Participant(i)
		cache.weights[i] = p.Weight
		cache.ids[i] = p.ID
		totalWeightBefore := cache.totalWeight
		cache.totalWeight += p.Weight
		if cache.totalWeight < totalWeightBefore {
			panic("participants weight overflow")
		}
	}
	if cache.totalWeight > math.MaxUint32/2 {
		panic("participants weight overflow")
	}

	return cache
}

// Get returns weight of participant by ID
func (pp *Participants) Get(id string) Weight {
	return pp.values[id]
}

// GetIdx returns index (offset) of participant in the set
func (pp *Participants) GetIdx(id string) idx.Participant {
	return pp.cache.indexes[id]
}

// Exists returns true if the agent belongs to the set
func (pp *Participants) Exists(id string) bool {
	_, ok := pp.values[id]
	return ok
}

// SortedIDs returns deterministically sorted ids.
func (pp *Participants) SortedIDs() []string {
	return pp.cache.ids
}

// GetWeightByIdx returns weight for participant by index
func (pp *Participants) GetWeightByIdx(i idx.Participant) Weight {
	return pp.cache.weights[i]
}

// sortedArray is sorted by weight and ID
func (pp *Participants) sortedArray() participants {
	array := make(participants, 0, len(pp.values))
	for id, w := range pp.values {
		array = append(array, participant{
			ID:     id,
			Weight: w,
		})
	}
	sort.Sort(array)
	return array
}

// Copy constructs a copy.
func (pp *Participants) Copy() *Participants {
	return newParticipants(pp.values)
}

// Quorum is the consensus threshold: more than two thirds of the total weight.
// With equal weights it is ceil((2n+1)/3).
func (pp *Participants) Quorum() Weight {
	return pp.TotalWeight()*2/3 + 1
}

// TotalWeight of participants.
func (pp *Participants) TotalWeight() Weight {
	return pp.cache.totalWeight
}

func (pp *Participants) String() string {
	parts := make([]string, 0, pp.Len())
	for i, id := range pp.SortedIDs() {
		parts = append(parts, fmt.Sprintf("[%s:%d]", id, pp.GetWeightByIdx(idx.Participant(i))))
	}
	return strings.Join(parts, ",")
}
