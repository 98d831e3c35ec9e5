// Package ranking orders mechs by a weighted score of price, liveness and
// delivery record.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
)

// Ranker scores and orders mechs.
type Ranker struct {
	cfg Config
	tau float64 // seconds
}

// New ranker.
func New(cfg Config) *Ranker {
	return &Ranker{
		cfg: cfg,
		tau: cfg.HalfLife.Seconds() / math.Ln2,
	}
}

// RateMetric is 1/(1+ln(rate)), in (0, 1]. A zero rate counts as 1.
func (r *Ranker) RateMetric(m *mechs.Info) float64 {
	rate := float64(m.MaxDeliveryRate)
	if rate < 1 {
		rate = 1
	}
	return 1 / (1 + math.Log(rate))
}

// Liveness decays exponentially with the age of the last delivery.
func (r *Ranker) Liveness(m *mechs.Info, now time.Time) float64 {
	if m.ReceivedRequests == 0 {
		return r.cfg.ColdStartLiveness
	}
	last, ok := m.Service.LastDelivery()
	if !ok {
		return 0
	}
	age := float64(now.Unix() - int64(last))
	if age < 0 {
		age = 0
	}
	return math.Exp(-age / r.tau)
}

// Laplace is the delivered ratio smoothed toward alpha/(alpha+beta).
func (r *Ranker) Laplace(m *mechs.Info) float64 {
	return (float64(m.SelfDelivered) + r.cfg.Alpha) / (float64(m.ReceivedRequests) + r.cfg.Alpha + r.cfg.Beta)
}

// Score is the weighted sum of the three signals.
func (r *Ranker) Score(m *mechs.Info, now time.Time) float64 {
	return r.cfg.RateWeight*r.RateMetric(m) +
		r.cfg.LivenessWeight*r.Liveness(m, now) +
		r.cfg.LaplaceWeight*r.Laplace(m)
}

// Better reports whether a ranks strictly higher than b: higher score, then
// higher karma, then the smaller id.
func (r *Ranker) Better(a, b *mechs.Info, now time.Time) bool {
	return r.better(a, r.Score(a, now), b, r.Score(b, now))
}

func (r *Ranker) better(a *mechs.Info, sa float64, b *mechs.Info, sb float64) bool {
	// scores are compared on an epsilon grid, which keeps ties transitive
	if ba, bb := r.bucket(sa), r.bucket(sb); ba != bb {
		return ba > bb
	}
	if a.Karma != b.Karma {
		return a.Karma > b.Karma
	}
	return a.ID < b.ID
}

func (r *Ranker) bucket(score float64) int64 {
	if r.cfg.Epsilon <= 0 {
		return int64(math.Float64bits(score))
	}
	return int64(math.Round(score / r.cfg.Epsilon))
}

// Eligible reports whether the mech may be ranked at all.
func (r *Ranker) Eligible(m *mechs.Info) bool {
	if m.EmptyMetadata() {
		return false
	}
	return r.cfg.MaxDeliveryRateCap == 0 || m.MaxDeliveryRate <= r.cfg.MaxDeliveryRateCap
}

// Filter keeps the eligible mechs.
func (r *Ranker) Filter(mm mechs.Infos) mechs.Infos {
	res := make(mechs.Infos, 0, len(mm))
	for _, m := range mm {
		if r.Eligible(m) {
			res = append(res, m)
		}
	}
	return res
}

// Rank returns copies of the eligible mechs, best first. The input is not modified.
func (r *Ranker) Rank(mm mechs.Infos, now time.Time) (mechs.Infos, error) {
	eligible := r.Filter(mm)
	ranked := make(mechs.Infos, 0, len(eligible))
	if err := copier.CopyWithOption(&ranked, &eligible, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "copying mechs")
	}

	scores := make(map[*mechs.Info]float64, len(ranked))
	for _, m := range ranked {
		scores[m] = r.Score(m, now)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		return r.better(a, scores[a], b, scores[b])
	})
	return ranked, nil
}

// Best returns the highest ranked eligible mech, nil if none.
func (r *Ranker) Best(mm mechs.Infos, now time.Time) *mechs.Info {
	var best *mechs.Info
	var bestScore float64
	for _, m := range mm {
		if !r.Eligible(m) {
			continue
		}
		s := r.Score(m, now)
		if best == nil || r.better(m, s, best, bestScore) {
			best, bestScore = m, s
		}
	}
	return best
}
