package ranking

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
)

var now = time.Unix(1764079385, 0)

func fixture(t *testing.T, id string, metadata string, delivered time.Time, karma, received, self, rate int) *mechs.Info {
	raw := fmt.Sprintf(`{
		"id": %q, "address": "0x%s",
		"service": {"metadata": [{"metadata": %q}], "deliveries": [{"blockTimestamp": %d}]},
		"karma": "%d", "receivedRequests": "%d", "selfDeliveredFromReceived": "%d", "maxDeliveryRate": "%d"
	}`, id, id, metadata, delivered.Unix(), karma, received, self, rate)
	var m mechs.Info
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return &m
}

func ids(mm mechs.Infos) []string {
	res := make([]string, len(mm))
	for i, m := range mm {
		res[i] = m.ID
	}
	return res
}

func TestRank_Order(t *testing.T) {
	recent := now.Add(-2 * time.Minute)
	stale := now.Add(-48 * time.Hour)
	expected := mechs.Infos{
		fixture(t, "mech_0", "metadata", recent, 1, 1, 1, 1),
		fixture(t, "mech_1", "0xmetadata", recent, -123, 100, 85, 1000),
		fixture(t, "mech_2", "metadata", recent, -123, 0, 0, 1000),
		fixture(t, "mech_1b", "0xmetadata", recent, -123, 100, 70, 1000),
		fixture(t, "mech_2b", "metadata", recent, -123, 3, 0, 1000),
		fixture(t, "mech_1c", "0xmetadata", recent, -123, 100, 50, 1000),
		// better karma and a perfect record cannot make up for a poor liveness
		fixture(t, "mech_3", "", stale, 123, 100, 100, 1),
	}

	shuffled := mechs.Infos{expected[6], expected[3], expected[0], expected[5], expected[2], expected[4], expected[1]}
	r := New(DefaultConfig())
	ranked, err := r.Rank(shuffled, now)
	require.NoError(t, err)
	require.Equal(t, ids(expected), ids(ranked))
	require.Equal(t, "mech_0", r.Best(shuffled, now).ID)

	// copies, not the input records
	require.NotSame(t, expected[0], ranked[0])
	ranked[0].RelevantTools["x"] = struct{}{}
	require.False(t, expected[0].RelevantTools.Has("x"))
	require.Equal(t, "mech_3", shuffled[0].ID)
}

func TestRank_Exclusions(t *testing.T) {
	recent := now.Add(-time.Minute)
	noMetadata := fixture(t, "a", "", recent, 0, 1, 1, 1)
	noMetadata.Service.Metadata = nil
	expensive := fixture(t, "b", "0x12", recent, 0, 1, 1, 5000)
	cheap := fixture(t, "c", "0x12", recent, 0, 1, 1, 10)

	cfg := DefaultConfig()
	cfg.MaxDeliveryRateCap = 1000
	r := New(cfg)

	ranked, err := r.Rank(mechs.Infos{noMetadata, expensive, cheap}, now)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, ids(ranked))

	// every mech lacks metadata: nothing to pick
	require.Nil(t, r.Best(mechs.Infos{noMetadata}, now))
	ranked, err = r.Rank(mechs.Infos{noMetadata}, now)
	require.NoError(t, err)
	require.Empty(t, ranked)
}

func TestRank_TieBreak(t *testing.T) {
	recent := now.Add(-time.Minute)
	a := fixture(t, "a", "0x12", recent, 5, 10, 5, 100)
	b := fixture(t, "b", "0x12", recent, 7, 10, 5, 100)
	c := fixture(t, "c", "0x12", recent, 7, 10, 5, 100)

	r := New(DefaultConfig())
	ranked, err := r.Rank(mechs.Infos{a, c, b}, now)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, ids(ranked))
}

func TestSignals(t *testing.T) {
	r := New(DefaultConfig())
	m := &mechs.Info{MaxDeliveryRate: 0}
	require.Equal(t, 1.0, r.RateMetric(m))
	require.Equal(t, 1.0, r.Liveness(m, now))
	require.InDelta(t, 0.8, r.Laplace(m), 1e-12)

	m = &mechs.Info{
		ReceivedRequests: 1,
		Service:          mechs.Service{Deliveries: []mechs.Delivery{{BlockTimestamp: mechs.Timestamp(now.Add(-24 * time.Hour).Unix())}}},
	}
	require.InDelta(t, 0.5, r.Liveness(m, now), 1e-9)

	m.Service.Deliveries = nil
	require.Zero(t, r.Liveness(m, now))
}

func genInfo() *rapid.Generator[*mechs.Info] {
	return rapid.Custom(func(t *rapid.T) *mechs.Info {
		received := rapid.Int64Range(0, 1000).Draw(t, "received")
		return &mechs.Info{
			ID:               rapid.StringMatching(`[a-z]{1,3}`).Draw(t, "id"),
			Karma:            rapid.Int64Range(-5, 5).Draw(t, "karma"),
			ReceivedRequests: received,
			SelfDelivered:    rapid.Int64Range(0, received).Draw(t, "self"),
			MaxDeliveryRate:  rapid.Uint64Range(0, 1e18).Draw(t, "rate"),
			Service: mechs.Service{
				Metadata: []map[string]string{{"metadata": "0x12"}},
				Deliveries: []mechs.Delivery{{
					BlockTimestamp: mechs.Timestamp(now.Unix() - rapid.Int64Range(-60, 1e7).Draw(t, "age")),
				}},
			},
			RelevantTools: mechs.Tools{},
		}
	})
}

func TestLaplace_Bounded(t *testing.T) {
	r := New(DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		l := r.Laplace(genInfo().Draw(t, "mech"))
		if l <= 0 || l >= 1 {
			t.Fatalf("laplace %v out of (0,1)", l)
		}
	})
}

func TestBetter_StrictWeakOrder(t *testing.T) {
	r := New(DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		a := genInfo().Draw(t, "a")
		b := genInfo().Draw(t, "b")
		c := genInfo().Draw(t, "c")

		if r.Better(a, a, now) {
			t.Fatal("irreflexivity violated")
		}
		if r.Better(a, b, now) && r.Better(b, a, now) {
			t.Fatal("asymmetry violated")
		}
		if r.Better(a, b, now) && r.Better(b, c, now) && !r.Better(a, c, now) {
			t.Fatal("transitivity violated")
		}
	})
}

func TestRank_Idempotent(t *testing.T) {
	r := New(DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		mm := rapid.SliceOfN(genInfo(), 0, 8).Draw(t, "mechs")
		once, err := r.Rank(mm, now)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := r.Rank(once, now)
		if err != nil {
			t.Fatal(err)
		}
		if fmt.Sprint(ids(once)) != fmt.Sprint(ids(twice)) {
			t.Fatalf("re-ranking changed the order: %v vs %v", ids(once), ids(twice))
		}
		if best := r.Best(mm, now); len(once) > 0 && best.ID != once[0].ID {
			t.Fatalf("best %s is not first %s", best.ID, once[0].ID)
		}
	})
}
