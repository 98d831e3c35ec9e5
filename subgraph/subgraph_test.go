package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour/iomock"
)

func TestQuery(t *testing.T) {
	body, err := Query(10, "42", []string{"0xAbC", "0xdef"})
	require.NoError(t, err)

	var req map[string]string
	require.NoError(t, json.Unmarshal(body, &req))
	q := req["query"]
	assert.Contains(t, q, "first: 10")
	assert.Contains(t, q, `id_gt: "42"`)
	assert.Contains(t, q, `address_not_in: ["0xabc", "0xdef"]`)
	assert.Contains(t, q, "totalDeliveries_gt: 0")
}

func TestParseResponse(t *testing.T) {
	for name, tc := range map[string]struct {
		body string
		ids  []string
		err  bool
	}{
		"page": {
			body: `{"data": {"meches": [
				{"id": "1", "address": "0x01", "karma": "3", "receivedRequests": "10", "selfDeliveredFromReceived": "9", "maxDeliveryRate": "100"},
				{"id": "2", "address": "0x02", "karma": 1}
			]}}`,
			ids: []string{"1", "2"},
		},
		"empty":       {body: `{"data": {"meches": []}}`, ids: []string{}},
		"errors":      {body: `{"errors": [{"message": "boom"}]}`, err: true},
		"no data":     {body: `{}`, err: true},
		"not json":    {body: `<html>`, err: true},
		"bad integer": {body: `{"data": {"meches": [{"id": "1", "karma": "x"}]}}`, err: true},
	} {
		t.Run(name, func(t *testing.T) {
			infos, err := ParseResponse([]byte(tc.body))
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(infos))
			for _, m := range infos {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}

	infos, err := ParseResponse([]byte(`{"data": {"meches": [{"id": "1", "receivedRequests": "10", "selfDeliveredFromReceived": "9", "maxDeliveryRate": "100"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(10), infos[0].ReceivedRequests)
	assert.Equal(t, int64(9), infos[0].SelfDelivered)
	assert.Equal(t, uint64(100), infos[0].MaxDeliveryRate)
}

func page(ids ...int) behaviour.HTTPResponse {
	mm := make([]map[string]string, len(ids))
	for i, id := range ids {
		mm[i] = map[string]string{"id": fmt.Sprint(id), "address": fmt.Sprintf("0x%02x", id)}
	}
	b, _ := json.Marshal(map[string]interface{}{"data": map[string]interface{}{"meches": mm}})
	return behaviour.HTTPResponse{StatusCode: http.StatusOK, Body: b}
}

func cursorOf(t *testing.T, req behaviour.HTTPRequest) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	for _, c := range []string{"0", "2", "3"} {
		if strings.Contains(body["query"], fmt.Sprintf(`id_gt: "%s"`, c)) {
			return c
		}
	}
	return ""
}

func TestPager(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := iomock.NewMockHTTPFetcher(ctrl)
	sleeper := &iomock.Sleeper{}
	io := &behaviour.IO{HTTP: fetcher, Sleeper: sleeper, Log: log.Root()}

	var cursors []string
	responses := map[string][]behaviour.HTTPResponse{
		"0": {page(1, 2)},
		// the second page fails once and is fetched again
		"2": {{StatusCode: http.StatusBadGateway}, page(3)},
		"3": {page()},
	}
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Times(4).
		DoAndReturn(func(ctx context.Context, req behaviour.HTTPRequest) (behaviour.HTTPResponse, error) {
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, "application/json", req.Headers["Content-Type"])
			c := cursorOf(t, req)
			cursors = append(cursors, c)
			resp := responses[c][0]
			responses[c] = responses[c][1:]
			return resp, nil
		})

	specs := behaviour.NewApiSpecs("https://subgraph", "", nil, behaviour.RetriesConfig{MaxRetries: 2, BackoffFactor: 2})
	pager := NewPager(io, specs, nil)
	seq := behaviour.NewSequencer("mechs", sleeper, log.Root(), pager.Step())
	require.NoError(t, seq.Run(context.Background()))

	assert.True(t, pager.Done())
	assert.Equal(t, []string{"0", "2", "2", "3"}, cursors)
	require.Len(t, pager.Mechs(), 3)
	assert.Equal(t, "3", pager.Mechs()[2].ID)
	assert.Equal(t, 1, len(sleeper.Slept))

	pager.Reset()
	assert.False(t, pager.Done())
	assert.Empty(t, pager.Mechs())
}

func TestPager_RetriesExceeded(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := iomock.NewMockHTTPFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Times(2).
		Return(behaviour.HTTPResponse{}, fmt.Errorf("connection refused"))

	sleeper := &iomock.Sleeper{}
	io := &behaviour.IO{HTTP: fetcher, Sleeper: sleeper, Log: log.Root()}
	specs := behaviour.NewApiSpecs("https://subgraph", "", nil, behaviour.RetriesConfig{MaxRetries: 1, BackoffFactor: 1})
	pager := NewPager(io, specs, nil)

	err := behaviour.NewSequencer("mechs", sleeper, log.Root(), pager.Step()).Run(context.Background())
	require.ErrorIs(t, err, behaviour.ErrRetriesExceeded)
	assert.False(t, pager.Done())
}
