// Package subgraph queries the marketplace subgraph for the mechs.
package subgraph

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
)

// BatchSize of a page.
const BatchSize = 1000

var mechsQuery = template.Must(template.New("mechs").Parse(`
{
    meches(
        first: {{.First}},
        orderBy: id,
        orderDirection: asc,
        where: {
            id_gt: "{{.IDGt}}",
            service_: {totalDeliveries_gt: 0},
            address_not_in: [{{.Ignored}}]
        }
    ) {
        id
        address
        maxDeliveryRate
        karma
        receivedRequests
        selfDeliveredFromReceived
        service {
            metadata {
                metadata
            }
            deliveries(
                first: 1,
                orderBy: blockTimestamp,
                orderDirection: desc
            ) {
                blockTimestamp
            }
        }
    }
}
`))

// Query returns the request body of the page of mechs following idGt.
func Query(first int, idGt string, ignored []string) ([]byte, error) {
	quoted := make([]string, len(ignored))
	for i, a := range ignored {
		quoted[i] = `"` + strings.ToLower(a) + `"`
	}
	var q bytes.Buffer
	err := mechsQuery.Execute(&q, struct {
		First   int
		IDGt    string
		Ignored string
	}{first, idGt, strings.Join(quoted, ", ")})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"query": q.String()})
}

type response struct {
	Data *struct {
		Meches []json.RawMessage `json:"meches"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ParseResponse decodes a page of mechs.
func ParseResponse(body []byte) (mechs.Infos, error) {
	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.Wrap(err, "subgraph response")
	}
	if len(res.Errors) != 0 {
		return nil, errors.Errorf("subgraph error: %s", res.Errors[0].Message)
	}
	if res.Data == nil {
		return nil, errors.New("subgraph response without data")
	}
	infos := make(mechs.Infos, 0, len(res.Data.Meches))
	for _, raw := range res.Data.Meches {
		info := new(mechs.Info)
		if err := json.Unmarshal(raw, info); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
