package behaviours

import (
	"context"
	"encoding/json"
	"net/http"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/ipfs"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/subgraph"
)

// maxLogSize truncates the logged information.
const maxLogSize = 1000

// FetchStatus of the mechs' information.
type FetchStatus int

const (
	FetchNone FetchStatus = iota
	FetchInProgress
	FetchSuccess
	FetchFail
)

func (s FetchStatus) String() string {
	switch s {
	case FetchNone:
		return "none"
	case FetchInProgress:
		return "in progress"
	case FetchSuccess:
		return "success"
	case FetchFail:
		return "fail"
	}
	return "unknown"
}

// Information fetches the mechs of the marketplace with their relevant tools.
type Information struct {
	base

	pager      *subgraph.Pager
	toolsSpecs *behaviour.ApiSpecs
	tools      *lru.Cache

	status FetchStatus
}

// NewInformation constructor.
func NewInformation(agent string, synced *mech.SynchronizedData, deps Deps) *Information {
	deps = deps.withDefaults()
	b := &Information{
		base:  newBase(agent, mech.InformationRound, synced, deps),
		tools: deps.Tools,
	}
	b.pager = subgraph.NewPager(b.io, b.retrySpecs(b.cfg.SubgraphURL, http.MethodPost), b.cfg.IgnoredMechs)
	b.toolsSpecs = b.retrySpecs("", http.MethodGet)
	return b
}

// Status returns the state of the last fetch.
func (b *Information) Status() FetchStatus {
	return b.status
}

// Setup implements behaviour.Behaviour.
func (b *Information) Setup() {
	b.pager.Reset()
	b.status = FetchNone
}

// Run proposes the mechs' information, nil if it could not be fetched or there is none.
func (b *Information) Run(ctx context.Context) (abci.Payload, error) {
	info, err := b.mechsInfo(ctx)
	if ctx.Err() != nil {
		return abci.Payload{}, ctx.Err()
	}
	if err != nil {
		b.log.Warn("Failed to fetch mech information for the marketplace", "err", err)
	}
	return mech.NewJSONPayload(b.agent, mech.InformationRound, info), nil
}

func (b *Information) mechsInfo(ctx context.Context) (*string, error) {
	b.status = FetchInProgress
	err := b.sequencer("mechs info",
		b.pager.Step(),
		behaviour.Step{
			Name:  "populate tools",
			Specs: b.toolsSpecs,
			Do:    b.populateTools,
		},
	).Run(ctx)
	if err != nil {
		b.status = FetchFail
		return nil, err
	}
	b.status = FetchSuccess

	all := b.pager.Mechs()
	if len(all) == 0 {
		b.log.Warn("No mechs found")
		return nil, nil
	}
	serialized := all.String()
	b.log.Info("Updated mechs' information", "info", truncate(serialized))
	return &serialized, nil
}

// populateTools fills in the relevant tools of every mech still lacking them.
// A single failure fails the whole step, the mechs done so far are kept.
func (b *Information) populateTools(ctx context.Context) behaviour.Outcome {
	for _, m := range b.pager.Mechs() {
		if len(m.RelevantTools) != 0 {
			continue
		}
		metadata := m.Service.MetadataStr()
		if metadata == nil {
			b.log.Warn("Mech without metadata", "mech", m.Address)
			continue
		}

		tools, ok := b.cachedTools(*metadata)
		if !ok {
			tools, ok = b.fetchTools(ctx, m, *metadata)
			if !ok {
				return behaviour.Failed
			}
			b.tools.Add(*metadata, tools)
		}
		if len(tools) == 0 {
			b.log.Warn("The mech agent's tools are empty", "mech", m.Address)
		}
		m.RelevantTools = mechs.Tools{}
		for _, t := range tools {
			if !b.cfg.IsIrrelevant(t) {
				m.RelevantTools[t] = struct{}{}
			}
		}
	}
	return behaviour.Succeeded
}

func (b *Information) cachedTools(metadata string) ([]string, bool) {
	if b.tools == nil {
		return nil, false
	}
	v, ok := b.tools.Get(metadata)
	if !ok {
		return nil, false
	}
	return v.([]string), true
}

type toolsResponse struct {
	Tools []string `json:"tools"`
}

func (b *Information) fetchTools(ctx context.Context, m *mechs.Info, metadata string) ([]string, bool) {
	url := ipfs.Link(b.cfg.IPFSLink(), metadata)
	resp, ok := b.io.Fetch(ctx, behaviour.HTTPRequest{
		Method: b.toolsSpecs.Method,
		URL:    url,
	})
	if !ok {
		return nil, false
	}
	var res toolsResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(resp.Body, &res); err != nil {
			res.Tools = nil
		}
	}
	if res.Tools == nil {
		b.log.Warn("Could not get the mech agent's tools", "mech", m.Address, "url", url, "status", resp.StatusCode)
		return nil, false
	}
	return res.Tools, true
}

// Cleanup implements behaviour.Behaviour.
func (b *Information) Cleanup() {
	b.toolsSpecs.ResetRetries()
}

func truncate(s string) string {
	if len(s) > maxLogSize {
		return s[:maxLogSize]
	}
	return s
}
