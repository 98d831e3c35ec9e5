package subgraph

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
)

// maxLogSize truncates the logged responses.
const maxLogSize = 1000

// Pager fetches every mech, one page after the other. A failed page is
// fetched again on the next run, the pages before it are kept.
type Pager struct {
	io      *behaviour.IO
	specs   *behaviour.ApiSpecs
	ignored []string

	cursor    string
	collected mechs.Infos
	done      bool

	log log.Logger
}

// NewPager constructor. specs addresses the subgraph and owns the retry budget.
func NewPager(io *behaviour.IO, specs *behaviour.ApiSpecs, ignored []string) *Pager {
	return &Pager{
		io:      io,
		specs:   specs,
		ignored: ignored,
		cursor:  "0",
		log:     io.Log.New("subgraph", specs.URL),
	}
}

// Reset forgets the fetched pages.
func (p *Pager) Reset() {
	p.cursor = "0"
	p.collected = nil
	p.done = false
}

// Mechs returns the mechs fetched so far.
func (p *Pager) Mechs() mechs.Infos {
	return p.collected
}

// Done reports whether the last page was reached.
func (p *Pager) Done() bool {
	return p.done
}

// Step fetches the remaining pages, usable as a sequence step.
func (p *Pager) Step() behaviour.Step {
	return behaviour.Step{
		Name:  "fetch mechs",
		Specs: p.specs,
		Do:    p.fetch,
	}
}

func (p *Pager) fetch(ctx context.Context) behaviour.Outcome {
	for !p.done {
		body, err := Query(BatchSize, p.cursor, p.ignored)
		if err != nil {
			p.log.Error("Could not build the query", "err", err)
			return behaviour.Aborted
		}
		method := p.specs.Method
		if method == "" {
			method = http.MethodPost
		}
		headers := map[string]string{"Content-Type": "application/json"}
		for k, v := range p.specs.Headers {
			headers[k] = v
		}
		resp, ok := p.io.Fetch(ctx, behaviour.HTTPRequest{
			Method:  method,
			URL:     p.specs.URL,
			Headers: headers,
			Body:    body,
		})
		if !ok {
			return behaviour.Failed
		}
		if resp.StatusCode != http.StatusOK {
			p.log.Error("Could not get the mechs' information", "status", resp.StatusCode, "body", truncate(string(resp.Body)))
			return behaviour.Failed
		}
		batch, err := ParseResponse(resp.Body)
		if err != nil {
			p.log.Error("Could not get the mechs' information", "err", err)
			return behaviour.Failed
		}
		p.log.Info("Retrieved mechs' information", "batch", truncate(batch.String()))

		if len(batch) == 0 {
			p.done = true
			break
		}
		p.collected = append(p.collected, batch...)
		p.cursor = batch[len(batch)-1].ID
	}
	return behaviour.Succeeded
}

func truncate(s string) string {
	if len(s) > maxLogSize {
		return s[:maxLogSize]
	}
	return s
}
