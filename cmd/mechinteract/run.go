package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/config"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/driver"
	"github.com/Fantom-foundation/mech-interact-abci/inter/pos"
	"github.com/Fantom-foundation/mech-interact-abci/ipfs"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/leveldb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/memorydb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/pebble"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/mech/behaviours"
)

const (
	syncDataDB = "syncdata"
	dbCache    = 16 * 1024 * 1024
)

var (
	agentsFlag = cli.IntFlag{
		Name:  "agents",
		Usage: "Number of agents of the service",
		Value: 4,
	}
	periodsFlag = cli.IntFlag{
		Name:  "periods",
		Usage: "Number of periods to run",
		Value: 1,
	}
	startFlag = cli.StringFlag{
		Name:  "start",
		Usage: "Initial round of the first period",
		Value: string(mech.VersionDetectionRound),
	}
	datadirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory of the synchronized data, kept in memory if empty",
	}
	dbBackendFlag = cli.StringFlag{
		Name:  "db.backend",
		Usage: "Storage of the synchronized data: leveldb or pebble",
		Value: "leveldb",
	}
	ipfsAPIFlag = cli.StringFlag{
		Name:  "ipfs.api",
		Usage: "HTTP API of the IPFS node the requests are uploaded to",
		Value: "http://localhost:5001",
	}
	httpTimeoutFlag = cli.DurationFlag{
		Name:  "http.timeout",
		Usage: "Timeout of the subgraph and IPFS calls",
		Value: 30 * time.Second,
	}

	runCommand = cli.Command{
		Action:    runAgents,
		Name:      "run",
		Usage:     "Run the agents against the configured endpoints",
		ArgsUsage: "",
		Flags: []cli.Flag{
			agentsFlag,
			periodsFlag,
			startFlag,
			datadirFlag,
			dbBackendFlag,
			ipfsAPIFlag,
			httpTimeoutFlag,
		},
		Description: `The run command drives every agent of the service in process, one period after another.`,
	}
)

// openStore opens the key-value store of the synchronized data.
func openStore(datadir, backend string) (kvdb.Store, error) {
	var producer kvdb.DbProducer
	cache := func(string) int { return dbCache }
	switch {
	case datadir == "":
		producer = memorydb.NewProducer()
	case backend == "leveldb":
		producer = leveldb.NewProducer(datadir, cache)
	case backend == "pebble":
		producer = pebble.NewProducer(datadir, cache)
	default:
		return nil, errors.Errorf("unknown db backend %q", backend)
	}
	return producer.OpenDB(syncDataDB)
}

func newIO(cfg *config.Config, ipfsAPI string, timeout time.Duration) (*behaviour.IO, error) {
	backends, err := contracts.Dial(cfg.RPC)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: timeout}
	return &behaviour.IO{
		Contracts: contracts.NewRouter(contracts.Callers(backends)),
		HTTP:      behaviour.HTTPClient{Client: client},
		IPFS:      ipfs.NewClient(ipfsAPI, client),
		Ledger:    contracts.NewLedger(backends),
		Sleeper:   behaviour.RealSleeper{},
		Log:       log.New("module", "behaviour"),
	}, nil
}

func runAgents(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	n := ctx.Int(agentsFlag.Name)
	if n <= 0 {
		return errors.New("at least one agent is required")
	}

	deps := behaviours.Deps{Config: &cfg}
	deps.IO, err = newIO(&cfg, ctx.String(ipfsAPIFlag.Name), ctx.Duration(httpTimeoutFlag.Name))
	if err != nil {
		return err
	}

	store, err := openStore(ctx.String(datadirFlag.Name), ctx.String(dbBackendFlag.Name))
	if err != nil {
		return err
	}
	spec := mech.NewAppSpec(nil, nil)
	if err := spec.Validate(); err != nil {
		return err
	}
	db := abci.NewDB(store, spec.CrossPeriodPersistedKeys, func(err error) {
		log.Crit("Synchronized data failure", "err", err)
	})
	defer db.Close()

	agents := make([]string, n)
	for i := range agents {
		agents[i] = fmt.Sprintf("agent_%d", i)
	}
	d := driver.New(driver.DefaultConfig(), spec, db, pos.EqualWeights(agents...), behaviours.Factories(deps))
	defer d.Stop()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		select {
		case <-sigc:
			log.Info("Got interrupt, shutting down...")
			cancel()
		case <-runCtx.Done():
		}
	}()

	start := abci.RoundID(ctx.String(startFlag.Name))
	for i := 0; i < ctx.Int(periodsFlag.Name); i++ {
		period, err := d.RunPeriod(runCtx, start)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\n", period.ID, period.Final)
	}
	return nil
}
