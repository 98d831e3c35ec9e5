package main

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/ranking"
)

var (
	nowFlag = cli.Int64Flag{
		Name:  "now",
		Usage: "Unix time the mechs are ranked at, the current time if zero",
	}

	fsmCommand = cli.Command{
		Action:      printFSM,
		Name:        "fsm",
		Usage:       "Print the transition table",
		Description: `The fsm command validates the app and prints its rounds and transitions.`,
	}
	rankCommand = cli.Command{
		Action:      rankMechs,
		Name:        "rank",
		Usage:       "Rank the mechs of a JSON file",
		ArgsUsage:   "<mechs.json>",
		Flags:       []cli.Flag{nowFlag},
		Description: `The rank command prints the eligible mechs of the file, best first.`,
	}
)

func printFSM(ctx *cli.Context) error {
	spec := mech.NewAppSpec(nil, nil)
	if err := spec.Validate(); err != nil {
		return err
	}
	fmt.Fprint(ctx.App.Writer, spec.String())
	return nil
}

func rankMechs(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one mechs file")
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	raw, err := ioutil.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	all, err := mechs.ParseInfos(string(raw))
	if err != nil {
		return errors.Wrap(err, "parsing mechs")
	}

	now := time.Now()
	if ts := ctx.Int64(nowFlag.Name); ts != 0 {
		now = time.Unix(ts, 0)
	}
	r := ranking.New(cfg.Ranking)
	ranked, err := r.Rank(all, now)
	if err != nil {
		return err
	}
	for i, m := range ranked {
		fmt.Fprintf(ctx.App.Writer, "%d\t%s\t%.6f\n", i+1, m.Address, r.Score(m, now))
	}
	return nil
}
