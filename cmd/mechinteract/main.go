// mechinteract drives the mech interaction app of a multi-agent service.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"
)

var app = newApp()

func newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "mechinteract"
	a.Usage = "send requests to AI mechs on behalf of a multi-agent service"
	a.Version = "0.1.0"
	a.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
	}
	a.Commands = []cli.Command{
		validateCommand,
		dumpConfigCommand,
		fsmCommand,
		rankCommand,
		runCommand,
	}
	a.Before = func(ctx *cli.Context) error {
		lvl := log.Lvl(ctx.GlobalInt(verbosityFlag.Name))
		log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
		return nil
	}
	return a
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
