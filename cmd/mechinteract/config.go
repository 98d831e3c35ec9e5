package main

import (
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/Fantom-foundation/mech-interact-abci/config"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}

	validateCommand = cli.Command{
		Action:      validateConfig,
		Name:        "validate",
		Usage:       "Check the configuration",
		Description: `The validate command loads the configuration and lists every problem found.`,
	}
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		Description: `The dumpconfig command shows the configuration values as TOML.`,
	}
)

// makeConfig loads the defaults overridden by the config file.
func makeConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, "Configuration is valid")
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := config.Dump(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
