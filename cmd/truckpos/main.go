package main

import (
	"os"

	"truckpos/internal/logging"

	"github.com/urfave/cli/v2"
)

func main() {
	logging.InitFromEnv()

	if err := newApp().Run(os.Args); err != nil {
		logging.L().Error("truckpos: exit", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "truckpos",
		Usage:          "route dangerous driving events between Kafka topics",
		Description:    "Consumes truck positions and republishes every non-Normal event.",
		DefaultCommand: "worker",
		Commands: []*cli.Command{
			workerCommand(),
			configCommand(),
			healthCommand(),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file (optional; TRUCKPOS__* env vars override it)",
		EnvVars: []string{"TRUCKPOS_CONFIG"},
	}
}
