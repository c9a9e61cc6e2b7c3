package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"truckpos/internal/config"
	"truckpos/internal/engine"
	"truckpos/internal/transport"

	"github.com/urfave/cli/v2"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gopkg.in/yaml.v3"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run the position router until SIGINT/SIGTERM",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := engine.Bootstrap(cfg)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return e.Run(ctx)
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.App.Writer)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "probe a running worker's gRPC health service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:7070", Usage: "health service address"},
			&cli.DurationFlag{Name: "timeout", Value: 3 * time.Second},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			st, err := transport.Check(ctx, c.String("addr"), transport.Service)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, st)
			if st != healthpb.HealthCheckResponse_SERVING {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
