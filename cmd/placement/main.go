// File: cmd/placement/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// placement reports which logical CPU every worker of every rank of a hybrid
// job runs on. Start one copy per rank under the job launcher; rank 0 prints
// the report on stdout.
//
// Worker count comes from OMP_NUM_THREADS (see --workers-env) and rank/size
// from the launcher environment (Open MPI, PMI, PMIx or Slurm). Without a
// launcher the process is a single-rank job. --simulate runs a whole job in
// this process.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/momentics/hioload-placement/affinity"
	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/control"
	"github.com/momentics/hioload-placement/internal/collective"
	"github.com/momentics/hioload-placement/internal/placement"
	"github.com/momentics/hioload-placement/internal/probe"
	"github.com/momentics/hioload-placement/internal/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// run executes one participant. The report goes to stdout; lookup reads the
// environment and defaults to the process environment when nil.
func run(args []string, stdout io.Writer, lookup control.LookupFunc) error {
	cfg := control.DefaultConfig()
	flagSet := pflag.NewFlagSet("placement", pflag.ContinueOnError)
	cfg.BindFlags(flagSet)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return api.Wrap(api.ErrCodeConfig, err, "invalid command line")
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return api.Wrap(api.ErrCodeConfig, api.ErrInvalidArgument, "unexpected argument").
			WithContext("arg", rest[0])
	}
	if err := cfg.Resolve(flagSet, lookup); err != nil {
		return err
	}

	level, _ := control.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := probe.Hostname()
	if err != nil {
		return err
	}
	prober := probe.NewProber(host, affinity.Source)
	metrics := control.NewMetricsRegistry()

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("host", func() any { return host })
	logger.LogAttrs(ctx, slog.LevelDebug, "platform", probes.LogAttrs()...)

	if len(cfg.Simulate) > 0 {
		logger.Debug("simulating job", "workers", cfg.Simulate)
		_, err := placement.Simulate(ctx, cfg.Simulate, placement.SimOptions{
			Prober:  prober,
			Out:     stdout,
			Format:  format,
			Logger:  logger,
			Metrics: metrics,
		})
		logger.LogAttrs(ctx, slog.LevelDebug, "timings", metrics.LogAttrs()...)
		return err
	}

	logger.Debug("bootstrapping", "rank", cfg.Rank, "size", cfg.Size, "via", cfg.Launcher,
		"coordinator", cfg.Coordinator, "workers", cfg.Workers)
	comm, err := collective.Connect(ctx, collective.Options{
		Rank:           cfg.Rank,
		Size:           cfg.Size,
		Coordinator:    cfg.Coordinator,
		Listen:         cfg.Listen,
		JobID:          cfg.JobID,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer comm.Close()

	_, err = placement.Run(ctx, placement.Options{
		Comm:    comm,
		Workers: cfg.Workers,
		Prober:  prober,
		Out:     stdout,
		Format:  format,
		Logger:  logger,
		Metrics: metrics,
	})
	logger.LogAttrs(ctx, slog.LevelDebug, "timings", metrics.LogAttrs()...)
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `placement: report the logical CPU of every worker of every rank.

Usage:
  placement [flags]

Examples:
  # Four ranks of three workers under Open MPI
  OMP_NUM_THREADS=3 mpirun -np 4 -x PLACEMENT_COORDINATOR=node0:7100 placement

  # Slurm
  srun -n 2 -c 8 --export=ALL,OMP_NUM_THREADS=8 placement --coordinator node0:7100 --listen :7100

  # Heterogeneous job simulated in one process
  placement --simulate 2,3 --format yaml

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
