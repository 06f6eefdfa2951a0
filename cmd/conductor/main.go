// Command conductor runs the Astria rollup conductor: it drives a single
// rollup's execution by establishing an execution session with the
// rollup's execution API and feeding it firm and soft blocks in height
// order until shut down or its configured stop height is reached.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/astriaorg/conductor/celestia"
	"github.com/astriaorg/conductor/config"
	"github.com/astriaorg/conductor/executor"
	"github.com/astriaorg/conductor/metrics"
	"github.com/astriaorg/conductor/sequencer"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	app := &cli.App{
		Name:  "conductor",
		Usage: "drive a rollup's execution from Celestia and sequencer block streams",
		Flags: config.Flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromCLIContext(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	glogHandler := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	glogHandler.Verbosity(lvl)
	log.SetDefault(log.NewLogger(glogHandler))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	metricsServer := metrics.NewServer(cfg.MetricsHTTPListenAddr)
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed starting metrics server: %w", err)
	}
	defer metricsServer.Stop()

	conn, err := grpc.NewClient(cfg.ExecutionRPCURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed dialing execution rpc %s: %w", cfg.ExecutionRPCURL, err)
	}
	defer conn.Close()

	client := executor.NewGRPCClient(conn, executor.BackoffConfig{BoundedMaxElapsed: cfg.RPCBoundedMaxElapsed}, m)

	exec := executor.Builder{
		Config:                  executor.Config{CommitLevel: cfg.CommitLevel},
		Client:                  client,
		Metrics:                 m,
		CelestiaFetcher:         celestia.NewHTTPFetcher(cfg.CelestiaRPCURL, cfg.CelestiaBearerToken, nil),
		CelestiaBlockTime:       cfg.CelestiaBlockTime,
		SequencerOpener:         sequencer.NewTendermintOpener(cfg.SequencerGRPCURL),
		SequencerReconnectDelay: cfg.SequencerReconnectDelay,
	}.Build()

	log.Info("starting conductor", "commit_level", cfg.CommitLevel)
	snapshot, err := exec.RunUntilStoppedOrStopHeightReached(ctx)
	if err != nil {
		return fmt.Errorf("conductor exited with an error: %w", err)
	}
	if snapshot != nil {
		log.Info("conductor stopped",
			"firm_block_number", snapshot.Commitment.Firm.Number,
			"soft_block_number", snapshot.Commitment.Soft.Number)
	}
	return nil
}
