// Package config defines the conductor's command-line surface, built on
// urfave/cli/v2, with every flag also readable from an
// ASTRIA_CONDUCTOR_-prefixed environment variable.
package config

import (
	"fmt"
	"time"

	"github.com/astriaorg/conductor/state"
	"github.com/urfave/cli/v2"
)

const envPrefix = "ASTRIA_CONDUCTOR_"

var (
	executionRPCURLFlag = &cli.StringFlag{
		Name:     "execution-rpc-url",
		Usage:    "address of the rollup's execution gRPC API",
		EnvVars:  []string{envPrefix + "EXECUTION_RPC_URL"},
		Required: true,
	}
	sequencerGRPCURLFlag = &cli.StringFlag{
		Name:    "sequencer-grpc-url",
		Usage:   "address of the sequencer gRPC API providing the soft block stream",
		EnvVars: []string{envPrefix + "SEQUENCER_GRPC_URL"},
	}
	celestiaRPCURLFlag = &cli.StringFlag{
		Name:    "celestia-rpc-url",
		Usage:   "address of the Celestia node providing firm block data",
		EnvVars: []string{envPrefix + "CELESTIA_RPC_URL"},
	}
	celestiaBearerTokenFlag = &cli.StringFlag{
		Name:    "celestia-bearer-token",
		Usage:   "bearer token for the Celestia node's RPC API",
		EnvVars: []string{envPrefix + "CELESTIA_BEARER_TOKEN"},
	}
	commitLevelFlag = &cli.StringFlag{
		Name:    "execution-commit-level",
		Usage:   "one of soft-only, firm-only, soft-and-firm",
		Value:   "soft-and-firm",
		EnvVars: []string{envPrefix + "EXECUTION_COMMIT_LEVEL"},
	}
	celestiaBlockTimeFlag = &cli.DurationFlag{
		Name:    "celestia-block-time",
		Usage:   "polling interval for new Celestia blocks",
		Value:   12 * time.Second,
		EnvVars: []string{envPrefix + "CELESTIA_BLOCK_TIME"},
	}
	sequencerReconnectDelayFlag = &cli.DurationFlag{
		Name:    "sequencer-reconnect-delay",
		Usage:   "delay before reopening a dropped sequencer block stream",
		Value:   time.Second,
		EnvVars: []string{envPrefix + "SEQUENCER_RECONNECT_DELAY"},
	}
	rpcBoundedMaxElapsedFlag = &cli.DurationFlag{
		Name:    "execution-rpc-max-elapsed",
		Usage:   "max time to keep retrying a bounded execution RPC before giving up",
		Value:   30 * time.Second,
		EnvVars: []string{envPrefix + "EXECUTION_RPC_MAX_ELAPSED"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "one of trace, debug, info, warn, error, crit",
		Value:   "info",
		EnvVars: []string{envPrefix + "LOG_LEVEL"},
	}
	metricsListenAddrFlag = &cli.StringFlag{
		Name:    "metrics-http-listen-addr",
		Usage:   "listen address for the metrics/health HTTP endpoint, empty disables it",
		EnvVars: []string{envPrefix + "METRICS_HTTP_LISTEN_ADDR"},
	}
	noMetricsFlag = &cli.BoolFlag{
		Name:    "no-metrics",
		Usage:   "disable metrics collection entirely",
		EnvVars: []string{envPrefix + "NO_METRICS"},
	}
)

// Flags is the full flag set for the run command.
var Flags = []cli.Flag{
	executionRPCURLFlag,
	sequencerGRPCURLFlag,
	celestiaRPCURLFlag,
	celestiaBearerTokenFlag,
	commitLevelFlag,
	celestiaBlockTimeFlag,
	sequencerReconnectDelayFlag,
	rpcBoundedMaxElapsedFlag,
	logLevelFlag,
	metricsListenAddrFlag,
	noMetricsFlag,
}

// Config is the fully parsed, validated configuration for a conductor run.
type Config struct {
	ExecutionRPCURL string

	SequencerGRPCURL string
	CelestiaRPCURL   string
	CelestiaBearerToken string

	CommitLevel state.CommitLevel

	CelestiaBlockTime       time.Duration
	SequencerReconnectDelay time.Duration
	RPCBoundedMaxElapsed    time.Duration

	LogLevel string

	MetricsEnabled        bool
	MetricsHTTPListenAddr string
}

// FromCLIContext builds and validates a Config from parsed CLI flags.
func FromCLIContext(c *cli.Context) (Config, error) {
	commitLevel, err := parseCommitLevel(c.String(commitLevelFlag.Name))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ExecutionRPCURL:         c.String(executionRPCURLFlag.Name),
		SequencerGRPCURL:        c.String(sequencerGRPCURLFlag.Name),
		CelestiaRPCURL:          c.String(celestiaRPCURLFlag.Name),
		CelestiaBearerToken:     c.String(celestiaBearerTokenFlag.Name),
		CommitLevel:             commitLevel,
		CelestiaBlockTime:       c.Duration(celestiaBlockTimeFlag.Name),
		SequencerReconnectDelay: c.Duration(sequencerReconnectDelayFlag.Name),
		RPCBoundedMaxElapsed:    c.Duration(rpcBoundedMaxElapsedFlag.Name),
		LogLevel:                c.String(logLevelFlag.Name),
		MetricsEnabled:          !c.Bool(noMetricsFlag.Name),
		MetricsHTTPListenAddr:   c.String(metricsListenAddrFlag.Name),
	}

	if commitLevel.IsWithSoft() && cfg.SequencerGRPCURL == "" {
		return Config{}, fmt.Errorf("%s requires %s", commitLevelFlag.Name, sequencerGRPCURLFlag.Name)
	}
	if commitLevel.IsWithFirm() && cfg.CelestiaRPCURL == "" {
		return Config{}, fmt.Errorf("%s requires %s", commitLevelFlag.Name, celestiaRPCURLFlag.Name)
	}

	return cfg, nil
}

func parseCommitLevel(s string) (state.CommitLevel, error) {
	switch s {
	case "soft-only":
		return state.SoftOnly, nil
	case "firm-only":
		return state.FirmOnly, nil
	case "soft-and-firm":
		return state.SoftAndFirm, nil
	default:
		return 0, fmt.Errorf("unknown %s %q", commitLevelFlag.Name, s)
	}
}
