package config

import (
	"testing"

	"github.com/astriaorg/conductor/state"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var cfg Config
	var parseErr error
	app := &cli.App{
		Flags: Flags,
		Action: func(c *cli.Context) error {
			cfg, parseErr = FromCLIContext(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"conductor"}, args...)))
	return cfg, parseErr
}

func TestFromCLIContext_SoftAndFirmRequiresBothURLs(t *testing.T) {
	_, err := parse(t, "--execution-rpc-url", "localhost:1")
	require.Error(t, err)
}

func TestFromCLIContext_SoftOnlyRequiresSequencerURL(t *testing.T) {
	_, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--execution-commit-level", "soft-only",
	)
	require.Error(t, err)

	cfg, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--execution-commit-level", "soft-only",
		"--sequencer-grpc-url", "localhost:2",
	)
	require.NoError(t, err)
	require.Equal(t, state.SoftOnly, cfg.CommitLevel)
}

func TestFromCLIContext_FirmOnlyRequiresCelestiaURL(t *testing.T) {
	_, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--execution-commit-level", "firm-only",
	)
	require.Error(t, err)

	cfg, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--execution-commit-level", "firm-only",
		"--celestia-rpc-url", "localhost:3",
	)
	require.NoError(t, err)
	require.Equal(t, state.FirmOnly, cfg.CommitLevel)
}

func TestFromCLIContext_UnknownCommitLevel(t *testing.T) {
	_, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--execution-commit-level", "bogus",
	)
	require.Error(t, err)
}

func TestFromCLIContext_Defaults(t *testing.T) {
	cfg, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--sequencer-grpc-url", "localhost:2",
		"--celestia-rpc-url", "localhost:3",
	)
	require.NoError(t, err)
	require.Equal(t, state.SoftAndFirm, cfg.CommitLevel)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestFromCLIContext_NoMetricsDisables(t *testing.T) {
	cfg, err := parse(t,
		"--execution-rpc-url", "localhost:1",
		"--sequencer-grpc-url", "localhost:2",
		"--celestia-rpc-url", "localhost:3",
		"--no-metrics",
	)
	require.NoError(t, err)
	require.False(t, cfg.MetricsEnabled)
}
