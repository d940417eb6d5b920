package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSharpe_DefaultSample(t *testing.T) {
	out := execute(t, "sharpe", "--periods-per-year", "12")
	assert.Equal(t, "Sharpe: 0.0000\n", out)
}

func TestSharpe_Args(t *testing.T) {
	// mean 0.02, sample stdev 0.01, sqrt(4) = 2
	out := execute(t, "sharpe", "--periods-per-year", "4", "0.01", "0.02", "0.03")
	assert.Equal(t, "Sharpe: 4.0000\n", out)
}

func TestSharpe_Undefined(t *testing.T) {
	out := execute(t, "sharpe", "--periods-per-year", "252", "0.01")
	assert.Equal(t, "Sharpe: n/a\n", out)
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "quantlab dev")
}

func TestApplyRunFlags(t *testing.T) {
	require.NoError(t, runCmd.ParseFlags([]string{"--lookback", "63", "--rebalance", "weekly", "--refresh"}))
	t.Cleanup(func() {
		runCmd.Flags().Set("lookback", "0")
		runCmd.Flags().Set("rebalance", "")
		runCmd.Flags().Set("refresh", "false")
	})

	cfg := config.Defaults()
	applyRunFlags(runCmd, cfg)

	assert.Equal(t, 63, cfg.Strategy.Lookback)
	assert.Equal(t, "weekly", cfg.Strategy.Rebalance)
	assert.True(t, cfg.Data.Refresh)
	// Unset flags keep config values
	assert.Equal(t, 5.0, cfg.Strategy.CostBps)
	assert.Equal(t, config.SourceSynthetic, cfg.Data.Source)
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "1.2346", formatMetric(1.23456))
}
