package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, debug = "", false
		parseChannel, parseFormat = "cli", "json"
		versionShort = false
		simulateFile, simulateTicks, simulateSeed, simulateJSON = "", 10, 1, false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "parse", "BUY", "BTC", "@", "44500")
	require.NoError(t, err)
	assert.Contains(t, out, `"symbol": "BTC"`)
	assert.Contains(t, out, `"price": 44500`)
	assert.Contains(t, out, `"channel": "cli"`)

	out, err = execute(t, "parse", "good morning")
	require.NoError(t, err)
	assert.Equal(t, "no signal\n", out)
}

func TestParseCommand_YAML(t *testing.T) {
	out, err := execute(t, "parse", "--format", "yaml", "SELL GOLD $2,000")
	require.NoError(t, err)
	assert.Contains(t, out, "symbol: GOLD")
	assert.Contains(t, out, "direction: SELL")

	_, err = execute(t, "parse", "--format", "xml", "BUY BTC")
	assert.Error(t, err)
}

func TestSimulateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.txt")
	alerts := strings.Join([]string{
		"BUY BTC @ 44500",
		"",
		"gm traders",
		"SELL GOLD $2,000",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(alerts), 0o644))

	out, err := execute(t, "simulate", "--file", path, "--ticks", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Alerts:       3 (2 parsed, 2 executed)")
	assert.Contains(t, out, "Ticks:        3")
}

func TestSimulateCommand_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.txt")
	require.NoError(t, os.WriteFile(path, []byte("BUY ETH @ 2500\n"), 0o644))

	out, err := execute(t, "simulate", "-f", path, "--ticks", "0", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"metrics"`)
	assert.Contains(t, out, `"open_trades": 1`)
}

func TestSimulateCommand_RequiresFile(t *testing.T) {
	_, err := execute(t, "simulate")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signalbook dev")
	assert.Contains(t, out, "Go:")

	out, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}
