package swapcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigRejectsNoActiveLedger(t *testing.T) {
	dataDir := t.TempDir()
	_, err := LoadConfig([]string{"--datadir", dataDir})
	require.Error(t, err)
}

func TestLoadConfigRequiresRPCHostForActiveBitcoin(t *testing.T) {
	dataDir := t.TempDir()
	_, err := LoadConfig([]string{"--datadir", dataDir, "--bitcoin.active"})
	require.Error(t, err)
}

func TestLoadConfigAcceptsMinimalValidBitcoinConfig(t *testing.T) {
	dataDir := t.TempDir()
	cfg, err := LoadConfig([]string{
		"--datadir", dataDir,
		"--bitcoin.active",
		"--bitcoin.rpchost", "127.0.0.1:18443",
	})
	require.NoError(t, err)
	require.True(t, cfg.Bitcoin.Active)
	require.Equal(t, "127.0.0.1:18443", cfg.Bitcoin.RPCHost)
	require.Equal(t, uint32(defaultPollInterval), cfg.PollIntervalSeconds)
}

func TestLoadConfigFlagsOverrideConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	configFile := filepath.Join(dataDir, defaultConfigFilename)
	contents := "[Application Options]\npollinterval=30\n\n[Bitcoin]\nactive=true\nrpchost=file-host:18443\n"
	require.NoError(t, os.WriteFile(configFile, []byte(contents), 0600))

	cfg, err := LoadConfig([]string{
		"--datadir", dataDir,
		"--bitcoin.rpchost", "flag-host:18443",
	})
	require.NoError(t, err)
	require.Equal(t, "flag-host:18443", cfg.Bitcoin.RPCHost)
	require.Equal(t, uint32(30), cfg.PollIntervalSeconds)
}

func TestLogFileJoinsLogDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = "/tmp/swapd-logs"
	require.Equal(t, "/tmp/swapd-logs/swapd.log", cfg.LogFile())
}
