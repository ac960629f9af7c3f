package swaplog

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestNewSubsystemIsIdempotentPerTag(t *testing.T) {
	a := NewSubsystem("TEST")
	b := NewSubsystem("TEST")
	require.Same(t, a, b)
}

func TestSetLevelOnlyAffectsNamedSubsystem(t *testing.T) {
	NewSubsystem("ALFA")
	NewSubsystem("BETA")

	require.True(t, SetLevel("ALFA", btclog.LevelError))
	require.False(t, SetLevel("NOPE", btclog.LevelError))
}

func TestInitLogRotatorAttachesFileSink(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "swapd.log")
	require.NoError(t, InitLogRotator(logFile, 256, 3))

	l := NewSubsystem("RTTR")
	l.Info("rotator attached")
}
