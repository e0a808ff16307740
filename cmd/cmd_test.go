package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphweid/keystream/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestApplyOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerOverrides(fs)
	require.NoError(t, fs.Parse([]string{
		"--strategy=debounce",
		"--debounce=30ms",
		"--source=Launchkey",
		"--max-batch-size=16",
	}))

	cfg := config.Default()
	applyOverrides(fs, &cfg)

	assert.Equal(t, config.Debounce, cfg.Strategy)
	assert.Equal(t, 30*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, "Launchkey", cfg.Source)
	assert.Equal(t, 16, cfg.MaxBatchSize)
	// untouched flags keep the loaded value
	assert.Equal(t, config.Default().BatchWindow, cfg.BatchWindow)
	assert.Equal(t, config.Default().MaxBatchRate, cfg.MaxBatchRate)
}

func TestSampleInspectReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.mid")

	out := execute(t, "sample", path, "67-60-64", "_", "62")
	assert.Contains(t, out, "wrote 3 chords")

	out = execute(t, "inspect", path)
	assert.Contains(t, out, "C4")
	assert.Contains(t, out, "8 note events")

	out = execute(t, "replay", path, "--speed", "8", "--log-level", "error")
	assert.Contains(t, out, "60-64-67")
	assert.Contains(t, out, "C4 E4 G4")
	assert.Contains(t, out, "62 ")
	assert.Contains(t, out, "pipeline.end_to_end")
}

func TestSampleRejectsBadChord(t *testing.T) {
	rootCmd.SetArgs([]string{"sample", filepath.Join(t.TempDir(), "x.mid"), "60-999"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
