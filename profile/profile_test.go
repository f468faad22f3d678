package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/profile"
)

func TestRegisterFlags(t *testing.T) {
	t.Parallel()

	cfg := profile.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(flags)

	require.NoError(t, flags.Parse(nil))
	assert.False(t, cfg.Enabled())
	assert.Equal(t, profile.DefaultMemProfileRate, cfg.MemProfileRate)

	require.NoError(t, flags.Parse([]string{
		"--heap-profile=heap.prof",
		"--allocs-profile=allocs.prof",
		"--mem-profile-rate=1024",
	}))

	assert.True(t, cfg.Enabled())
	assert.Equal(t, "heap.prof", cfg.HeapProfile)
	assert.Equal(t, "allocs.prof", cfg.AllocsProfile)
	assert.Equal(t, 1024, cfg.MemProfileRate)
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := profile.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))

	fn, ok := cmd.GetFlagCompletionFunc("mem-profile-rate")
	require.True(t, ok)

	values, directive := fn(cmd, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	assert.Empty(t, values)
}

// Not parallel: CPU profiling and tracing are process wide.
//
//nolint:paralleltest
func TestRun(t *testing.T) {
	dir := t.TempDir()

	cfg := profile.NewConfig()
	cfg.CPUProfile = filepath.Join(dir, "cpu.prof")
	cfg.HeapProfile = filepath.Join(dir, "heap.prof")
	cfg.AllocsProfile = filepath.Join(dir, "allocs.prof")
	cfg.Trace = filepath.Join(dir, "trace.out")

	errRun := errors.New("run failed")
	p := cfg.NewProfiler()

	err := p.Run(func() error {
		require.ErrorIs(t, p.Start(), profile.ErrStarted)

		return errRun
	})
	require.ErrorIs(t, err, errRun)

	for _, name := range []string{"cpu.prof", "heap.prof", "allocs.prof", "trace.out"} {
		info, statErr := os.Stat(filepath.Join(dir, name))
		require.NoError(t, statErr, name)
		assert.Positive(t, info.Size(), name)
	}

	require.NoError(t, p.Stop())
}
