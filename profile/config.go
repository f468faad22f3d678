package profile

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DefaultMemProfileRate matches the runtime default.
const DefaultMemProfileRate = 512 * 1024

// Flags holds CLI flag names for profiling configuration.
type Flags struct {
	CPUProfile     string
	HeapProfile    string
	AllocsProfile  string
	Trace          string
	MemProfileRate string
}

// NewConfig creates a [Config] using these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{Flags: f}
}

// Config holds profile output paths. Empty paths are disabled, so a zero
// Config profiles nothing.
type Config struct {
	Flags Flags

	CPUProfile    string
	HeapProfile   string
	AllocsProfile string
	Trace         string

	MemProfileRate int
}

// NewConfig returns a [Config] with default flag names.
func NewConfig() *Config {
	return Flags{
		CPUProfile:     "cpu-profile",
		HeapProfile:    "heap-profile",
		AllocsProfile:  "allocs-profile",
		Trace:          "trace",
		MemProfileRate: "mem-profile-rate",
	}.NewConfig()
}

// RegisterFlags adds profiling flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.CPUProfile, c.Flags.CPUProfile, "", "write CPU profile to file")
	flags.StringVar(&c.HeapProfile, c.Flags.HeapProfile, "", "write heap profile to file on exit")
	flags.StringVar(&c.AllocsProfile, c.Flags.AllocsProfile, "", "write allocs profile to file on exit")
	flags.StringVar(&c.Trace, c.Flags.Trace, "", "write execution trace to file")
	flags.IntVar(&c.MemProfileRate, c.Flags.MemProfileRate, DefaultMemProfileRate, "memory profile rate (bytes per sample)")
}

// RegisterCompletions registers shell completions for profile flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.MemProfileRate, cobra.NoFileCompletions)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.MemProfileRate, err)
	}

	return nil
}

// Enabled reports whether any output is configured.
func (c *Config) Enabled() bool {
	return c.CPUProfile != "" || c.HeapProfile != "" || c.AllocsProfile != "" || c.Trace != ""
}

// NewProfiler creates a [Profiler] from this [Config].
func (c *Config) NewProfiler() *Profiler {
	return &Profiler{cfg: *c}
}
