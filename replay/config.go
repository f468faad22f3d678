package replay

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/courtois-neuromod/vgutils/retro"
)

// Flags holds CLI flag names for replay configuration.
type Flags struct {
	SkipFirstStep string
	Game          string
	Scenario      string
	State         string
	Integrations  string
	DataRoot      string
	CustomData    string
	Players       string
}

// NewConfig creates a [Config] using these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{Flags: f}
}

// Config holds CLI flag values for replay configuration.
//
// Create instances with [NewConfig], register flags with
// [Config.RegisterFlags] and build [Options] with [Config.Options].
type Config struct {
	Flags         Flags
	Game          string
	Scenario      string
	State         string
	Integrations  string
	DataRoot      string
	CustomData    []string
	Players       int
	SkipFirstStep bool
}

// NewConfig returns a [Config] with default flag names.
func NewConfig() *Config {
	return Flags{
		SkipFirstStep: "skip-first-step",
		Game:          "game",
		Scenario:      "scenario",
		State:         "state",
		Integrations:  "integrations",
		DataRoot:      "data-root",
		CustomData:    "data-dir",
		Players:       "players",
	}.NewConfig()
}

// RegisterFlags adds replay flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&c.SkipFirstStep, c.Flags.SkipFirstStep, true,
		"drop the first logged step (set for the first movie of each run)")
	flags.StringVar(&c.Game, c.Flags.Game, "",
		"game name (default: read from the movie)")
	flags.StringVar(&c.Scenario, c.Flags.Scenario, "",
		"scenario file in the integration directory (default: scenario.json)")
	flags.StringVar(&c.State, c.Flags.State, retro.StateDefault,
		"initial state name, or \"none\" (default: metadata.json default_state)")
	flags.StringVar(&c.Integrations, c.Flags.Integrations, "custom_only",
		fmt.Sprintf("integration types to search, comma separated: %s", retro.IntegrationNames()))
	flags.StringVar(&c.DataRoot, c.Flags.DataRoot, retro.DefaultDataPaths().Root,
		"root holding stable/experimental/contrib integrations")
	flags.StringSliceVar(&c.CustomData, c.Flags.CustomData, nil,
		"custom integration directory (repeatable)")
	flags.IntVar(&c.Players, c.Flags.Players, 0,
		"number of controllers (default: read from the movie)")
}

// RegisterCompletions registers shell completions for replay flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Integrations,
		cobra.FixedCompletions(retro.IntegrationNames(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Integrations, err)
	}

	err = cmd.MarkFlagDirname(c.Flags.CustomData)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.CustomData, err)
	}

	err = cmd.MarkFlagDirname(c.Flags.DataRoot)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.DataRoot, err)
	}

	return nil
}

// Options builds replay [Options] from the flag values.
func (c *Config) Options(logger *slog.Logger) (Options, error) {
	inttype, err := retro.ParseIntegrations(c.Integrations)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", retro.ErrConfiguration, err)
	}

	return Options{
		Logger:        logger,
		Game:          c.Game,
		Scenario:      c.Scenario,
		State:         c.State,
		Integrations:  inttype,
		DataPaths:     retro.DataPaths{Root: c.DataRoot, Custom: c.CustomData},
		Players:       c.Players,
		SkipFirstStep: c.SkipFirstStep,
	}, nil
}
