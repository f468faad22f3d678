package media

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for media configuration.
type Flags struct {
	FFmpeg  string
	TempDir string
	FPS     string
	Audio   string
}

// NewConfig creates a [Config] using these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{Flags: f}
}

// Config holds CLI flag values for media configuration.
type Config struct {
	Flags   Flags
	FFmpeg  string
	TempDir string
	Audio   string
	FPS     float64
}

// NewConfig returns a [Config] with default flag names.
func NewConfig() *Config {
	return Flags{
		FFmpeg:  "ffmpeg",
		TempDir: "temp-dir",
		FPS:     "fps",
		Audio:   "audio",
	}.NewConfig()
}

// RegisterFlags adds media flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.FFmpeg, c.Flags.FFmpeg, DefaultFFmpeg, "ffmpeg binary name or path")
	flags.StringVar(&c.TempDir, c.Flags.TempDir, "", "directory for temporary files (default: system temp dir)")
	flags.Float64Var(&c.FPS, c.Flags.FPS, DefaultFPS, "mp4 frame rate")
	flags.StringVar(&c.Audio, c.Flags.Audio, "", "audio file (.wav or .mp3) to mux into mp4 output")
}

// RegisterCompletions registers shell completions for media flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.MarkFlagDirname(c.Flags.TempDir)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.TempDir, err)
	}

	err = cmd.MarkFlagFilename(c.Flags.Audio, "wav", "mp3")
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Audio, err)
	}

	return nil
}

// NewEncoder creates an [Encoder] from the flag values.
func (c *Config) NewEncoder(logger *slog.Logger) *Encoder {
	return NewEncoder(
		WithFFmpeg(c.FFmpeg),
		WithTempDir(c.TempDir),
		WithLogger(logger),
	)
}

// MP4Options builds [MP4Option] values from the flag values, loading the
// audio file when set.
func (c *Config) MP4Options() ([]MP4Option, error) {
	opts := []MP4Option{WithFPS(c.FPS)}
	if c.Audio == "" {
		return opts, nil
	}

	a, err := LoadAudio(c.Audio)
	if err != nil {
		return nil, err
	}

	return append(opts, WithAudioTrack(a)), nil
}
