package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courtois-neuromod/vgutils/dataset"
	"github.com/courtois-neuromod/vgutils/media"
	"github.com/courtois-neuromod/vgutils/replay"
)

type replayCmd struct {
	*app

	replay    *replay.Config
	media     *media.Config
	outputDir string
	format    string
	export    []string
	fill      int
	schema    bool
}

func (a *app) newReplayCmd() *cobra.Command {
	c := &replayCmd{
		app:    a,
		replay: replay.NewConfig(),
		media:  media.NewConfig(),
	}

	cmd := &cobra.Command{
		Use:   "replay [flags] <movie.bk2>...",
		Short: "Replay movies and write their per-frame variables",
		Long: `replay runs each movie to its end and writes a variables file holding the
filename entities, the button names and one series per info variable and per
button. With --export, the replayed frames are also written as videos.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: movieArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	c.replay.RegisterFlags(flags)
	c.media.RegisterFlags(flags)
	flags.StringVarP(&c.outputDir, "output-dir", "o", "", "output directory (default: next to each movie)")
	flags.StringVarP(&c.format, "format", "f", string(dataset.FormatJSON),
		fmt.Sprintf("variables format, one of: %s", dataset.Formats()))
	flags.StringSliceVar(&c.export, "export", nil,
		fmt.Sprintf("also export frames, comma separated: %s", media.KindNames()))
	flags.IntVar(&c.fill, "fill", 0, "value for info variables missing from a frame")
	flags.BoolVar(&c.schema, "schema", false, "also write the JSON schema of each variables file")

	for _, fn := range []func(*cobra.Command) error{
		c.replay.RegisterCompletions,
		c.media.RegisterCompletions,
		func(cmd *cobra.Command) error {
			return cmd.RegisterFlagCompletionFunc("format",
				cobra.FixedCompletions(dataset.Formats(), cobra.ShellCompDirectiveNoFileComp))
		},
		func(cmd *cobra.Command) error {
			return cmd.RegisterFlagCompletionFunc("export",
				cobra.FixedCompletions(media.KindNames(), cobra.ShellCompDirectiveNoFileComp))
		},
		func(cmd *cobra.Command) error {
			return cmd.MarkFlagDirname("output-dir")
		},
	} {
		err := fn(cmd)
		if err != nil {
			fmt.Fprintf(a.stderr, "register completions: %v\n", err)
		}
	}

	return cmd
}

func (c *replayCmd) run(cmd *cobra.Command, movies []string) error {
	format, err := dataset.ParseFormat(c.format)
	if err != nil {
		return err
	}

	kinds := make([]media.Kind, 0, len(c.export))
	for _, k := range c.export {
		kind, err := media.KindFromPath("." + k)
		if err != nil {
			return err
		}

		kinds = append(kinds, kind)
	}

	opts, err := c.replay.Options(c.logger)
	if err != nil {
		return err
	}

	var mp4Opts []media.MP4Option
	if len(kinds) > 0 {
		mp4Opts, err = c.media.MP4Options()
		if err != nil {
			return err
		}
	}

	enc := c.media.NewEncoder(c.logger)

	var errs []error

	for _, movie := range movies {
		err := c.replayOne(cmd, movie, format, kinds, opts, enc, mp4Opts)
		if err != nil {
			c.logger.Error("replay failed", slog.String("movie", movie), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", movie, err))
		}
	}

	return errors.Join(errs...)
}

func (c *replayCmd) replayOne(
	cmd *cobra.Command,
	movie string,
	format dataset.Format,
	kinds []media.Kind,
	opts replay.Options,
	enc *media.Encoder,
	mp4Opts []media.MP4Option,
) error {
	res, err := replay.Collect(movie, opts, dataset.WithFill(c.fill))
	if err != nil {
		return err
	}

	base := c.outputBase(movie)

	err = os.MkdirAll(filepath.Dir(base), 0o750)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	varsPath := base + "." + string(format)

	err = dataset.WriteFile(varsPath, res.Variables)
	if err != nil {
		return fmt.Errorf("writing variables: %w", err)
	}

	c.logger.Info("wrote variables",
		slog.String("path", varsPath),
		slog.Int("frames", res.Variables.Frames),
		slog.Bool("done", res.Done),
	)

	if c.schema {
		err = writeSchema(base+".schema.json", res.Variables)
		if err != nil {
			return err
		}
	}

	frames := media.AsImages(res.Frames)

	for _, kind := range kinds {
		path := base + "." + string(kind)

		err = enc.Export(cmd.Context(), frames, path, mp4Opts...)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", kind, err)
		}

		c.logger.Info("exported frames", slog.String("path", path))
	}

	return nil
}

// outputBase returns the output path of movie without extension.
func (c *replayCmd) outputBase(movie string) string {
	base := strings.TrimSuffix(movie, filepath.Ext(movie))
	if c.outputDir == "" {
		return base
	}

	return filepath.Join(c.outputDir, filepath.Base(base))
}

func writeSchema(path string, v *dataset.Variables) error {
	out, err := json.MarshalIndent(v.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}

	err = os.WriteFile(path, append(out, '\n'), 0o644) //nolint:gosec // Output files are meant to be shared.
	if err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}

	return nil
}
