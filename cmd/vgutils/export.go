package main

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/courtois-neuromod/vgutils/media"
	"github.com/courtois-neuromod/vgutils/replay"
)

type exportCmd struct {
	*app

	replay *replay.Config
	media  *media.Config
}

func (a *app) newExportCmd() *cobra.Command {
	c := &exportCmd{
		app:    a,
		replay: replay.NewConfig(),
		media:  media.NewConfig(),
	}

	cmd := &cobra.Command{
		Use:   "export [flags] <movie.bk2> <output.gif|output.webp|output.mp4>",
		Short: "Replay a movie and export its frames as a video",
		Long: `export replays a movie and writes its frames in the format given by the
output extension. MP4 output can carry an audio track read from --audio.
WebP and MP4 export require ffmpeg.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: exportArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], args[1])
		},
	}

	c.replay.RegisterFlags(cmd.Flags())
	c.media.RegisterFlags(cmd.Flags())

	for _, fn := range []func(*cobra.Command) error{
		c.replay.RegisterCompletions,
		c.media.RegisterCompletions,
	} {
		err := fn(cmd)
		if err != nil {
			fmt.Fprintf(a.stderr, "register completions: %v\n", err)
		}
	}

	return cmd
}

func (c *exportCmd) run(cmd *cobra.Command, movie, out string) error {
	_, err := media.KindFromPath(out)
	if err != nil {
		return err
	}

	opts, err := c.replay.Options(c.logger)
	if err != nil {
		return err
	}

	mp4Opts, err := c.media.MP4Options()
	if err != nil {
		return err
	}

	var frames []*image.RGBA

	for step, err := range replay.Steps(movie, opts) {
		if err != nil {
			return err
		}

		frames = append(frames, step.Frame)
	}

	err = c.media.NewEncoder(c.logger).Export(cmd.Context(), media.AsImages(frames), out, mp4Opts...)
	if err != nil {
		return err
	}

	c.logger.Info("exported frames", slog.String("path", out), slog.Int("frames", len(frames)))

	return nil
}

func exportArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return movieArgs(cmd, args, toComplete)
	case 1:
		return media.KindNames(), cobra.ShellCompDirectiveFilterFileExt
	}

	return nil, cobra.ShellCompDirectiveNoFileComp
}
