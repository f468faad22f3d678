// Command vgutils replays BK2 movies recorded in the CNeuroMod video game
// tasks and exports their variables, frames and videos.
//
// # Usage
//
//	vgutils replay [flags] <movie.bk2>...
//	vgutils export [flags] <movie.bk2> <output.gif|output.webp|output.mp4>
//	vgutils preview [flags] <movie.bk2>
//	vgutils version
//
// Emulator cores are linked in by registering them with
// [retro.RegisterCore]; a movie whose system has no registered core fails
// with a configuration error.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/courtois-neuromod/vgutils/log"
	"github.com/courtois-neuromod/vgutils/profile"
	"github.com/courtois-neuromod/vgutils/retro"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// app holds state shared by all subcommands.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	log      *log.Config
	profile  *profile.Config
	profiler *profile.Profiler
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout:  stdout,
		stderr:  stderr,
		logger:  log.Discard(),
		log:     log.NewConfig(),
		profile: profile.NewConfig(),
	}

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	if a.profiler != nil {
		stopErr := a.profiler.Stop()
		if stopErr != nil {
			a.logger.Error("writing profiles", slog.Any("err", stopErr))
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)

		return 1
	}

	return 0
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vgutils",
		Short: "Replay and export CNeuroMod video game recordings",
		Long: `vgutils replays BK2 movies through a registered emulator core and turns
them into per-frame variables (json, yaml or tsv) and GIF, WebP or MP4 videos.

Integrations are searched in the directories given with --data-dir, then in
--data-root (default $RETRO_DATA_PATH).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			h, err := a.log.NewHandler(a.stderr)
			if err != nil {
				return err
			}

			a.logger = slog.New(h)
			a.logger.Debug("registered cores", slog.Any("systems", retro.Systems()))

			a.profiler = a.profile.NewProfiler()

			return a.profiler.Start()
		},
	}

	a.log.RegisterFlags(root.PersistentFlags())
	a.profile.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.newReplayCmd(),
		a.newExportCmd(),
		a.newPreviewCmd(),
		a.newVersionCmd(),
	)

	a.registerCompletions(root)

	return root
}

func (a *app) registerCompletions(root *cobra.Command) {
	for _, fn := range []func(*cobra.Command) error{
		a.log.RegisterCompletions,
		a.profile.RegisterCompletions,
	} {
		err := fn(root)
		if err != nil {
			fmt.Fprintf(a.stderr, "register completions: %v\n", err)
		}
	}
}

// movieArgs completes .bk2 files.
func movieArgs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"bk2"}, cobra.ShellCompDirectiveFilterFileExt
}
