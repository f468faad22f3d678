package replay

import (
	"image"
	"log/slog"

	"github.com/courtois-neuromod/vgutils/dataset"
)

// Result is a fully replayed movie.
type Result struct {
	Variables *dataset.Variables
	Info      []map[string]int
	Frames    []*image.RGBA
	States    [][]byte
	// Done reports whether the last step met the scenario's done condition.
	Done bool
}

// Collect replays the movie at path to the end and reshapes the steps into
// [dataset.Variables]. When the last step is not done a warning is logged:
// the movie probably needs a different Options.SkipFirstStep.
func Collect(path string, opts Options, reformat ...dataset.Option) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{}

	var (
		keys    [][]bool
		actions []string
	)

	for step, err := range Steps(path, opts) {
		if err != nil {
			return nil, err
		}

		keys = append(keys, step.Keys)
		res.Info = append(res.Info, step.Annotations.Info)
		res.Frames = append(res.Frames, step.Frame)
		res.States = append(res.States, step.State)
		res.Done = step.Annotations.Done
		actions = step.Actions
	}

	reformat = append([]dataset.Option{dataset.WithLogger(logger)}, reformat...)

	vars, err := dataset.Reformat(res.Info, keys, path, actions, reformat...)
	if err != nil {
		return nil, err
	}

	res.Variables = vars

	if !res.Done {
		logger.Warn("done condition not satisfied, consider changing skip-first-step",
			slog.String("movie", path),
			slog.Int("frames", vars.Frames),
		)
	}

	return res, nil
}
