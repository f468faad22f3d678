package replay_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/log"
	"github.com/courtois-neuromod/vgutils/movie"
	"github.com/courtois-neuromod/vgutils/replay"
	"github.com/courtois-neuromod/vgutils/retro"
	"github.com/courtois-neuromod/vgutils/retro/retrotest"
)

type fixture struct {
	tracker *retrotest.Tracker
	root    string
	movie   string
}

func newFixture(t *testing.T, cfg retrotest.Config, in retrotest.Integration, players int, state []byte, frames [][]bool) fixture {
	t.Helper()

	tr := retrotest.Register(cfg)
	root := t.TempDir()
	retrotest.WriteIntegration(t, root, tr, in)

	path := filepath.Join(t.TempDir(), "sub-01_ses-003_task-mario_level-w1l1_run-02.bk2")
	retrotest.WriteMovie(t, path, tr.Game, players, state, frames)

	return fixture{tracker: tr, root: root, movie: path}
}

func (f fixture) options() replay.Options {
	return replay.Options{
		Logger:       log.Discard(),
		DataPaths:    retro.DataPaths{Custom: []string{f.root}},
		Integrations: retro.CustomOnly,
	}
}

func countSteps(t *testing.T, path string, opts replay.Options) []replay.Step {
	t.Helper()

	var steps []replay.Step

	for step, err := range replay.Steps(path, opts) {
		require.NoError(t, err)

		steps = append(steps, step)
	}

	return steps
}

func TestStepsYieldsOneRecordPerLoggedStep(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(5, 1, 3))

	steps := countSteps(t, f.movie, f.options())
	require.Len(t, steps, 5)

	for i, step := range steps {
		assert.Equal(t, i, step.Index)
		assert.Len(t, step.Keys, len(retrotest.Buttons))
		assert.Equal(t, retrotest.Buttons, step.Actions)
		assert.NotNil(t, step.Frame)
		assert.NotEmpty(t, step.State)
		assert.Equal(t, i+1, step.Annotations.Info["frame"])
	}

	assert.True(t, steps[1].Keys[retrotest.ButtonA])
	assert.False(t, steps[2].Keys[retrotest.ButtonA])
	assert.Equal(t, 2, steps[4].Annotations.Info["score"])
	assert.InDelta(t, 1.0, steps[3].Annotations.Reward, 1e-9)
	assert.True(t, f.tracker.AllClosed())
}

func TestSkipFirstStepDropsOneRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(4, 0))

	all := countSteps(t, f.movie, f.options())

	opts := f.options()
	opts.SkipFirstStep = true

	skipped := countSteps(t, f.movie, opts)

	require.Len(t, all, 4)
	require.Len(t, skipped, 3)
	assert.True(t, all[0].Keys[retrotest.ButtonA])
	assert.False(t, skipped[0].Keys[retrotest.ButtonA], "the skipped step is never applied")
	assert.Zero(t, skipped[2].Annotations.Info["score"])
}

func TestStepsTwoPlayers(t *testing.T) {
	t.Parallel()

	frames := make([][]bool, 3)
	for i := range frames {
		frames[i] = make([]bool, 2*len(retrotest.Buttons))
	}

	frames[1][len(retrotest.Buttons)+retrotest.ButtonA] = true

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 2, nil, frames)

	steps := countSteps(t, f.movie, f.options())
	require.Len(t, steps, 3)

	for _, step := range steps {
		assert.Len(t, step.Keys, 2*len(retrotest.Buttons))
	}

	assert.Equal(t, frames[1], steps[1].Keys)
	assert.Zero(t, steps[2].Annotations.Info["score"], "player 2 does not score")
}

func TestStepsEarlyBreakReleasesResources(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(10))

	n := 0

	for _, err := range replay.Steps(f.movie, f.options()) {
		require.NoError(t, err)

		n++
		if n == 2 {
			break
		}
	}

	assert.Equal(t, 2, n)

	cores := f.tracker.Cores()
	require.Len(t, cores, 1)
	assert.Equal(t, 1, cores[0].CloseCount())
	assert.Equal(t, 2, cores[0].Frames())
}

func TestStepsPropagatesEmulatorErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{FailAt: 3}, retrotest.Integration{}, 1, nil, retrotest.Frames(5))

	var (
		n       int
		lastErr error
	)

	for _, err := range replay.Steps(f.movie, f.options()) {
		if err != nil {
			lastErr = err

			continue
		}

		n++
	}

	assert.Equal(t, 2, n)
	require.ErrorIs(t, lastErr, retrotest.ErrInjected)
	assert.True(t, f.tracker.AllClosed())
}

func TestMovieStateOverridesDefaultState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{
		DefaultState: "Start",
		States:       map[string][]byte{"Start": retrotest.State(100, 0, 3)},
	}, 1, retrotest.State(20, 40, 1), retrotest.Frames(1))

	steps := countSteps(t, f.movie, f.options())
	require.Len(t, steps, 1)
	assert.Equal(t, map[string]int{"frame": 21, "score": 40, "lives": 1}, steps[0].Annotations.Info)
}

func TestMovieWithoutStateKeepsDefaultState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{
		DefaultState: "Start",
		States:       map[string][]byte{"Start": retrotest.State(100, 0, 3)},
	}, 1, nil, retrotest.Frames(1))

	steps := countSteps(t, f.movie, f.options())
	require.Len(t, steps, 1)
	assert.Equal(t, 101, steps[0].Annotations.Info["frame"])
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("unparseable movie", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.bk2")
		require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))

		_, err := replay.Open(path, replay.Options{Logger: log.Discard()})
		require.ErrorIs(t, err, retro.ErrConfiguration)
		require.ErrorIs(t, err, movie.ErrInvalidMovie)
	})

	t.Run("game without integration", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(2))

		opts := f.options()
		opts.Game = "Unknown-" + f.tracker.System

		_, err := replay.Open(f.movie, opts)
		require.ErrorIs(t, err, retro.ErrConfiguration)
		assert.Empty(t, f.tracker.Cores())
	})

	t.Run("yielded by Steps", func(t *testing.T) {
		t.Parallel()

		var errs []error

		for _, err := range replay.Steps(filepath.Join(t.TempDir(), "missing.bk2"), replay.Options{Logger: log.Discard()}) {
			errs = append(errs, err)
		}

		require.Len(t, errs, 1)
		require.ErrorIs(t, errs[0], retro.ErrConfiguration)
	})

	t.Run("bad state is closed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, []byte("short"), retrotest.Frames(2))

		_, err := replay.Open(f.movie, f.options())
		require.Error(t, err)
		assert.True(t, f.tracker.AllClosed())
	})
}

func TestSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(3))

	opts := f.options()
	opts.SkipFirstStep = true

	s, err := replay.Open(f.movie, opts)
	require.NoError(t, err)

	assert.Equal(t, f.tracker.Game, s.Game())
	assert.Equal(t, 1, s.Players())
	assert.Equal(t, 2, s.Remaining())
	assert.Equal(t, f.movie, s.Path())

	n := 0

	for _, err := range s.Steps() {
		require.NoError(t, err)

		n++
	}

	assert.Equal(t, 2, n)
	assert.Zero(t, s.Remaining())

	for _, err := range s.Steps() {
		require.ErrorIs(t, err, replay.ErrConsumed)
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, f.tracker.AllClosed())
}

func TestCollect(t *testing.T) {
	t.Parallel()

	t.Run("done", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, retrotest.Config{DieAt: 4}, retrotest.Integration{}, 1, nil, retrotest.Frames(5, 0, 1, 2))

		var buf bytes.Buffer

		opts := f.options()
		opts.SkipFirstStep = true
		opts.Logger = slog.New(log.NewHandler(&buf, log.LevelDebug, log.FormatLogfmt))

		res, err := replay.Collect(f.movie, opts)
		require.NoError(t, err)

		assert.True(t, res.Done)
		assert.Len(t, res.Frames, 4)
		assert.Len(t, res.States, 4)
		assert.Len(t, res.Info, 4)

		v := res.Variables
		assert.Equal(t, "01", v.Subject)
		assert.Equal(t, "003", v.Session)
		assert.Equal(t, "w1l1", v.Level)
		assert.Equal(t, 4, v.Frames)
		assert.Equal(t, []bool{true, true, false, false}, v.Keys["A"])
		assert.Equal(t, []int{1, 2, 2, 2}, v.Info["score"])
		assert.Equal(t, []int{3, 3, 3, 0}, v.Info["lives"])
		require.NoError(t, v.Validate())
		assert.NotContains(t, buf.String(), "done condition not satisfied")
	})

	t.Run("not done warns", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, retrotest.Config{}, retrotest.Integration{}, 1, nil, retrotest.Frames(3))

		var buf bytes.Buffer

		opts := f.options()
		opts.Logger = slog.New(log.NewHandler(&buf, log.LevelDebug, log.FormatLogfmt))

		res, err := replay.Collect(f.movie, opts)
		require.NoError(t, err)
		assert.False(t, res.Done)
		assert.Contains(t, buf.String(), "done condition not satisfied")
		assert.Contains(t, buf.String(), "level=WARN")
	})

	t.Run("emulator failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, retrotest.Config{FailAt: 1}, retrotest.Integration{}, 1, nil, retrotest.Frames(3))

		_, err := replay.Collect(f.movie, f.options())
		require.ErrorIs(t, err, retrotest.ErrInjected)
	})
}
