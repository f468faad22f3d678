package media_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/log"
	"github.com/courtois-neuromod/vgutils/media"
)

func frames(n, w, h int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := range h {
			for x := range w {
				img.Set(x, y, color.RGBA{R: uint8(i * 40), G: uint8(x * 60), B: uint8(y * 60), A: 255})
			}
		}

		out[i] = img
	}

	return out
}

type fakeFFmpeg struct {
	path  string
	log   string
	stdin string
}

type fakeMode int

const (
	fakeOK fakeMode = iota
	// Runs with -shortest exit with status 3.
	fakeFailMux
	// The script deletes itself after the first run, so later runs cannot
	// start.
	fakeVanish
)

// newFakeFFmpeg writes a shell script standing in for ffmpeg. It records its
// arguments, drains stdin for pipe input and writes its last argument.
func newFakeFFmpeg(t *testing.T, mode fakeMode) fakeFFmpeg {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg is a shell script")
	}

	dir := t.TempDir()
	f := fakeFFmpeg{
		path:  filepath.Join(dir, "ffmpeg"),
		log:   filepath.Join(dir, "args.log"),
		stdin: filepath.Join(dir, "stdin.raw"),
	}

	script := fmt.Sprintf(`#!/bin/sh
echo "$*" >> %q
for last; do :; done
case "$*" in *pipe:0*) cat > %q ;; esac
case "$*" in *-shortest*) if [ %d = %d ]; then echo "mux broke" >&2; exit 3; fi ;; esac
if [ %d = %d ]; then rm -f "$0"; fi
echo data > "$last"
`, f.log, f.stdin, mode, fakeFailMux, mode, fakeVanish)

	require.NoError(t, os.WriteFile(f.path, []byte(script), 0o755)) //nolint:gosec // Must be executable.

	return f
}

func (f fakeFFmpeg) calls(t *testing.T) []string {
	t.Helper()

	b, err := os.ReadFile(f.log)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestGIF(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.gif")
	require.NoError(t, media.NewEncoder(media.WithLogger(log.Discard())).GIF(frames(3, 4, 2), out))

	f, err := os.Open(out)
	require.NoError(t, err)

	defer f.Close()

	g, err := gif.DecodeAll(f)
	require.NoError(t, err)

	assert.Len(t, g.Image, 3)
	assert.Equal(t, []int{1, 1, 1}, g.Delay)
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, image.Rect(0, 0, 4, 2), g.Image[0].Bounds())
}

func TestEmptyInputWritesNothing(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(e *media.Encoder, path string) error{
		"gif": func(e *media.Encoder, path string) error {
			return e.GIF(nil, path)
		},
		"webp": func(e *media.Encoder, path string) error {
			return e.WebP(t.Context(), nil, path)
		},
		"mp4": func(e *media.Encoder, path string) error {
			return e.MP4(t.Context(), nil, path)
		},
	}

	for name, run := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			e := media.NewEncoder(
				media.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
				media.WithFFmpeg("/nonexistent/ffmpeg"),
			)

			path := filepath.Join(t.TempDir(), "out."+name)
			require.NoError(t, run(e, path))
			assert.NoFileExists(t, path)
			assert.Contains(t, buf.String(), "no frames to export")
		})
	}
}

func TestFrameSizeMismatch(t *testing.T) {
	t.Parallel()

	fs := append(frames(1, 4, 4), frames(1, 2, 2)...)

	err := media.GIF(fs, filepath.Join(t.TempDir(), "out.gif"))
	require.ErrorIs(t, err, media.ErrFrameSize)
}

func TestToolMissing(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	e := media.NewEncoder(
		media.WithFFmpeg("/nonexistent/ffmpeg"),
		media.WithTempDir(tmp),
		media.WithLogger(log.Discard()),
	)
	dir := t.TempDir()

	err := e.WebP(t.Context(), frames(2, 4, 4), filepath.Join(dir, "out.webp"))
	require.ErrorIs(t, err, media.ErrToolMissing)

	err = e.MP4(t.Context(), frames(2, 4, 4), filepath.Join(dir, "out.mp4"),
		media.WithAudio([]int16{1, 2, 3, 4}, 8000, 1))
	require.ErrorIs(t, err, media.ErrToolMissing)

	assert.NoFileExists(t, filepath.Join(dir, "out.webp"))
	assert.NoFileExists(t, filepath.Join(dir, "out.mp4"))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files must be removed")
}

//nolint:paralleltest // Executes a script written by the test.
func TestMP4MuxCannotStart(t *testing.T) {
	ff := newFakeFFmpeg(t, fakeVanish)
	tmp := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")

	e := media.NewEncoder(
		media.WithFFmpeg(ff.path),
		media.WithTempDir(tmp),
		media.WithLogger(log.Discard()),
	)

	err := e.MP4(t.Context(), frames(2, 4, 4), out, media.WithAudio([]int16{1, 2, 3, 4}, 8000, 1))
	require.ErrorIs(t, err, media.ErrMux)
	require.ErrorIs(t, err, fs.ErrNotExist)

	var muxErr *media.MuxError
	assert.NotErrorAs(t, err, &muxErr, "the mux never ran, so there is no exit status")

	assert.Len(t, ff.calls(t), 1)
	assert.NoFileExists(t, out)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files must be removed")
}

//nolint:paralleltest // Executes a script written by the test.
func TestWebP(t *testing.T) {
	ff := newFakeFFmpeg(t, fakeOK)
	out := filepath.Join(t.TempDir(), "out.webp")

	e := media.NewEncoder(media.WithFFmpeg(ff.path), media.WithLogger(log.Discard()))
	require.NoError(t, e.WebP(t.Context(), frames(3, 4, 2), out))

	assert.FileExists(t, out)

	calls := ff.calls(t)
	require.Len(t, calls, 1)

	for _, want := range []string{"-c:v libwebp_anim", "-quality 50", "-lossless 0", "-loop 0", "-r 62.5", "-s 4x2"} {
		assert.Contains(t, calls[0], want)
	}

	raw, err := os.ReadFile(ff.stdin)
	require.NoError(t, err)
	assert.Len(t, raw, 3*4*2*3)
}

//nolint:paralleltest // Executes a script written by the test.
func TestMP4(t *testing.T) {
	tcs := map[string]struct {
		opts      []media.MP4Option
		wantCalls int
		wantArgs  []string
		mode      fakeMode
		wantErr   bool
	}{
		"video only": {
			opts:      []media.MP4Option{media.WithFPS(30)},
			wantCalls: 1,
			wantArgs:  []string{"-r 30", "-c:v libx264", "-pix_fmt yuv420p"},
		},
		"default fps": {
			wantCalls: 1,
			wantArgs:  []string{"-r 60"},
		},
		"float audio": {
			opts:      []media.MP4Option{media.WithAudio([]float64{0.5, 1200.7, -40000}, 44100, 1)},
			wantCalls: 2,
			wantArgs:  []string{"-c:v copy", "-c:a aac", "-shortest", "audio.wav"},
		},
		"no sample rate": {
			opts:      []media.MP4Option{media.WithAudio([]int16{1, 2, 3}, 0, 1)},
			wantCalls: 1,
		},
		"mux failure": {
			opts:      []media.MP4Option{media.WithAudio([]int16{1, 2, 3, 4}, 8000, 2)},
			mode:      fakeFailMux,
			wantCalls: 2,
			wantErr:   true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			ff := newFakeFFmpeg(t, tc.mode)
			tmp := t.TempDir()
			out := filepath.Join(t.TempDir(), "out.mp4")

			e := media.NewEncoder(
				media.WithFFmpeg(ff.path),
				media.WithTempDir(tmp),
				media.WithLogger(log.Discard()),
			)

			err := e.MP4(context.Background(), frames(2, 4, 4), out, tc.opts...)

			entries, rerr := os.ReadDir(tmp)
			require.NoError(t, rerr)
			assert.Empty(t, entries, "temporary files must be removed")

			calls := ff.calls(t)
			assert.Len(t, calls, tc.wantCalls)

			for _, want := range tc.wantArgs {
				assert.Contains(t, calls[len(calls)-1], want)
			}

			if tc.wantErr {
				require.ErrorIs(t, err, media.ErrMux)

				var muxErr *media.MuxError
				require.ErrorAs(t, err, &muxErr)
				assert.Equal(t, 3, muxErr.ExitCode)
				assert.Equal(t, "mux broke", muxErr.Stderr)

				return
			}

			require.NoError(t, err)
			assert.FileExists(t, out)
		})
	}
}

//nolint:paralleltest // Executes a script written by the test.
func TestExport(t *testing.T) {
	ff := newFakeFFmpeg(t, fakeOK)
	dir := t.TempDir()
	e := media.NewEncoder(media.WithFFmpeg(ff.path), media.WithLogger(log.Discard()))

	for _, name := range []string{"a.gif", "b.webp", "c.MP4"} {
		require.NoError(t, e.Export(t.Context(), frames(2, 2, 2), filepath.Join(dir, name)))
		assert.FileExists(t, filepath.Join(dir, name))
	}

	err := e.Export(t.Context(), frames(2, 2, 2), filepath.Join(dir, "d.avi"))
	require.ErrorIs(t, err, media.ErrUnknownKind)
}
