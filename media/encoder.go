package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultFFmpeg is the ffmpeg binary looked up on PATH.
const DefaultFFmpeg = "ffmpeg"

// Encoder exports frames to files.
//
// Create instances with [NewEncoder].
type Encoder struct {
	logger  *slog.Logger
	ffmpeg  string
	tempDir string
}

// Option configures an [Encoder].
type Option func(*Encoder)

// WithFFmpeg sets the ffmpeg binary name or path.
func WithFFmpeg(path string) Option {
	return func(e *Encoder) { e.ffmpeg = path }
}

// WithTempDir sets the parent directory of temporary files. Empty means
// [os.TempDir].
func WithTempDir(dir string) Option {
	return func(e *Encoder) { e.tempDir = dir }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// NewEncoder creates an [Encoder].
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{ffmpeg: DefaultFFmpeg}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// AsImages converts a slice of concrete images, such as replayed
// [*image.RGBA] frames, to []image.Image.
func AsImages[F image.Image](frames []F) []image.Image {
	out := make([]image.Image, len(frames))
	for i, f := range frames {
		out[i] = f
	}

	return out
}

func (e *Encoder) lookFFmpeg() (string, error) {
	path, err := exec.LookPath(e.ffmpeg)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found: install ffmpeg or set its path: %w", ErrToolMissing, e.ffmpeg, err)
	}

	return path, nil
}

// checkSizes returns the common bounds of frames.
func checkSizes(frames []image.Image) (image.Rectangle, error) {
	r := frames[0].Bounds()

	for i, f := range frames[1:] {
		if f.Bounds().Size() != r.Size() {
			return r, fmt.Errorf("%w: frame %d is %v, frame 0 is %v", ErrFrameSize, i+1, f.Bounds().Size(), r.Size())
		}
	}

	return r, nil
}

var white = image.NewUniform(color.White)

// flatten composites img onto white and returns packed rgb24 pixels.
func flatten(img image.Image, buf *image.RGBA, out []byte) []byte {
	b := img.Bounds()
	draw.Draw(buf, buf.Rect, white, image.Point{}, draw.Src)
	draw.Draw(buf, buf.Rect, img, b.Min, draw.Over)

	out = out[:0]
	for i := 0; i < len(buf.Pix); i += 4 {
		out = append(out, buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2])
	}

	return out
}

// runFFmpeg starts ffmpeg with raw rgb24 frames on stdin, followed by args,
// and waits for it.
func (e *Encoder) runFFmpeg(ctx context.Context, ffmpeg string, frames []image.Image, fps float64, args ...string) error {
	r, err := checkSizes(frames)
	if err != nil {
		return err
	}

	input := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", r.Dx(), r.Dy()),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
	}

	//nolint:gosec // Arguments are built here, output paths come from the caller.
	cmd := exec.CommandContext(ctx, ffmpeg, append(input, args...)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}

	e.logger.Debug("running ffmpeg", slog.String("args", strings.Join(cmd.Args[1:], " ")))

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	writeErr := writeFrames(stdin, frames, r)
	closeErr := stdin.Close()

	err = cmd.Wait()
	if err != nil {
		return fmt.Errorf("%w: %w: %s", ErrEncode, err, strings.TrimSpace(stderr.String()))
	}

	return errors.Join(writeErr, closeErr)
}

func writeFrames(w io.Writer, frames []image.Image, r image.Rectangle) error {
	buf := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	out := make([]byte, 0, r.Dx()*r.Dy()*3)

	for i, f := range frames {
		out = flatten(f, buf, out)

		_, err := w.Write(out)
		if err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}

	return nil
}

// runMux runs ffmpeg without stdin and maps a non-zero exit to [*MuxError].
func (e *Encoder) runMux(ctx context.Context, ffmpeg string, args ...string) error {
	//nolint:gosec // Arguments are built by MP4.
	cmd := exec.CommandContext(ctx, ffmpeg, args...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	e.logger.Debug("muxing", slog.String("args", strings.Join(args, " ")))

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &MuxError{
			Err:      err,
			Tool:     ffmpeg,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}

	return fmt.Errorf("%w: running %s: %w", ErrMux, ffmpeg, err)
}
