package media

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// FrameDuration is the display time of one GIF frame.
const FrameDuration = 16 * time.Millisecond

// gifDelay is FrameDuration in the 10ms units used by GIF.
var gifDelay = int(FrameDuration / (10 * time.Millisecond))

// GIF writes frames as an infinitely looping animated GIF.
//
// Frames are mapped onto the Plan 9 palette without dithering.
func (e *Encoder) GIF(frames []image.Image, path string) (err error) {
	if len(frames) == 0 {
		e.logger.Warn("no frames to export", slog.String("path", path))

		return nil
	}

	r, err := checkSizes(frames)
	if err != nil {
		return err
	}

	bounds := image.Rect(0, 0, r.Dx(), r.Dy())
	buf := image.NewRGBA(bounds)
	anim := &gif.GIF{LoopCount: 0}

	for _, f := range frames {
		draw.Draw(buf, bounds, white, image.Point{}, draw.Src)
		draw.Draw(buf, bounds, f, f.Bounds().Min, draw.Over)

		p := image.NewPaletted(bounds, palette.Plan9)
		draw.Draw(p, bounds, buf, image.Point{}, draw.Src)

		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, gifDelay)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	err = gif.EncodeAll(f, anim)
	if err != nil {
		return fmt.Errorf("encoding gif: %w", err)
	}

	e.logger.Debug("wrote gif", slog.String("path", path), slog.Int("frames", len(frames)))

	return nil
}

// GIF writes frames to path with a default [Encoder].
func GIF(frames []image.Image, path string) error {
	return NewEncoder().GIF(frames, path)
}
