package media

import (
	"context"
	"image"
	"log/slog"
	"strconv"
)

const (
	// WebPFPS is the frame rate of exported WebP animations.
	WebPFPS = 62.5
	// WebPQuality is the lossy quality of exported WebP animations.
	WebPQuality = 50
)

// WebP writes frames as a lossy, infinitely looping animated WebP.
//
// Encoding is done by ffmpeg's libwebp_anim encoder.
func (e *Encoder) WebP(ctx context.Context, frames []image.Image, path string) error {
	if len(frames) == 0 {
		e.logger.Warn("no frames to export", slog.String("path", path))

		return nil
	}

	ffmpeg, err := e.lookFFmpeg()
	if err != nil {
		return err
	}

	err = e.runFFmpeg(ctx, ffmpeg, frames, WebPFPS,
		"-c:v", "libwebp_anim",
		"-lossless", "0",
		"-quality", strconv.Itoa(WebPQuality),
		"-loop", "0",
		"-an",
		path,
	)
	if err != nil {
		return err
	}

	e.logger.Debug("wrote webp", slog.String("path", path), slog.Int("frames", len(frames)))

	return nil
}

// WebP writes frames to path with a default [Encoder].
func WebP(ctx context.Context, frames []image.Image, path string) error {
	return NewEncoder().WebP(ctx, frames, path)
}
