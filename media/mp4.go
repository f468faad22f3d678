package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultFPS is the default MP4 frame rate.
const DefaultFPS = 60

type mp4Options struct {
	audio *Audio
	cast  bool
	fps   float64
}

// MP4Option configures [Encoder.MP4].
type MP4Option func(*mp4Options)

// WithFPS sets the video frame rate. Non-positive values are ignored.
func WithFPS(fps float64) MP4Option {
	return func(o *mp4Options) {
		if fps > 0 {
			o.fps = fps
		}
	}
}

// WithAudio muxes samples into the video. Samples that are not int16 are
// converted with [Int16Samples]. Nothing is muxed when samples is empty or
// sampleRate is not positive.
func WithAudio[S Sample](samples []S, sampleRate, channels int) MP4Option {
	return func(o *mp4Options) {
		if len(samples) == 0 || sampleRate <= 0 {
			o.audio = nil

			return
		}

		s, cast := Int16Samples(samples)
		o.audio = &Audio{Samples: s, SampleRate: sampleRate, Channels: max(channels, 1)}
		o.cast = cast
	}
}

// WithAudioTrack muxes a into the video.
func WithAudioTrack(a Audio) MP4Option {
	return WithAudio(a.Samples, a.SampleRate, a.Channels)
}

// MP4 writes frames as an H.264 MP4, optionally with an AAC audio track.
//
// The silent video is first encoded into a temporary directory. Without
// audio it is moved to path. With audio, the samples are written as
// 16-bit WAV next to it and both are muxed into path, keeping the shorter
// of the two streams. The temporary directory is always removed.
func (e *Encoder) MP4(ctx context.Context, frames []image.Image, path string, opts ...MP4Option) error {
	o := mp4Options{fps: DefaultFPS}
	for _, opt := range opts {
		opt(&o)
	}

	if len(frames) == 0 {
		e.logger.Warn("no frames to export", slog.String("path", path))

		return nil
	}

	ffmpeg, err := e.lookFFmpeg()
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(e.tempDir, "vgutils-mp4-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	defer func() {
		err := os.RemoveAll(dir)
		if err != nil {
			e.logger.Warn("removing temp dir", slog.String("dir", dir), slog.Any("err", err))
		}
	}()

	video := filepath.Join(dir, "video_only.mp4")

	err = e.runFFmpeg(ctx, ffmpeg, frames, o.fps,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		video,
	)
	if err != nil {
		return err
	}

	if o.audio == nil {
		err = moveFile(video, path)
		if err != nil {
			return err
		}

		e.logger.Debug("wrote mp4", slog.String("path", path), slog.Int("frames", len(frames)))

		return nil
	}

	if o.cast {
		e.logger.Info("converting audio samples to int16")
	}

	wavPath := filepath.Join(dir, "audio.wav")

	err = WriteWAV(wavPath, *o.audio)
	if err != nil {
		return err
	}

	err = e.runMux(ctx, ffmpeg,
		"-y",
		"-loglevel", "error",
		"-i", video,
		"-i", wavPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if err != nil {
		return err
	}

	e.logger.Debug("wrote mp4 with audio",
		slog.String("path", path),
		slog.Int("frames", len(frames)),
		slog.Float64("audio_seconds", o.audio.Duration()),
	)

	return nil
}

// MP4 writes frames to path with a default [Encoder].
func MP4(ctx context.Context, frames []image.Image, path string, opts ...MP4Option) error {
	return NewEncoder().MP4(ctx, frames, path, opts...)
}

// moveFile renames src to dst, copying when they are on different
// filesystems.
func moveFile(src, dst string) (err error) {
	if os.Rename(src, dst) == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}

	defer func() {
		err = errors.Join(err, in.Close())
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	_, err = io.Copy(out, in)

	return errors.Join(err, out.Close())
}
