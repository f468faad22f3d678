package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrNoAudio indicates an audio file without usable samples.
var ErrNoAudio = errors.New("no audio")

// Audio holds interleaved 16-bit PCM samples.
type Audio struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Sample is a numeric sample type accepted by [Int16Samples].
type Sample interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 |
		~float32 | ~float64
}

// Int16Samples converts samples to int16, truncating fractions and
// clamping to the int16 range. NaN becomes 0. The second result reports
// whether a conversion took place.
func Int16Samples[S Sample](samples []S) ([]int16, bool) {
	if s, ok := any(samples).([]int16); ok {
		return s, false
	}

	out := make([]int16, len(samples))
	for i, v := range samples {
		f := math.Trunc(float64(v))
		switch {
		case math.IsNaN(f):
			out[i] = 0
		case f > math.MaxInt16:
			out[i] = math.MaxInt16
		case f < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(f)
		}
	}

	return out, true
}

// Duration returns the play time of a in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}

	return float64(len(a.Samples)) / float64(a.Channels) / float64(a.SampleRate)
}

// WriteWAV writes a as a 16-bit PCM WAV file.
func WriteWAV(path string, a Audio) (err error) {
	channels := max(a.Channels, 1)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	data := make([]int, len(a.Samples))
	for i, s := range a.Samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, a.SampleRate, 16, channels, 1)

	err = enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: a.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("writing wav: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("finishing wav: %w", err)
	}

	return nil
}

// LoadAudio reads a .wav or .mp3 file.
func LoadAudio(path string) (a Audio, err error) {
	f, err := os.Open(path)
	if err != nil {
		return a, fmt.Errorf("opening %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		a, err = readWAV(f)
	case ".mp3":
		a, err = readMP3(f)
	default:
		return a, fmt.Errorf("%w: unsupported extension %q", ErrNoAudio, ext)
	}

	if err != nil {
		return a, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(a.Samples) == 0 {
		return a, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}

	return a, nil
}

func readWAV(r io.ReadSeeker) (Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Audio{}, fmt.Errorf("%w: invalid wav file", ErrNoAudio)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("decoding wav: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch d.BitDepth {
		case 8:
			samples[i] = int16((v - 128) << 8)
		case 24:
			samples[i] = int16(v >> 8)
		case 32:
			samples[i] = int16(v >> 16)
		default:
			samples[i] = int16(v)
		}
	}

	return Audio{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

func readMP3(r io.Reader) (Audio, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return Audio{}, fmt.Errorf("decoding mp3: %w", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return Audio{}, fmt.Errorf("decoding mp3: %w", err)
	}

	// go-mp3 always produces 16-bit little endian stereo.
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	return Audio{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   2,
	}, nil
}
