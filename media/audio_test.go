package media_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/media"
)

func TestInt16Samples(t *testing.T) {
	t.Parallel()

	got, cast := media.Int16Samples([]int16{1, -2})
	assert.False(t, cast)
	assert.Equal(t, []int16{1, -2}, got)

	tcs := map[string]struct {
		run  func() ([]int16, bool)
		want []int16
	}{
		"float truncates": {
			run:  func() ([]int16, bool) { return media.Int16Samples([]float64{1.9, -1.9, 0}) },
			want: []int16{1, -1, 0},
		},
		"float32 clamps": {
			run:  func() ([]int16, bool) { return media.Int16Samples([]float32{1e6, -1e6}) },
			want: []int16{math.MaxInt16, math.MinInt16},
		},
		"float nan is silence": {
			run: func() ([]int16, bool) {
				return media.Int16Samples([]float64{math.NaN(), 3.5, math.Inf(1), math.Inf(-1)})
			},
			want: []int16{0, 3, math.MaxInt16, math.MinInt16},
		},
		"float32 nan is silence": {
			run:  func() ([]int16, bool) { return media.Int16Samples([]float32{float32(math.NaN()), -2}) },
			want: []int16{0, -2},
		},
		"int32 clamps": {
			run:  func() ([]int16, bool) { return media.Int16Samples([]int32{40000, -40000, 12}) },
			want: []int16{math.MaxInt16, math.MinInt16, 12},
		},
		"uint8": {
			run:  func() ([]int16, bool) { return media.Int16Samples([]uint8{0, 255}) },
			want: []int16{0, 255},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, cast := tc.run()
			assert.True(t, cast)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	in := media.Audio{
		Samples:    []int16{0, 1000, -1000, math.MaxInt16, math.MinInt16, 7},
		SampleRate: 22050,
		Channels:   2,
	}

	path := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, media.WriteWAV(path, in))

	out, err := media.LoadAudio(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.InDelta(t, 3.0/22050, out.Duration(), 1e-9)
}

func TestLoadAudioErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	bad := filepath.Join(dir, "a.ogg")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o600))

	_, err := media.LoadAudio(bad)
	require.ErrorIs(t, err, media.ErrNoAudio)

	notWAV := filepath.Join(dir, "b.wav")
	require.NoError(t, os.WriteFile(notWAV, []byte("not a riff file"), 0o600))

	_, err = media.LoadAudio(notWAV)
	require.ErrorIs(t, err, media.ErrNoAudio)

	_, err = media.LoadAudio(filepath.Join(dir, "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
