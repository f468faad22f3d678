package version

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevision(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		info *debug.BuildInfo
		ok   bool
		want string
	}{
		"no build info": {want: "unknown"},
		"clean": {
			info: &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}}},
			ok:   true,
			want: "abc123",
		},
		"dirty": {
			info: &debug.BuildInfo{Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.modified", Value: "true"},
			}},
			ok:   true,
			want: "abc123-dirty",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := revision(func() (*debug.BuildInfo, bool) { return tc.info, tc.ok })
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	i := Info{Version: "1.2.0", Revision: "abc", GoVersion: "go1.25.0", Platform: "linux/amd64"}
	assert.Equal(t, "1.2.0 (abc) go1.25.0 linux/amd64", i.String())

	i.BuildDate = "2026-01-02"
	assert.Equal(t, "1.2.0 (abc) built 2026-01-02 go1.25.0 linux/amd64", i.String())

	var buf bytes.Buffer
	require.NoError(t, i.Write(&buf))
	assert.Contains(t, buf.String(), "revision:   abc\n")
	assert.Equal(t, "dev", Get().Version)
}
