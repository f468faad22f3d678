package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    log.Level
		wantErr bool
	}{
		"error":            {input: "error", want: log.LevelError},
		"warn":             {input: "warn", want: log.LevelWarn},
		"warning alias":    {input: "warning", want: log.LevelWarn},
		"debug":            {input: "debug", want: log.LevelDebug},
		"case insensitive": {input: "INFO", want: log.LevelInfo},
		"unknown":          {input: "verbose", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    log.Format
		wantErr bool
	}{
		"json":             {input: "json", want: log.FormatJSON},
		"logfmt":           {input: "logfmt", want: log.FormatLogfmt},
		"text":             {input: "text", want: log.FormatText},
		"case insensitive": {input: "JSON", want: log.FormatJSON},
		"unknown":          {input: "xml", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseFormat(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check  func(*testing.T, []byte)
		format log.Format
	}{
		"json": {
			format: log.FormatJSON,
			check: func(t *testing.T, out []byte) {
				t.Helper()

				var entry map[string]any

				require.NoError(t, json.Unmarshal(out, &entry))
				assert.Equal(t, "replayed", entry["msg"])
				assert.Equal(t, "INFO", entry["level"])
				assert.Equal(t, "sub-01_ses-001.bk2", entry["movie"])
			},
		},
		"logfmt": {
			format: log.FormatLogfmt,
			check: func(t *testing.T, out []byte) {
				t.Helper()

				assert.Contains(t, string(out), "level=INFO")
				assert.Contains(t, string(out), "msg=replayed")
				assert.Contains(t, string(out), "movie=sub-01_ses-001.bk2")
			},
		},
		"text": {
			format: log.FormatText,
			check: func(t *testing.T, out []byte) {
				t.Helper()

				assert.Contains(t, string(out), "INFO")
				assert.Contains(t, string(out), "replayed")
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(log.NewHandler(&buf, log.LevelInfo, tc.format))
			logger.Info("replayed", slog.String("movie", "sub-01_ses-001.bk2"))

			tc.check(t, buf.Bytes())
		})
	}
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level, format string
		wantErr       bool
	}{
		"valid":          {level: "debug", format: "json"},
		"bad level":      {level: "loud", format: "json", wantErr: true},
		"bad format":     {level: "info", format: "csv", wantErr: true},
		"upper case ok":  {level: "WARN", format: "LOGFMT"},
		"text and error": {level: "error", format: "text"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			h, err := log.NewHandlerFromStrings(&buf, tc.level, tc.format)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrInvalidArgument)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, h)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.NewHandler(&buf, log.LevelWarn, log.FormatJSON))
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("done condition not satisfied")
	assert.Contains(t, buf.String(), "done condition not satisfied")
}

func TestConfigCompletions(t *testing.T) {
	t.Parallel()

	cfg := log.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	for flag, want := range map[string][]string{
		"log-level":  log.GetAllLevelStrings(),
		"log-format": log.GetAllFormatStrings(),
	} {
		fn, ok := cmd.GetFlagCompletionFunc(flag)
		require.True(t, ok, flag)

		values, directive := fn(cmd, nil, "")
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
		assert.Equal(t, want, values)
	}

	require.NoError(t, cmd.Flags().Parse([]string{"--log-level=debug", "--log-format=json"}))

	var buf bytes.Buffer

	h, err := cfg.NewHandler(&buf)
	require.NoError(t, err)

	slog.New(h).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
