// Package log builds [log/slog] handlers for the vgutils commands.
//
// Three output formats are supported: [FormatJSON] and [FormatLogfmt] use the
// standard library handlers, and [FormatText] uses charm.land/log for colored
// terminal output. Levels are [LevelError], [LevelWarn], [LevelInfo] and
// [LevelDebug].
//
// Commands register the flags once on the root command:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// Library packages never configure logging themselves. They accept a
// [*slog.Logger] and fall back to [slog.Default].
package log
