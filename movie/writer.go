package movie

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrClosed is returned when writing to a closed [Writer].
var ErrClosed = errors.New("movie writer closed")

// Writer records controller input into a new BK2 archive. Frames are
// buffered in memory and the archive is written by [Writer.Close].
//
// Create instances with [Create].
type Writer struct {
	path    string
	header  map[string]string
	buttons []string
	lines   []string
	state   []byte
	players int
	closed  bool
}

// WriterOption configures a [Writer].
type WriterOption func(*Writer)

// WithPlatform sets the Platform header.
func WithPlatform(platform string) WriterOption {
	return func(w *Writer) {
		w.header[KeyPlatform] = platform
	}
}

// WithAuthor sets the Author header.
func WithAuthor(author string) WriterOption {
	return func(w *Writer) {
		w.header[KeyAuthor] = author
	}
}

// Create starts recording a movie for game with the given number of players.
// buttons is the per-player button order used by [Writer.AddFrame]; empty
// names are placeholders that are never logged.
func Create(path, game string, players int, buttons []string, opts ...WriterOption) (*Writer, error) {
	if players < 1 {
		return nil, fmt.Errorf("players must be at least 1, got %d", players)
	}

	w := &Writer{
		path: path,
		header: map[string]string{
			KeyMovieVersion: "BizHawk v2.0",
			KeyGameName:     game,
		},
		buttons: buttons,
		players: players,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// SetState sets the initial emulator state stored in Core.bin.
func (w *Writer) SetState(state []byte) {
	w.state = state
}

// AddFrame appends one step. keys holds players × len(buttons) values,
// player-major, the same layout the replayer produces.
func (w *Writer) AddFrame(keys []bool) error {
	if w.closed {
		return ErrClosed
	}

	if len(keys) != w.players*len(w.buttons) {
		return fmt.Errorf("got %d keys, want %d", len(keys), w.players*len(w.buttons))
	}

	var sb strings.Builder

	sb.WriteByte('|')

	for p := range w.players {
		for i, name := range w.buttons {
			if name == "" {
				continue
			}

			if keys[p*len(w.buttons)+i] {
				sb.WriteByte(mnemonic(name))
			} else {
				sb.WriteByte('.')
			}
		}

		sb.WriteByte('|')
	}

	w.lines = append(w.lines, sb.String())

	return nil
}

func mnemonic(button string) byte {
	c := strings.ToUpper(button)[0]
	if c == '.' || c == ' ' || c == '|' {
		return '*'
	}

	return c
}

// Close writes the archive to disk. Calling Close again is a no-op.
func (w *Writer) Close() (rerr error) {
	if w.closed {
		return nil
	}

	w.closed = true

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create movie: %w", err)
	}

	defer func() {
		err := f.Close()
		if err != nil && rerr == nil {
			rerr = fmt.Errorf("close movie: %w", err)
		}
	}()

	zw := zip.NewWriter(f)

	err = writeMember(zw, headerFile, w.headerText())
	if err != nil {
		return err
	}

	err = writeMember(zw, inputFile, w.inputText())
	if err != nil {
		return err
	}

	if w.state != nil {
		err = writeMember(zw, stateFile, string(w.state))
		if err != nil {
			return err
		}
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("finish movie archive: %w", err)
	}

	return nil
}

func (w *Writer) headerText() string {
	var sb strings.Builder

	for _, key := range []string{KeyMovieVersion, KeyAuthor, KeyPlatform, KeyGameName} {
		if v, ok := w.header[key]; ok {
			fmt.Fprintf(&sb, "%s %s\n", key, v)
		}
	}

	return sb.String()
}

func (w *Writer) inputText() string {
	var sb strings.Builder

	sb.WriteString("[Input]\nLogKey:")

	for p := range w.players {
		sb.WriteByte('#')

		for _, name := range w.buttons {
			if name == "" {
				continue
			}

			fmt.Fprintf(&sb, "P%d %s|", p+1, name)
		}
	}

	sb.WriteByte('\n')

	for _, line := range w.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteString("[/Input]\n")

	return sb.String()
}

func writeMember(zw *zip.Writer, name, content string) error {
	mw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	_, err = mw.Write([]byte(content))
	if err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}

	return nil
}
