package movie

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Archive member names.
const (
	headerFile = "Header.txt"
	inputFile  = "Input Log.txt"
	stateFile  = "Core.bin"
)

// Header keys.
const (
	KeyGameName     = "GameName"
	KeyPlatform     = "Platform"
	KeyAuthor       = "Author"
	KeyMovieVersion = "MovieVersion"
)

// ErrInvalidMovie is returned when a movie archive cannot be parsed.
var ErrInvalidMovie = errors.New("invalid movie")

type column struct {
	button string
	player int // -1 for console columns such as Reset or Power.
}

// Movie is a loaded BK2 movie. Its input log is immutable; only the step
// cursor advances.
//
// Create instances with [Open].
type Movie struct {
	archive *zip.ReadCloser
	header  map[string]string
	index   map[string]int
	columns []column
	groups  []int
	frames  [][]bool
	state   []byte
	players int
	pos     int
}

// Open loads the movie at path.
func Open(path string) (*Movie, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMovie, path, err)
	}

	m, err := load(&rc.Reader)
	if err != nil {
		_ = rc.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMovie, path, err)
	}

	m.archive = rc

	return m, nil
}

func load(zr *zip.Reader) (*Movie, error) {
	m := &Movie{
		header: make(map[string]string),
		index:  make(map[string]int),
		pos:    -1,
	}

	var sawInput bool

	for _, f := range zr.File {
		switch f.Name {
		case headerFile:
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}

			m.parseHeader(data)

		case inputFile:
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}

			err = m.parseInput(data)
			if err != nil {
				return nil, err
			}

			sawInput = true

		case stateFile:
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}

			m.state = data
		}
	}

	if !sawInput {
		return nil, fmt.Errorf("missing %q", inputFile)
	}

	return m, nil
}

func readMember(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.Name, err)
	}

	return data, nil
}

func (m *Movie) parseHeader(data []byte) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		m.header[key] = strings.TrimSpace(value)
	}
}

func (m *Movie) parseInput(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++

		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case line == "", line == "[Input]", line == "[/Input]":
			continue

		case strings.HasPrefix(line, "LogKey:"):
			err := m.parseLogKey(strings.TrimPrefix(line, "LogKey:"))
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}

		case strings.HasPrefix(line, "|"):
			if m.columns == nil {
				return fmt.Errorf("line %d: input before LogKey", lineNo)
			}

			frame, err := m.parseFrame(line)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}

			m.frames = append(m.frames, frame)
		}
	}

	err := sc.Err()
	if err != nil {
		return fmt.Errorf("scan input log: %w", err)
	}

	if m.columns == nil {
		return errors.New("missing LogKey")
	}

	return nil
}

func (m *Movie) parseLogKey(spec string) error {
	for group := range strings.SplitSeq(spec, "#") {
		if group == "" {
			continue
		}

		names := strings.Split(strings.TrimSuffix(group, "|"), "|")
		m.groups = append(m.groups, len(names))

		for _, name := range names {
			col := column{button: name, player: -1}

			prefix, button, ok := strings.Cut(name, " ")
			if ok && len(prefix) > 1 && prefix[0] == 'P' {
				n, err := strconv.Atoi(prefix[1:])
				if err == nil && n > 0 {
					col = column{button: button, player: n - 1}
					m.players = max(m.players, n)
				}
			}

			if col.player >= 0 {
				m.index[indexKey(col.player, col.button)] = len(m.columns)
			}

			m.columns = append(m.columns, col)
		}
	}

	if len(m.columns) == 0 {
		return errors.New("empty LogKey")
	}

	return nil
}

func (m *Movie) parseFrame(line string) ([]bool, error) {
	segments := strings.Split(strings.Trim(line, "|"), "|")
	if len(segments) != len(m.groups) {
		return nil, fmt.Errorf("got %d input groups, want %d", len(segments), len(m.groups))
	}

	frame := make([]bool, 0, len(m.columns))

	for i, seg := range segments {
		if len(seg) != m.groups[i] {
			return nil, fmt.Errorf("group %d has %d buttons, want %d", i+1, len(seg), m.groups[i])
		}

		for _, c := range []byte(seg) {
			frame = append(frame, c != '.' && c != ' ')
		}
	}

	return frame, nil
}

func indexKey(player int, button string) string {
	return strconv.Itoa(player) + "/" + strings.ToUpper(button)
}

// Header returns the value of a Header.txt key.
func (m *Movie) Header(key string) string {
	return m.header[key]
}

// Game returns the game name recorded in the header.
func (m *Movie) Game() string {
	return m.header[KeyGameName]
}

// Platform returns the platform recorded in the header.
func (m *Movie) Platform() string {
	return m.header[KeyPlatform]
}

// Author returns the author recorded in the header.
func (m *Movie) Author() string {
	return m.header[KeyAuthor]
}

// State returns the initial emulator state, or nil when the movie starts
// from power-on.
func (m *Movie) State() []byte {
	return m.state
}

// Players returns the number of controllers in the input log.
func (m *Movie) Players() int {
	return m.players
}

// Len returns the number of logged steps.
func (m *Movie) Len() int {
	return len(m.frames)
}

// Position returns the index of the current step, or -1 before the first
// call to [Movie.Step].
func (m *Movie) Position() int {
	return m.pos
}

// Step advances to the next logged step. It returns false once the log is
// exhausted.
func (m *Movie) Step() bool {
	if m.pos < len(m.frames) {
		m.pos++
	}

	return m.pos < len(m.frames)
}

// Key reports whether button is held by player (zero based) at the current
// step. Button names match case-insensitively; unknown buttons and
// out-of-range steps read as released.
func (m *Movie) Key(player int, button string) bool {
	if m.pos < 0 || m.pos >= len(m.frames) || button == "" {
		return false
	}

	col, ok := m.index[indexKey(player, button)]
	if !ok {
		return false
	}

	return m.frames[m.pos][col]
}

// Close releases the archive. It is safe to call more than once.
func (m *Movie) Close() error {
	if m.archive == nil {
		return nil
	}

	err := m.archive.Close()
	m.archive = nil
	m.frames = nil

	if err != nil {
		return fmt.Errorf("closing movie: %w", err)
	}

	return nil
}
