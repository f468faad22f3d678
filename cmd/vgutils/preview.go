package main

import (
	"fmt"
	"image"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	tea "charm.land/bubbletea/v2"

	"github.com/courtois-neuromod/vgutils/replay"
)

type previewCmd struct {
	*app

	replay *replay.Config
	fps    int
	width  int
	loop   bool
}

func (a *app) newPreviewCmd() *cobra.Command {
	c := &previewCmd{app: a, replay: replay.NewConfig()}

	cmd := &cobra.Command{
		Use:   "preview [flags] <movie.bk2>",
		Short: "Play a movie in the terminal",
		Long: `preview replays a movie and draws each frame in the terminal with ANSI
colored half blocks, followed by the current info variables.

Keys: space pauses, q quits.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: movieArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0])
		},
	}

	c.replay.RegisterFlags(cmd.Flags())
	cmd.Flags().IntVar(&c.fps, "fps", 60, "playback FPS")
	cmd.Flags().IntVarP(&c.width, "width", "w", 0, "render width in columns (0 = terminal width)")
	cmd.Flags().BoolVar(&c.loop, "loop", false, "loop playback")

	err := c.replay.RegisterCompletions(cmd)
	if err != nil {
		fmt.Fprintf(a.stderr, "register completions: %v\n", err)
	}

	return cmd
}

func (c *previewCmd) run(cmd *cobra.Command, movie string) error {
	if c.fps <= 0 {
		return fmt.Errorf("--fps must be positive, got %d", c.fps)
	}

	cols, rows := c.width, 0
	if cols == 0 {
		w, h, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			return fmt.Errorf("unable to detect terminal size (use --width): %w", err)
		}

		cols, rows = w, h
	} else {
		// Console frames are roughly 4:3.
		rows = cols * 3 / 4 / 2
	}

	opts, err := c.replay.Options(c.logger)
	if err != nil {
		return err
	}

	m := newModel(replay.Steps(movie, opts), c.fps, cols, rows, c.loop)
	defer m.close()

	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithOutput(c.stdout)).Run()
	if err != nil {
		return fmt.Errorf("running preview: %w", err)
	}

	return m.err
}

// tickMsg signals that it is time to show the next frame.
type tickMsg struct{}

// stepMsg carries the next replayed step.
type stepMsg struct {
	step replay.Step
}

// endMsg signals the end of the replay. A nil err is a normal end.
type endMsg struct {
	err error
}

// model plays replayed steps, caching them so playback can loop.
type model struct {
	err    error
	mu     sync.Mutex
	next   func() (replay.Step, error, bool)
	stop   func()
	frames []*image.RGBA
	info   []map[string]int
	buf    strings.Builder
	fps    int
	cols   int
	rows   int
	index  int
	loop   bool
	ended  bool
	paused bool
	done   bool
}

func newModel(steps iter.Seq2[replay.Step, error], fps, cols, rows int, loop bool) *model {
	next, stop := iter.Pull2(steps)

	return &model{
		next:  next,
		stop:  stop,
		fps:   fps,
		cols:  cols,
		rows:  rows,
		index: -1,
		loop:  loop,
	}
}

// close stops the replay, waiting for a read in flight.
func (m *model) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stop()
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// readStep pulls the next step off the replay. Only one read is in flight
// at a time.
func (m *model) readStep() tea.Msg {
	m.mu.Lock()
	step, err, ok := m.next()
	m.mu.Unlock()

	switch {
	case err != nil:
		return endMsg{err: err}
	case !ok:
		return endMsg{}
	}

	return stepMsg{step: step}
}

// Init starts reading the replay.
func (m *model) Init() tea.Cmd {
	return m.readStep
}

// Update handles steps, ticks, resizes and key presses.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "space":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height

	case stepMsg:
		m.frames = append(m.frames, msg.step.Frame)
		m.info = append(m.info, msg.step.Annotations.Info)
		m.index = len(m.frames) - 1

		return m, m.tick()

	case endMsg:
		m.ended = true

		if msg.err != nil {
			m.err = msg.err

			return m, tea.Quit
		}

		return m, m.advance()

	case tickMsg:
		if m.paused {
			return m, m.tick()
		}

		if !m.ended {
			return m, m.readStep
		}

		return m, m.advance()
	}

	return m, nil
}

// advance moves through cached frames once the replay has ended.
func (m *model) advance() tea.Cmd {
	if len(m.frames) == 0 || (!m.loop && m.index >= len(m.frames)-1) {
		m.done = true

		return nil
	}

	m.index = (m.index + 1) % len(m.frames)

	return m.tick()
}

// View renders the current frame and a status line.
func (m *model) View() tea.View {
	m.buf.Reset()

	switch {
	case m.index < 0 && m.done:
		m.buf.WriteString("movie has no frames, q to quit\n")
	case m.index < 0:
		m.buf.WriteString("replaying...\n")
	default:
		renderFrame(fitFrame(m.frames[m.index], m.cols, max(m.rows-1, 1)), &m.buf)
		m.buf.WriteString(m.status())
	}

	v := tea.NewView(m.buf.String())
	v.AltScreen = true

	return v
}

func (m *model) status() string {
	parts := []string{fmt.Sprintf("frame %d/%d", m.index+1, len(m.frames))}

	info := m.info[m.index]
	for _, k := range slices.Sorted(maps.Keys(info)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, info[k]))
	}

	switch {
	case m.done:
		parts = append(parts, "(end, q to quit)")
	case m.paused:
		parts = append(parts, "(paused)")
	}

	return strings.Join(parts, "  ")
}
