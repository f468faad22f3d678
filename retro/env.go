package retro

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"slices"
)

// State names with special meaning for [WithState].
const (
	// StateDefault uses the default_state of metadata.json, if any.
	StateDefault = ""
	// StateNone starts from power-on.
	StateNone = "none"
)

// ErrClosed is returned by an [Env] after Close.
var ErrClosed = errors.New("env closed")

// Observation is the result of [Env.Reset] or [Env.Step].
type Observation struct {
	Frame      *image.RGBA
	Info       map[string]int
	Reward     float64
	Terminated bool
	Truncated  bool
}

// Env is an emulator session bound to one game and scenario.
//
// Create instances with [Make].
type Env struct {
	core         Core
	integ        *Integration
	scenario     *Scenario
	logger       *slog.Logger
	prev         map[string]int
	buttons      []string
	initialState []byte
	players      int
	maxSteps     int
	steps        int
	closed       bool
}

type envOptions struct {
	logger   *slog.Logger
	paths    *DataPaths
	state    string
	scenario string
	inttype  Integrations
	players  int
	maxSteps int
}

// Option configures [Make].
type Option func(*envOptions)

// WithState selects the initial state by name. See [StateDefault] and
// [StateNone].
func WithState(name string) Option {
	return func(o *envOptions) { o.state = name }
}

// WithScenario selects the scenario file. Empty means scenario.json.
func WithScenario(name string) Option {
	return func(o *envOptions) { o.scenario = name }
}

// WithIntegrations selects which integration directories are searched.
func WithIntegrations(inttype Integrations) Option {
	return func(o *envOptions) { o.inttype = inttype }
}

// WithDataPaths overrides [DefaultDataPaths].
func WithDataPaths(paths DataPaths) Option {
	return func(o *envOptions) { o.paths = &paths }
}

// WithPlayers sets the number of controllers. The default is 1.
func WithPlayers(n int) Option {
	return func(o *envOptions) { o.players = n }
}

// WithMaxSteps truncates episodes after n steps. Zero disables truncation.
func WithMaxSteps(n int) Option {
	return func(o *envOptions) { o.maxSteps = n }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *envOptions) { o.logger = l }
}

// Make creates an [Env] for game. Failures to resolve the game, its ROM,
// scenario or state wrap [ErrConfiguration].
func Make(game string, opts ...Option) (*Env, error) {
	o := envOptions{
		state:   StateDefault,
		inttype: Stable,
		players: 1,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.paths == nil {
		p := DefaultDataPaths()
		o.paths = &p
	}

	if o.players < 1 {
		return nil, fmt.Errorf("%w: players must be at least 1", ErrConfiguration)
	}

	dir, err := o.paths.FindGame(game, o.inttype)
	if err != nil {
		return nil, err
	}

	integ, err := LoadIntegration(game, dir)
	if err != nil {
		return nil, err
	}

	scenario, err := integ.LoadScenario(o.scenario)
	if err != nil {
		return nil, err
	}

	entry, err := lookupCore(integ.System)
	if err != nil {
		return nil, err
	}

	rom, err := integ.ROM(entry.extensions)
	if err != nil {
		return nil, err
	}

	state, err := loadState(integ, o.state)
	if err != nil {
		return nil, err
	}

	core, err := entry.newCore()
	if err != nil {
		return nil, fmt.Errorf("creating %s core: %w", integ.System, err)
	}

	err = core.LoadROM(rom)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("loading ROM: %w", err), core.Close())
	}

	o.logger.Debug("created emulator",
		slog.String("game", game),
		slog.String("dir", dir),
		slog.String("system", integ.System),
		slog.String("integrations", o.inttype.String()),
	)

	return &Env{
		core:         core,
		integ:        integ,
		scenario:     scenario,
		logger:       o.logger,
		buttons:      core.Buttons(),
		initialState: state,
		players:      o.players,
		maxSteps:     o.maxSteps,
	}, nil
}

func loadState(integ *Integration, name string) ([]byte, error) {
	if name == StateNone {
		return nil, nil
	}

	explicit := name != StateDefault
	if !explicit {
		name = integ.Metadata.DefaultState
		if name == "" {
			return nil, nil
		}
	}

	f, err := os.Open(integ.StatePath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: state %q: %w", ErrConfiguration, name, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: state %q: %w", ErrConfiguration, name, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: state %q: %w", ErrConfiguration, name, err)
	}

	return data, nil
}

// Game returns the game name.
func (e *Env) Game() string {
	return e.integ.Game
}

// Integration returns the loaded integration data.
func (e *Env) Integration() *Integration {
	return e.integ
}

// Buttons returns the per-player button names in key order.
func (e *Env) Buttons() []string {
	return e.buttons
}

// NumButtons returns the number of buttons per player.
func (e *Env) NumButtons() int {
	return len(e.buttons)
}

// Players returns the number of controllers.
func (e *Env) Players() int {
	return e.players
}

// InitialState returns the state restored by [Env.Reset].
func (e *Env) InitialState() []byte {
	return e.initialState
}

// SetInitialState replaces the state restored by [Env.Reset]. A nil state
// makes Reset power-cycle the core. It takes effect on the next Reset.
func (e *Env) SetInitialState(state []byte) {
	e.initialState = state
}

// Reset restores the initial state and returns the first observation.
func (e *Env) Reset() (Observation, error) {
	if e.closed {
		return Observation{}, ErrClosed
	}

	var err error
	if e.initialState != nil {
		err = e.core.Unserialize(e.initialState)
	} else {
		err = e.core.Reset()
	}

	if err != nil {
		return Observation{}, err
	}

	info, err := e.integ.Read(e.core)
	if err != nil {
		return Observation{}, err
	}

	e.prev = info
	e.steps = 0

	return Observation{Frame: e.screen(), Info: info}, nil
}

// Step applies keys (players × [Env.NumButtons] values, player-major) for
// one frame. Errors from the core are returned as is.
func (e *Env) Step(keys []bool) (Observation, error) {
	if e.closed {
		return Observation{}, ErrClosed
	}

	n := len(e.buttons)
	if len(keys) != e.players*n {
		return Observation{}, fmt.Errorf("got %d keys, want %d (%d players x %d buttons)",
			len(keys), e.players*n, e.players, n)
	}

	for p := range e.players {
		e.core.SetKeys(p, keys[p*n:(p+1)*n])
	}

	err := e.core.Run()
	if err != nil {
		return Observation{}, err
	}

	info, err := e.integ.Read(e.core)
	if err != nil {
		return Observation{}, err
	}

	e.steps++

	obs := Observation{
		Frame:      e.screen(),
		Info:       info,
		Reward:     e.scenario.RewardFor(e.prev, info),
		Terminated: e.scenario.IsDone(info),
	}
	obs.Truncated = !obs.Terminated && e.maxSteps > 0 && e.steps >= e.maxSteps

	e.prev = info

	return obs, nil
}

// screen copies the core's frame so observations stay valid after the next
// step.
func (e *Env) screen() *image.RGBA {
	src := e.core.Screen()
	if src == nil {
		return nil
	}

	dst := &image.RGBA{
		Pix:    slices.Clone(src.Pix),
		Stride: src.Stride,
		Rect:   src.Rect,
	}

	return dst
}

// State returns a snapshot of the core state.
func (e *Env) State() ([]byte, error) {
	if e.closed {
		return nil, ErrClosed
	}

	return e.core.Serialize()
}

// Close releases the core. It is safe to call more than once.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}

	e.closed = true

	return e.core.Close()
}

// CompressState gzips a core snapshot in the .state file format.
func CompressState(state []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)

	_, err := zw.Write(state)
	if err != nil {
		return nil, err
	}

	err = zw.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
