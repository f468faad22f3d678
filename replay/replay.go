package replay

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"log/slog"

	"github.com/courtois-neuromod/vgutils/movie"
	"github.com/courtois-neuromod/vgutils/retro"
)

// ErrConsumed is returned when [Session.Steps] is ranged over twice.
var ErrConsumed = errors.New("replay already consumed")

// Options configures a replay.
type Options struct {
	Logger *slog.Logger
	// Game overrides the game recorded in the movie header.
	Game     string
	Scenario string
	// State names the integration state loaded before the movie state is
	// attached. Movies without a recorded state start from it.
	State        string
	DataPaths    retro.DataPaths
	Integrations retro.Integrations
	// Players overrides the number of controllers read from the movie.
	Players int
	// SkipFirstStep drops the first logged step without emulating it. The
	// first movie of a multi-movie run starts with a priming step.
	SkipFirstStep bool
}

// Annotations are the scalar outputs of one emulator step.
type Annotations struct {
	Info   map[string]int
	Reward float64
	Done   bool
}

// Step is the record produced for one replayed frame.
type Step struct {
	Frame *image.RGBA
	// Keys holds Players × len(Actions) button states, player-major.
	Keys        []bool
	Actions     []string
	State       []byte
	Annotations Annotations
	Index       int
	Truncated   bool
}

// Session is an open replay.
//
// Create instances with [Open].
type Session struct {
	movie   *movie.Movie
	env     *retro.Env
	logger  *slog.Logger
	path    string
	players int
	used    bool
	closed  bool
}

// Open loads the movie at path and prepares an emulator session seeded with
// the movie's initial state. Movie and game resolution failures wrap
// [retro.ErrConfiguration]. On error nothing is left open.
func Open(path string, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := movie.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retro.ErrConfiguration, err)
	}

	game := opts.Game
	if game == "" {
		game = m.Game()
	}

	if game == "" {
		return nil, errors.Join(
			fmt.Errorf("%w: %s records no game name", retro.ErrConfiguration, path),
			m.Close(),
		)
	}

	players := opts.Players
	if players == 0 {
		players = max(m.Players(), 1)
	}

	inttype := opts.Integrations
	if inttype == 0 {
		inttype = retro.CustomOnly
	}

	logger.Debug("creating emulator", slog.String("game", game), slog.String("movie", path))

	env, err := retro.Make(game,
		retro.WithState(opts.State),
		retro.WithScenario(opts.Scenario),
		retro.WithIntegrations(inttype),
		retro.WithDataPaths(opts.DataPaths),
		retro.WithPlayers(players),
		retro.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Join(err, m.Close())
	}

	s := &Session{
		movie:   m,
		env:     env,
		logger:  logger,
		path:    path,
		players: players,
	}

	// The movie state must be attached before Reset so that it wins over
	// the integration's default state.
	if state := m.State(); state != nil {
		env.SetInitialState(state)
	}

	_, err = env.Reset()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("resetting emulator: %w", err), s.Close())
	}

	if opts.SkipFirstStep {
		m.Step()
	}

	return s, nil
}

// Path returns the movie path.
func (s *Session) Path() string {
	return s.path
}

// Game returns the game being replayed.
func (s *Session) Game() string {
	return s.env.Game()
}

// Actions returns the per-player button names.
func (s *Session) Actions() []string {
	return s.env.Buttons()
}

// Players returns the number of controllers replayed.
func (s *Session) Players() int {
	return s.players
}

// Remaining returns the number of movie steps not yet replayed.
func (s *Session) Remaining() int {
	return max(s.movie.Len()-s.movie.Position()-1, 0)
}

// Steps returns an iterator over the remaining movie steps. It can be ranged
// over once; the session stays open afterwards. Emulator errors end the
// iteration after being yielded.
func (s *Session) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if s.closed {
			yield(Step{}, retro.ErrClosed)

			return
		}

		if s.used {
			yield(Step{}, ErrConsumed)

			return
		}

		s.used = true

		actions := s.env.Buttons()
		index := 0

		for s.movie.Step() {
			keys := make([]bool, 0, s.players*len(actions))
			for p := range s.players {
				for _, button := range actions {
					keys = append(keys, s.movie.Key(p, button))
				}
			}

			obs, err := s.env.Step(keys)
			if err != nil {
				yield(Step{}, err)

				return
			}

			state, err := s.env.State()
			if err != nil {
				yield(Step{}, err)

				return
			}

			step := Step{
				Index:   index,
				Frame:   obs.Frame,
				Keys:    keys,
				Actions: actions,
				State:   state,
				Annotations: Annotations{
					Reward: obs.Reward,
					Done:   obs.Terminated,
					Info:   obs.Info,
				},
				Truncated: obs.Truncated,
			}

			if !yield(step, nil) {
				return
			}

			index++
		}
	}
}

// Close releases the emulator and the movie. It is safe to call more than
// once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	return errors.Join(s.env.Close(), s.movie.Close())
}

// Steps opens the movie at path and iterates over its steps. The session is
// closed when iteration stops for any reason; close errors are logged. An
// Open failure is yielded as the only element.
func Steps(path string, opts Options) iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		s, err := Open(path, opts)
		if err != nil {
			yield(Step{}, err)

			return
		}

		defer func() {
			err := s.Close()
			if err != nil {
				s.logger.Warn("closing replay", slog.String("movie", path), slog.Any("err", err))
			}
		}()

		for step, err := range s.Steps() {
			if !yield(step, err) {
				return
			}
		}
	}
}
