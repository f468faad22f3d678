// Package retrotest provides a deterministic emulator core and fixture
// writers for tests of code built on [retro].
//
// The fake core has a 16 byte memory:
//
//	0     frame counter (|u1)
//	1-2   score, +1 per frame with A held by player 1 (>u2)
//	3     lives, 3 until Config.DieAt frames have run, then 0 (|u1)
//
// Its screen is a 4x4 image filled with a color derived from the frame
// counter.
package retrotest

import (
	"crypto/sha1" //nolint:gosec // Matches rom.sha.
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/courtois-neuromod/vgutils/movie"
	"github.com/courtois-neuromod/vgutils/retro"
)

// Buttons is the button layout of the fake core.
var Buttons = []string{"B", "", "SELECT", "START", "UP", "DOWN", "LEFT", "RIGHT", "A"}

// ButtonA is the index of "A" in [Buttons].
const ButtonA = 8

// ErrInjected is returned by Run when Config.FailAt is reached.
var ErrInjected = errors.New("injected core failure")

const (
	addrFrame = 0
	addrScore = 1
	addrLives = 3
	memSize   = 16
	romExt    = "fake"
)

// Config tunes the fake core.
type Config struct {
	// DieAt sets lives to 0 once this many frames have run. Zero disables.
	DieAt int
	// FailAt makes Run fail on this frame number (1 based). Zero disables.
	FailAt int
	// ReuseScreen makes Screen redraw into one shared image.
	ReuseScreen bool
}

// Core is the fake [retro.Core].
type Core struct {
	screen *image.RGBA
	keys   [][]bool
	mem    [memSize]byte
	cfg    Config
	frames int
	closed atomic.Int32
}

// Tracker records the cores created for a registered system.
type Tracker struct {
	System string
	Game   string

	mu    sync.Mutex
	cores []*Core
}

// Cores returns the cores created so far.
func (t *Tracker) Cores() []*Core {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*Core(nil), t.cores...)
}

// AllClosed reports whether every created core was closed.
func (t *Tracker) AllClosed() bool {
	for _, c := range t.Cores() {
		if c.CloseCount() == 0 {
			return false
		}
	}

	return true
}

var systemSeq atomic.Int64

// Register registers a fake core under a fresh system name and returns a
// tracker whose Game is a valid game name for that system.
func Register(cfg Config) *Tracker {
	system := fmt.Sprintf("Fake%d", systemSeq.Add(1))
	tr := &Tracker{System: system, Game: "TestGame-" + system}

	retro.RegisterCore(system, func() (retro.Core, error) {
		c := &Core{cfg: cfg}
		c.powerOn()

		tr.mu.Lock()
		tr.cores = append(tr.cores, c)
		tr.mu.Unlock()

		return c, nil
	}, romExt)

	return tr
}

func (c *Core) powerOn() {
	c.mem = [memSize]byte{}
	c.mem[addrLives] = 3
	c.frames = 0
	c.keys = nil
}

// LoadROM implements [retro.Core].
func (c *Core) LoadROM(rom []byte) error {
	if len(rom) == 0 {
		return errors.New("empty rom")
	}

	return nil
}

// Buttons implements [retro.Core].
func (c *Core) Buttons() []string {
	return Buttons
}

// SetKeys implements [retro.Core].
func (c *Core) SetKeys(player int, keys []bool) {
	for len(c.keys) <= player {
		c.keys = append(c.keys, nil)
	}

	c.keys[player] = append([]bool(nil), keys...)
}

// Run implements [retro.Core].
func (c *Core) Run() error {
	c.frames++

	if c.cfg.FailAt > 0 && c.frames == c.cfg.FailAt {
		return ErrInjected
	}

	c.mem[addrFrame]++

	if len(c.keys) > 0 && len(c.keys[0]) > ButtonA && c.keys[0][ButtonA] {
		score := int(c.mem[addrScore])<<8 | int(c.mem[addrScore+1])
		score++
		c.mem[addrScore] = byte(score >> 8)
		c.mem[addrScore+1] = byte(score)
	}

	if c.cfg.DieAt > 0 && int(c.mem[addrFrame]) >= c.cfg.DieAt {
		c.mem[addrLives] = 0
	}

	return nil
}

// Screen implements [retro.Core].
func (c *Core) Screen() *image.RGBA {
	img := c.screen
	if img == nil || !c.cfg.ReuseScreen {
		img = image.NewRGBA(image.Rect(0, 0, 4, 4))
		c.screen = img
	}

	f := c.mem[addrFrame]
	fill := color.RGBA{R: f * 10, G: 255 - f*10, B: f, A: 255}

	for y := range 4 {
		for x := range 4 {
			img.SetRGBA(x, y, fill)
		}
	}

	return img
}

// ReadMemory implements [retro.Core].
func (c *Core) ReadMemory(addr, n int) ([]byte, error) {
	if addr < 0 || addr+n > memSize {
		return nil, fmt.Errorf("read %d bytes at %d: out of range", n, addr)
	}

	return append([]byte(nil), c.mem[addr:addr+n]...), nil
}

// Serialize implements [retro.Core].
func (c *Core) Serialize() ([]byte, error) {
	return append([]byte(nil), c.mem[:]...), nil
}

// Unserialize implements [retro.Core].
func (c *Core) Unserialize(state []byte) error {
	if len(state) != memSize {
		return fmt.Errorf("state has %d bytes, want %d", len(state), memSize)
	}

	copy(c.mem[:], state)

	return nil
}

// Reset implements [retro.Core].
func (c *Core) Reset() error {
	c.powerOn()

	return nil
}

// Close implements [retro.Core].
func (c *Core) Close() error {
	c.closed.Add(1)

	return nil
}

// CloseCount returns how many times Close was called.
func (c *Core) CloseCount() int {
	return int(c.closed.Load())
}

// Frames returns how many times Run was called since power-on.
func (c *Core) Frames() int {
	return c.frames
}

// State builds a serialized fake core state.
func State(frame byte, score uint16, lives byte) []byte {
	s := make([]byte, memSize)
	s[addrFrame] = frame
	s[addrScore] = byte(score >> 8)
	s[addrScore+1] = byte(score)
	s[addrLives] = lives

	return s
}

// Integration describes the fixture written by [WriteIntegration].
type Integration struct {
	// States maps state names to uncompressed core states.
	States       map[string][]byte
	DefaultState string
	// BadSHA writes a rom.sha that does not match the ROM.
	BadSHA bool
	// NoScenario skips scenario.json.
	NoScenario bool
}

// WriteIntegration writes an integration directory for tr.Game under root
// and returns the game directory.
func WriteIntegration(t *testing.T, root string, tr *Tracker, in Integration) string {
	t.Helper()

	dir := filepath.Join(root, tr.Game)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	rom := []byte("fake rom for " + tr.Game)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rom."+romExt), rom, 0o600))

	sum := sha1.Sum(rom) //nolint:gosec // Matches rom.sha.
	if in.BadSHA {
		sum[0] ^= 0xff
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rom.sha"), []byte(hex.EncodeToString(sum[:])+"\n"), 0o600))

	writeJSON(t, filepath.Join(dir, "data.json"), map[string]any{
		"info": map[string]any{
			"frame": map[string]any{"address": addrFrame, "type": "|u1"},
			"score": map[string]any{"address": addrScore, "type": ">u2"},
			"lives": map[string]any{"address": addrLives, "type": "|u1"},
		},
	})

	if !in.NoScenario {
		writeJSON(t, filepath.Join(dir, "scenario.json"), map[string]any{
			"done": map[string]any{
				"variables": map[string]any{
					"lives": map[string]any{"op": "zero"},
				},
			},
			"reward": map[string]any{
				"variables": map[string]any{
					"score": map[string]any{"reward": 1.0},
				},
			},
		})
	}

	if in.DefaultState != "" {
		writeJSON(t, filepath.Join(dir, "metadata.json"), map[string]any{"default_state": in.DefaultState})
	}

	for name, state := range in.States {
		gz, err := retro.CompressState(state)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".state"), gz, 0o600))
	}

	return dir
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()

	raw, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
}

// WriteMovie records frames (players × len(Buttons) keys each) for game.
func WriteMovie(t *testing.T, path, game string, players int, state []byte, frames [][]bool) {
	t.Helper()

	w, err := movie.Create(path, game, players, Buttons)
	require.NoError(t, err)

	w.SetState(state)

	for _, f := range frames {
		require.NoError(t, w.AddFrame(f))
	}

	require.NoError(t, w.Close())
}

// Frames builds n single-player frames, holding A on the frames listed in
// pressA.
func Frames(n int, pressA ...int) [][]bool {
	out := make([][]bool, n)
	for i := range out {
		out[i] = make([]bool, len(Buttons))
	}

	for _, i := range pressA {
		out[i][ButtonA] = true
	}

	return out
}
