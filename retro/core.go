package retro

import (
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
)

// Core is a native emulator able to run one game.
//
// Implementations are not required to be safe for concurrent use. An [Env]
// owns its core and calls Close exactly once.
type Core interface {
	// LoadROM loads a ROM image.
	LoadROM(rom []byte) error
	// Buttons returns the button names of one controller, in the order used
	// by SetKeys. Unused slots are empty strings.
	Buttons() []string
	// SetKeys sets the button state of a controller for the next Run.
	SetKeys(player int, keys []bool)
	// Run emulates one frame.
	Run() error
	// Screen returns the last rendered frame. The image may be reused by
	// the core on the next Run; [Env] copies it before handing it out.
	Screen() *image.RGBA
	// ReadMemory reads n bytes starting at addr.
	ReadMemory(addr, n int) ([]byte, error)
	// Serialize returns a snapshot of the emulator state.
	Serialize() ([]byte, error)
	// Unserialize restores a snapshot returned by Serialize.
	Unserialize(state []byte) error
	// Reset powers the emulated system on again.
	Reset() error
	Close() error
}

// NewCoreFunc creates a [Core].
type NewCoreFunc func() (Core, error)

type coreEntry struct {
	newCore    NewCoreFunc
	extensions []string
}

var (
	coresMu sync.RWMutex
	cores   = make(map[string]coreEntry)
)

// RegisterCore makes a core available for system. extensions lists the ROM
// file extensions (without the dot) the core accepts. Registering the same
// system twice replaces the previous core.
func RegisterCore(system string, newCore NewCoreFunc, extensions ...string) {
	coresMu.Lock()
	defer coresMu.Unlock()

	cores[system] = coreEntry{newCore: newCore, extensions: extensions}
}

// Systems returns the registered system names, sorted.
func Systems() []string {
	coresMu.RLock()
	defer coresMu.RUnlock()

	out := make([]string, 0, len(cores))
	for name := range cores {
		out = append(out, name)
	}

	slices.Sort(out)

	return out
}

func lookupCore(system string) (coreEntry, error) {
	coresMu.RLock()
	defer coresMu.RUnlock()

	entry, ok := cores[system]
	if !ok {
		return coreEntry{}, fmt.Errorf("%w: no core registered for system %q", ErrConfiguration, system)
	}

	return entry, nil
}

// SystemOf returns the system part of a game name, e.g. "Nes" for
// "SuperMarioBros-Nes".
func SystemOf(game string) string {
	i := strings.LastIndexByte(game, '-')
	if i < 0 {
		return ""
	}

	return game[i+1:]
}
