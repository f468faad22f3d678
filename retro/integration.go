package retro

import (
	"crypto/sha1" //nolint:gosec // rom.sha files hold SHA-1 digests.
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfiguration indicates that a game cannot be set up: it has no
// integration data, its ROM is missing or does not match, or a requested
// state or scenario does not exist.
var ErrConfiguration = errors.New("configuration error")

// Integrations selects which integration directories are searched.
type Integrations uint8

const (
	Stable Integrations = 1 << iota
	Experimental
	Contrib
	Custom

	// CustomOnly searches only the custom data paths.
	CustomOnly = Custom
	// All searches every integration directory.
	All = Stable | Experimental | Contrib | Custom
)

var integrationNames = []struct {
	name string
	bits Integrations
}{
	{"stable", Stable},
	{"experimental", Experimental},
	{"contrib", Contrib},
	{"custom", Custom},
}

// ParseIntegrations parses a comma separated list of integration names.
// Accepted names are stable, experimental, contrib, custom, custom_only and
// all.
func ParseIntegrations(s string) (Integrations, error) {
	var out Integrations

	for part := range strings.SplitSeq(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))

		switch name {
		case "":
			continue
		case "all":
			out |= All

			continue
		case "custom_only", "custom-only":
			out |= CustomOnly

			continue
		}

		found := false

		for _, n := range integrationNames {
			if n.name == name {
				out |= n.bits
				found = true
			}
		}

		if !found {
			return 0, fmt.Errorf("unknown integration type %q", part)
		}
	}

	if out == 0 {
		return 0, fmt.Errorf("no integration type in %q", s)
	}

	return out, nil
}

// IntegrationNames returns the names accepted by [ParseIntegrations].
func IntegrationNames() []string {
	return []string{"stable", "experimental", "contrib", "custom", "custom_only", "all"}
}

func (i Integrations) String() string {
	if i == All {
		return "all"
	}

	var names []string

	for _, n := range integrationNames {
		if i&n.bits != 0 {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, ",")
}

// DataPaths locates integration directories on disk.
type DataPaths struct {
	// Root holds the stable, experimental and contrib subdirectories.
	Root string
	// Custom lists extra directories searched for [Custom] integrations.
	Custom []string
}

// DefaultDataPaths returns a [DataPaths] rooted at $RETRO_DATA_PATH.
func DefaultDataPaths() DataPaths {
	return DataPaths{Root: os.Getenv("RETRO_DATA_PATH")}
}

// search returns candidate directories in priority order: custom paths
// first, then stable, contrib and experimental.
func (d DataPaths) search(inttype Integrations) []string {
	var dirs []string

	if inttype&Custom != 0 {
		dirs = append(dirs, d.Custom...)
	}

	if d.Root == "" {
		return dirs
	}

	for _, sub := range []struct {
		name string
		bits Integrations
	}{
		{"stable", Stable},
		{"contrib", Contrib},
		{"experimental", Experimental},
	} {
		if inttype&sub.bits != 0 {
			dirs = append(dirs, filepath.Join(d.Root, sub.name))
		}
	}

	return dirs
}

// FindGame returns the integration directory of game.
func (d DataPaths) FindGame(game string, inttype Integrations) (string, error) {
	if game == "" {
		return "", fmt.Errorf("%w: empty game name", ErrConfiguration)
	}

	for _, dir := range d.search(inttype) {
		candidate := filepath.Join(dir, game)

		_, err := os.Stat(filepath.Join(candidate, dataFile))
		if err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no %s integration data for game %q", ErrConfiguration, inttype, game)
}

const (
	dataFile     = "data.json"
	scenarioFile = "scenario.json"
	metadataFile = "metadata.json"
	shaFile      = "rom.sha"
)

// Metadata is the content of metadata.json.
type Metadata struct {
	DefaultState string `json:"default_state"`
}

// Integration is the loaded integration data of one game.
type Integration struct {
	Variables map[string]Variable
	Game      string
	Dir       string
	System    string
	Metadata  Metadata
}

// LoadIntegration reads data.json and metadata.json from dir.
func LoadIntegration(game, dir string) (*Integration, error) {
	raw, err := os.ReadFile(filepath.Join(dir, dataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	var doc struct {
		Info map[string]Variable `json:"info"`
	}

	err = decodeValidated(raw, dataSchema, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, dataFile, err)
	}

	for name, v := range doc.Info {
		err := v.compile()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: variable %q: %w", ErrConfiguration, dataFile, name, err)
		}

		doc.Info[name] = v
	}

	integ := &Integration{
		Game:      game,
		Dir:       dir,
		System:    SystemOf(game),
		Variables: doc.Info,
	}

	raw, err = os.ReadFile(filepath.Join(dir, metadataFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	default:
		err = json.Unmarshal(raw, &integ.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, metadataFile, err)
		}
	}

	return integ, nil
}

// LoadScenario reads <name>.json from the integration directory. An empty
// name loads scenario.json, which may be absent.
func (in *Integration) LoadScenario(name string) (*Scenario, error) {
	file := scenarioFile
	if name != "" {
		file = strings.TrimSuffix(name, ".json") + ".json"
	}

	raw, err := os.ReadFile(filepath.Join(in.Dir, file))
	if errors.Is(err, fs.ErrNotExist) && name == "" {
		return &Scenario{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: scenario: %w", ErrConfiguration, err)
	}

	var sc Scenario

	err = decodeValidated(raw, scenarioSchema, &sc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, file, err)
	}

	return &sc, nil
}

// ROM finds the ROM image for extensions and checks it against rom.sha when
// present.
func (in *Integration) ROM(extensions []string) ([]byte, error) {
	for _, ext := range extensions {
		path := filepath.Join(in.Dir, "rom."+ext)

		rom, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		err = in.verifyROM(rom)
		if err != nil {
			return nil, err
		}

		return rom, nil
	}

	return nil, fmt.Errorf("%w: no ROM for %q in %s (tried extensions %v)",
		ErrConfiguration, in.Game, in.Dir, extensions)
}

func (in *Integration) verifyROM(rom []byte) error {
	raw, err := os.ReadFile(filepath.Join(in.Dir, shaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	sum := sha1.Sum(rom) //nolint:gosec // Matches rom.sha.
	got := hex.EncodeToString(sum[:])

	for want := range strings.FieldsSeq(string(raw)) {
		if strings.EqualFold(want, got) {
			return nil
		}
	}

	return fmt.Errorf("%w: ROM for %q does not match %s", ErrConfiguration, in.Game, shaFile)
}

// StatePath returns the path of a named state file.
func (in *Integration) StatePath(name string) string {
	return filepath.Join(in.Dir, strings.TrimSuffix(name, ".state")+".state")
}
