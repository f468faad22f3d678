package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// ErrMisaligned is returned when series lengths disagree with the number of
// frames.
var ErrMisaligned = errors.New("misaligned frames")

// Metadata keys of [Variables.Map].
const (
	KeyFilename = "filename"
	KeyLevel    = "level"
	KeySubject  = "subject"
	KeySession  = "session"
	KeyActions  = "actions"
)

var metadataKeys = []string{KeyFilename, KeyLevel, KeySubject, KeySession, KeyActions}

// Variables is the flattened, time-aligned dataset of one replay. Every
// series in Info and Keys has exactly Frames values.
type Variables struct {
	Info     map[string][]int
	Keys     map[string][]bool
	Filename string
	Level    string
	Subject  string
	Session  string
	Actions  []string
	// InfoKeys lists the Info series in first-seen order.
	InfoKeys []string
	Frames   int
}

type options struct {
	logger *slog.Logger
	fill   int
}

// Option configures [Reformat].
type Option func(*options)

// WithFill sets the value recorded for a variable on frames whose info
// lacks it. The default is 0.
func WithFill(v int) Option {
	return func(o *options) { o.fill = v }
}

// WithLogger sets the logger used to report filled values.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Reformat builds [Variables] from per-frame info mappings and key vectors.
//
// keys[i][j] is the state of actions[j] on frame i; extra values (other
// players) are ignored. Empty action names are placeholders and get no
// series. Info series cover the union of keys over all frames; a frame
// missing a key records the fill value.
func Reformat(info []map[string]int, keys [][]bool, path string, actions []string, opts ...Option) (*Variables, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if len(info) != len(keys) {
		return nil, fmt.Errorf("%w: %d info records, %d key records", ErrMisaligned, len(info), len(keys))
	}

	ents := ParseEntities(path)

	v := &Variables{
		Filename: path,
		Level:    ents.Level(),
		Subject:  ents.Subject(),
		Session:  ents.Session(),
		Actions:  actions,
		Frames:   len(info),
		Info:     make(map[string][]int),
		Keys:     make(map[string][]bool),
	}

	for _, frame := range info {
		for _, k := range sortedKeys(frame) {
			if _, ok := v.Info[k]; !ok {
				v.InfoKeys = append(v.InfoKeys, k)
				v.Info[k] = make([]int, 0, len(info))
			}
		}
	}

	for j, name := range actions {
		if name == "" || slices.Index(actions, name) != j {
			continue
		}

		v.Keys[name] = make([]bool, 0, len(keys))
	}

	filled := make(map[string]int)

	for i, frame := range info {
		for _, k := range v.InfoKeys {
			value, ok := frame[k]
			if !ok {
				value = o.fill
				filled[k]++
			}

			v.Info[k] = append(v.Info[k], value)
		}

		if len(keys[i]) < len(actions) {
			return nil, fmt.Errorf("%w: frame %d has %d keys, want at least %d", ErrMisaligned, i, len(keys[i]), len(actions))
		}

		for j, name := range actions {
			series, ok := v.Keys[name]
			if !ok || len(series) > i {
				continue
			}

			v.Keys[name] = append(series, keys[i][j])
		}
	}

	for _, k := range v.InfoKeys {
		if n := filled[k]; n > 0 {
			o.logger.Warn("info variable missing on some frames",
				slog.String("variable", k),
				slog.Int("frames", n),
				slog.Int("fill", o.fill),
			)
		}
	}

	return v, nil
}

// sortedKeys returns the keys of m in a stable order so that InfoKeys does
// not depend on map iteration.
func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// Columns returns the keys of [Variables.Map] in output order: metadata,
// info series, then button series. A series named like a metadata key
// replaces it.
func (v *Variables) Columns() []string {
	cols := make([]string, 0, len(metadataKeys)+len(v.InfoKeys)+len(v.Keys))
	seen := make(map[string]bool)

	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			cols = append(cols, k)
		}
	}

	for _, k := range metadataKeys {
		add(k)
	}

	for _, k := range v.InfoKeys {
		add(k)
	}

	for _, k := range v.buttonColumns() {
		add(k)
	}

	return cols
}

func (v *Variables) buttonColumns() []string {
	out := make([]string, 0, len(v.Keys))

	for j, name := range v.Actions {
		if name == "" || slices.Index(v.Actions, name) != j {
			continue
		}

		out = append(out, name)
	}

	return out
}

// Value returns the value of column k as it appears in [Variables.Map].
func (v *Variables) Value(k string) any {
	if s, ok := v.Keys[k]; ok {
		return s
	}

	if s, ok := v.Info[k]; ok {
		return s
	}

	switch k {
	case KeyFilename:
		return v.Filename
	case KeyLevel:
		return optional(v.Level)
	case KeySubject:
		return optional(v.Subject)
	case KeySession:
		return optional(v.Session)
	case KeyActions:
		return v.Actions
	}

	return nil
}

// optional maps an empty entity value to nil. A name token with nothing
// after the dash, such as "level-", therefore reads as absent rather than
// as an empty string.
func optional(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// Map returns the flat record: filename, level, subject, session and
// actions, plus one entry per info variable and per button. Absent
// filename entities are nil.
func (v *Variables) Map() map[string]any {
	out := make(map[string]any)
	for _, k := range v.Columns() {
		out[k] = v.Value(k)
	}

	return out
}

// MarshalJSON encodes [Variables.Map].
func (v *Variables) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// Check verifies that every series has Frames values.
func (v *Variables) Check() error {
	for k, s := range v.Info {
		if len(s) != v.Frames {
			return fmt.Errorf("%w: %q has %d values, want %d", ErrMisaligned, k, len(s), v.Frames)
		}
	}

	for k, s := range v.Keys {
		if len(s) != v.Frames {
			return fmt.Errorf("%w: %q has %d values, want %d", ErrMisaligned, k, len(s), v.Frames)
		}
	}

	return nil
}
