package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format is an output encoding for [Variables].
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatTSV writes one row per frame.
	FormatTSV Format = "tsv"
)

// ErrUnknownFormat is returned for unsupported format names or extensions.
var ErrUnknownFormat = errors.New("unknown format")

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTSV)}
}

// ParseFormat parses a format name. "yml" is an alias of yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "tsv":
		return FormatTSV, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format from the extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}

	return ParseFormat(ext)
}

// Write validates v and encodes it to w.
func Write(w io.Writer, v *Variables, f Format) error {
	err := v.Validate()
	if err != nil {
		return err
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)

	case FormatYAML:
		out, err := yaml.Marshal(v.mapSlice())
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		_, err = w.Write(out)

		return err

	case FormatTSV:
		return writeTSV(w, v)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile writes v to path in the format given by its extension.
func WriteFile(path string, v *Variables) (rerr error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		err := out.Close()
		if err != nil && rerr == nil {
			rerr = err
		}
	}()

	return Write(out, v, f)
}

func (v *Variables) mapSlice() yaml.MapSlice {
	cols := v.Columns()
	ms := make(yaml.MapSlice, 0, len(cols))

	for _, k := range cols {
		ms = append(ms, yaml.MapItem{Key: k, Value: v.Value(k)})
	}

	return ms
}

// writeTSV writes one row per frame. Metadata columns come first; a
// metadata column shadowed by a series of the same name takes its per-frame
// values, as in [Variables.Map].
func writeTSV(w io.Writer, v *Variables) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	meta := []string{KeyFilename, KeySubject, KeySession, KeyLevel}

	var series []string

	for _, k := range v.Columns() {
		if slices.Contains(meta, k) || (k == KeyActions && !v.isSeries(k)) {
			continue
		}

		series = append(series, k)
	}

	header := append(append(append([]string{}, meta...), "frame"), series...)

	err := cw.Write(header)
	if err != nil {
		return err
	}

	for i := range v.Frames {
		row := make([]string, 0, len(header))
		for _, k := range meta {
			row = append(row, v.cell(k, i))
		}

		row = append(row, strconv.Itoa(i))

		for _, k := range series {
			row = append(row, v.cell(k, i))
		}

		err := cw.Write(row)
		if err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func (v *Variables) isSeries(k string) bool {
	switch v.Value(k).(type) {
	case []int, []bool:
		return true
	}

	return false
}

// cell formats column k at frame i.
func (v *Variables) cell(k string, i int) string {
	switch x := v.Value(k).(type) {
	case []int:
		return strconv.Itoa(x[i])
	case []bool:
		return strconv.FormatBool(x[i])
	case string:
		return x
	}

	return ""
}
