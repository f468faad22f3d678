package dataset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrInvalid is returned when a record does not match its schema.
var ErrInvalid = errors.New("invalid variables")

// Schema returns a JSON Schema describing [Variables.Map] for v. Every
// series is pinned to exactly v.Frames items, so a record that passes
// validation is time-aligned.
func (v *Variables) Schema() *jsonschema.Schema {
	nullableString := func() *jsonschema.Schema {
		return &jsonschema.Schema{Types: []string{"string", "null"}}
	}

	props := map[string]*jsonschema.Schema{
		KeyFilename: {Type: "string"},
		KeyLevel:    nullableString(),
		KeySubject:  nullableString(),
		KeySession:  nullableString(),
		KeyActions: {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
	}

	series := func(item string) *jsonschema.Schema {
		return &jsonschema.Schema{
			Type:     "array",
			Items:    &jsonschema.Schema{Type: item},
			MinItems: jsonschema.Ptr(v.Frames),
			MaxItems: jsonschema.Ptr(v.Frames),
		}
	}

	for _, k := range v.InfoKeys {
		props[k] = series("integer")
	}

	for _, k := range v.buttonColumns() {
		props[k] = series("boolean")
	}

	return &jsonschema.Schema{
		Title:      "repetition variables",
		Type:       "object",
		Properties: props,
		Required:   v.Columns(),
	}
}

// Validate checks the JSON form of v against [Variables.Schema].
func (v *Variables) Validate() error {
	err := v.Check()
	if err != nil {
		return err
	}

	rs, err := v.Schema().Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving schema: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var instance any

	err = json.Unmarshal(raw, &instance)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	err = rs.Validate(instance)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}
