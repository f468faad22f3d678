package retro

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	dataSchema     = mustResolve(dataDocSchema())
	scenarioSchema = mustResolve(scenarioDocSchema())
)

func dataDocSchema() *jsonschema.Schema {
	variable := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"address", "type"},
		Properties: map[string]*jsonschema.Schema{
			"address": {Type: "integer", Minimum: jsonschema.Ptr(0.0)},
			"type":    {Type: "string", Pattern: `^[<>=|][uidn][1-8]$`},
		},
	}

	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"info"},
		Properties: map[string]*jsonschema.Schema{
			"info": {Type: "object", AdditionalProperties: variable},
		},
	}
}

func scenarioDocSchema() *jsonschema.Schema {
	ops := make([]any, 0, len(Ops))
	for _, op := range Ops {
		ops = append(ops, op)
	}

	condition := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"op"},
		Properties: map[string]*jsonschema.Schema{
			"op":        {Type: "string", Enum: ops},
			"reference": {Type: "integer"},
		},
	}

	term := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"reward":  {Type: "number"},
			"penalty": {Type: "number"},
		},
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"done": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"condition": {Type: "string", Enum: []any{"any", "all"}},
					"variables": {Type: "object", AdditionalProperties: condition},
				},
			},
			"reward": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"variables": {Type: "object", AdditionalProperties: term},
				},
			},
		},
	}
}

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	rs, err := s.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("resolving built-in schema: %v", err))
	}

	return rs
}

// decodeValidated validates raw JSON against rs before decoding it into v.
func decodeValidated(raw []byte, rs *jsonschema.Resolved, v any) error {
	var instance any

	err := json.Unmarshal(raw, &instance)
	if err != nil {
		return err
	}

	err = rs.Validate(instance)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}
