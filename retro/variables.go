package retro

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Variable is one telemetry entry of data.json.
type Variable struct {
	Type    string `json:"type"`
	Address int    `json:"address"`

	size      int
	kind      byte
	bigEndian bool
}

var errBadType = errors.New("bad variable type")

func (v *Variable) compile() error {
	if len(v.Type) < 3 {
		return fmt.Errorf("%w: %q", errBadType, v.Type)
	}

	switch v.Type[0] {
	case '>':
		v.bigEndian = true
	case '<', '=', '|':
		v.bigEndian = false
	default:
		return fmt.Errorf("%w: endianness %q", errBadType, v.Type[0])
	}

	switch v.Type[1] {
	case 'u', 'i', 'd', 'n':
		v.kind = v.Type[1]
	default:
		return fmt.Errorf("%w: kind %q", errBadType, v.Type[1])
	}

	size, err := strconv.Atoi(v.Type[2:])
	if err != nil || size < 1 || size > 8 {
		return fmt.Errorf("%w: size %q", errBadType, v.Type[2:])
	}

	v.size = size

	return nil
}

// Decode converts raw memory into the variable's value.
func (v Variable) Decode(raw []byte) (int, error) {
	if len(raw) != v.size {
		return 0, fmt.Errorf("got %d bytes for %s, want %d", len(raw), v.Type, v.size)
	}

	// Walk most significant byte first.
	ordered := make([]byte, len(raw))
	copy(ordered, raw)

	if !v.bigEndian {
		slices.Reverse(ordered)
	}

	var n uint64

	switch v.kind {
	case 'u', 'i':
		for _, b := range ordered {
			n = n<<8 | uint64(b)
		}

		if v.kind == 'i' && v.size < 8 && n&(1<<(8*v.size-1)) != 0 {
			n |= ^uint64(0) << (8 * v.size)
		}

		return int(int64(n)), nil

	case 'd':
		for _, b := range ordered {
			n = n*100 + uint64(b>>4)*10 + uint64(b&0x0f)
		}

	case 'n':
		for _, b := range ordered {
			n = n*10 + uint64(b&0x0f)
		}
	}

	return int(n), nil
}

// Read decodes every variable from the core's memory.
func (in *Integration) Read(core Core) (map[string]int, error) {
	info := make(map[string]int, len(in.Variables))

	for _, name := range slices.Sorted(maps.Keys(in.Variables)) {
		v := in.Variables[name]

		raw, err := core.ReadMemory(v.Address, v.size)
		if err != nil {
			return nil, err
		}

		value, err := v.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}

		info[name] = value
	}

	return info, nil
}
