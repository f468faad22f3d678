package dataset

import (
	"path/filepath"
	"strings"
)

// Entities are the key-value tokens of a filename.
type Entities map[string]string

// ParseEntities splits the base name of path on "_" and each token holding a
// "-" on its first "-". Tokens without "-" are ignored. The file extension is
// not stripped, so it stays attached to the last value. No filesystem access
// is performed.
func ParseEntities(path string) Entities {
	out := make(Entities)

	for token := range strings.SplitSeq(filepath.Base(path), "_") {
		key, value, ok := strings.Cut(token, "-")
		if !ok {
			continue
		}

		out[key] = value
	}

	return out
}

// Subject returns the "sub" entity.
func (e Entities) Subject() string { return e["sub"] }

// Session returns the "ses" entity.
func (e Entities) Session() string { return e["ses"] }

// Level returns the "level" entity.
func (e Entities) Level() string { return e["level"] }
