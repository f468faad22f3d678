package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"
)

// Kind is an export file type.
type Kind string

// Export kinds.
const (
	KindGIF  Kind = "gif"
	KindWebP Kind = "webp"
	KindMP4  Kind = "mp4"
)

// ErrUnknownKind indicates an unsupported export file type.
var ErrUnknownKind = errors.New("unknown export kind")

// KindNames returns all export kinds as strings.
func KindNames() []string {
	return []string{string(KindGIF), string(KindWebP), string(KindMP4)}
}

// KindFromPath returns the export kind for a file extension.
func KindFromPath(path string) (Kind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !slices.Contains(KindNames(), ext) {
		return "", fmt.Errorf("%w: %q, valid kinds: %s", ErrUnknownKind, path, strings.Join(KindNames(), ", "))
	}

	return Kind(ext), nil
}

// Export writes frames to path in the format named by its extension.
// MP4 options are ignored for other kinds.
func (e *Encoder) Export(ctx context.Context, frames []image.Image, path string, opts ...MP4Option) error {
	kind, err := KindFromPath(path)
	if err != nil {
		return err
	}

	switch kind {
	case KindGIF:
		return e.GIF(frames, path)
	case KindWebP:
		return e.WebP(ctx, frames, path)
	default:
		return e.MP4(ctx, frames, path, opts...)
	}
}
