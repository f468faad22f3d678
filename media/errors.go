package media

import (
	"errors"
	"fmt"
)

var (
	// ErrToolMissing indicates that a required external binary cannot be
	// found.
	ErrToolMissing = errors.New("external tool missing")
	// ErrMux indicates that muxing audio and video failed. When the
	// multiplexer ran, [errors.As] with [*MuxError] gives its exit status.
	ErrMux = errors.New("mux failed")
	// ErrEncode indicates that an external encoder exited with an error.
	ErrEncode = errors.New("encode failed")
	// ErrFrameSize indicates frames of different sizes.
	ErrFrameSize = errors.New("frames differ in size")
)

// MuxError reports a non-zero exit of the multiplexer.
type MuxError struct {
	Err      error
	Tool     string
	Stderr   string
	ExitCode int
}

func (e *MuxError) Error() string {
	msg := fmt.Sprintf("%s: %s exited with status %d", ErrMux, e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Is matches [ErrMux].
func (e *MuxError) Is(target error) bool {
	return target == ErrMux
}

func (e *MuxError) Unwrap() error {
	return e.Err
}
