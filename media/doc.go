// Package media exports replayed frames as GIF, WebP and MP4 files.
//
// GIF encoding is done in process. WebP and MP4 encoding shell out to
// ffmpeg, which must be on PATH or configured with [WithFFmpeg]. MP4 export
// can mux an audio track: the samples are written to a temporary WAV file
// and combined with the silent video in a second ffmpeg run. Temporary files
// are removed on every exit path.
//
// An empty frame list is not an error: GIF and WebP export log a warning
// and write nothing.
package media
