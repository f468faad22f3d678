// Package movie reads and writes BK2 movie archives: recorded per-frame
// controller input for one play session, plus an optional initial emulator
// state.
//
// A BK2 file is a zip archive with three members:
//
//	Header.txt     "Key Value" lines (GameName, Platform, Author, ...)
//	Input Log.txt  the LogKey column layout followed by one line per frame
//	Core.bin       optional serialized emulator state to start from
//
// The input log names its columns on the LogKey line, grouped per
// controller:
//
//	[Input]
//	LogKey:#P1 B|P1 SELECT|P1 START|#P2 B|P2 SELECT|P2 START|
//	|B..|...|
//	|...|.S.|
//	[/Input]
//
// A "." marks a released button; any other character marks it pressed.
//
// A [Movie] is consumed sequentially with [Movie.Step] and [Movie.Key]. Use
// [Create] to record a new movie.
package movie
