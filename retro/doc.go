// Package retro runs emulator sessions for games described by gym-retro
// style integration data.
//
// The emulator itself is a [Core], supplied by a per-system implementation
// registered with [RegisterCore]. This package adds what sits on top of the
// core: locating a game's integration directory, verifying its ROM,
// decoding the telemetry variables listed in data.json from emulator memory,
// and evaluating the reward and done conditions of a scenario.
//
// An integration directory looks like:
//
//	SuperMarioBros-Nes/
//	    rom.nes         ROM image; the extension selects the core
//	    rom.sha         optional SHA-1 of the ROM
//	    data.json       {"info": {"score": {"address": 2013, "type": ">n6"}}}
//	    scenario.json   optional reward and done definitions
//	    metadata.json   optional {"default_state": "Level1-1"}
//	    Level1-1.state  gzip compressed core state
//
// The system name is the suffix after the last "-" of the game name.
//
// Variable types follow the numpy-like notation used by gym-retro: an
// endianness ("<" little, ">" big, "=" and "|" little), a kind ("u"
// unsigned, "i" signed, "d" binary coded decimal, "n" low nibble decimal)
// and a size in bytes, for example ">u2" or "|d1".
package retro
