// Package replay drives an emulator session with the input recorded in a
// BK2 movie and yields one [Step] per logged frame.
//
// A [Session] owns two resources, the movie and the emulator, and releases
// both in [Session.Close]. [Steps] wraps a session in an iterator that
// closes it when the loop ends, including when the caller breaks early:
//
//	for step, err := range replay.Steps(path, opts) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// [Collect] replays a whole movie and reshapes it with [dataset.Reformat].
package replay
