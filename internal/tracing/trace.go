// Package tracing provides optional observation of messages as they
// cross a connection boundary, grounded on the teacher's
// internal/tracing Decoder/Encoder wrapping idea: a Func is handed
// every message in or out, unmodified and uncopied, without the
// caller needing to fork its read/write path to get at them.
// Retargeted from styxproto.Msg to wireproto.Message since 9P's frame
// type has no analog in this protocol.
package tracing

import "github.com/sid3xyz/slircd/wireproto"

// Direction distinguishes a message read from the wire from one about
// to be written to it.
type Direction byte

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Func observes one message crossing a connection. m must not be
// retained past the call or modified.
type Func func(dir Direction, remote string, m *wireproto.Message)

// Trace calls fn if non-nil, so call sites never need a nil check of
// their own.
func Trace(fn Func, dir Direction, remote string, m *wireproto.Message) {
	if fn == nil {
		return
	}
	fn(dir, remote, m)
}
