package slircd

import (
	"sync"

	"github.com/sid3xyz/slircd/internal/tracing"
	"github.com/sid3xyz/slircd/transport"
	"github.com/sid3xyz/slircd/wireproto"
)

// connAdapter bridges a *transport.Conn's error-returning
// WriteMessage to the no-return Deliver shape channel.Sender and
// session.ConnSender both require, mirroring the teacher's errWriter
// idea of folding a write error into out-of-band state rather than
// threading it back through every call site: a delivery failure closes
// the connection so the read loop's own error handling tears the
// rest of the session down.
//
// c's own Close is documented safe to call exactly once, so close is
// the only path that ever reaches it: a blocked read unblocks onto
// the same path once the underlying carrier is closed, and handleConn
// closes through this adapter rather than the Conn directly.
type connAdapter struct {
	c     *transport.Conn
	trace tracing.Func

	once sync.Once
}

func (a *connAdapter) Deliver(m *wireproto.Message) {
	tracing.Trace(a.trace, tracing.Out, a.c.RemoteAddr(), m)
	if err := a.c.WriteMessage(m); err != nil {
		a.close()
	}
}

func (a *connAdapter) close() {
	a.once.Do(func() { a.c.Close() })
}
