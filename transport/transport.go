package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sid3xyz/slircd/wireproto"
)

// Kind identifies which concrete carrier a Conn is wrapping. Handlers
// that need to vary behaviour by transport switch on this rather than
// on a type assertion.
type Kind int

const (
	KindTCP Kind = iota
	KindTLS
	KindWebSocket
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindTLS:
		return "tls"
	case KindWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// A Conn is one client connection, regardless of carrier. It pairs a
// single io.ReadWriteCloser with a wireproto.Scanner for reads and a
// pooled bufio.Writer for writes, mirroring a single-rwc conn design
// (rwc + Decoder + Encoder) rather than exposing TCP, TLS, and
// WebSocket as distinct Go types. Everything above this package -
// handshake, session, router - speaks only in terms of Conn and
// wireproto messages.
type Conn struct {
	kind       Kind
	rwc        io.ReadWriteCloser
	remoteAddr string

	scanner *wireproto.Scanner

	writeMu sync.Mutex
	bw      *bufio.Writer
}

// New wraps rwc, read through a wireproto.Scanner sized bufSize (0
// selects wireproto.DefaultBufSize), as a Conn of the given Kind.
func New(kind Kind, rwc io.ReadWriteCloser, remoteAddr string, bufSize int) *Conn {
	var s *wireproto.Scanner
	if bufSize > 0 {
		s = wireproto.NewScannerSize(rwc, bufSize)
	} else {
		s = newScanner(rwc)
	}
	return &Conn{
		kind:       kind,
		rwc:        rwc,
		remoteAddr: remoteAddr,
		scanner:    s,
		bw:         newBufioWriter(rwc),
	}
}

// Kind reports which carrier this Conn wraps.
func (c *Conn) Kind() Kind { return c.kind }

// RemoteAddr returns the address recorded at construction time. It is
// a string, not a net.Addr, so that a WebSocket connection (whose real
// peer address comes from the HTTP request, not the upgraded
// websocket.Conn) can report the same thing a TCP connection does.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// Underlying returns the raw carrier, for transport-level operations
// (STARTTLS upgrade, TLS state inspection) that must reach below the
// Conn abstraction. Callers must not read, write, or close it
// directly; use Conn's own methods for that.
func (c *Conn) Underlying() io.ReadWriteCloser { return c.rwc }

// Next advances the Scanner to the next message. It returns false at
// EOF or on a fatal I/O error; Err reports which.
func (c *Conn) Next() bool { return c.scanner.Next() }

// Message returns the message most recently produced by Next.
func (c *Conn) Message() (wireproto.MessageRef, error) { return c.scanner.Message() }

// Err returns the first fatal stream error, or nil on clean EOF.
func (c *Conn) Err() error { return c.scanner.Err() }

// WriteMessage serialises and writes m, followed by CRLF, flushing
// immediately. Concurrent callers (the connection's read loop and a
// channel actor fanning a message out to every member) are
// serialised by writeMu, the same role bw/write-locking plays in the
// teacher's Encoder.
func (c *Conn) WriteMessage(m *wireproto.Message) error {
	return c.writeLine(wireproto.Serialize(m))
}

// WriteMessageRef writes a borrowed message, for the rare case
// (tracing, raw relay) where re-serialising a MessageRef is cheaper
// than cloning it to a Message first.
func (c *Conn) WriteMessageRef(r wireproto.MessageRef) error {
	return c.writeLine(wireproto.Serialize(r.Clone()))
}

// WriteMessages writes a batch atomically with respect to other
// writers: no other Write* call can interleave its own lines between
// these. Used for multi-line replies (e.g. NAMES + RPL_ENDOFNAMES)
// that must not be split by a concurrent broadcast.
func (c *Conn) WriteMessages(msgs []*wireproto.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, m := range msgs {
		if err := c.writeLineLocked(wireproto.Serialize(m)); err != nil {
			return err
		}
	}
	return c.bw.Flush()
}

func (c *Conn) writeLine(line []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.writeLineLocked(line); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) writeLineLocked(line []byte) error {
	if len(line) > wireproto.MaxLineLen-2 {
		return fmt.Errorf("transport: outgoing line exceeds %d bytes", wireproto.MaxLineLen)
	}
	if _, err := c.bw.Write(line); err != nil {
		return err
	}
	_, err := c.bw.Write(crlf)
	return err
}

var crlf = []byte{'\r', '\n'}

// Close releases the Conn's pooled buffers and closes the underlying
// carrier. Close is idempotent-safe to call once; calling it twice is
// the caller's bug, same as with a net.Conn.
func (c *Conn) Close() error {
	putScanner(c.scanner)
	putBufioWriter(c.bw)
	return c.rwc.Close()
}

// LocalTCPAddr returns the local net.Conn's address when the carrier
// is a plain net.Conn (TCP or TLS), for metrics and ISUPPORT-free
// diagnostics. It returns nil for a WebSocket carrier wrapped by
// wsRWC, whose net.Conn is one layer further down.
func (c *Conn) LocalTCPAddr() net.Addr {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.LocalAddr()
	}
	return nil
}
