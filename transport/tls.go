package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
)

// bufferedConn prepends pending (bytes the Scanner had already read
// off the wire but not yet handed to the parser) in front of a live
// net.Conn's Read stream. tls.Server needs an io.ReadWriter that looks
// like the raw socket from the first byte of the handshake onward;
// without this, whatever the client pipelined immediately after
// STARTTLS - a CAP END, or even the ClientHello itself if it raced the
// plaintext read - would be silently dropped.
type bufferedConn struct {
	net.Conn
	pending *bytes.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	if b.pending != nil {
		n, err := b.pending.Read(p)
		if err == io.EOF {
			b.pending = nil
			err = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return b.Conn.Read(p)
}

// UpgradeToTLS performs an in-place STARTTLS upgrade: any bytes the
// Conn's Scanner has already buffered but not consumed are spliced in
// front of the raw connection, the TLS server handshake runs over
// that combined stream, and on success the Conn's Scanner and writer
// are reset onto the new tls.Conn. The Conn's Kind becomes KindTLS.
//
// UpgradeToTLS requires the underlying carrier to be a net.Conn
// (KindTCP); it returns an error for a WebSocket carrier, which
// cannot renegotiate transport security in place (TLS for WebSocket
// clients is the outer HTTPS layer, negotiated before the upgrade
// handshake ever reaches this package).
func (c *Conn) UpgradeToTLS(cfg *tls.Config) error {
	if c.kind == KindWebSocket {
		return fmt.Errorf("transport: cannot STARTTLS a websocket connection")
	}
	nc, ok := c.rwc.(net.Conn)
	if !ok {
		return fmt.Errorf("transport: underlying carrier is not a net.Conn")
	}

	pending := c.scanner.PendingBytes()
	var bc net.Conn = nc
	if len(pending) > 0 {
		bc = &bufferedConn{Conn: nc, pending: bytes.NewReader(pending)}
	}

	tlsConn := tls.Server(bc, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return fmt.Errorf("transport: TLS handshake: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	putScanner(c.scanner)
	putBufioWriter(c.bw)

	c.rwc = tlsConn
	c.kind = KindTLS
	c.scanner = newScanner(tlsConn)
	c.bw = newBufioWriter(tlsConn)
	return nil
}

// ConnectionState returns the negotiated TLS state, or ok=false if the
// Conn's carrier is not (yet) TLS.
func (c *Conn) ConnectionState() (tls.ConnectionState, bool) {
	tc, ok := c.rwc.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tc.ConnectionState(), true
}
