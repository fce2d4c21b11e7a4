package transport

import (
	"crypto/tls"
	"net"
	"time"

	"aqwari.net/retry"
)

// KeepAlivePeriod is the TCP keepalive interval set on every accepted
// connection. IRC connections are long-lived and often sit idle for
// hours; without keepalives a dead peer behind a NAT or stateful
// firewall is never noticed until the next write.
const KeepAlivePeriod = 3 * time.Minute

// Listener wraps a net.Listener, producing Conns instead of raw
// net.Conns, and applying TCP keepalive to anything it accepts.
type Listener struct {
	l       net.Listener
	kind    Kind
	bufSize int
}

// Listen wraps l as a Listener of the given Kind (KindTCP or KindTLS;
// pass a *tls.Listener for the latter). bufSize, if 0, selects
// wireproto.DefaultBufSize for every accepted Conn's Scanner.
func Listen(l net.Listener, kind Kind, bufSize int) *Listener {
	return &Listener{l: l, kind: kind, bufSize: bufSize}
}

// ListenTCP is a convenience constructor: bind addr and wrap the
// result as a KindTCP Listener.
func ListenTCP(addr string, bufSize int) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return Listen(l, KindTCP, bufSize), nil
}

// ListenTLS is a convenience constructor: bind addr, wrap it with the
// given TLS config, and wrap the result as a KindTLS Listener. Use
// this for a listener that requires TLS from the first byte
// (the "implicit TLS" port); a plaintext listener that later upgrades
// via Conn.UpgradeToTLS should use ListenTCP instead.
func ListenTLS(addr string, cfg *tls.Config, bufSize int) (*Listener, error) {
	l, err := tls.Listen("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}
	return Listen(l, KindTLS, bufSize), nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.l.Addr() }

// Close closes the underlying listener.
func (l *Listener) Close() error { return l.l.Close() }

type temporaryError interface {
	Temporary() bool
}

// Accept blocks until a connection arrives, retrying transient Accept
// errors (e.g. a file-descriptor exhaustion blip) with exponential
// backoff from 5ms up to 1s, the same policy applied to
// its own accept loop. A non-temporary error (listener closed) is
// returned immediately.
func (l *Listener) Accept() (*Conn, error) {
	backoff := retry.Exponential(5 * time.Millisecond).Max(time.Second)
	try := 0
	for {
		rwc, err := l.l.Accept()
		if err != nil {
			if te, ok := err.(temporaryError); ok && te.Temporary() {
				try++
				time.Sleep(backoff(try))
				continue
			}
			return nil, err
		}
		if tcpConn, ok := rwc.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(KeepAlivePeriod)
		}
		return New(l.kind, rwc, rwc.RemoteAddr().String(), l.bufSize), nil
	}
}
