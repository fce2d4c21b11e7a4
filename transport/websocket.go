package transport

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Subprotocol is the IRCv3 WebSocket subprotocol name clients must
// request (RFC 6455 Sec-WebSocket-Protocol) for a connection to be
// accepted as IRC rather than rejected as a bare HTTP upgrade.
const Subprotocol = "irc"

// wsRWC adapts a *websocket.Conn to io.ReadWriteCloser, so that a
// WebSocket connection can be handed to transport.New exactly like a
// net.Conn or *tls.Conn. Each wireproto line is framed as one
// WebSocket text message; CRLF is trimmed on write and appended on
// read, since wireproto.Scanner still expects CRLF-terminated input
// regardless of carrier.
type wsRWC struct {
	conn *websocket.Conn
	buf  []byte // leftover bytes from a text frame that didn't fit the caller's p
}

func newWSRWC(c *websocket.Conn) *wsRWC {
	return &wsRWC{conn: c}
}

func (w *wsRWC) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !strings.HasSuffix(string(data), "\r\n") {
			data = append(data, '\r', '\n')
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *wsRWC) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\r\n")
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsRWC) Close() error {
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

var _ io.ReadWriteCloser = (*wsRWC)(nil)

// Upgrader wraps gorilla/websocket's Upgrader with an origin allow-list
// and mandatory "irc" subprotocol negotiation, per
// WebSocket transport requirements.
type Upgrader struct {
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool // empty means allow any origin
}

// NewUpgrader builds an Upgrader. allowedOrigins, if non-empty,
// restricts CheckOrigin to an exact match on the request's Origin
// header; an empty list allows any origin, matching a bouncer
// deployed behind a reverse proxy that already enforces this.
func NewUpgrader(allowedOrigins []string) *Upgrader {
	u := &Upgrader{}
	if len(allowedOrigins) > 0 {
		u.allowedOrigins = make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			u.allowedOrigins[o] = true
		}
	}
	u.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    []string{Subprotocol},
		CheckOrigin:     u.checkOrigin,
	}
	return u
}

func (u *Upgrader) checkOrigin(r *http.Request) bool {
	if u.allowedOrigins == nil {
		return true
	}
	origin := r.Header.Get("Origin")
	return u.allowedOrigins[origin]
}

// Upgrade promotes an HTTP request to a WebSocket Conn. It requires
// the client to have offered the "irc" subprotocol; the response
// negotiates it back so conformant clients (and the reverse proxies
// in front of them) know the frame contents are IRC lines, not an
// arbitrary app protocol.
func Upgrade(w http.ResponseWriter, r *http.Request, u *Upgrader, remoteAddr string, bufSize int) (*Conn, error) {
	if !offersSubprotocol(r, Subprotocol) {
		return nil, errors.New("transport: client did not offer the irc subprotocol")
	}
	wc, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if remoteAddr == "" {
		remoteAddr = r.RemoteAddr
	}
	return New(KindWebSocket, newWSRWC(wc), remoteAddr, bufSize), nil
}

func offersSubprotocol(r *http.Request, name string) bool {
	for _, proto := range websocket.Subprotocols(r) {
		if proto == name {
			return true
		}
	}
	return false
}
