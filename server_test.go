package slircd

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/config"
	"github.com/sid3xyz/slircd/internal/netutil"
	"github.com/sid3xyz/slircd/internal/slog"
	"github.com/sid3xyz/slircd/transport"
	"github.com/sid3xyz/slircd/wireproto"
)

func integrationConfig() *config.Config {
	return &config.Config{
		ServerName:     "irc.test",
		SID:            "1AB",
		Network:        "TestNet",
		CaseMapping:    wireproto.CaseMappingRFC1459,
		Listeners:      []config.ListenSpec{{Addr: ":6667"}},
		NickLen:        30,
		ChannelLen:     50,
		TopicLen:       300,
		MaxTargets:     4,
		ChannelModesA:  "beI",
		ChannelModesB:  "k",
		ChannelModesC:  "l",
		ChannelModesD:  "nt",
		PrefixModes:    "ov",
		PrefixGlyphs:   "@+",
		AlwaysOnPolicy: "disabled",
	}
}

// wireConn is a thin line-oriented helper over a net.Conn dialed
// through a netutil.PipeListener, standing in for a real socket so
// the full accept -> dispatch -> reply path runs without binding a
// port.
type wireConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialPipe(t *testing.T, pl *netutil.PipeListener) *wireConn {
	t.Helper()
	c, err := pl.Dial()
	require.NoError(t, err)
	return &wireConn{t: t, conn: c, r: bufio.NewReader(c)}
}

func (w *wireConn) send(line string) {
	w.t.Helper()
	_, err := w.conn.Write([]byte(line + "\r\n"))
	require.NoError(w.t, err)
}

// readUntil reads lines until one whose command matches want, failing
// the test if none arrives within the deadline.
func (w *wireConn) readUntil(want string) *wireproto.Message {
	w.t.Helper()
	_ = w.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		line, err := w.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				w.t.Fatalf("connection closed waiting for %s", want)
			}
			w.t.Fatalf("read error waiting for %s: %v", want, err)
		}
		ref, perr := wireproto.Parse([]byte(strings.TrimRight(line, "\r\n")))
		if perr != nil {
			continue
		}
		if ref.Command() == want {
			return ref.Clone()
		}
	}
}

func newIntegrationServer(t *testing.T) (*Server, *netutil.PipeListener) {
	t.Helper()
	cfg := integrationConfig()
	logger := slog.New(nil, slog.LevelError)
	srv, err := NewServer(cfg, logger, prometheus.NewRegistry())
	require.NoError(t, err)

	pl := &netutil.PipeListener{}
	tl := transport.Listen(pl, transport.KindTCP, 0)
	go srv.Serve(tl)
	t.Cleanup(func() { pl.Close() })
	return srv, pl
}

func TestServerRegistersAndJoins(t *testing.T) {
	srv, pl := newIntegrationServer(t)
	w := dialPipe(t, pl)

	w.send("NICK alice")
	w.send("USER u 0 * :Real Name")
	w.readUntil(wireproto.RPL_WELCOME)

	w.send("JOIN #chan")
	w.readUntil(wireproto.RPL_ENDOFNAMES)

	_, ok := srv.matrix.Channels.Get("#chan")
	require.True(t, ok)
}

func TestServerDisconnectCleansUpUserAndChannel(t *testing.T) {
	srv, pl := newIntegrationServer(t)
	w := dialPipe(t, pl)

	w.send("NICK bob")
	w.send("USER u 0 * :Real Name")
	w.readUntil(wireproto.RPL_WELCOME)
	w.send("JOIN #chan")
	w.readUntil(wireproto.RPL_ENDOFNAMES)

	w.conn.Close()

	require.Eventually(t, func() bool {
		_, _, found := srv.matrix.Users.Lookup("bob")
		return !found
	}, 2*time.Second, 10*time.Millisecond, "user registry should forget bob after disconnect")

	require.Eventually(t, func() bool {
		a, ok := srv.matrix.Channels.Get("#chan")
		if !ok {
			return true
		}
		reply := make(chan channel.ChannelInfo, 1)
		a.Submit(channel.GetInfo{Reply: reply})
		select {
		case info := <-reply:
			return info.MemberCount == 0
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "bob should no longer be a member of #chan")
}
