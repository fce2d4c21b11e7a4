package transport

import (
	"bytes"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

func byteReader(s string) *bytes.Reader { return bytes.NewReader([]byte(s)) }

func pipePair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	c1, c2 := net.Pipe()
	return New(KindTCP, c1, "client", 0), New(KindTCP, c2, "server", 0)
}

func TestConnRoundTrip(t *testing.T) {
	client, server := pipePair(t)
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		done <- client.WriteMessage(&wireproto.Message{
			Command: "PRIVMSG",
			Params:  []string{"#ops", "hello there"},
		})
	}()

	if !server.Next() {
		t.Fatalf("Next() = false, Err() = %v", server.Err())
	}
	ref, err := server.Message()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ref.Command() != "PRIVMSG" || ref.ParamString(1) != "hello there" {
		t.Fatalf("unexpected message: %+v", ref)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func TestConnWriteMessagesAtomic(t *testing.T) {
	client, server := pipePair(t)
	defer client.Close()
	defer server.Close()

	msgs := []*wireproto.Message{
		{Command: "353", Params: []string{"alice", "=", "#ops", "alice bob"}},
		{Command: "366", Params: []string{"alice", "#ops", "End of /NAMES list."}},
	}
	go func() {
		_ = client.WriteMessages(msgs)
	}()

	for _, want := range msgs {
		if !server.Next() {
			t.Fatalf("Next() = false, Err() = %v", server.Err())
		}
		ref, err := server.Message()
		if err != nil {
			t.Fatalf("unexpected parse error: %v", err)
		}
		if ref.Command() != want.Command {
			t.Fatalf("got command %q, want %q", ref.Command(), want.Command)
		}
	}
}

func TestListenerAcceptAndKind(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer l.Close()

	accepted := make(chan *Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			accepted <- nil
			return
		}
		accepted <- c
	}()

	dialConn, err := net.DialTimeout("tcp", l.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer dialConn.Close()

	c := <-accepted
	if c == nil {
		t.Fatal("accept failed")
	}
	defer c.Close()
	if c.Kind() != KindTCP {
		t.Fatalf("Kind() = %v, want KindTCP", c.Kind())
	}
	if c.RemoteAddr() == "" {
		t.Fatal("RemoteAddr() is empty")
	}
}

func TestBufferedConnServesPendingBeforeUnderlying(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	bc := &bufferedConn{Conn: c1, pending: byteReader("PEND")}
	go func() { _, _ = c2.Write([]byte("LIVE")) }()

	buf := make([]byte, 4)
	if _, err := bc.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "PEND" {
		t.Fatalf("Read() = %q, want pending bytes first", buf)
	}
	if _, err := bc.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "LIVE" {
		t.Fatalf("Read() = %q, want underlying conn bytes second", buf)
	}
}

func TestUpgradeToTLS(t *testing.T) {
	serverCfg, clientCfg := testTLSConfigs(t)

	l, err := ListenTCP("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer l.Close()

	accepted := make(chan *Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()

	rawClient, err := net.DialTimeout("tcp", l.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer rawClient.Close()

	server := <-accepted
	if server == nil {
		t.Fatal("accept failed")
	}
	defer server.Close()

	if _, err := rawClient.Write([]byte("STARTTLS\r\n")); err != nil {
		t.Fatalf("write STARTTLS: %v", err)
	}

	if !server.Next() {
		t.Fatalf("Next() = false, Err() = %v", server.Err())
	}
	ref, err := server.Message()
	if err != nil || ref.Command() != "STARTTLS" {
		t.Fatalf("unexpected first message: %+v err=%v", ref, err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.UpgradeToTLS(serverCfg)
	}()

	tlsClient := tls.Client(rawClient, clientCfg)
	if err := tlsClient.Handshake(); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("UpgradeToTLS: %v", err)
	}
	if server.Kind() != KindTLS {
		t.Fatalf("Kind() = %v, want KindTLS", server.Kind())
	}

	if _, err := tlsClient.Write([]byte("CAP END\r\n")); err != nil {
		t.Fatalf("write over tls: %v", err)
	}
	if !server.Next() {
		t.Fatalf("post-upgrade Next() = false, Err() = %v", server.Err())
	}
	ref, err = server.Message()
	if err != nil || ref.Command() != "CAP" {
		t.Fatalf("unexpected post-upgrade message: %+v err=%v", ref, err)
	}
}
