package router

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/config"
	"github.com/sid3xyz/slircd/session"
	"github.com/sid3xyz/slircd/user"
	"github.com/sid3xyz/slircd/wireproto"
)

type fakeConn struct {
	mu       sync.Mutex
	received []*wireproto.Message
}

func (f *fakeConn) Deliver(m *wireproto.Message) {
	f.mu.Lock()
	f.received = append(f.received, m)
	f.mu.Unlock()
}

func (f *fakeConn) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.received))
	for i, m := range f.received {
		out[i] = m.Command
	}
	return out
}

func (f *fakeConn) last() *wireproto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) == 0 {
		return nil
	}
	return f.received[len(f.received)-1]
}

func testConfig() *config.Config {
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

type testServer struct {
	table    Table
	matrix   *Matrix
	cfg      *config.Supervisor
	channels *channel.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	sup := config.NewSupervisor(cfg)

	ms := channel.NewModeSet(cfg.ChannelModesA, cfg.ChannelModesB, cfg.ChannelModesC, cfg.ChannelModesD, cfg.PrefixModes, cfg.PrefixGlyphs)
	channels := channel.NewRegistry(channel.RegistryConfig{
		ServerName:  cfg.ServerName,
		CaseMapping: cfg.CaseMapping,
		ModeSet:     ms,
	})
	users := user.NewRegistry(cfg.CaseMapping, 3)
	sessions := session.NewRegistry(session.RegistryConfig{
		ServerName:  cfg.ServerName,
		CaseMapping: cfg.CaseMapping,
		Channels:    channels,
		Policy:      session.AlwaysOnDisabled,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	opers := access.NewOperTable([]*access.OperBlock{
		{Name: "admin", PasswordHash: hash, Privileges: map[access.Privilege]bool{access.PrivKline: true}},
	})

	m := &Matrix{
		ServerName: cfg.ServerName,
		Config:     sup,
		Users:      users,
		Channels:   channels,
		Sessions:   sessions,
		Access:     access.NewList(cfg.CaseMapping),
		Opers:      opers,
		ModeSet:    ms,
		Shunned:    NewShunList(),
	}
	return &testServer{table: NewTable(), matrix: m, cfg: sup, channels: channels}
}

func (ts *testServer) newContext(uid uint32) (*Context, *fakeConn) {
	conn := &fakeConn{}
	return &Context{
		Matrix: ts.matrix,
		UID:    user.UID(uid),
		Sender: conn,
		Device: &session.Device{Sender: conn},
		State:  StateUnregistered,
	}, conn
}

func register(t *testing.T, ts *testServer, uid uint32, nick string) (*Context, *fakeConn) {
	t.Helper()
	ctx, conn := ts.newContext(uid)
	ts.table.Dispatch(ctx, &wireproto.Message{Command: "NICK", Params: []string{nick}})
	ts.table.Dispatch(ctx, &wireproto.Message{Command: "USER", Params: []string{"u", "0", "*", "Real Name"}})
	require.Equal(t, StateRegistered, ctx.State)
	return ctx, conn
}

func TestDispatchGatesUnregisteredConnections(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := ts.newContext(1)

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "JOIN", Params: []string{"#chan"}})

	require.Equal(t, []string{wireproto.ERR_NOTREGISTERED}, conn.commands())
}

func TestDispatchUnknownCommand(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "XYZZY"})

	last := conn.last()
	require.Equal(t, wireproto.ERR_UNKNOWNCOMMAND, last.Command)
}

func TestRegistrationSendsWelcomeBurst(t *testing.T) {
	ts := newTestServer(t)
	_, conn := register(t, ts, 1, "alice")

	cmds := conn.commands()
	require.Contains(t, cmds, wireproto.RPL_WELCOME)
	require.Contains(t, cmds, wireproto.RPL_ISUPPORT)
}

func TestNickRejectsCollision(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, 1, "alice")

	ctx2, conn2 := ts.newContext(2)
	ts.table.Dispatch(ctx2, &wireproto.Message{Command: "NICK", Params: []string{"alice"}})

	require.Equal(t, []string{wireproto.ERR_NICKNAMEINUSE}, conn2.commands())
}

func TestCapReqNegotiatesSupportedCapabilities(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := ts.newContext(1)

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "CAP", Params: []string{"REQ", "server-time batch"}})

	require.True(t, ctx.Caps["server-time"])
	require.True(t, ctx.Caps["batch"])
	last := conn.last()
	require.Equal(t, "CAP", last.Command)
	require.Equal(t, "ACK", last.Param(1))
}

func TestCapReqNaksUnsupportedCapability(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := ts.newContext(1)

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "CAP", Params: []string{"REQ", "made-up-cap"}})

	last := conn.last()
	require.Equal(t, "NAK", last.Param(1))
	require.False(t, ctx.Caps["made-up-cap"])
}

func TestJoinCreatesChannelAndSendsNames(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "JOIN", Params: []string{"#chan"}})

	cmds := conn.commands()
	require.Contains(t, cmds, wireproto.RPL_NAMREPLY)
	require.Contains(t, cmds, wireproto.RPL_ENDOFNAMES)
	_, ok := ts.channels.Get("#chan")
	require.True(t, ok)
}

func TestPrivmsgToChannelRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "PRIVMSG", Params: []string{"#chan", "hi"}})

	require.Contains(t, conn.commands(), wireproto.ERR_NOSUCHCHANNEL)
}

func TestPrivmsgToNickDeliversToRecipientSession(t *testing.T) {
	ts := newTestServer(t)
	aliceCtx, _ := register(t, ts, 1, "alice")
	_, bobConn := register(t, ts, 2, "bob")

	ts.table.Dispatch(aliceCtx, &wireproto.Message{Command: "PRIVMSG", Params: []string{"bob", "hello"}})

	found := false
	for _, m := range bobConn.received {
		if m.Command == "PRIVMSG" && m.Param(1) == "hello" {
			found = true
		}
	}
	require.True(t, found)
}

func TestPrivmsgToUnknownNick(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "PRIVMSG", Params: []string{"nobody", "hi"}})

	require.Contains(t, conn.commands(), wireproto.ERR_NOSUCHNICK)
}

func TestOperRequiresCorrectPassword(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "OPER", Params: []string{"admin", "wrong"}})
	require.Contains(t, conn.commands(), wireproto.ERR_PASSWDMISMATCH)
	require.False(t, ctx.IsOper)

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "OPER", Params: []string{"admin", "hunter2"}})
	require.True(t, ctx.IsOper)
	require.Contains(t, conn.commands(), wireproto.RPL_YOUREOPER)
}

func TestKlineRequiresOper(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")
	before := len(conn.commands())

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "KLINE", Params: []string{"*!*@bad.example", "spamming"}})

	require.Equal(t, []string{wireproto.ERR_NOPRIVILEGES}, conn.commands()[before:])
}

func TestShunSilencesCommandsButNotQuit(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")
	ctx.UserSeen = "u"

	ts.matrix.Shunned.Add(&ShunEntry{Pattern: "alice!*@*", SetBy: "admin", SetAt: time.Now()})

	before := len(conn.commands())
	ts.table.Dispatch(ctx, &wireproto.Message{Command: "JOIN", Params: []string{"#chan"}})
	require.Equal(t, before, len(conn.commands()), "shunned connection should produce no output for JOIN")

	ts.table.Dispatch(ctx, &wireproto.Message{Command: "QUIT", Params: []string{"bye"}})
	require.Greater(t, len(conn.commands()), before, "QUIT must still work while shunned")
}

func TestRateLimiterDropsExcessCommands(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")
	ctx.Limiter = NewLimiter()

	before := len(conn.commands())
	for i := 0; i < 20; i++ {
		ts.table.Dispatch(ctx, &wireproto.Message{Command: "XYZZY"})
	}
	got := len(conn.commands()) - before
	require.Less(t, got, 20, "rate limiter should have dropped some of the flood")
	require.Greater(t, got, 0)
}

func TestPingPongNeverRateLimited(t *testing.T) {
	ts := newTestServer(t)
	ctx, conn := register(t, ts, 1, "alice")
	ctx.Limiter = NewLimiter()

	before := len(conn.commands())
	for i := 0; i < 50; i++ {
		ts.table.Dispatch(ctx, &wireproto.Message{Command: "PING", Params: []string{"x"}})
	}
	require.Equal(t, 50, len(conn.commands())-before)
}

func TestBuildISUPPORTChunks(t *testing.T) {
	cfg := testConfig()
	chunks := BuildISUPPORT(cfg)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), isupportChunkLen)
	}
}
