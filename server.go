package slircd

import (
	"fmt"
	"hash/fnv"
	"net"
	"runtime"
	"time"

	"github.com/gobwas/glob"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/config"
	"github.com/sid3xyz/slircd/crdt"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/internal/idpool"
	"github.com/sid3xyz/slircd/internal/slog"
	"github.com/sid3xyz/slircd/internal/tracing"
	"github.com/sid3xyz/slircd/metrics"
	"github.com/sid3xyz/slircd/router"
	"github.com/sid3xyz/slircd/session"
	"github.com/sid3xyz/slircd/transport"
	"github.com/sid3xyz/slircd/user"
	"github.com/sid3xyz/slircd/wireproto"
)

// whowasHistoryCap bounds the per-nick WHOWAS ring, independent of
// the durable history.Provider's own retention.
const whowasHistoryCap = 8

// Server owns every shared registry a connection's handlers run
// against, plus the accept loop that turns raw transport.Conns into
// router.Contexts. It plays the role the teacher's unexported server
// type does for 9P, generalised from one Logger field to the fuller
// set of long-running collaborators a multiclient ircd needs.
type Server struct {
	logger  *slog.Logger
	trace   tracing.Func
	metrics *metrics.Registry

	table  router.Table
	matrix *router.Matrix

	ids idpool.Pool
}

// NewServer builds a Server from cfg: every registry, the access and
// oper tables, and the command dispatch table, none of which are
// started until Serve is called. reg receives the server's prometheus
// metrics; pass prometheus.NewRegistry() for an isolated instance in
// tests.
func NewServer(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sup := config.NewSupervisor(cfg)
	ms := channel.NewModeSet(cfg.ChannelModesA, cfg.ChannelModesB, cfg.ChannelModesC, cfg.ChannelModesD, cfg.PrefixModes, cfg.PrefixGlyphs)
	clock := crdt.NewClock(hashServerID(cfg.SID))
	hist := history.NewStore(cfg.CaseMapping)

	channels := channel.NewRegistry(channel.RegistryConfig{
		ServerName:    cfg.ServerName,
		CaseMapping:   cfg.CaseMapping,
		ModeSet:       ms,
		History:       hist,
		HistoryEvents: cfg.HistoryEvents,
		QueueDepth:    queueDepthOrDefault(cfg.QueueDepth),
		RingCap:       channel.DefaultRingCap,
		DestroyGrace:  channel.DefaultDestroyGrace,
		Clock:         clock,
	})
	users := user.NewRegistry(cfg.CaseMapping, whowasHistoryCap)
	sessions := session.NewRegistry(session.RegistryConfig{
		ServerName:  cfg.ServerName,
		CaseMapping: cfg.CaseMapping,
		Channels:    channels,
		History:     hist,
		Policy:      session.AlwaysOnPolicy(cfg.AlwaysOnPolicy),
		Expiry:      cfg.AlwaysOnExpiry,
		MaxSessions: cfg.MaxSessions,
	})

	operBlocks, err := buildOperBlocks(cfg.Opers)
	if err != nil {
		return nil, err
	}

	m := &router.Matrix{
		ServerName: cfg.ServerName,
		Config:     sup,
		Users:      users,
		Channels:   channels,
		Sessions:   sessions,
		Access:     access.NewList(cfg.CaseMapping),
		Opers:      access.NewOperTable(operBlocks),
		History:    hist,
		ModeSet:    ms,
		Shunned:    router.NewShunList(),
	}

	return &Server{
		logger:  logger,
		metrics: metrics.NewRegistry(reg),
		table:   router.NewTable(),
		matrix:  m,
	}, nil
}

// SetTrace installs fn to observe every message crossing every
// connection's boundary, or clears tracing if fn is nil.
func (s *Server) SetTrace(fn tracing.Func) { s.trace = fn }

func queueDepthOrDefault(n int) int {
	if n <= 0 {
		return channel.DefaultQueueDepth
	}
	return n
}

// hashServerID folds a three-character SID into the uint32 a
// crdt.Clock uses to break ties between replicas with an identical
// wall clock and counter.
func hashServerID(sid string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return h.Sum32()
}

func buildOperBlocks(specs []config.OperBlockSpec) ([]*access.OperBlock, error) {
	blocks := make([]*access.OperBlock, 0, len(specs))
	for _, spec := range specs {
		privs := make(map[access.Privilege]bool, len(spec.Privileges))
		for _, p := range spec.Privileges {
			privs[access.Privilege(p)] = true
		}
		b := &access.OperBlock{
			Name:         spec.Name,
			PasswordHash: []byte(spec.PasswordHash),
			CertFP:       spec.CertFP,
			Privileges:   privs,
		}
		if spec.HostMask != "" {
			g, err := glob.Compile(spec.HostMask, '.')
			if err != nil {
				return nil, fmt.Errorf("slircd: oper block %q has invalid host mask %q: %w", spec.Name, spec.HostMask, err)
			}
			b.HostMask = &g
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Serve accepts connections from l until it returns a permanent
// error (the listener was closed), handling each on its own
// goroutine. It never returns nil; the caller decides whether a
// closed listener is itself an error worth reporting.
func (s *Server) Serve(l *transport.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn owns one client connection end to end: connection-time
// X-line checks, UID allocation, the read loop driving router.Dispatch,
// and teardown on disconnect. Panic recovery here mirrors the
// teacher's conn.serve: a bug in one connection's handler path must
// not take the process down.
func (s *Server) handleConn(conn *transport.Conn) {
	s.metrics.Connections.Inc()
	defer s.metrics.Connections.Dec()
	adapter := &connAdapter{c: conn, trace: s.trace}
	defer adapter.close()
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			s.logger.Errorf("panic serving %s: %v\n%s", conn.RemoteAddr(), r, buf)
		}
	}()

	remoteIP := hostIP(conn.RemoteAddr())
	if e := s.matrix.Access.MatchIP(remoteIP, true); e != nil {
		s.metrics.BanHits.WithLabelValues(e.Kind.String()).Inc()
		adapter.Deliver(&wireproto.Message{Command: "ERROR", Params: []string{access.ClosingLinkMessage(e)}})
		return
	}

	uid, ok := s.ids.Get()
	if !ok {
		s.logger.Warnf("refusing %s: connection id pool exhausted", conn.RemoteAddr())
		return
	}
	defer s.ids.Free(uid)

	ctx := &router.Context{
		Matrix:   s.matrix,
		UID:      user.UID(uid),
		Sender:   adapter,
		Device:   &session.Device{Sender: adapter},
		RemoteIP: remoteIP,
		State:    router.StateUnregistered,
		Limiter:  router.NewLimiter(),
	}
	if tlsState, ok := conn.ConnectionState(); ok {
		ctx.TLS = &tlsState
	}

	for conn.Next() {
		ref, err := conn.Message()
		if err != nil {
			break
		}
		msg := ref.Clone()
		s.metrics.MessagesIn.Inc()
		tracing.Trace(s.trace, tracing.In, conn.RemoteAddr(), msg)
		s.table.Dispatch(ctx, msg)
	}

	s.disconnect(ctx)
}

// disconnect tears down whatever state handleConn's read loop built
// up, whether the connection ended with a QUIT or an abrupt EOF: every
// channel the session belonged to is told to drop the member, the
// device is detached from its session (which may still survive under
// an always-on policy), and the nick is freed from the user registry.
func (s *Server) disconnect(ctx *router.Context) {
	if ctx.Sess == nil {
		return
	}
	for _, folded := range ctx.Sess.Channels() {
		if a, ok := s.matrix.Channels.Get(folded); ok {
			a.Submit(channel.Quit{UID: uint32(ctx.UID), Reason: "Connection reset"})
		}
	}
	if ctx.Device != nil {
		s.matrix.Sessions.Detach(ctx.Sess, ctx.Device.ID, nil)
	}
	s.matrix.Users.Unregister(ctx.UID, time.Now().UnixNano())
}

// hostIP extracts the numeric address from a transport.Conn's
// RemoteAddr, falling back to a zero IP (matches nothing) if it
// can't be parsed as host:port - a WebSocket Conn's recorded address
// is already host-only in the common case.
func hostIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	return net.IPv4zero
}
