package router

import (
	"crypto/tls"
	"net"

	"golang.org/x/time/rate"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/config"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/session"
	"github.com/sid3xyz/slircd/user"
	"github.com/sid3xyz/slircd/wireproto"
)

// RegState tracks a locally-attached connection's own progress
// through registration. This is deliberately simpler than
// handshake.Machine's CAP/SASL state machine: handshake models
// slircd bouncing a session upstream into the network it represents,
// where slircd plays the client role and leads negotiation. Here
// slircd is the server, the connecting program is an ordinary IRC
// client, and the only thing gating command dispatch is "has this
// connection given us a NICK and a USER yet".
type RegState int

const (
	StateUnregistered RegState = iota
	StateNickSet
	StateUserSet
	StateRegistered
)

// preRegistrationAllowed is the set of commands ERR_NOTREGISTERED
// does not apply to, per spec.md §4.7: an unregistered connection may
// still negotiate capabilities, authenticate, and attempt
// registration itself.
var preRegistrationAllowed = map[string]bool{
	"PASS": true, "NICK": true, "USER": true, "CAP": true,
	"AUTHENTICATE": true, "PING": true, "PONG": true, "QUIT": true,
	"WEBIRC": true,
}

// Matrix bundles every registry and store a handler may need to
// consult, named after the GLOSSARY's "matrix" term for the set of
// shared, concurrency-safe state a connection's handlers act against.
type Matrix struct {
	ServerName string
	Config     *config.Supervisor
	Users      *user.Registry
	Channels   *channel.Registry
	Sessions   *session.Registry
	Access     *access.List
	Opers      *access.OperTable
	History    history.Provider
	ModeSet    *channel.ModeSet
	Shunned    *ShunList
}

// Context is the per-call state a handler runs with: the shared
// Matrix, this connection's identity and registration progress, and
// the Sender the handler replies through.
type Context struct {
	*Matrix

	UID      user.UID
	Sess     *session.Session
	Device   *session.Device
	Sender   channel.Sender // session.Session; fans out to every sibling device
	RemoteIP net.IP
	TLS      *tls.ConnectionState

	State    RegState
	PassOK   bool // true once PASS has been sent before registration; the password is not checked
	NickSeen string
	UserSeen string
	RealName string

	IsOper   bool
	OperName string

	Caps map[string]bool // capabilities this connection has REQ'd and been ACK'd for

	Limiter *rate.Limiter // per-connection flood control; nil disables limiting
}

// NewLimiter returns the default per-connection command limiter:
// burst of 10 commands refilling at 1/sec, the same shape as most
// ircds' "excess flood" throttle (PING/PONG never count against it,
// see Table.Dispatch).
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1), 10)
}

// Reply sends m to this connection's own device only (registration
// burst, WHOIS replies, and other single-recipient numerics).
func (c *Context) Reply(m *wireproto.Message) {
	if c.Device != nil {
		c.Device.Sender.Deliver(m)
		return
	}
	c.Sender.Deliver(m)
}

// Numeric sends a server numeric to this connection's own nick.
func (c *Context) Numeric(code string, params ...string) {
	nick := c.NickSeen
	if c.Sess != nil {
		nick = c.Sess.Nick()
	}
	if nick == "" {
		nick = "*"
	}
	c.Reply(wireproto.Numeric(c.ServerName, code, nick, params...))
}

// Handler processes one command's parameters for ctx.
type Handler func(ctx *Context, m *wireproto.Message)

// Table is the Name -> Handler dispatch map, built once at startup by
// NewTable and shared read-only across every connection.
type Table map[string]Handler

// NewTable builds the full command dispatch table.
func NewTable() Table {
	t := Table{
		"PASS":         handlePass,
		"NICK":         handleNick,
		"USER":         handleUser,
		"CAP":          handleCap,
		"AUTHENTICATE": handleAuthenticate,
		"PING":         handlePing,
		"PONG":         handlePong,
		"QUIT":         handleQuit,
		"OPER":         handleOper,

		"JOIN":   handleJoin,
		"PART":   handlePart,
		"KICK":   handleKick,
		"INVITE": handleInvite,
		"MODE":   handleMode,
		"TOPIC":  handleTopic,
		"NAMES":  handleNames,
		"LIST":   handleList,

		"PRIVMSG": handlePrivmsg,
		"NOTICE":  handleNotice,
		"TAGMSG":  handleTagmsg,
		"AWAY":    handleAway,
		"WALLOPS": handleWallops,
		"GLOBOPS": handleGlobops,

		"WHO":     handleWho,
		"WHOIS":   handleWhois,
		"WHOWAS":  handleWhowas,
		"ISON":    handleIson,
		"USERHOST": handleUserhost,
		"USERS":   handleUsers,
		"LUSERS":  handleLusers,
		"MOTD":    handleMotd,
		"VERSION": handleVersion,
		"ADMIN":   handleAdmin,
		"INFO":    handleInfo,
		"TIME":    handleTime,
		"STATS":   handleStats,

		"REHASH":  handleRehash,
		"DIE":     handleDie,
		"RESTART": handleRestart,

		"KLINE":   handleKline,
		"UNKLINE": handleUnkline,
		"DLINE":   handleDline,
		"UNDLINE": handleUndline,
		"GLINE":   handleGline,
		"UNGLINE": handleUnGline,
		"ZLINE":   handleZline,
		"UNZLINE": handleUnzline,
		"RLINE":   handleRline,
		"UNRLINE": handleUnrline,
		"SHUN":    handleShun,
		"UNSHUN":  handleUnshun,

		"CHATHISTORY": handleChatHistory,
		"BATCH":       handleClientBatch,
		"METADATA":    handleMetadata,
		"MONITOR":     handleMonitor,
		"WEBIRC":      handleWebirc,
	}
	return t
}

// Dispatch looks up m.Command in t and runs it against ctx, enforcing
// the registration gate: an unregistered connection gets
// ERR_NOTREGISTERED for anything outside preRegistrationAllowed, and
// an unknown verb gets ERR_UNKNOWNCOMMAND.
func (t Table) Dispatch(ctx *Context, m *wireproto.Message) {
	if ctx.State != StateRegistered && !preRegistrationAllowed[m.Command] {
		ctx.Numeric(wireproto.ERR_NOTREGISTERED, "You have not registered")
		return
	}
	if ctx.Shunned != nil && m.Command != "PING" && m.Command != "PONG" && m.Command != "QUIT" &&
		ctx.State == StateRegistered && ctx.Shunned.Match(ctx.hostmask()) {
		return
	}
	if ctx.Limiter != nil && m.Command != "PING" && m.Command != "PONG" && !ctx.Limiter.Allow() {
		return
	}
	h, ok := t[m.Command]
	if !ok {
		ctx.Numeric(wireproto.ERR_UNKNOWNCOMMAND, m.Command, "Unknown command")
		return
	}
	h(ctx, m)
}
