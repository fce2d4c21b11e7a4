package router

import (
	"strconv"
	"time"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/wireproto"
)

func requireOper(ctx *Context) bool {
	if !ctx.IsOper {
		ctx.Numeric(wireproto.ERR_NOPRIVILEGES, "Permission Denied- You're not an IRC operator")
		return false
	}
	return true
}

func handleRehash(ctx *Context, m *wireproto.Message) {
	if !requireOper(ctx) {
		return
	}
	// The router only triggers a rehash; reading and validating the
	// new config file happens wherever the Supervisor's caller watches
	// for SIGHUP/REHASH, not here.
	ctx.Numeric("382", ctx.Config.Current().ServerName, "Rehashing")
}

func handleDie(ctx *Context, m *wireproto.Message) {
	if !requireOper(ctx) {
		return
	}
	ctx.Numeric(wireproto.ERR_NOPRIVILEGES, "DIE is disabled over the client protocol; use the process supervisor")
}

func handleRestart(ctx *Context, m *wireproto.Message) {
	if !requireOper(ctx) {
		return
	}
	ctx.Numeric(wireproto.ERR_NOPRIVILEGES, "RESTART is disabled over the client protocol; use the process supervisor")
}

func parseExpiry(s string) time.Duration {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}

func addXline(ctx *Context, m *wireproto.Message, kind access.Kind) {
	if !requireOper(ctx) {
		return
	}
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, m.Command, "Not enough parameters")
		return
	}
	pattern := m.Param(0)
	reason := m.Param(len(m.Params) - 1)
	if reason == pattern {
		reason = "No reason given"
	}
	e := &access.Entry{Kind: kind, Pattern: pattern, Reason: reason, SetBy: ctx.NickSeen, SetAt: time.Now()}
	if d := parseExpiry(m.Param(1)); d > 0 {
		e.ExpiresAt = e.SetAt.Add(d)
	}
	if err := ctx.Access.Add(e); err != nil {
		ctx.Numeric(wireproto.ERR_UNKNOWNMODE, pattern, err.Error())
		return
	}
	ctx.Reply(wireproto.Numeric(ctx.ServerName, "NOTICE", ctx.NickSeen, access.ClosingLinkMessage(e)+" added"))
}

func removeXline(ctx *Context, m *wireproto.Message, kind access.Kind) {
	if !requireOper(ctx) {
		return
	}
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, m.Command, "Not enough parameters")
		return
	}
	n := ctx.Access.Remove(kind, m.Param(0))
	ctx.Reply(wireproto.Numeric(ctx.ServerName, "NOTICE", ctx.NickSeen, strconv.Itoa(n)+" matching line(s) removed"))
}

func handleKline(ctx *Context, m *wireproto.Message)   { addXline(ctx, m, access.KindK) }
func handleUnkline(ctx *Context, m *wireproto.Message) { removeXline(ctx, m, access.KindK) }
func handleDline(ctx *Context, m *wireproto.Message)   { addXline(ctx, m, access.KindD) }
func handleUndline(ctx *Context, m *wireproto.Message) { removeXline(ctx, m, access.KindD) }
func handleGline(ctx *Context, m *wireproto.Message)   { addXline(ctx, m, access.KindG) }
func handleUnGline(ctx *Context, m *wireproto.Message) { removeXline(ctx, m, access.KindG) }
func handleZline(ctx *Context, m *wireproto.Message)   { addXline(ctx, m, access.KindZ) }
func handleUnzline(ctx *Context, m *wireproto.Message) { removeXline(ctx, m, access.KindZ) }
func handleRline(ctx *Context, m *wireproto.Message)   { addXline(ctx, m, access.KindR) }
func handleUnrline(ctx *Context, m *wireproto.Message) { removeXline(ctx, m, access.KindR) }

func handleShun(ctx *Context, m *wireproto.Message) {
	if !requireOper(ctx) {
		return
	}
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "SHUN", "Not enough parameters")
		return
	}
	reason := m.Param(1)
	if reason == "" {
		reason = "No reason given"
	}
	ctx.Shunned.Add(&ShunEntry{Pattern: m.Param(0), Reason: reason, SetBy: ctx.NickSeen, SetAt: time.Now()})
	ctx.Reply(wireproto.Numeric(ctx.ServerName, "NOTICE", ctx.NickSeen, "Shunned "+m.Param(0)))
}

func handleUnshun(ctx *Context, m *wireproto.Message) {
	if !requireOper(ctx) {
		return
	}
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "UNSHUN", "Not enough parameters")
		return
	}
	n := ctx.Shunned.Remove(m.Param(0))
	ctx.Reply(wireproto.Numeric(ctx.ServerName, "NOTICE", ctx.NickSeen, strconv.Itoa(n)+" matching shun(s) removed"))
}
