package router

import (
	"strings"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/wireproto"
)

func handlePrivmsg(ctx *Context, m *wireproto.Message) { sendMessage(ctx, m, "PRIVMSG") }
func handleNotice(ctx *Context, m *wireproto.Message)  { sendMessage(ctx, m, "NOTICE") }
func handleTagmsg(ctx *Context, m *wireproto.Message)  { sendMessage(ctx, m, "TAGMSG") }

func sendMessage(ctx *Context, m *wireproto.Message, command string) {
	if len(m.Params) < 1 {
		if command != "NOTICE" {
			ctx.Numeric(wireproto.ERR_NORECIPIENT, "No recipient given ("+command+")")
		}
		return
	}
	text := m.Param(1)
	if text == "" && command != "TAGMSG" && command != "NOTICE" {
		ctx.Numeric(wireproto.ERR_NOTEXTTOSEND, "No text to send")
		return
	}

	targets := strings.Split(m.Param(0), ",")
	if len(targets) > ctx.Config.Current().MaxTargets {
		targets = targets[:ctx.Config.Current().MaxTargets]
	}
	for _, target := range targets {
		if strings.ContainsAny(target, "#&") {
			sendToChannel(ctx, target, text, command, m.Tags)
			continue
		}
		sendToNick(ctx, target, text, command, m.Tags)
	}
}

func sendToChannel(ctx *Context, target, text, command string, tags []wireproto.Tag) {
	actor, ok := ctx.Channels.Get(target)
	if !ok {
		if command != "NOTICE" {
			ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, target, "No such channel")
		}
		return
	}
	reply := make(chan error, 1)
	actor.Submit(channel.Message{
		ActorUID: uint32(ctx.UID), ActorNick: ctx.NickSeen, Hostmask: ctx.hostmask(),
		Ctx: ctx.matchContext(), Command: command, Text: text, Tags: tags, Reply: reply,
	})
	if err := <-reply; err != nil && command != "NOTICE" {
		if we, ok := err.(interface{ Code() string }); ok {
			ctx.Numeric(we.Code(), target, err.Error())
		}
	}
}

func sendToNick(ctx *Context, target, text, command string, tags []wireproto.Tag) {
	rec, uid, ok := ctx.Users.Lookup(target)
	if !ok {
		if command != "NOTICE" {
			ctx.Numeric(wireproto.ERR_NOSUCHNICK, target, "No such nick/channel")
		}
		return
	}
	snap := rec.Snapshot()
	msg := &wireproto.Message{
		Tags:    tags,
		Prefix:  &wireproto.Prefix{Nick: ctx.NickSeen, User: ctx.UserSeen, Host: hostForRegistration(ctx)},
		Command: command,
		Params:  []string{target, text},
	}
	if sess, ok := ctx.Sessions.Lookup(uint32(uid)); ok {
		sess.Deliver(msg)
	}
	if snap.Away != "" {
		ctx.Numeric(wireproto.RPL_AWAY, target, snap.Away)
	}
}

func handleAway(ctx *Context, m *wireproto.Message) {
	rec, ok := ctx.Users.Record(ctx.UID)
	if !ok {
		return
	}
	msg := m.Param(0)
	rec.SetAway(msg)
	if msg == "" {
		ctx.Numeric(wireproto.RPL_UNAWAY, "You are no longer marked as being away")
	} else {
		ctx.Numeric(wireproto.RPL_NOWAWAY, "You have been marked as being away")
	}
}

func handleWallops(ctx *Context, m *wireproto.Message) {
	if !ctx.IsOper {
		ctx.Numeric(wireproto.ERR_NOPRIVILEGES, "Permission Denied- You're not an IRC operator")
		return
	}
	// Broadcast to every connected operator is a server-wide fan-out
	// slircd doesn't yet track (no operator roster beyond the OPER
	// table used to authenticate); delivered to the sender only until
	// that roster exists.
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: ctx.NickSeen, User: ctx.UserSeen, Host: hostForRegistration(ctx)},
		Command: "WALLOPS",
		Params:  []string{m.Param(0)},
	})
}

func handleGlobops(ctx *Context, m *wireproto.Message) {
	if !ctx.IsOper {
		ctx.Numeric(wireproto.ERR_NOPRIVILEGES, "Permission Denied- You're not an IRC operator")
		return
	}
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: ctx.NickSeen, User: ctx.UserSeen, Host: hostForRegistration(ctx)},
		Command: "GLOBOPS",
		Params:  []string{m.Param(0)},
	})
}
