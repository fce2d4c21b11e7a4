package router

import (
	"strings"
	"time"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/wireproto"
)

func handleWho(ctx *Context, m *wireproto.Message) {
	target := m.Param(0)
	if target == "" {
		ctx.Numeric(wireproto.RPL_ENDOFWHO, "*", "End of /WHO list")
		return
	}
	if strings.ContainsAny(target, "#&") {
		actor, ok := ctx.Channels.Get(target)
		if !ok {
			ctx.Numeric(wireproto.RPL_ENDOFWHO, target, "End of /WHO list")
			return
		}
		reply := make(chan channel.ChannelInfo, 1)
		actor.Submit(channel.GetInfo{RequesterUID: uint32(ctx.UID), Reply: reply})
		info := <-reply
		for _, mem := range info.Members {
			ctx.Numeric(wireproto.RPL_WHOREPLY, target, "*", "*", ctx.ServerName, mem.Nick, "H", "0 "+mem.Nick)
		}
		ctx.Numeric(wireproto.RPL_ENDOFWHO, target, "End of /WHO list")
		return
	}
	if rec, _, ok := ctx.Users.Lookup(target); ok {
		snap := rec.Snapshot()
		ctx.Numeric(wireproto.RPL_WHOREPLY, "*", snap.User, snap.Host, ctx.ServerName, snap.Nick, "H", "0 "+snap.Realname)
	}
	ctx.Numeric(wireproto.RPL_ENDOFWHO, target, "End of /WHO list")
}

func handleWhois(ctx *Context, m *wireproto.Message) {
	nick := m.Param(0)
	rec, _, ok := ctx.Users.Lookup(nick)
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHNICK, nick, "No such nick/channel")
		ctx.Numeric(wireproto.RPL_ENDOFWHOIS, nick, "End of /WHOIS list")
		return
	}
	snap := rec.Snapshot()
	ctx.Numeric(wireproto.RPL_WHOISUSER, snap.Nick, snap.User, snap.Host, "*", snap.Realname)
	ctx.Numeric(wireproto.RPL_WHOISSERVER, snap.Nick, ctx.ServerName, "slircd IRC server")
	if snap.Away != "" {
		ctx.Numeric(wireproto.RPL_AWAY, snap.Nick, snap.Away)
	}
	ctx.Numeric(wireproto.RPL_WHOISIDLE, snap.Nick, "0", "seconds idle")
	ctx.Numeric(wireproto.RPL_ENDOFWHOIS, snap.Nick, "End of /WHOIS list")
}

func handleWhowas(ctx *Context, m *wireproto.Message) {
	nick := m.Param(0)
	entries := ctx.Users.Whowas(nick)
	if len(entries) == 0 {
		ctx.Numeric(wireproto.ERR_WASNOSUCHNICK, nick, "There was no such nickname")
	}
	for _, e := range entries {
		ctx.Numeric(wireproto.RPL_WHOWASUSER, nick, e.User, e.Host, "*", e.Realname)
	}
	ctx.Numeric(wireproto.RPL_ENDOFWHOWAS, nick, "End of WHOWAS")
}

func handleIson(ctx *Context, m *wireproto.Message) {
	var present []string
	for _, nick := range m.Params {
		if _, _, ok := ctx.Users.Lookup(nick); ok {
			present = append(present, nick)
		}
	}
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
		Command: "303",
		Params:  []string{nickOrStar(ctx), strings.Join(present, " ")},
	})
}

func handleUserhost(ctx *Context, m *wireproto.Message) {
	var replies []string
	for _, nick := range m.Params {
		rec, _, ok := ctx.Users.Lookup(nick)
		if !ok {
			continue
		}
		snap := rec.Snapshot()
		away := "+"
		if snap.Away != "" {
			away = "-"
		}
		replies = append(replies, snap.Nick+"="+away+snap.User+"@"+snap.Host)
	}
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
		Command: "302",
		Params:  []string{nickOrStar(ctx), strings.Join(replies, " ")},
	})
}

func handleUsers(ctx *Context, m *wireproto.Message) {
	ctx.Numeric("446", "USERS has been disabled")
}

func handleLusers(ctx *Context, m *wireproto.Message) {
	ctx.Numeric(wireproto.RPL_LUSERCLIENT, "There are "+itoa(1)+" users and 0 invisible on 1 server")
	ctx.Numeric(wireproto.RPL_LUSEROP, "0", "IRC Operators online")
	ctx.Numeric(wireproto.RPL_LUSERUNKNOWN, "0", "unknown connection(s)")
	ctx.Numeric(wireproto.RPL_LUSERCHANNELS, itoa(ctx.Channels.Count()), "channels formed")
	ctx.Numeric(wireproto.RPL_LUSERME, "I have "+itoa(1)+" clients and 1 server")
}

func handleMotd(ctx *Context, m *wireproto.Message) {
	motd := ctx.Config.Current().MOTD
	if len(motd) == 0 {
		ctx.Numeric(wireproto.ERR_NOMOTD, "MOTD File is missing")
		return
	}
	ctx.Numeric(wireproto.RPL_MOTDSTART, "- "+ctx.ServerName+" Message of the Day -")
	for _, line := range motd {
		ctx.Numeric(wireproto.RPL_MOTD, "- "+line)
	}
	ctx.Numeric(wireproto.RPL_ENDOFMOTD, "End of /MOTD command")
}

func handleVersion(ctx *Context, m *wireproto.Message) {
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
		Command: "351",
		Params:  []string{nickOrStar(ctx), "slircd-1.0", ctx.ServerName, "multiclient IRC bouncer/server"},
	})
}

func handleAdmin(ctx *Context, m *wireproto.Message) {
	cfg := ctx.Config.Current()
	ctx.Reply(&wireproto.Message{Prefix: &wireproto.Prefix{Server: ctx.ServerName}, Command: "256", Params: []string{nickOrStar(ctx), ctx.ServerName, "Administrative info"}})
	ctx.Reply(&wireproto.Message{Prefix: &wireproto.Prefix{Server: ctx.ServerName}, Command: "257", Params: []string{nickOrStar(ctx), cfg.Network}})
}

func handleInfo(ctx *Context, m *wireproto.Message) {
	ctx.Reply(&wireproto.Message{Prefix: &wireproto.Prefix{Server: ctx.ServerName}, Command: "371", Params: []string{nickOrStar(ctx), "slircd - a multiclient IRC server/bouncer"}})
	ctx.Reply(&wireproto.Message{Prefix: &wireproto.Prefix{Server: ctx.ServerName}, Command: "374", Params: []string{nickOrStar(ctx), "End of /INFO list"}})
}

func handleTime(ctx *Context, m *wireproto.Message) {
	ctx.Numeric("391", ctx.ServerName, time.Now().UTC().Format(time.RFC1123))
}

func handleStats(ctx *Context, m *wireproto.Message) {
	query := m.Param(0)
	switch query {
	case "u":
		ctx.Numeric("242", "Server Up since startup")
	default:
		ctx.Numeric("219", query, "End of /STATS report")
	}
}
