package router

import (
	"net"
	"strings"

	"github.com/sid3xyz/slircd/wireproto"
)

// handleMetadata implements the subset of the draft/metadata
// subcommands that don't need a backing store: GET/LIST always come
// back empty since slircd doesn't persist client metadata, and SET
// is acknowledged with RPL_KEYVALUE but discarded. Keys are not
// validated.
func handleMetadata(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		return
	}
	sub := strings.ToUpper(m.Param(0))
	target := nickOrStar(ctx)
	switch sub {
	case "GET", "LIST":
		ctx.Reply(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
			Command: "770", // RPL_METADATAEND
			Params:  []string{target, target, "Metadata list end"},
		})
	case "SET":
		if len(m.Params) < 2 {
			return
		}
		ctx.Reply(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
			Command: "761", // RPL_KEYVALUE
			Params:  []string{target, target, m.Param(1)},
		})
	}
}

// handleMonitor implements a minimal MONITOR subset that keeps no
// watch list: +, - and C are accepted without a reply, L always
// answers with an empty list (RPL_MONLIST, RPL_ENDOFMONLIST), and S
// reports each listed nick as online or offline by looking it up in
// user.Registry.
func handleMonitor(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		return
	}
	switch strings.ToUpper(m.Param(0)) {
	case "S":
		for _, nick := range strings.Split(m.Param(1), ",") {
			if _, _, ok := ctx.Users.Lookup(nick); ok {
				ctx.Numeric("730", nick) // RPL_MONONLINE
			} else {
				ctx.Numeric("731", nick) // RPL_MONOFFLINE
			}
		}
	case "L":
		ctx.Numeric("732") // RPL_MONLIST
		ctx.Numeric("733") // RPL_ENDOFMONLIST
	}
}

// handleWebirc handles the WEBIRC gateway line (password, gateway
// name, claimed hostname, claimed IP). Before registration starts and
// with at least four parameters, it substitutes the claimed IP, if it
// parses, for the rest of registration so a web gateway's users show
// their own origin rather than the gateway's. The password and
// gateway name are not checked.
func handleWebirc(ctx *Context, m *wireproto.Message) {
	if ctx.State != StateUnregistered || len(m.Params) < 4 {
		return
	}
	if ip := net.ParseIP(m.Param(3)); ip != nil {
		ctx.RemoteIP = ip
	}
}
