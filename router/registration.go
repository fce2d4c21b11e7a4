package router

import (
	"strings"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/session"
	"github.com/sid3xyz/slircd/user"
	"github.com/sid3xyz/slircd/wireproto"
)

func handlePass(ctx *Context, m *wireproto.Message) {
	if ctx.State == StateRegistered {
		ctx.Numeric(wireproto.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	cfg := ctx.Config.Current()
	_ = cfg // no server-wide password is configured; PASS is recorded but not checked
	ctx.PassOK = true
}

func handleNick(ctx *Context, m *wireproto.Message) {
	nick := m.Param(0)
	if nick == "" {
		ctx.Numeric(wireproto.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	if len(nick) > ctx.Config.Current().NickLen {
		nick = nick[:ctx.Config.Current().NickLen]
	}

	if ctx.State == StateRegistered || ctx.State == StateUserSet {
		if err := ctx.Users.Rename(ctx.UID, nick); err != nil {
			ctx.Numeric(wireproto.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
			return
		}
		old := ctx.NickSeen
		ctx.NickSeen = nick
		if ctx.Sess != nil {
			ctx.Sess.SetNick(nick)
		}
		ctx.Sender.Deliver(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Nick: old},
			Command: "NICK",
			Params:  []string{nick},
		})
		return
	}

	if _, _, taken := ctx.Users.Lookup(nick); taken {
		ctx.Numeric(wireproto.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return
	}
	ctx.NickSeen = nick
	if ctx.State == StateUnregistered {
		ctx.State = StateNickSet
	}
	if ctx.State == StateNickSet && ctx.UserSeen != "" && ctx.RealName != "" {
		ctx.State = StateUserSet
	}
	maybeCompleteRegistration(ctx)
}

func handleUser(ctx *Context, m *wireproto.Message) {
	if ctx.State == StateRegistered {
		ctx.Numeric(wireproto.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(m.Params) >= 4 {
		ctx.UserSeen = m.Param(0)
		ctx.RealName = m.Param(3)
	}
	if ctx.UserSeen == "" || ctx.RealName == "" {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}
	if ctx.State == StateNickSet {
		ctx.State = StateUserSet
	}
	maybeCompleteRegistration(ctx)
}

// maybeCompleteRegistration finishes registration once both NICK and
// USER have been seen, registers the UID in the user registry, binds
// it to an account-less Session, and sends the welcome burst.
func maybeCompleteRegistration(ctx *Context) {
	if ctx.State != StateUserSet || ctx.NickSeen == "" || ctx.UserSeen == "" {
		return
	}
	host := hostForRegistration(ctx)
	if err := ctx.Users.Register(user.UID(ctx.UID), ctx.NickSeen, ctx.UserSeen, ctx.RealName, host); err != nil {
		ctx.Numeric(wireproto.ERR_NICKNAMEINUSE, ctx.NickSeen, "Nickname is already in use")
		ctx.State = StateNickSet
		ctx.NickSeen = ""
		return
	}

	sess := ctx.Sessions.Anonymous(uint32(ctx.UID), ctx.NickSeen)
	dev, _ := ctx.Sessions.Attach(sess, session.DeviceID(ctx.RemoteIP.String()), uint32(ctx.UID), ctx.Device.Sender, ctx.Caps)
	ctx.Sess = sess
	ctx.Device = dev
	ctx.Sender = sess
	ctx.State = StateRegistered

	sendWelcomeBurst(ctx)
}

func hostForRegistration(ctx *Context) string {
	if ctx.RemoteIP == nil {
		return "unknown"
	}
	return ctx.RemoteIP.String()
}

func sendWelcomeBurst(ctx *Context) {
	nick := ctx.NickSeen
	cfg := ctx.Config.Current()
	ctx.Numeric(wireproto.RPL_WELCOME, "Welcome to the "+cfg.Network+" Network, "+nick)
	ctx.Numeric(wireproto.RPL_YOURHOST, "Your host is "+cfg.ServerName+", running slircd")
	ctx.Numeric(wireproto.RPL_CREATED, "This server was started earlier")
	ctx.Numeric(wireproto.RPL_MYINFO, cfg.ServerName, "slircd", "", cfg.ISUPPORTChanModes())
	for _, chunk := range BuildISUPPORT(cfg) {
		ctx.Numeric(wireproto.RPL_ISUPPORT, append(chunk, "are supported by this server")...)
	}
	handleLusers(ctx, nil)
	handleMotd(ctx, nil)
}

func handleCap(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		return
	}
	sub := strings.ToUpper(m.Param(0))
	switch sub {
	case "LS":
		ctx.Reply(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
			Command: "CAP",
			Params:  []string{nickOrStar(ctx), "LS", strings.Join(supportedCaps, " ")},
		})
	case "LIST":
		ctx.Reply(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
			Command: "CAP",
			Params:  []string{nickOrStar(ctx), "LIST", strings.Join(capKeys(ctx.Caps), " ")},
		})
	case "REQ":
		wanted := strings.Fields(m.Param(1))
		ok := true
		for _, c := range wanted {
			if !supportedCapSet[c] {
				ok = false
				break
			}
		}
		reply := "NAK"
		if ok {
			reply = "ACK"
			if ctx.Caps == nil {
				ctx.Caps = make(map[string]bool)
			}
			for _, c := range wanted {
				ctx.Caps[c] = true
			}
		}
		ctx.Reply(&wireproto.Message{
			Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
			Command: "CAP",
			Params:  []string{nickOrStar(ctx), reply, m.Param(1)},
		})
	case "END":
		maybeCompleteRegistration(ctx)
	}
}

var supportedCaps = []string{
	"server-time", "message-tags", "batch", "echo-message",
	"away-notify", "account-notify", "extended-join", "multi-prefix",
	"sasl", "draft/event-playback", "draft/chathistory",
}

var supportedCapSet = func() map[string]bool {
	m := make(map[string]bool, len(supportedCaps))
	for _, c := range supportedCaps {
		m[c] = true
	}
	return m
}()

func capKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func nickOrStar(ctx *Context) string {
	if ctx.NickSeen != "" {
		return ctx.NickSeen
	}
	return "*"
}

func handleAuthenticate(ctx *Context, m *wireproto.Message) {
	// Local-client SASL (PLAIN only, verified against an OPER-style
	// account store) is out of scope until slircd gains its own
	// account database; REQ'ing the sasl cap above but never
	// completing it mirrors how a server without SASL configured
	// behaves today.
	ctx.Numeric(wireproto.ERR_SASLFAIL, "SASL authentication failed")
}

func handlePing(ctx *Context, m *wireproto.Message) {
	ctx.Reply(&wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: ctx.ServerName},
		Command: "PONG",
		Params:  []string{ctx.ServerName, m.Param(0)},
	})
}

func handlePong(ctx *Context, m *wireproto.Message) {}

func handleQuit(ctx *Context, m *wireproto.Message) {
	reason := m.Param(0)
	if reason == "" {
		reason = "Client Quit"
	}
	for _, folded := range sessChannels(ctx) {
		if a, ok := ctx.Channels.Get(folded); ok {
			a.Submit(channel.Quit{UID: uint32(ctx.UID), Reason: reason})
		}
	}
	ctx.Reply(&wireproto.Message{Command: "ERROR", Params: []string{"Closing Link: " + reason}})
}

func sessChannels(ctx *Context) []string {
	if ctx.Sess == nil {
		return nil
	}
	return ctx.Sess.Channels()
}

func handleOper(ctx *Context, m *wireproto.Message) {
	name, password := m.Param(0), m.Param(1)
	if name == "" || password == "" {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "OPER", "Not enough parameters")
		return
	}
	block, err := ctx.Opers.Authenticate(name, password, hostForRegistration(ctx), ctx.TLS)
	if err != nil {
		ctx.Numeric(wireproto.ERR_PASSWDMISMATCH, "Password incorrect")
		return
	}
	ctx.IsOper = true
	ctx.OperName = block.Name
	ctx.Numeric(wireproto.RPL_YOUREOPER, "You are now an IRC operator")
}
