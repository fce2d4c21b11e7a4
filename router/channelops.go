package router

import (
	"strings"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/wireproto"
)

func (ctx *Context) matchContext() access.MatchContext {
	var chans []string
	if ctx.Sess != nil {
		chans = ctx.Sess.Channels()
	}
	return access.MatchContext{
		Account:      "",
		Realname:     ctx.RealName,
		Server:       ctx.ServerName,
		Channels:     chans,
		IsOper:       ctx.IsOper,
		OperType:     ctx.OperName,
		IsRegistered: ctx.State == StateRegistered,
		IP:           ctx.RemoteIP,
	}
}

func (ctx *Context) hostmask() string {
	return ctx.NickSeen + "!" + ctx.UserSeen + "@" + hostForRegistration(ctx)
}

func handleJoin(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return
	}
	names := strings.Split(m.Param(0), ",")
	var keys []string
	if m.Param(1) != "" {
		keys = strings.Split(m.Param(1), ",")
	}
	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		joinOne(ctx, name, key)
	}
}

func joinOne(ctx *Context, name, key string) {
	actor := ctx.Channels.GetOrCreate(name)
	reply := make(chan channel.JoinReply, 1)
	ok := actor.Submit(channel.Join{
		UID:      uint32(ctx.UID),
		Nick:     ctx.NickSeen,
		Hostmask: ctx.hostmask(),
		Ctx:      ctx.matchContext(),
		Key:      key,
		Sender:   ctx.Sender,
		Reply:    reply,
	})
	if !ok {
		return
	}
	jr := <-reply
	if jr.Err != nil {
		if jr.ErrNumeric != "" {
			ctx.Numeric(jr.ErrNumeric, name, jr.Err.Error())
		}
		return
	}
	if ctx.Sess != nil {
		ctx.Sess.MarkJoined(foldedChannel(name))
	}

	if jr.Topic.Text == "" {
		ctx.Numeric(wireproto.RPL_NOTOPIC, name, "No topic is set")
	} else {
		ctx.Numeric(wireproto.RPL_TOPIC, name, jr.Topic.Text)
	}
	for i := 0; i < len(jr.Names); i += namesChunk {
		end := i + namesChunk
		if end > len(jr.Names) {
			end = len(jr.Names)
		}
		ctx.Numeric(wireproto.RPL_NAMREPLY, "=", name, strings.Join(jr.Names[i:end], " "))
	}
	ctx.Numeric(wireproto.RPL_ENDOFNAMES, name, "End of /NAMES list")
}

const namesChunk = 20

func foldedChannel(name string) string {
	return strings.ToLower(name)
}

func handlePart(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return
	}
	reason := m.Param(1)
	for _, name := range strings.Split(m.Param(0), ",") {
		actor, ok := ctx.Channels.Get(name)
		if !ok {
			ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, name, "No such channel")
			continue
		}
		actor.Submit(channel.Part{UID: uint32(ctx.UID), Reason: reason})
		if ctx.Sess != nil {
			ctx.Sess.MarkParted(foldedChannel(name))
		}
	}
}

func handleKick(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 2 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "KICK", "Not enough parameters")
		return
	}
	actor, ok := ctx.Channels.Get(m.Param(0))
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, m.Param(0), "No such channel")
		return
	}
	_, targetUID, ok := ctx.Users.Lookup(m.Param(1))
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHNICK, m.Param(1), "No such nick")
		return
	}
	reply := make(chan error, 1)
	actor.Submit(channel.Kick{
		ActorUID: uint32(ctx.UID), ActorNick: ctx.NickSeen,
		Target: uint32(targetUID), Reason: m.Param(2), Reply: reply,
	})
	if err := <-reply; err != nil {
		if we, ok := err.(interface{ Code() string }); ok {
			ctx.Numeric(we.Code(), m.Param(0), err.Error())
		}
	}
}

func handleInvite(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 2 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "INVITE", "Not enough parameters")
		return
	}
	actor, ok := ctx.Channels.Get(m.Param(1))
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, m.Param(1), "No such channel")
		return
	}
	_, targetUID, ok := ctx.Users.Lookup(m.Param(0))
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHNICK, m.Param(0), "No such nick")
		return
	}
	reply := make(chan error, 1)
	actor.Submit(channel.Invite{
		ActorUID: uint32(ctx.UID), ActorNick: ctx.NickSeen, HasOp: ctx.IsOper,
		Target: uint32(targetUID), TargetNick: m.Param(0), Reply: reply,
	})
	if err := <-reply; err != nil {
		if we, ok := err.(interface{ Code() string }); ok {
			ctx.Numeric(we.Code(), m.Param(1), err.Error())
		}
		return
	}
	ctx.Numeric(wireproto.RPL_INVITING, m.Param(1), m.Param(0))
}

func handleTopic(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "TOPIC", "Not enough parameters")
		return
	}
	actor, ok := ctx.Channels.Get(m.Param(0))
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, m.Param(0), "No such channel")
		return
	}
	var newTopic *string
	if len(m.Params) >= 2 {
		t := m.Param(1)
		newTopic = &t
	}
	reply := make(chan channel.TopicReply, 1)
	actor.Submit(channel.Topic{ActorUID: uint32(ctx.UID), ActorNick: ctx.NickSeen, HasOp: ctx.IsOper, New: newTopic, Reply: reply})
	tr := <-reply
	if tr.Err != nil {
		if we, ok := tr.Err.(interface{ Code() string }); ok {
			ctx.Numeric(we.Code(), m.Param(0), tr.Err.Error())
		}
		return
	}
	if tr.Current.Text == "" {
		ctx.Numeric(wireproto.RPL_NOTOPIC, m.Param(0), "No topic is set")
	} else {
		ctx.Numeric(wireproto.RPL_TOPIC, m.Param(0), tr.Current.Text)
	}
}

func handleNames(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		return
	}
	for _, name := range strings.Split(m.Param(0), ",") {
		actor, ok := ctx.Channels.Get(name)
		if !ok {
			continue
		}
		reply := make(chan channel.ChannelInfo, 1)
		actor.Submit(channel.GetInfo{RequesterUID: uint32(ctx.UID), Reply: reply})
		info := <-reply
		names := make([]string, 0, len(info.Members))
		for _, mem := range info.Members {
			names = append(names, string(mem.Glyphs)+mem.Nick)
		}
		for i := 0; i < len(names); i += namesChunk {
			end := i + namesChunk
			if end > len(names) {
				end = len(names)
			}
			ctx.Numeric(wireproto.RPL_NAMREPLY, "=", name, strings.Join(names[i:end], " "))
		}
		ctx.Numeric(wireproto.RPL_ENDOFNAMES, name, "End of /NAMES list")
	}
}

func handleList(ctx *Context, m *wireproto.Message) {
	ctx.Numeric(wireproto.RPL_LISTSTART, "Channel", "Users Name")
	for _, folded := range ctx.Channels.Names() {
		actor, ok := ctx.Channels.Get(folded)
		if !ok {
			continue
		}
		reply := make(chan channel.ChannelInfo, 1)
		actor.Submit(channel.GetInfo{RequesterUID: uint32(ctx.UID), Reply: reply})
		info := <-reply
		ctx.Numeric(wireproto.RPL_LIST, info.Name, itoa(info.MemberCount), info.Topic.Text)
	}
	ctx.Numeric(wireproto.RPL_LISTEND, "End of /LIST")
}

func handleMode(ctx *Context, m *wireproto.Message) {
	if len(m.Params) < 1 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
		return
	}
	target := m.Param(0)
	if !strings.ContainsAny(target, "#&") {
		handleUserMode(ctx, m)
		return
	}
	actor, ok := ctx.Channels.Get(target)
	if !ok {
		ctx.Numeric(wireproto.ERR_NOSUCHCHANNEL, target, "No such channel")
		return
	}
	if len(m.Params) < 2 {
		reply := make(chan channel.ChannelInfo, 1)
		actor.Submit(channel.GetInfo{RequesterUID: uint32(ctx.UID), Reply: reply})
		info := <-reply
		rendered := channel.Render(info.Modes)
		letters := "+"
		if len(rendered) > 0 {
			letters = rendered[0]
		}
		ctx.Numeric(wireproto.RPL_CHANNELMODEIS, target, letters)
		return
	}
	changes := parseModeString(ctx.ModeSet, m.Param(1), m.Params[2:])
	reply := make(chan channel.ModeReply, 1)
	actor.Submit(channel.Mode{ActorUID: uint32(ctx.UID), ActorNick: ctx.NickSeen, IsOper: ctx.IsOper, Changes: changes, Reply: reply})
	mr := <-reply
	for _, d := range mr.Denied {
		parts := strings.SplitN(d, " ", 2)
		if len(parts) == 2 {
			ctx.Numeric(parts[0], target, parts[1])
		}
	}
	_ = mr.Applied
}

func handleUserMode(ctx *Context, m *wireproto.Message) {
	_, uid, ok := ctx.Users.Lookup(m.Param(0))
	if !ok || uint32(uid) != uint32(ctx.UID) {
		ctx.Numeric(wireproto.ERR_USERSDONTMATCH, "Cannot change mode for other users")
		return
	}
	rec, _ := ctx.Users.Record(uid)
	if len(m.Params) < 2 {
		snap := rec.Snapshot()
		ctx.Numeric(wireproto.RPL_UMODEIS, "+"+string(snap.Modes))
		return
	}
	var sign byte = '+'
	for i := 0; i < len(m.Param(1)); i++ {
		c := m.Param(1)[i]
		if c == '+' || c == '-' {
			sign = c
			continue
		}
		rec.SetMode(c, sign == '+')
	}
}

// parseModeString splits a MODE parameter string into RequestedChanges,
// consulting ms to decide which changes consume one of the trailing
// args (list modes with no argument are left as an empty-Arg query,
// per channel.handleMode's list-query convention).
func parseModeString(ms *channel.ModeSet, modes string, args []string) []channel.RequestedChange {
	var out []channel.RequestedChange
	sign := byte('+')
	ai := 0
	for i := 0; i < len(modes); i++ {
		c := modes[i]
		if c == '+' || c == '-' {
			sign = c
			continue
		}
		arg := ""
		if ms != nil && ms.TakesParam(c, sign) && ai < len(args) {
			arg = args[ai]
			ai++
		}
		out = append(out, channel.RequestedChange{Sign: sign, Mode: c, Arg: arg})
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
