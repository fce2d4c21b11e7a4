package channel

import (
	"strconv"
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

func (a *Actor) handleJoin(e Join) {
	if _, already := a.st.members[e.UID]; already {
		e.Reply <- JoinReply{Err: errAlreadyMember, ErrNumeric: ""}
		return
	}

	if limit, ok := a.st.scalars['l']; ok {
		if n, err := strconv.Atoi(limit); err == nil && len(a.st.members) >= n {
			e.Reply <- JoinReply{Err: errChannelFull, ErrNumeric: wireproto.ERR_CHANNELISFULL}
			return
		}
	}

	if key, ok := a.st.scalars['k']; ok && key != "" && e.Key != key {
		e.Reply <- JoinReply{Err: errBadKey, ErrNumeric: wireproto.ERR_BADCHANNELKEY}
		return
	}

	if a.st.flags['i'] && !e.Invited && !a.st.invited[e.UID] && !a.st.lists['I'].MatchAny(e.Hostmask, e.Ctx) {
		e.Reply <- JoinReply{Err: errInviteOnly, ErrNumeric: wireproto.ERR_INVITEONLYCHAN}
		return
	}

	if a.st.lists['b'].MatchAny(e.Hostmask, e.Ctx) && !a.st.lists['e'].MatchAny(e.Hostmask, e.Ctx) {
		e.Reply <- JoinReply{Err: errBanned, ErrNumeric: wireproto.ERR_BANNEDFROMCHAN}
		return
	}

	first := len(a.st.members) == 0
	mem := newMember(e.UID, e.Nick)
	if first {
		for m := range a.ms.prefix {
			if r, ok := a.ms.Rank(m); ok && r == 0 {
				mem.Prefixes[m] = true
			}
		}
	}
	a.st.members[e.UID] = mem
	delete(a.st.invited, e.UID)
	if e.Sender != nil {
		a.senders[e.UID] = e.Sender
	}

	joinMsg := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: e.Nick, User: hostmaskUser(e.Hostmask), Host: hostmaskHost(e.Hostmask)},
		Command: "JOIN",
		Params:  []string{a.st.name},
	}
	a.broadcast(joinMsg)
	a.st.pushRing(RingEvent{At: time.Now(), Kind: "join", Actor: e.Nick})
	a.persist("JOIN", joinMsg)

	names := make([]string, 0, len(a.st.members))
	for _, m := range a.st.members {
		glyphs := m.HighestGlyph(a.ms)
		if glyphs != 0 {
			names = append(names, string(glyphs)+m.Nick)
		} else {
			names = append(names, m.Nick)
		}
	}

	e.Reply <- JoinReply{First: first, Topic: a.st.topic, Names: names}
}

func (a *Actor) handlePart(e Part) {
	mem, ok := a.st.members[e.UID]
	if !ok {
		return
	}
	partMsg := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: mem.Nick},
		Command: "PART",
		Params:  partParams(a.st.name, e.Reason),
	}
	a.broadcast(partMsg)
	delete(a.st.members, e.UID)
	delete(a.senders, e.UID)
	a.st.pushRing(RingEvent{At: time.Now(), Kind: "part", Actor: mem.Nick, Detail: e.Reason})
	a.persist("PART", partMsg)
}

func (a *Actor) handleQuit(e Quit) {
	mem, ok := a.st.members[e.UID]
	if !ok {
		return
	}
	quitMsg := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: mem.Nick},
		Command: "QUIT",
		Params:  []string{e.Reason},
	}
	a.broadcast(quitMsg)
	delete(a.st.members, e.UID)
	delete(a.senders, e.UID)
	a.st.pushRing(RingEvent{At: time.Now(), Kind: "quit", Actor: mem.Nick, Detail: e.Reason})
	a.persist("QUIT", quitMsg)
}

func (a *Actor) handleKick(e Kick) {
	target, ok := a.st.members[e.Target]
	if !ok {
		e.Reply <- errNotOnChannel
		return
	}
	kickMsg := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: e.ActorNick},
		Command: "KICK",
		Params:  []string{a.st.name, target.Nick, e.Reason},
	}
	a.broadcast(kickMsg)
	delete(a.st.members, e.Target)
	delete(a.senders, e.Target)
	a.st.pushRing(RingEvent{At: time.Now(), Kind: "kick", Actor: e.ActorNick, Detail: target.Nick + ": " + e.Reason})
	a.persist("KICK", kickMsg)
	e.Reply <- nil
}

func (a *Actor) handleInvite(e Invite) {
	if a.st.flags['i'] && !e.HasOp {
		e.Reply <- errChanopNeeded
		return
	}
	a.st.invited[e.Target] = true
	e.Reply <- nil
}

func partParams(channel, reason string) []string {
	if reason == "" {
		return []string{channel}
	}
	return []string{channel, reason}
}

func hostmaskUser(hostmask string) string {
	bang, at := -1, -1
	for i := 0; i < len(hostmask); i++ {
		switch hostmask[i] {
		case '!':
			bang = i
		case '@':
			at = i
		}
	}
	if bang >= 0 && at > bang {
		return hostmask[bang+1 : at]
	}
	return ""
}

func hostmaskHost(hostmask string) string {
	at := -1
	for i := 0; i < len(hostmask); i++ {
		if hostmask[i] == '@' {
			at = i
		}
	}
	if at >= 0 {
		return hostmask[at+1:]
	}
	return ""
}
