package channel

import (
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

// authorityOK reports whether an actor holding actorRank (or IsOper)
// may apply a change to prefix mode m, per the per-change authority
// table: +q needs +q (or service); +a needs +q or higher; +o needs +o
// or higher; +h needs +o or higher; +v needs +h or higher. A custom
// prefix letter outside qaohv falls back to requiring one rank above
// itself.
func (a *Actor) authorityOK(actorRank int, hasRank bool, isOper bool, mode byte) bool {
	if isOper {
		return true
	}
	if !hasRank {
		return false
	}
	rank, ok := a.ms.Rank(mode)
	if !ok {
		return false
	}
	switch mode {
	case 'q':
		return actorRank <= rank
	case 'a':
		if r, ok := a.ms.Rank('q'); ok {
			return actorRank <= r
		}
		return actorRank <= rank
	case 'o':
		return actorRank <= rank
	case 'h':
		if r, ok := a.ms.Rank('o'); ok {
			return actorRank <= r
		}
		return actorRank <= rank
	case 'v':
		if r, ok := a.ms.Rank('h'); ok {
			return actorRank <= r
		}
		return actorRank <= rank
	default:
		if rank == 0 {
			return actorRank <= 0
		}
		return actorRank <= rank-1
	}
}

// nonPrefixOK reports whether an actor may apply list/scalar/flag mode
// changes: channel operator (or higher) rank, or server operator.
func (a *Actor) nonPrefixOK(actorRank int, hasRank bool, isOper bool) bool {
	if isOper {
		return true
	}
	if !hasRank {
		return false
	}
	if r, ok := a.ms.Rank('o'); ok {
		return actorRank <= r
	}
	return false
}

func (a *Actor) actorAuthority(uid uint32) (rank int, hasRank bool) {
	mem, ok := a.st.members[uid]
	if !ok {
		return 0, false
	}
	best := -1
	for m, set := range mem.Prefixes {
		if !set {
			continue
		}
		if r, ok := a.ms.Rank(m); ok && (best == -1 || r < best) {
			best = r
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func (a *Actor) handleMode(e Mode) {
	actorRank, hasRank := a.actorAuthority(e.ActorUID)

	var applied []Change
	var denied []string
	var lists []ListQueryReply

	for _, rc := range e.Changes {
		class, known := a.ms.Class(rc.Mode)
		if !known {
			denied = append(denied, wireproto.ERR_UNKNOWNMODE+" "+string(rc.Mode)+" is unknown mode char")
			continue
		}

		if class == ClassList && rc.Arg == "" {
			lists = append(lists, ListQueryReply{Mode: rc.Mode, Entries: a.st.lists[rc.Mode].Entries()})
			continue
		}

		if class == ClassPrefix {
			if !a.authorityOK(actorRank, hasRank, e.IsOper, rc.Mode) {
				denied = append(denied, wireproto.ERR_CHANOPRIVSNEEDED+" "+a.st.name+" :You're not a channel operator")
				continue
			}
			target, ok := a.st.members[uidForNick(a.st, rc.Arg)]
			if !ok {
				denied = append(denied, wireproto.ERR_USERNOTINCHANNEL+" "+rc.Arg+" :They aren't on that channel")
				continue
			}
			target.Prefixes[rc.Mode] = rc.Sign == '+'
			applied = append(applied, rc2change(rc))
			continue
		}

		if !a.nonPrefixOK(actorRank, hasRank, e.IsOper) {
			denied = append(denied, wireproto.ERR_CHANOPRIVSNEEDED+" "+a.st.name+" :You're not a channel operator")
			continue
		}

		switch class {
		case ClassList:
			set := a.st.lists[rc.Mode]
			var changed bool
			if rc.Sign == '+' {
				changed = set.Add(rc.Arg, e.ActorNick, time.Now())
			} else {
				changed = set.Remove(rc.Arg)
			}
			if changed {
				applied = append(applied, rc2change(rc))
			}
		case ClassParamBoth, ClassParamSet:
			if rc.Sign == '+' {
				a.st.scalars[rc.Mode] = rc.Arg
			} else {
				delete(a.st.scalars, rc.Mode)
			}
			applied = append(applied, rc2change(rc))
		case ClassFlag:
			a.st.flags[rc.Mode] = rc.Sign == '+'
			applied = append(applied, rc2change(rc))
		}
	}

	if len(applied) > 0 {
		modeMsg := &wireproto.Message{
			Prefix:  &wireproto.Prefix{Nick: e.ActorNick},
			Command: "MODE",
			Params:  append([]string{a.st.name}, Render(applied)...),
		}
		a.broadcast(modeMsg)
		a.st.pushRing(RingEvent{At: time.Now(), Kind: "mode", Actor: e.ActorNick, Detail: modeMsg.Params[1]})
		a.persist("MODE", modeMsg)
	}

	e.Reply <- ModeReply{Applied: applied, Denied: denied, Lists: lists}
}

func rc2change(rc RequestedChange) Change {
	return Change{Sign: rc.Sign, Mode: rc.Mode, Arg: rc.Arg}
}

func uidForNick(s *state, nick string) uint32 {
	for uid, m := range s.members {
		if m.Nick == nick {
			return uid
		}
	}
	return 0
}
