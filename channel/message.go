package channel

import (
	"strings"

	"github.com/sid3xyz/slircd/wireproto"
)

func (a *Actor) handleMessage(e Message) {
	if e.IsExternal && a.st.flags['n'] {
		e.Reply <- errCannotSend
		return
	}

	mem, isMember := a.st.members[e.ActorUID]
	if a.st.flags['m'] {
		allowed := isMember && a.hasVoiceOrHigher(mem)
		if !allowed {
			e.Reply <- errCannotSend
			return
		}
	}

	if a.st.lists['b'].MatchAny(e.Hostmask, e.Ctx) && !a.st.lists['e'].MatchAny(e.Hostmask, e.Ctx) {
		e.Reply <- errCannotSend
		return
	}

	text := e.Text
	if a.st.flags['c'] {
		text = stripColours(text)
	}
	if a.st.flags['C'] && isCTCP(text) && !isAction(text) {
		e.Reply <- errCannotSend
		return
	}

	msg := &wireproto.Message{
		Tags:    e.Tags,
		Prefix:  &wireproto.Prefix{Nick: e.ActorNick, User: hostmaskUser(e.Hostmask), Host: hostmaskHost(e.Hostmask)},
		Command: e.Command,
		Params:  []string{a.st.name, text},
	}
	for uid, s := range a.senders {
		if uid == e.ActorUID && e.Command != "TAGMSG" {
			continue
		}
		s.Deliver(msg)
	}
	a.persist(e.Command, msg)
	e.Reply <- nil
}

func (a *Actor) hasVoiceOrHigher(mem *Member) bool {
	rank, ok := a.actorAuthority(mem.UID)
	if !ok {
		return false
	}
	if r, ok := a.ms.Rank('v'); ok {
		return rank <= r
	}
	return false
}

var errCannotSend = wireErr(wireproto.ERR_CANNOTSENDTOCHAN)

func wireErr(code string) error { return &wireError{code} }

type wireError struct{ code string }

func (e *wireError) Error() string { return "channel: " + e.code }

// Code returns the numeric reply code a caller should relay.
func (e *wireError) Code() string { return e.code }

func isCTCP(text string) bool {
	return len(text) >= 2 && text[0] == '\x01' && text[len(text)-1] == '\x01'
}

func isAction(text string) bool {
	return isCTCP(text) && strings.HasPrefix(text[1:], "ACTION ")
}

func stripColours(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\x02', '\x1d', '\x1f', '\x16', '\x0f': // bold, italic, underline, reverse, reset
			continue
		case '\x03': // colour: optional 1-2 digit fg, optional ",bg" 1-2 digits
			i++
			for k := 0; k < 2 && i < len(s) && s[i] >= '0' && s[i] <= '9'; k++ {
				i++
			}
			if i < len(s) && s[i] == ',' {
				i++
				for k := 0; k < 2 && i < len(s) && s[i] >= '0' && s[i] <= '9'; k++ {
					i++
				}
			}
			i--
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
