package history

import (
	"github.com/google/uuid"
	"github.com/sid3xyz/slircd/wireproto"
)

// BatchType is the IRCv3 batch type tag used to frame a CHATHISTORY
// reply.
const BatchType = "chathistory"

// Frame wraps items in a BATCH +id chathistory <target> ... BATCH -id
// envelope, returning the three message groups the caller writes in
// order: the open line, the body lines, and the close line. serverName
// is used as the message prefix.
func Frame(serverName, target string, items []Item) (open *wireproto.Message, body []*wireproto.Message, close *wireproto.Message) {
	id := uuid.NewString()
	open = &wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: serverName},
		Command: "BATCH",
		Params:  []string{"+" + id, BatchType, target},
	}
	body = make([]*wireproto.Message, 0, len(items))
	for _, it := range items {
		tags := make([]wireproto.Tag, 0, len(it.Tags)+2)
		tags = append(tags, wireproto.Tag{Key: "batch", Value: id, HasValue: true})
		if it.MsgID != "" {
			tags = append(tags, wireproto.Tag{Key: "msgid", Value: it.MsgID, HasValue: true})
		}
		for k, v := range it.Tags {
			tags = append(tags, wireproto.Tag{Key: k, Value: v, HasValue: true})
		}
		var prefix *wireproto.Prefix
		if it.Prefix != "" {
			prefix = parsePrefixLoose(it.Prefix)
		}
		body = append(body, &wireproto.Message{
			Tags:    tags,
			Prefix:  prefix,
			Command: it.Command,
			Params:  append([]string(nil), it.Params...),
		})
	}
	close = &wireproto.Message{
		Prefix:  &wireproto.Prefix{Server: serverName},
		Command: "BATCH",
		Params:  []string{"-" + id},
	}
	return open, body, close
}

// ItemMessage renders a single stored Item back to wire form, for
// replay to a device that did not negotiate the batch capability (so
// no BATCH envelope is used).
func ItemMessage(it Item) *wireproto.Message {
	var tags []wireproto.Tag
	if it.MsgID != "" {
		tags = append(tags, wireproto.Tag{Key: "msgid", Value: it.MsgID, HasValue: true})
	}
	for k, v := range it.Tags {
		tags = append(tags, wireproto.Tag{Key: k, Value: v, HasValue: true})
	}
	var prefix *wireproto.Prefix
	if it.Prefix != "" {
		prefix = parsePrefixLoose(it.Prefix)
	}
	return &wireproto.Message{
		Tags:    tags,
		Prefix:  prefix,
		Command: it.Command,
		Params:  append([]string(nil), it.Params...),
	}
}

// parsePrefixLoose rebuilds a Prefix from its stored wire-form
// string, for replay; it never fails, falling back to treating the
// whole string as a server name if it doesn't parse as nick!user@host.
func parsePrefixLoose(s string) *wireproto.Prefix {
	bang := -1
	at := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '!':
			if bang < 0 {
				bang = i
			}
		case '@':
			at = i
		}
	}
	if bang < 0 && at < 0 {
		return &wireproto.Prefix{Server: s}
	}
	p := &wireproto.Prefix{}
	switch {
	case bang >= 0 && at > bang:
		p.Nick, p.User, p.Host = s[:bang], s[bang+1:at], s[at+1:]
	case bang >= 0:
		p.Nick, p.User = s[:bang], s[bang+1:]
	case at >= 0:
		p.Nick, p.Host = s[:at], s[at+1:]
	default:
		p.Nick = s
	}
	return p
}
