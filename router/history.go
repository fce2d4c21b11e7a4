package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/wireproto"
)

const defaultChatHistoryLimit = 50

// handleChatHistory implements the IRCv3 CHATHISTORY subcommands
// against history.Provider, wrapping replies in a BATCH envelope the
// same way session.Reattach does for autoreplay, since both are the
// same "render stored Items back to wire form" operation.
func handleChatHistory(ctx *Context, m *wireproto.Message) {
	if ctx.History == nil || len(m.Params) < 2 {
		ctx.Numeric(wireproto.ERR_NEEDMOREPARAMS, "CHATHISTORY", "Not enough parameters")
		return
	}
	sub := strings.ToUpper(m.Param(0))
	target := m.Param(1)

	q := history.Query{Target: target, Limit: defaultChatHistoryLimit}
	switch sub {
	case "LATEST":
		q.Selector = history.SelectorLatest
		q.Reverse = true
		if n, err := strconv.Atoi(m.Param(2)); err == nil && n > 0 {
			q.Limit = n
		}
	case "BEFORE":
		q.Selector = history.SelectorBefore
		q.Start = parseAnchor(m.Param(2))
		q.Reverse = true
	case "AFTER":
		q.Selector = history.SelectorAfter
		q.Start = parseAnchor(m.Param(2))
	case "AROUND":
		q.Selector = history.SelectorAround
		q.Start = parseAnchor(m.Param(2))
	case "BETWEEN":
		q.Selector = history.SelectorBetween
		q.Start = parseAnchor(m.Param(2))
		if len(m.Params) > 3 {
			q.End = parseAnchor(m.Param(3))
		}
	default:
		ctx.Numeric("524", sub, "Unknown CHATHISTORY subcommand")
		return
	}

	items, err := ctx.History.Query(q)
	if err != nil || len(items) == 0 {
		return
	}
	open, body, closeMsg := history.Frame(ctx.ServerName, target, items)
	ctx.Reply(open)
	for _, msg := range body {
		ctx.Reply(msg)
	}
	ctx.Reply(closeMsg)
}

func parseAnchor(s string) history.Anchor {
	if strings.HasPrefix(s, "msgid=") {
		return history.Anchor{MsgID: strings.TrimPrefix(s, "msgid=")}
	}
	if strings.HasPrefix(s, "timestamp=") {
		if t, err := time.Parse(time.RFC3339, strings.TrimPrefix(s, "timestamp=")); err == nil {
			return history.Anchor{Time: t}
		}
	}
	return history.Anchor{}
}

// handleClientBatch acknowledges a client-initiated BATCH (used for
// multiline messages); slircd doesn't need to buffer anything since
// its channel actor processes one Message event per line regardless
// of batch framing, so this is a no-op beyond accepting the syntax.
func handleClientBatch(ctx *Context, m *wireproto.Message) {}
