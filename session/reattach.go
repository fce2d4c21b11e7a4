package session

import (
	"strings"
	"time"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/wireproto"
)

// namesChunkLen bounds how many glyph-prefixed nicks go on one
// RPL_NAMREPLY line, mirroring the teacher's habit of keeping wire
// lines well under the 512-byte limit without counting bytes exactly.
const namesChunkLen = 20

// Reattach runs the autoreplay sequence for a device that has just
// been attached to sess: for every channel sess already belongs to, it
// re-registers the device as a sibling sender, renders the channel's
// current NAMES/TOPIC state to that device alone, and replays any
// history the device hasn't seen yet. It is the server-side mirror of
// a fresh JOIN, minus the broadcast — no other member is told anything
// happened, since as far as they're concerned this UID was already
// there.
func Reattach(sess *Session, d *Device, channels *channel.Registry, hist history.Provider, serverName string) {
	for _, folded := range sess.Channels() {
		actor, ok := channels.Get(folded)
		if !ok {
			continue
		}
		actor.Submit(channel.AttachSender{UID: d.UID, Sender: sess})

		reply := make(chan channel.ChannelInfo, 1)
		if !actor.Submit(channel.GetInfo{RequesterUID: d.UID, Reply: reply}) {
			continue
		}
		info := <-reply
		renderJoinState(d, sess, info, serverName)
		replayHistory(d, sess, info.Name, hist, serverName)
	}
}

func renderJoinState(d *Device, sess *Session, info channel.ChannelInfo, serverName string) {
	nick := sess.Nick()
	self := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: nick},
		Command: "JOIN",
		Params:  []string{info.Name},
	}
	d.Sender.Deliver(self)

	if info.Topic.Text == "" {
		d.Sender.Deliver(wireproto.Numeric(serverName, wireproto.RPL_NOTOPIC, nick, info.Name, "No topic is set"))
	} else {
		d.Sender.Deliver(wireproto.Numeric(serverName, wireproto.RPL_TOPIC, nick, info.Name, info.Topic.Text))
	}

	names := make([]string, 0, len(info.Members))
	for _, m := range info.Members {
		names = append(names, string(m.Glyphs)+m.Nick)
	}
	for i := 0; i < len(names); i += namesChunkLen {
		end := i + namesChunkLen
		if end > len(names) {
			end = len(names)
		}
		d.Sender.Deliver(wireproto.Numeric(serverName, wireproto.RPL_NAMREPLY, nick, "=", info.Name, strings.Join(names[i:end], " ")))
	}
	d.Sender.Deliver(wireproto.Numeric(serverName, wireproto.RPL_ENDOFNAMES, nick, info.Name, "End of /NAMES list"))
}

// replayHistory delivers every stored event on target since the
// device's own last_seen marker (falling back to the session-wide
// replaySince when the device has never seen this channel before),
// wrapping the batch in a BATCH envelope when the device negotiated
// it and otherwise emitting bare messages, filtered to message-like
// commands unless the device asked for draft/event-playback.
func replayHistory(d *Device, sess *Session, target string, hist history.Provider, serverName string) {
	if hist == nil {
		return
	}
	since := d.lastSeenFor(wireproto.CaseMappingRFC1459.Fold(target))
	q := history.Query{Target: target, Selector: history.SelectorAfter}
	if since > 0 {
		q.Start = history.Anchor{Time: time.Unix(0, since)}
	} else if rs := sess.ReplaySince(); !rs.IsZero() {
		q.Start = history.Anchor{Time: rs}
	} else {
		return
	}

	items, err := hist.Query(q)
	if err != nil || len(items) == 0 {
		return
	}

	wantEvents := d.Caps["draft/event-playback"]
	filtered := items[:0:0]
	for _, it := range items {
		if !wantEvents && !isMessageLike(it.Command) {
			continue
		}
		filtered = append(filtered, it)
	}
	if len(filtered) == 0 {
		markReplayed(d, target, items)
		return
	}

	if d.Caps["batch"] {
		open, body, closeMsg := history.Frame(serverName, target, filtered)
		d.Sender.Deliver(open)
		for _, m := range body {
			d.Sender.Deliver(m)
		}
		d.Sender.Deliver(closeMsg)
	} else {
		for _, it := range filtered {
			d.Sender.Deliver(history.ItemMessage(it))
		}
	}
	markReplayed(d, target, items)
}

func markReplayed(d *Device, target string, items []history.Item) {
	folded := wireproto.CaseMappingRFC1459.Fold(target)
	for _, it := range items {
		d.setLastSeen(folded, it.NanoTime())
	}
}

func isMessageLike(command string) bool {
	switch command {
	case "PRIVMSG", "NOTICE", "TAGMSG":
		return true
	default:
		return false
	}
}
