package history

import "github.com/sid3xyz/slircd/crdt"

// Item is one stored event: enough to replay a wire message, plus the
// identifiers CHATHISTORY and autoreplay need to anchor a scan.
type Item struct {
	ID      uint64 // monotonic insertion order, one counter across all targets of a Store
	TS      crdt.HybridTimestamp
	MsgID   string // IRCv3 "msgid" tag value, unique per target
	Command string // PRIVMSG, NOTICE, TOPIC, TAGMSG, JOIN, PART, QUIT, KICK, MODE
	Prefix  string // wire-form sender prefix
	Params  []string
	Tags    map[string]string // client tags worth preserving on replay (e.g. +draft/reply)
}

// NanoTime returns the event's wall-clock time in unix nanoseconds,
// the field the on-disk key would sort by.
func (it Item) NanoTime() int64 { return it.TS.WallMS * 1_000_000 }
