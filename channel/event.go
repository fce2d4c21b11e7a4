package channel

import (
	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/wireproto"
)

// Join requests that UID join the channel.
type Join struct {
	UID      uint32
	Nick     string
	Hostmask string // "nick!user@host", for ban/except matching
	Ctx      access.MatchContext
	Key      string
	Invited  bool // true if the session already consumed a standing INVITE
	Sender   Sender
	Reply    chan JoinReply
}

// JoinReply answers a Join: either Err is set (registration-time
// numeric to relay) or the join succeeded and Topic/Names describe
// the state the joining client should render.
type JoinReply struct {
	Err        error
	ErrNumeric string
	First      bool // true if this UID became the channel's only member (assigned founder status)
	Topic      TopicState
	Names      []string // glyph-prefixed nicks, chunked by the caller into RPL_NAMREPLY lines
}

// Part requests that UID leave the channel voluntarily.
type Part struct {
	UID    uint32
	Reason string
}

// Quit is delivered by the session layer when a UID disconnects,
// removing it from every channel it was in without a PART broadcast
// reason beyond the quit message.
type Quit struct {
	UID    uint32
	Reason string
}

// Kick requests that actor remove target.
type Kick struct {
	ActorUID  uint32
	ActorNick string
	Target    uint32
	Reason    string
	Reply     chan error
}

// RequestedChange is one mode change a client asked for, before
// authority checks.
type RequestedChange struct {
	Sign byte
	Mode byte
	Arg  string
}

// Mode requests changes be applied to the channel.
type Mode struct {
	ActorUID  uint32
	ActorNick string
	IsOper    bool // server operators bypass prefix-rank authority checks
	Changes   []RequestedChange
	Reply     chan ModeReply
}

// ModeReply answers a Mode event.
type ModeReply struct {
	Applied []Change // successfully-applied changes, for broadcast via Render
	Denied  []string // numeric/message pairs rendered "CODE reason", one per denied change
	Lists   []ListQueryReply
}

// ListQueryReply answers an empty-argument list-mode query (e.g.
// plain "MODE #chan +b").
type ListQueryReply struct {
	Mode    byte
	Entries []*ListEntry
}

// Privmsg, Notice, and Tagmsg all route through Message; Command
// distinguishes them for delivery-rule and history purposes.
type Message struct {
	ActorUID   uint32
	ActorNick  string
	Hostmask   string
	Ctx        access.MatchContext
	IsExternal bool // sender is not a current member (+n applies)
	Command    string
	Text       string
	Tags       []wireproto.Tag
	Reply      chan error
}

// Topic reads (New == nil) or sets (New != nil) the topic.
type Topic struct {
	ActorUID  uint32
	ActorNick string
	HasOp     bool
	New       *string
	Reply     chan TopicReply
}

// TopicReply answers a Topic event.
type TopicReply struct {
	Err     error
	Current TopicState
}

// GetInfo requests a snapshot for NAMES/LIST/WHO.
type GetInfo struct {
	RequesterUID uint32
	Reply        chan ChannelInfo
}

// ChannelInfo is a read-only snapshot of channel state.
type ChannelInfo struct {
	Name        string
	Created     int64
	Topic       TopicState
	MemberCount int
	Modes       []Change // current scalar/flag modes, for RPL_CHANNELMODEIS
	Members     []MemberInfo
}

// MemberInfo is one NAMES/WHO row.
type MemberInfo struct {
	UID    uint32
	Nick   string
	Glyphs []byte
}

// AttachSender registers the outbound queue for an already-joined UID
// (used when a sibling connection starts rendering a channel the
// session is already a member of).
type AttachSender struct {
	UID    uint32
	Sender Sender
}

// DetachSender unregisters a UID's outbound queue without leaving the
// channel (the session still has other connections attached).
type DetachSender struct {
	UID uint32
}

// Invite records a standing invite for Target, bypassing +i once.
type Invite struct {
	ActorUID   uint32
	ActorNick  string
	HasOp      bool
	Target     uint32
	TargetNick string
	Reply      chan error
}

// Destroy restarts the actor's destroy grace period if the channel is
// empty; the actor exits once that period passes with no member. A
// non-empty channel ignores it.
type Destroy struct{}
