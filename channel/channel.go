package channel

import (
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

// TopicState is the current topic text plus who set it and when.
type TopicState struct {
	Text  string
	SetBy string
	SetAt time.Time
}

// Sender is how the actor delivers a message to one attached
// connection, without knowing anything about transports or sibling
// fan-out; the session registry supplies the concrete implementation.
type Sender interface {
	Deliver(m *wireproto.Message)
}

// state is the channel's mutable data, touched only from the actor's
// own goroutine (no locking needed: every access is serialised
// through the events channel).
type state struct {
	name     string // display form, case of the first JOIN
	folded   string
	created  time.Time
	topic    TopicState
	members  map[uint32]*Member
	lists    map[byte]*ListModeSet // 'b','e','I', and 'q' if quiet is list-moded
	scalars  map[byte]string       // e.g. 'k' -> key, 'l' -> limit
	flags    map[byte]bool         // 'i','m','n','s','t','r','P', ...
	invited  map[uint32]bool       // UIDs with a standing INVITE, cleared on JOIN
	ring     []RingEvent
	ringCap  int
}

// RingEvent is a lightweight recent-activity record kept in memory
// for quick local inspection (distinct from the durable history
// store): just enough to answer "what just happened here".
type RingEvent struct {
	At      time.Time
	Kind    string // "join","part","kick","quit","mode","topic","message"
	Actor   string
	Detail  string
}

func newState(name string, folded string, ringCap int) *state {
	return &state{
		name:    name,
		folded:  folded,
		created: time.Now(),
		members: make(map[uint32]*Member),
		lists:   map[byte]*ListModeSet{'b': {}, 'e': {}, 'I': {}, 'q': {}},
		scalars: make(map[byte]string),
		flags:   make(map[byte]bool),
		invited: make(map[uint32]bool),
		ringCap: ringCap,
	}
}

func (s *state) pushRing(ev RingEvent) {
	s.ring = append(s.ring, ev)
	if s.ringCap > 0 && len(s.ring) > s.ringCap {
		s.ring = s.ring[len(s.ring)-s.ringCap:]
	}
}
