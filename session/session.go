package session

import (
	"sync"
	"time"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/wireproto"
)

// DeviceID identifies one connection attached to a Session, stable
// for the life of that connection.
type DeviceID string

// ConnSender delivers a message to one physical connection. A
// transport.Conn (or a test double) implements this directly.
type ConnSender interface {
	Deliver(m *wireproto.Message)
}

// Device is one sibling connection attached to a Session.
type Device struct {
	ID     DeviceID
	UID    uint32
	Sender ConnSender
	Caps   map[string]bool // negotiated capabilities relevant to replay: "batch", "draft/event-playback"

	mu       sync.Mutex
	lastSeen map[string]int64 // folded channel -> highest replayed nanotime
}

func newDevice(id DeviceID, uid uint32, sender ConnSender, caps map[string]bool) *Device {
	return &Device{ID: id, UID: uid, Sender: sender, Caps: caps, lastSeen: make(map[string]int64)}
}

func (d *Device) lastSeenFor(folded string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeen[folded]
}

func (d *Device) setLastSeen(folded string, nano int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if nano > d.lastSeen[folded] {
		d.lastSeen[folded] = nano
	}
}

// Session is one logical identity: an authenticated account (shared
// across however many devices are attached, per multiclient policy)
// or a single unauthenticated connection treated as its own
// one-device session. It implements channel.Sender directly, so it is
// the value registered with a channel actor's AttachSender/Join —
// fan-out to every sibling device happens inside Deliver, which is
// exactly what the channel actor already calls once per member UID.
type Session struct {
	Account   string // empty for a non-account (single-connection) session
	UID       uint32 // the identity presented on the wire; stable across reattach
	CreatedAt time.Time

	mu          sync.RWMutex
	nick        string
	devices     map[DeviceID]*Device
	channels    map[string]bool // folded channel names this session belongs to
	replaySince time.Time       // session-level fallback last_seen
	alwaysOn    bool
	expiresAt   time.Time // zero: not scheduled for expiry
}

var _ channel.Sender = (*Session)(nil)

func newSession(account string, uid uint32, nick string) *Session {
	now := time.Now()
	return &Session{
		Account:     account,
		UID:         uid,
		CreatedAt:   now,
		nick:        nick,
		devices:     make(map[DeviceID]*Device),
		channels:    make(map[string]bool),
		replaySince: now,
	}
}

// ReplaySince returns the fallback autoreplay anchor used for a
// channel a device has never seen before (normally the session's
// creation time; a reattach after a long absence still only replays
// what happened since the session itself came into being).
func (s *Session) ReplaySince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaySince
}

// Deliver fans a message out to every attached device, the sibling
// fan-out rule from the multiclient design: whatever the core
// delivers to this session's UID reaches every connection sharing it.
func (s *Session) Deliver(m *wireproto.Message) {
	s.mu.RLock()
	devices := make([]*Device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	s.mu.RUnlock()
	for _, d := range devices {
		d.Sender.Deliver(m)
	}
}

// Nick returns the session's current display nick.
func (s *Session) Nick() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nick
}

// SetNick updates the session's display nick (mirrored from the user
// registry on a successful NICK change).
func (s *Session) SetNick(nick string) {
	s.mu.Lock()
	s.nick = nick
	s.mu.Unlock()
}

// DeviceCount reports how many devices are currently attached.
func (s *Session) DeviceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// Devices returns a snapshot of the attached devices.
func (s *Session) Devices() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}

// Channels returns a snapshot of the folded channel names this
// session belongs to.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	return out
}

// MarkJoined records that the session has joined folded; called once
// per channel, independent of how many devices subsequently attach to
// it, so a sibling reattach knows which actors to wire into.
func (s *Session) MarkJoined(folded string) {
	s.mu.Lock()
	s.channels[folded] = true
	s.mu.Unlock()
}

// MarkParted forgets folded; called on PART for the session's own
// UID. A KICK does not call it.
func (s *Session) MarkParted(folded string) {
	s.mu.Lock()
	delete(s.channels, folded)
	s.mu.Unlock()
}

func (s *Session) attach(d *Device) {
	s.mu.Lock()
	s.devices[d.ID] = d
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *Session) detach(id DeviceID, expiry time.Duration, alwaysOn bool) (remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, id)
	remaining = len(s.devices)
	if remaining == 0 {
		s.alwaysOn = alwaysOn
		if alwaysOn && expiry > 0 {
			s.expiresAt = time.Now().Add(expiry)
		} else if !alwaysOn {
			s.expiresAt = time.Now()
		}
	}
	return remaining
}

// ExpiresAt reports when an idle, deviceless session should be
// reaped; the zero Time means "not scheduled" (still has devices, or
// always-on with no expiry configured).
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// AlwaysOn reports whether this session was last detached under an
// always-on policy that lets it survive with zero devices.
func (s *Session) AlwaysOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alwaysOn
}
