package channel

import (
	"context"
	"time"

	"github.com/sid3xyz/slircd/crdt"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/wireproto"
)

// DefaultQueueDepth is the default bound on in-flight events per
// channel actor.
const DefaultQueueDepth = 256

// DefaultDestroyGrace is how long an emptied channel (not +P) stays
// alive before its actor exits, so a rapid rejoin doesn't lose state.
const DefaultDestroyGrace = 15 * time.Second

// DefaultRingCap bounds the in-memory recent-activity ring per
// channel, independent of the durable history store's retention.
const DefaultRingCap = 64

// Actor owns one channel's state and serves events from a single
// goroutine, so every state transition is applied without locking.
type Actor struct {
	st *state
	ms *ModeSet

	events chan interface{}

	senders map[uint32]Sender

	hist          history.Provider
	historyEvents map[string]bool // command name -> persisted

	serverName   string
	clock        *crdt.Clock
	destroyGrace time.Duration

	onDestroy func(folded string) // called once the actor exits, so the registry can drop its entry
}

// Config bundles the tunables an Actor needs beyond the channel name.
type Config struct {
	ServerName    string
	ModeSet       *ModeSet
	History       history.Provider
	HistoryEvents []string // which commands are persisted beyond PRIVMSG/NOTICE/TOPIC/TAGMSG
	QueueDepth    int
	DestroyGrace  time.Duration
	RingCap       int
	Clock         *crdt.Clock
	OnDestroy     func(folded string)
}

// New constructs an Actor for a freshly-created channel named name
// (display form), keyed by folded. Call Run in its own goroutine to
// start serving events.
func New(name, folded string, cfg Config) *Actor {
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	ringCap := cfg.RingCap
	if ringCap <= 0 {
		ringCap = DefaultRingCap
	}
	grace := cfg.DestroyGrace
	if grace <= 0 {
		grace = DefaultDestroyGrace
	}
	hevents := map[string]bool{"PRIVMSG": true, "NOTICE": true, "TOPIC": true, "TAGMSG": true}
	for _, c := range cfg.HistoryEvents {
		hevents[c] = true
	}
	return &Actor{
		st:            newState(name, folded, ringCap),
		ms:            cfg.ModeSet,
		events:        make(chan interface{}, queueDepth),
		senders:       make(map[uint32]Sender),
		hist:          cfg.History,
		historyEvents: hevents,
		serverName:    cfg.ServerName,
		clock:         cfg.Clock,
		destroyGrace:  grace,
		onDestroy:     cfg.OnDestroy,
	}
}

// Name returns the channel's display name.
func (a *Actor) Name() string { return a.st.name }

// Folded returns the channel's case-folded key.
func (a *Actor) Folded() string { return a.st.folded }

// Submit enqueues ev for processing, returning false if the queue is
// full (the caller's backpressure signal to shed load or disconnect a
// lagging client).
func (a *Actor) Submit(ev interface{}) bool {
	select {
	case a.events <- ev:
		return true
	default:
		return false
	}
}

// Run serves events until ctx is cancelled or a Destroy event is
// processed and the grace period elapses with no rejoin.
func (a *Actor) Run(ctx context.Context) {
	var destroyAt <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-destroyAt:
			if len(a.st.members) == 0 {
				if a.onDestroy != nil {
					a.onDestroy(a.st.folded)
				}
				return
			}
			destroyAt = nil
		case ev := <-a.events:
			switch e := ev.(type) {
			case Join:
				a.handleJoin(e)
				destroyAt = nil
			case Part:
				a.handlePart(e)
				if len(a.st.members) == 0 && !a.st.flags['P'] {
					destroyAt = time.After(a.destroyGrace)
				}
			case Quit:
				a.handleQuit(e)
				if len(a.st.members) == 0 && !a.st.flags['P'] {
					destroyAt = time.After(a.destroyGrace)
				}
			case Kick:
				a.handleKick(e)
				if len(a.st.members) == 0 && !a.st.flags['P'] {
					destroyAt = time.After(a.destroyGrace)
				}
			case Mode:
				a.handleMode(e)
			case Message:
				a.handleMessage(e)
			case Topic:
				a.handleTopic(e)
			case GetInfo:
				a.handleGetInfo(e)
			case AttachSender:
				a.senders[e.UID] = e.Sender
			case DetachSender:
				delete(a.senders, e.UID)
			case Invite:
				a.handleInvite(e)
			case Destroy:
				if len(a.st.members) == 0 {
					destroyAt = time.After(a.destroyGrace)
				}
			}
		}
	}
}

// broadcast writes msg to every attached sender.
func (a *Actor) broadcast(msg *wireproto.Message) {
	for _, s := range a.senders {
		s.Deliver(msg)
	}
}

func (a *Actor) now() crdt.HybridTimestamp {
	if a.clock == nil {
		return crdt.HybridTimestamp{WallMS: time.Now().UnixMilli()}
	}
	return a.clock.Now(time.Now().UnixMilli())
}
