package channel

import (
	"context"
	"sync"
	"time"

	"github.com/sid3xyz/slircd/crdt"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/internal/util"
	"github.com/sid3xyz/slircd/wireproto"
)

// Registry owns every live channel actor, keyed by case-folded name,
// generalising the same concurrent-map index user.Registry uses for
// nicks to a resource that owns a background goroutine rather than a
// passive record.
type Registry struct {
	cm wireproto.CaseMapping
	ms *ModeSet

	serverName    string
	hist          history.Provider
	historyEvents []string
	queueDepth    int
	ringCap       int
	destroyGrace  time.Duration
	clock         *crdt.Clock

	actors util.Map[string, *Actor]

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

// RegistryConfig bundles the tunables shared by every actor the
// Registry creates.
type RegistryConfig struct {
	ServerName    string
	CaseMapping   wireproto.CaseMapping
	ModeSet       *ModeSet
	History       history.Provider
	HistoryEvents []string
	QueueDepth    int
	RingCap       int
	DestroyGrace  time.Duration
	Clock         *crdt.Clock
}

// NewRegistry returns an empty Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		cm:            cfg.CaseMapping,
		ms:            cfg.ModeSet,
		serverName:    cfg.ServerName,
		hist:          cfg.History,
		historyEvents: cfg.HistoryEvents,
		queueDepth:    cfg.QueueDepth,
		ringCap:       cfg.RingCap,
		destroyGrace:  cfg.DestroyGrace,
		clock:         cfg.Clock,
		cancel:        make(map[string]context.CancelFunc),
	}
}

// Get returns the live actor for name, if any.
func (r *Registry) Get(name string) (*Actor, bool) {
	return r.actors.Get(r.cm.Fold(name))
}

// GetOrCreate returns the actor for name, creating and starting it
// (in its own goroutine) if it doesn't yet exist.
func (r *Registry) GetOrCreate(name string) *Actor {
	folded := r.cm.Fold(name)
	if a, ok := r.actors.Get(folded); ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors.Get(folded); ok {
		return a
	}

	a := New(name, folded, Config{
		ServerName:    r.serverName,
		ModeSet:       r.ms,
		History:       r.hist,
		HistoryEvents: r.historyEvents,
		QueueDepth:    r.queueDepth,
		DestroyGrace:  r.destroyGrace,
		RingCap:       r.ringCap,
		Clock:         r.clock,
		OnDestroy:     r.remove,
	})
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel[folded] = cancel
	r.actors.Put(folded, a)
	go a.Run(ctx)
	return a
}

// remove drops folded from the index once its actor has exited.
func (r *Registry) remove(folded string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancel[folded]; ok {
		cancel()
		delete(r.cancel, folded)
	}
	r.actors.Del(folded)
}

// Count returns the number of live channel actors.
func (r *Registry) Count() int { return r.actors.Len() }

// Names returns every live channel's folded key.
func (r *Registry) Names() []string {
	var out []string
	r.actors.Range(func(k string, _ *Actor) bool {
		out = append(out, k)
		return true
	})
	return out
}

// Shutdown cancels every actor's context, for server shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancel {
		cancel()
	}
}
