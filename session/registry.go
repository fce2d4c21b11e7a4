package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/sid3xyz/slircd/channel"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/internal/util"
	"github.com/sid3xyz/slircd/wireproto"
)

// ErrMaxSessions is returned by Attach when the account already has
// MaxSessions live devices.
var ErrMaxSessions = fmt.Errorf("session: account has reached its maximum number of sessions")

// RegistryConfig bundles a Registry's tunables.
type RegistryConfig struct {
	ServerName  string
	CaseMapping wireproto.CaseMapping
	Channels    *channel.Registry
	History     history.Provider
	Policy      AlwaysOnPolicy
	Expiry      time.Duration // 0: always-on sessions never expire on their own
	MaxSessions int           // 0: unbounded
}

// Registry is the global index from account name to Session, plus the
// anonymous (non-account) sessions created for unauthenticated
// connections. Grounded on user.Registry's concurrent-map shape,
// keyed by account rather than nick since a session outlives any
// single device's nick.
type Registry struct {
	cm          wireproto.CaseMapping
	serverName  string
	channels    *channel.Registry
	hist        history.Provider
	policy      AlwaysOnPolicy
	expiry      time.Duration
	maxSessions int

	byAccount util.Map[string, *Session]
	byUID     util.Map[uint32, *Session]

	mu        sync.Mutex
	anonymous map[uint32]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		cm:          cfg.CaseMapping,
		serverName:  cfg.ServerName,
		channels:    cfg.Channels,
		hist:        cfg.History,
		policy:      cfg.Policy,
		expiry:      cfg.Expiry,
		maxSessions: cfg.MaxSessions,
		anonymous:   make(map[uint32]*Session),
	}
}

// Anonymous returns a fresh, unshared Session for a connection that
// has not logged into an account, keyed by its UID alone.
func (r *Registry) Anonymous(uid uint32, nick string) *Session {
	s := newSession("", uid, nick)
	r.mu.Lock()
	r.anonymous[uid] = s
	r.mu.Unlock()
	r.byUID.Put(uid, s)
	return s
}

// Lookup resolves a UID to its Session regardless of whether it is
// account-backed or anonymous, for routing a message to whatever
// Sender currently owns that identity.
func (r *Registry) Lookup(uid uint32) (*Session, bool) {
	return r.byUID.Get(uid)
}

// ForAccount returns the live Session for account, creating one if
// none exists yet. reused reports whether an existing, already-live
// session was returned (the "multiclient" case).
func (r *Registry) ForAccount(account string, uid uint32, nick string) (sess *Session, reused bool) {
	folded := r.cm.Fold(account)
	if s, ok := r.byAccount.Get(folded); ok {
		return s, true
	}
	s := newSession(account, uid, nick)
	if !r.byAccount.Add(folded, s) {
		existing, _ := r.byAccount.Get(folded)
		return existing, true
	}
	r.byUID.Put(uid, s)
	return s, false
}

// Attach registers device on sess, returning ErrMaxSessions if the
// account has already reached its configured device cap.
func (r *Registry) Attach(sess *Session, id DeviceID, uid uint32, sender ConnSender, caps map[string]bool) (*Device, error) {
	if r.maxSessions > 0 && sess.DeviceCount() >= r.maxSessions {
		return nil, ErrMaxSessions
	}
	d := newDevice(id, uid, sender, caps)
	sess.attach(d)
	return d, nil
}

// Detach removes device id from sess, applying the always-on policy
// to decide whether sess survives with zero devices. accountPref is
// the account's own always-on preference (nil: unset). If the session
// does not survive, it is dropped from the registry immediately,
// whether or not it has an account.
func (r *Registry) Detach(sess *Session, id DeviceID, accountPref *bool) (survives bool) {
	survives = EffectiveAlwaysOn(r.policy, accountPref)
	remaining := sess.detach(id, r.expiry, survives)
	if remaining > 0 {
		return true
	}
	if survives {
		return true
	}
	r.drop(sess)
	return false
}

func (r *Registry) drop(sess *Session) {
	r.byUID.Del(sess.UID)
	if sess.Account != "" {
		r.byAccount.Del(r.cm.Fold(sess.Account))
		return
	}
	r.mu.Lock()
	delete(r.anonymous, sess.UID)
	r.mu.Unlock()
}

// Sweep removes every always-on session whose expiry has passed,
// returning how many were dropped. Intended to run periodically from
// Registry.RunReaper or an external ticker.
func (r *Registry) Sweep() int {
	now := time.Now()
	var expired []*Session
	r.byAccount.Range(func(_ string, s *Session) bool {
		if exp := s.ExpiresAt(); !exp.IsZero() && !exp.After(now) {
			expired = append(expired, s)
		}
		return true
	})
	for _, s := range expired {
		r.drop(s)
	}
	return len(expired)
}

// RunReaper sweeps expired always-on sessions every interval until ctx
// (represented here by the returned stop function's caller) asks it to
// stop. It is started as its own goroutine; calling the returned
// function stops it.
func (r *Registry) RunReaper(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				r.Sweep()
			}
		}
	}()
	return func() { close(done) }
}

// Count returns the number of live account-backed sessions.
func (r *Registry) Count() int { return r.byAccount.Len() }
