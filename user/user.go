// Package user implements the nick/UID registry: a concurrent index
// from case-folded nick to UID, plus the per-UID User record (visible
// nick, user, realname, cloaked host, modes, away, account, snomasks,
// silence/accept masks). Grounded on the
// teacher's internal/util.Map (now internal/util.Map[K,V], see
// DESIGN.md) for the concurrent-map shape, generalised from a single
// flat map to the nick-index + UID-record pair this registry needs.
package user

import (
	"fmt"
	"sync"

	"github.com/sid3xyz/slircd/internal/util"
	"github.com/sid3xyz/slircd/wireproto"
)

// UID is the opaque per-connection identifier from the GLOSSARY,
// stable for the life of the connection.
type UID uint32

// Record is the mutable state the registry holds for one UID.
type Record struct {
	mu sync.RWMutex

	Nick        string
	User        string
	Realname    string
	Host        string // cloaked or real, whichever is shown on the wire
	Account     string // empty if not logged in
	Modes       map[byte]bool
	Away        string // empty if not away
	Snomasks    map[byte]bool
	SilenceList []string
	AcceptList  []string
}

func newRecord() *Record {
	return &Record{Modes: make(map[byte]bool), Snomasks: make(map[byte]bool)}
}

// Snapshot is an immutable copy of a Record, safe to hand to WHOIS/
// WHO/NAMES formatting code without holding the Record's lock.
type Snapshot struct {
	Nick, User, Realname, Host, Account, Away string
	Modes                                     []byte
}

// Snapshot copies r's fields under its read lock.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{Nick: r.Nick, User: r.User, Realname: r.Realname, Host: r.Host, Account: r.Account, Away: r.Away}
	for m, set := range r.Modes {
		if set {
			s.Modes = append(s.Modes, m)
		}
	}
	return s
}

// SetAway updates the away message under lock; an empty message
// clears away status.
func (r *Record) SetAway(msg string) {
	r.mu.Lock()
	r.Away = msg
	r.mu.Unlock()
}

// SetMode sets or clears a user mode flag.
func (r *Record) SetMode(m byte, on bool) {
	r.mu.Lock()
	r.Modes[m] = on
	r.mu.Unlock()
}

// HasMode reports whether mode m is currently set.
func (r *Record) HasMode(m byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Modes[m]
}

// WhowasEntry is a bounded ring entry recording a past nick's last
// known identity: WHOWAS keeps a bounded ring of recent disconnections.
type WhowasEntry struct {
	Nick, User, Host, Realname string
	DisconnectedAt             int64 // unix nanos
}

// Registry is the global nick index and UID record store.
type Registry struct {
	cm wireproto.CaseMapping

	nicks   util.Map[string, UID] // folded nick -> UID
	records util.Map[UID, *Record]

	whowasMu  sync.Mutex
	whowas    map[string][]WhowasEntry // folded nick -> ring, newest first
	whowasCap int
}

// NewRegistry returns an empty Registry using cm to fold nicks, and
// keeping up to whowasCap WHOWAS entries per nick.
func NewRegistry(cm wireproto.CaseMapping, whowasCap int) *Registry {
	if whowasCap <= 0 {
		whowasCap = 3
	}
	return &Registry{cm: cm, whowas: make(map[string][]WhowasEntry), whowasCap: whowasCap}
}

// ErrNicknameInUse is returned by Register/Rename when the requested
// nick is already claimed by a different UID.
var ErrNicknameInUse = fmt.Errorf("nickname in use")

// Register claims nick for uid, creating its Record. It fails with
// ErrNicknameInUse if another UID already holds that nick (folded).
func (r *Registry) Register(uid UID, nick, userName, realname, host string) error {
	folded := r.cm.Fold(nick)
	if !r.nicks.Add(folded, uid) {
		return ErrNicknameInUse
	}
	rec := newRecord()
	rec.Nick, rec.User, rec.Realname, rec.Host = nick, userName, realname, host
	r.records.Put(uid, rec)
	return nil
}

// Rename performs a CAS against the nick index: it claims newNick for
// uid and releases uid's previous nick, failing with
// ErrNicknameInUse if newNick is already taken by a different UID.
func (r *Registry) Rename(uid UID, newNick string) error {
	folded := r.cm.Fold(newNick)
	rec, ok := r.records.Get(uid)
	if !ok {
		return fmt.Errorf("user: unknown uid %d", uid)
	}
	if !r.nicks.Add(folded, uid) {
		if existing, ok := r.nicks.Get(folded); !ok || existing != uid {
			return ErrNicknameInUse
		}
	}
	rec.mu.Lock()
	oldFolded := r.cm.Fold(rec.Nick)
	rec.Nick = newNick
	rec.mu.Unlock()

	if oldFolded != folded {
		r.nicks.Del(oldFolded)
	}
	return nil
}

// Lookup resolves a nick to its Record.
func (r *Registry) Lookup(nick string) (*Record, UID, bool) {
	uid, ok := r.nicks.Get(r.cm.Fold(nick))
	if !ok {
		return nil, 0, false
	}
	rec, ok := r.records.Get(uid)
	return rec, uid, ok
}

// Record returns the Record for a known UID.
func (r *Registry) Record(uid UID) (*Record, bool) {
	return r.records.Get(uid)
}

// Unregister removes uid from both indexes and records a WHOWAS
// entry for its most recent nick.
func (r *Registry) Unregister(uid UID, disconnectedAt int64) {
	rec, ok := r.records.Get(uid)
	if !ok {
		return
	}
	snap := rec.Snapshot()
	folded := r.cm.Fold(snap.Nick)
	r.nicks.Del(folded)
	r.records.Del(uid)

	r.whowasMu.Lock()
	entry := WhowasEntry{Nick: snap.Nick, User: snap.User, Host: snap.Host, Realname: snap.Realname, DisconnectedAt: disconnectedAt}
	ring := append([]WhowasEntry{entry}, r.whowas[folded]...)
	if len(ring) > r.whowasCap {
		ring = ring[:r.whowasCap]
	}
	r.whowas[folded] = ring
	r.whowasMu.Unlock()
}

// Whowas returns the bounded history for nick, newest first.
func (r *Registry) Whowas(nick string) []WhowasEntry {
	r.whowasMu.Lock()
	defer r.whowasMu.Unlock()
	return append([]WhowasEntry(nil), r.whowas[r.cm.Fold(nick)]...)
}
