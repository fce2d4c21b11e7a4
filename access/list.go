package access

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

// List holds every X-line of every Kind, compiled for matching.
// Expired entries are filtered at query time and reaped lazily by
// Sweep (expired entries are filtered at query
// time and reaped lazily").
type List struct {
	mu      sync.RWMutex
	entries map[Kind][]*Entry
	cm      wireproto.CaseMapping
}

// NewList returns an empty List using case-mapping cm for K/G/R
// pattern folding.
func NewList(cm wireproto.CaseMapping) *List {
	return &List{entries: make(map[Kind][]*Entry), cm: cm}
}

// Add compiles and inserts e. It returns an error if e's pattern does
// not parse for its Kind.
func (l *List) Add(e *Entry) error {
	if err := e.compile(l.cm); err != nil {
		return err
	}
	l.mu.Lock()
	l.entries[e.Kind] = append(l.entries[e.Kind], e)
	l.mu.Unlock()
	return nil
}

// Remove deletes every entry of the given Kind whose Pattern exactly
// matches pattern (UNKLINE/UNDLINE/... semantics), returning the
// number removed.
func (l *List) Remove(kind Kind, pattern string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.entries[kind]
	out := list[:0]
	removed := 0
	for _, e := range list {
		if e.Pattern == pattern {
			removed++
			continue
		}
		out = append(out, e)
	}
	l.entries[kind] = out
	return removed
}

// List returns a snapshot of every unexpired entry of kind.
func (l *List) List(kind Kind) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	now := time.Now()
	out := make([]*Entry, 0, len(l.entries[kind]))
	for _, e := range l.entries[kind] {
		if !e.expired(now) {
			out = append(out, e)
		}
	}
	return out
}

// Sweep removes every expired entry from every kind, returning the
// total removed. Intended to run periodically from a background
// ticker, per the "reaped lazily" policy.
func (l *List) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	removed := 0
	for kind, list := range l.entries {
		out := list[:0]
		for _, e := range list {
			if e.expired(now) {
				removed++
				continue
			}
			out = append(out, e)
		}
		l.entries[kind] = out
	}
	return removed
}

// MatchUserHost checks userAtHost ("user@host") against every
// unexpired K-line (this server) and, if network-wide checks are
// requested, every G-line. It returns the first matching Entry, or
// nil.
func (l *List) MatchUserHost(userAtHost string, includeGlobal bool) *Entry {
	kinds := []Kind{KindK}
	if includeGlobal {
		kinds = append(kinds, KindG)
	}
	return l.matchString(userAtHost, kinds...)
}

// MatchIP checks ip against every unexpired D-line (this server) and,
// if requested, every Z-line.
func (l *List) MatchIP(ip net.IP, includeGlobal bool) *Entry {
	kinds := []Kind{KindD}
	if includeGlobal {
		kinds = append(kinds, KindZ)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	now := time.Now()
	for _, kind := range kinds {
		for _, e := range l.entries[kind] {
			if e.expired(now) {
				continue
			}
			if e.cidr != nil && e.cidr.Contains(ip) {
				return e
			}
		}
	}
	return nil
}

// MatchRealname checks realname against every unexpired R-line.
func (l *List) MatchRealname(realname string) *Entry {
	return l.matchString(realname, KindR)
}

// MatchServer checks serverName against every unexpired S-line.
func (l *List) MatchServer(serverName string) *Entry {
	return l.matchString(serverName, KindS)
}

func (l *List) matchString(s string, kinds ...Kind) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	now := time.Now()
	folded := l.cm.Fold(s)
	for _, kind := range kinds {
		for _, e := range l.entries[kind] {
			if e.expired(now) {
				continue
			}
			if e.compiled != nil && e.compiled.Match(folded) {
				return e
			}
		}
	}
	return nil
}

// ClosingLinkMessage renders the ERROR text sent on a positive match
// during registration.
func ClosingLinkMessage(e *Entry) string {
	return fmt.Sprintf("Closing link: (%s-line: %s)", e.Kind, e.Reason)
}
