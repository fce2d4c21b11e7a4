package router

import (
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// ShunEntry silences a hostmask's commands (everything but PING/PONG/
// QUIT still reaches the server, but produces no output and no
// channel activity) without severing the connection, the SHUN/UNSHUN
// pair spec.md lists alongside the K/D/G/Z/R-line family. It is kept
// separate from access.List since a shun is a command-level mute, not
// a connection-level ban, and access.Kind has no slot for that
// distinction.
type ShunEntry struct {
	Pattern string
	Reason  string
	SetBy   string
	SetAt   time.Time

	compiled glob.Glob
}

// ShunList is the live set of shunned hostmasks.
type ShunList struct {
	mu      sync.RWMutex
	entries []*ShunEntry
}

// NewShunList returns an empty ShunList.
func NewShunList() *ShunList { return &ShunList{} }

// Add compiles and inserts e.
func (l *ShunList) Add(e *ShunEntry) error {
	g, err := glob.Compile(strings.ToLower(e.Pattern), '.')
	if err != nil {
		return err
	}
	e.compiled = g
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return nil
}

// Remove deletes every entry whose Pattern exactly matches pattern,
// returning the count removed.
func (l *ShunList) Remove(pattern string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.Pattern == pattern {
			removed++
			continue
		}
		out = append(out, e)
	}
	l.entries = out
	return removed
}

// Match reports whether hostmask is currently shunned.
func (l *ShunList) Match(hostmask string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	folded := strings.ToLower(hostmask)
	for _, e := range l.entries {
		if e.compiled.Match(folded) {
			return true
		}
	}
	return false
}
