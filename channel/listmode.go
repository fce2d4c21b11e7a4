package channel

import (
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/sid3xyz/slircd/access"
)

// ListEntry is one mask in a channel's type-A list mode (ban, except,
// invex, or quiet): either a plain nick!user@host glob, or an
// access.ExtBan for matching beyond the hostmask (account, realname,
// certificate fingerprint, ...).
type ListEntry struct {
	Mask  string
	SetBy string
	SetAt time.Time

	plain  glob.Glob
	extban *access.ExtBan
}

func newListEntry(mask, setBy string, setAt time.Time) *ListEntry {
	e := &ListEntry{Mask: mask, SetBy: setBy, SetAt: setAt}
	if eb, ok := access.ParseExtBan(mask); ok {
		e.extban = eb
		return e
	}
	g, err := glob.Compile(strings.ToLower(mask), '!', '@', '.')
	if err == nil {
		e.plain = g
	}
	return e
}

// Matches reports whether the member described by hostmask ("nick!user@host",
// already lower-cased by the caller under the channel's case-mapping)
// and ctx satisfies this entry.
func (e *ListEntry) Matches(hostmask string, ctx access.MatchContext) bool {
	if e.extban != nil {
		return e.extban.Matches(ctx)
	}
	return e.plain != nil && e.plain.Match(hostmask)
}

// ListModeSet holds the masks for one type-A list mode (e.g. +b).
type ListModeSet struct {
	entries []*ListEntry
}

// Add inserts mask, ignoring duplicates (exact string match, as real
// ircds do for +b).
func (s *ListModeSet) Add(mask, setBy string, setAt time.Time) bool {
	for _, e := range s.entries {
		if e.Mask == mask {
			return false
		}
	}
	s.entries = append(s.entries, newListEntry(mask, setBy, setAt))
	return true
}

// Remove deletes the entry with an exact Mask match, reporting
// whether one was found.
func (s *ListModeSet) Remove(mask string) bool {
	for i, e := range s.entries {
		if e.Mask == mask {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a snapshot of the list, oldest first.
func (s *ListModeSet) Entries() []*ListEntry {
	return append([]*ListEntry(nil), s.entries...)
}

// MatchAny reports whether any entry matches.
func (s *ListModeSet) MatchAny(hostmask string, ctx access.MatchContext) bool {
	for _, e := range s.entries {
		if e.Matches(hostmask, ctx) {
			return true
		}
	}
	return false
}

// Len reports how many masks are set.
func (s *ListModeSet) Len() int { return len(s.entries) }
