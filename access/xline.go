// Package access implements connection-level ban lists (X-lines),
// operator privilege blocks, and ban-mask matching. There is no
// teacher analog (9P has no equivalent concept); grounded on
// K/D/G/Z/R/S-line matching and, for extban-style matching beyond plain
// user@host, on original_source/src/security/extban.rs.
package access

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/sid3xyz/slircd/wireproto"
)

// Kind identifies one of the five connection-ban families plus the
// S2S-only S-line, per the GLOSSARY's "K/D/G/Z/R-line" entry.
type Kind int

const (
	KindK Kind = iota // user@host, this server only
	KindD             // IP/CIDR, this server only
	KindG             // user@host, network-wide
	KindZ             // IP/CIDR, network-wide
	KindR             // realname
	KindS             // server name, for S2S links
)

func (k Kind) String() string {
	switch k {
	case KindK:
		return "K"
	case KindD:
		return "D"
	case KindG:
		return "G"
	case KindZ:
		return "Z"
	case KindR:
		return "R"
	case KindS:
		return "S"
	default:
		return "?"
	}
}

// Entry is one X-line: a pattern, why it was added, who added it, and
// an optional expiry. A zero ExpiresAt means permanent.
type Entry struct {
	Kind      Kind
	Pattern   string
	Reason    string
	SetBy     string
	SetAt     time.Time
	ExpiresAt time.Time

	compiled glob.Glob
	cidr     *net.IPNet
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// compile prepares an Entry for matching: K/G/R patterns compile to a
// glob over the case-folded pattern; D/Z patterns parse as CIDR if
// they contain a slash, else as a bare IP compared verbatim.
func (e *Entry) compile(cm wireproto.CaseMapping) error {
	switch e.Kind {
	case KindD, KindZ:
		pat := e.Pattern
		if !strings.Contains(pat, "/") {
			if strings.Contains(pat, ":") {
				pat += "/128"
			} else {
				pat += "/32"
			}
		}
		_, cidr, err := net.ParseCIDR(pat)
		if err != nil {
			return fmt.Errorf("access: invalid %s-line pattern %q: %w", e.Kind, e.Pattern, err)
		}
		e.cidr = cidr
	default:
		g, err := glob.Compile(cm.Fold(e.Pattern), '.')
		if err != nil {
			return fmt.Errorf("access: invalid %s-line pattern %q: %w", e.Kind, e.Pattern, err)
		}
		e.compiled = g
	}
	return nil
}
