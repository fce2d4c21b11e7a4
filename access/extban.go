package access

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

// ExtBanKind identifies one of the extended-ban match dimensions
// beyond plain nick!user@host, ported from
// original_source/src/security/extban.rs's ExtendedBan enum.
type ExtBanKind byte

const (
	ExtBanAccount       ExtBanKind = 'a'
	ExtBanRealname      ExtBanKind = 'r'
	ExtBanServer        ExtBanKind = 's'
	ExtBanChannel       ExtBanKind = 'c'
	ExtBanOper          ExtBanKind = 'o'
	ExtBanCertificate   ExtBanKind = 'x'
	ExtBanUnregistered  ExtBanKind = 'U'
	ExtBanSasl          ExtBanKind = 'z'
	ExtBanJoin          ExtBanKind = 'j'
)

// ExtBan is a parsed extended ban, e.g. "$a:spammer" or "$U".
type ExtBan struct {
	Kind    ExtBanKind
	Pattern string
	glob    glob.Glob // nil for ExtBanUnregistered, which takes no pattern
}

// ParseExtBan parses s ("$a:spammer", "$r:*bot*", "$U", ...) into an
// ExtBan, or reports ok=false if s is not an extban (callers fall
// back to plain nick!user@host ban matching).
func ParseExtBan(s string) (*ExtBan, bool) {
	if !strings.HasPrefix(s, "$") {
		return nil, false
	}
	if s == "$U" {
		return &ExtBan{Kind: ExtBanUnregistered}, true
	}
	rest := s[1:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return nil, false
	}
	kind, pattern := rest[:colon], rest[colon+1:]
	if len(kind) != 1 {
		return nil, false
	}
	k := ExtBanKind(kind[0])
	switch k {
	case ExtBanAccount, ExtBanRealname, ExtBanServer, ExtBanChannel,
		ExtBanOper, ExtBanCertificate, ExtBanSasl, ExtBanJoin:
	default:
		return nil, false
	}
	g, err := glob.Compile(strings.ToLower(pattern), '.')
	if err != nil {
		return nil, false
	}
	return &ExtBan{Kind: k, Pattern: pattern, glob: g}, true
}

// String renders b back to wire form.
func (b *ExtBan) String() string {
	if b.Kind == ExtBanUnregistered {
		return "$U"
	}
	return fmt.Sprintf("$%c:%s", byte(b.Kind), b.Pattern)
}

// MatchContext carries the user attributes an ExtBan may match
// against, mirroring original_source's UserContext.
type MatchContext struct {
	Account        string // empty if not logged in
	Realname       string
	Server         string
	Channels       []string
	IsOper         bool
	OperType       string
	CertFP         string
	SaslMechanism  string
	IsRegistered   bool
	IP             net.IP
}

// Matches reports whether ctx satisfies b.
func (b *ExtBan) Matches(ctx MatchContext) bool {
	fold := func(s string) bool { return b.glob != nil && b.glob.Match(strings.ToLower(s)) }
	switch b.Kind {
	case ExtBanAccount:
		return ctx.Account != "" && fold(ctx.Account)
	case ExtBanRealname:
		return fold(ctx.Realname)
	case ExtBanServer:
		return fold(ctx.Server)
	case ExtBanChannel:
		for _, ch := range ctx.Channels {
			if fold(ch) {
				return true
			}
		}
		return false
	case ExtBanOper:
		if !ctx.IsOper {
			return false
		}
		if ctx.OperType == "" {
			return b.Pattern == "*"
		}
		return fold(ctx.OperType)
	case ExtBanCertificate:
		return ctx.CertFP != "" && fold(ctx.CertFP)
	case ExtBanUnregistered:
		return !ctx.IsRegistered
	case ExtBanSasl:
		return ctx.SaslMechanism != "" && fold(ctx.SaslMechanism)
	case ExtBanJoin:
		for _, ch := range ctx.Channels {
			if fold(ch) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
