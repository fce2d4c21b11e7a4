package access

import (
	"crypto/subtle"
	"crypto/tls"
	"fmt"

	"github.com/gobwas/glob"
	"golang.org/x/crypto/bcrypt"
)

// Privilege is one flag an OPER block may grant, from the
// "a set of privilege flags".
type Privilege string

const (
	PrivAdmin       Privilege = "admin"
	PrivRehash      Privilege = "rehash"
	PrivDie         Privilege = "die"
	PrivRestart     Privilege = "restart"
	PrivKill        Privilege = "kill"
	PrivKline       Privilege = "kline"
	PrivGline       Privilege = "gline"
	PrivGlobops     Privilege = "globops"
	PrivWallops     Privilege = "wallops"
	PrivSpy         Privilege = "spy"
	PrivNoMaxClients Privilege = "nomax"
)

// OperBlock describes one configured OPER line: a name, a password
// verifier, and optional host-mask / TLS-certificate-fingerprint
// restrictions, grounded on the styxauth/tls.go idea of binding an
// auth decision to the TLS peer certificate, generalised here to an
// opaque fingerprint comparison rather than full chain verification
// (OPER blocks name a pinned leaf cert, not a CA).
type OperBlock struct {
	Name         string
	PasswordHash []byte // bcrypt hash; see VerifyPassword
	HostMask     *glob.Glob
	CertFP       string // hex-encoded SHA-256 fingerprint, empty if not required
	Privileges   map[Privilege]bool
}

// VerifyPassword checks password against the block's bcrypt hash.
func (b *OperBlock) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(b.PasswordHash, []byte(password)) == nil
}

// VerifyHost reports whether host matches the block's HostMask, or
// true if no mask is configured.
func (b *OperBlock) VerifyHost(host string) bool {
	if b.HostMask == nil {
		return true
	}
	return (*b.HostMask).Match(host)
}

// VerifyCert reports whether fingerprint matches the block's pinned
// certificate, or true if no fingerprint is configured.
func (b *OperBlock) VerifyCert(fingerprint string) bool {
	if b.CertFP == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(b.CertFP), []byte(fingerprint)) == 1
}

// Has reports whether the block grants priv.
func (b *OperBlock) Has(priv Privilege) bool { return b.Privileges[priv] }

// OperTable is the configured set of OPER blocks, keyed by name.
type OperTable struct {
	blocks map[string]*OperBlock
}

// NewOperTable returns an OperTable over the given blocks.
func NewOperTable(blocks []*OperBlock) *OperTable {
	t := &OperTable{blocks: make(map[string]*OperBlock, len(blocks))}
	for _, b := range blocks {
		t.blocks[b.Name] = b
	}
	return t
}

// Authenticate verifies an OPER attempt: name/password, plus host and
// optional certificate state supplied from the connection. It returns
// the matched OperBlock, or an error describing the first failed
// check (name mismatch, bad password, host mismatch, or cert
// mismatch), matching the numerics the router maps these to (464/491).
func (t *OperTable) Authenticate(name, password, host string, tlsState *tls.ConnectionState) (*OperBlock, error) {
	b, ok := t.blocks[name]
	if !ok {
		return nil, fmt.Errorf("access: no such operator %q", name)
	}
	if !b.VerifyPassword(password) {
		return nil, fmt.Errorf("access: password verification failed for %q", name)
	}
	if !b.VerifyHost(host) {
		return nil, fmt.Errorf("access: host %q does not match operator mask", host)
	}
	if b.CertFP != "" {
		if tlsState == nil || len(tlsState.PeerCertificates) == 0 {
			return nil, fmt.Errorf("access: operator %q requires a client certificate", name)
		}
		fp := sha256Hex(tlsState.PeerCertificates[0].Raw)
		if !b.VerifyCert(fp) {
			return nil, fmt.Errorf("access: certificate fingerprint mismatch for %q", name)
		}
	}
	return b, nil
}
