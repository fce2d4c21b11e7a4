// Package config holds the server's live configuration behind an
// atomic pointer: REHASH validates a candidate and
// swaps it in atomically, or leaves the live config untouched and
// reports why. Grounded on a small,
// explicit struct (styx.Server's exported fields) rather than a
// generic config-file library - there is nothing to parse here, only
// a struct to swap (file loading is left to the caller).
package config

import (
	"fmt"
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

// OperBlockSpec is the configuration-level shape of one OPER block,
// decoupled from access.OperBlock so this package has no dependency
// on bcrypt/glob/tls; the server wiring layer translates between them.
type OperBlockSpec struct {
	Name         string
	PasswordHash string
	HostMask     string
	CertFP       string
	Privileges   []string
}

// ListenSpec describes one bound listener.
type ListenSpec struct {
	Addr      string
	TLS       bool // implicit TLS from the first byte
	WebSocket bool
}

// Config is the full set of tunables a running server reads through
// a Supervisor snapshot. Nothing here is mutated in place; REHASH
// always produces a fresh Config and swaps the pointer.
type Config struct {
	ServerName  string
	SID         string // three-character server id; immutable across REHASH
	Network     string
	Description string

	CaseMapping wireproto.CaseMapping // immutable across REHASH

	Listeners []ListenSpec

	MOTD []string

	NickLen    int
	ChannelLen int
	TopicLen   int
	MaxTargets int

	ChannelModesA string // list modes: ban, except, invex, quiet-if-configured
	ChannelModesB string // mode+param always
	ChannelModesC string // mode+param on set only
	ChannelModesD string // no param
	PrefixModes   string // e.g. "qaohv"
	PrefixGlyphs  string // e.g. "~&@%+"

	Opers []OperBlockSpec

	PingIdle       time.Duration
	PingTimeout    time.Duration
	QueueDepth     int
	MaxSessions    int
	AlwaysOnPolicy string // disabled|opt-in|opt-out|mandatory
	AlwaysOnExpiry time.Duration

	HistoryRetention time.Duration
	HistoryEvents    []string // event types persisted beyond the PRIVMSG/NOTICE/TOPIC/TAGMSG default

	WebSocketOrigins []string
}

// Validate reports the first structural problem with c, independent
// of any previous config (REHASH-invariant checks against the live
// config are in Supervisor.Rehash).
func (c *Config) Validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("config: server_name is required")
	}
	if len(c.SID) != 3 {
		return fmt.Errorf("config: sid must be exactly 3 characters, got %q", c.SID)
	}
	if len(c.Listeners) == 0 {
		return fmt.Errorf("config: at least one listener is required")
	}
	if c.NickLen <= 0 {
		return fmt.Errorf("config: nick_len must be positive")
	}
	if len(c.PrefixModes) != len(c.PrefixGlyphs) {
		return fmt.Errorf("config: prefix_modes and prefix_glyphs must be the same length")
	}
	switch c.AlwaysOnPolicy {
	case "disabled", "opt-in", "opt-out", "mandatory":
	default:
		return fmt.Errorf("config: invalid always_on policy %q", c.AlwaysOnPolicy)
	}
	for _, o := range c.Opers {
		if o.Name == "" {
			return fmt.Errorf("config: oper block missing name")
		}
		if o.PasswordHash == "" {
			return fmt.Errorf("config: oper block %q missing password hash", o.Name)
		}
	}
	return nil
}

// ISUPPORTChanModes renders the ISUPPORT CHANMODES token value from
// the four class strings.
func (c *Config) ISUPPORTChanModes() string {
	return c.ChannelModesA + "," + c.ChannelModesB + "," + c.ChannelModesC + "," + c.ChannelModesD
}

// ISUPPORTPrefix renders the ISUPPORT PREFIX token value, e.g.
// "(qaohv)~&@%+".
func (c *Config) ISUPPORTPrefix() string {
	return "(" + c.PrefixModes + ")" + c.PrefixGlyphs
}
