package handshake

import (
	"fmt"
	"strings"

	"github.com/sid3xyz/slircd/wireproto"
)

// State names one node of the registration machine:
// Disconnected -> CapabilityNegotiation -> Authenticating ->
// Registering -> Connected, with an absorbing Terminated reachable
// from anywhere.
type State int

const (
	StateDisconnected State = iota
	StateCapabilityNegotiation
	StateAuthenticating
	StateRegistering
	StateConnected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateCapabilityNegotiation:
		return "capability_negotiation"
	case StateAuthenticating:
		return "authenticating"
	case StateRegistering:
		return "registering"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ActionKind discriminates the variants of Action.
type ActionKind int

const (
	// ActionSend asks the caller to write Message to the wire.
	ActionSend ActionKind = iota
	// ActionComplete reports that registration succeeded; the
	// Machine is now in StateConnected.
	ActionComplete
	// ActionError reports a terminal failure (ERROR line or
	// transport close); the Machine is now in StateTerminated.
	ActionError
	// ActionNicknameInUse surfaces a 433 seen during Registering so
	// the caller can retry with a different nick; the Machine stays
	// in StateRegistering.
	ActionNicknameInUse
	// ActionSaslFailed surfaces a failed SASL attempt. On a SASL
	// failure numeric the Machine also sends CAP END and moves to
	// StateRegistering, continuing unauthenticated; on a SCRAM
	// exchange error it stays in StateAuthenticating.
	ActionSaslFailed
)

// Action is one instruction Feed or Start returns for the caller to
// carry out. Exactly one of Message/Err is meaningful, depending on
// Kind.
type Action struct {
	Kind    ActionKind
	Message *wireproto.Message
	Err     error
}

func send(m *wireproto.Message) Action { return Action{Kind: ActionSend, Message: m} }

// SASLMechanism names a supported SASL mechanism.
type SASLMechanism string

const (
	SASLNone         SASLMechanism = ""
	SASLPlain        SASLMechanism = "PLAIN"
	SASLExternal     SASLMechanism = "EXTERNAL"
	SASLScramSHA256  SASLMechanism = "SCRAM-SHA-256"
)

// Config parameterises one registration attempt.
type Config struct {
	Nick     string
	User     string
	Realname string
	Password string // server PASS, sent before NICK/USER if non-empty

	CapLS302     bool
	WantCaps     []string // capabilities to REQ once LS is known, intersected with what's offered
	SASLMech     SASLMechanism
	SASLAuthzid  string
	SASLAuthcid  string
	SASLPassword string
}

// Machine drives one connection's registration. The zero value is not
// ready for use; construct with New.
type Machine struct {
	cfg   Config
	state State

	offeredCaps map[string]string // name -> value, accumulated across multi-line CAP LS
	lsDone      bool
	ackedCaps   map[string]bool

	scram *scramClient
}

// New returns a Machine configured to register with cfg, in
// StateDisconnected. Call Start to obtain the opening actions.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, state: StateDisconnected, offeredCaps: map[string]string{}, ackedCaps: map[string]bool{}}
}

// State returns the machine's current node.
func (m *Machine) State() State { return m.state }

// Start transitions out of Disconnected and returns the opening
// burst: an optional PASS, CAP LS, then NICK and USER (sent
// unconditionally per ircd practice — the server will not advance the
// connection past Registering until CAP END, regardless of how early
// NICK/USER arrive).
func (m *Machine) Start() []Action {
	if m.state != StateDisconnected {
		return nil
	}
	m.state = StateCapabilityNegotiation

	var actions []Action
	if m.cfg.Password != "" {
		actions = append(actions, send(&wireproto.Message{Command: "PASS", Params: []string{m.cfg.Password}}))
	}
	lsParams := []string{}
	if m.cfg.CapLS302 {
		lsParams = []string{"302"}
	}
	actions = append(actions,
		send(&wireproto.Message{Command: "CAP", Params: append([]string{"LS"}, lsParams...)}),
		send(&wireproto.Message{Command: "NICK", Params: []string{m.cfg.Nick}}),
		send(&wireproto.Message{Command: "USER", Params: []string{m.cfg.User, "0", "*", m.cfg.Realname}}),
	)
	return actions
}

// Feed advances the machine by one line received from the remote
// side. It returns the actions the caller must now perform, in order.
func (m *Machine) Feed(ref wireproto.MessageRef) []Action {
	if m.state == StateTerminated {
		return nil
	}
	if ref.Command() == "ERROR" {
		m.state = StateTerminated
		return []Action{{Kind: ActionError, Err: fmt.Errorf("handshake: %s", joinParams(ref))}}
	}

	switch m.state {
	case StateCapabilityNegotiation:
		return m.feedCapNegotiation(ref)
	case StateAuthenticating:
		return m.feedAuthenticating(ref)
	case StateRegistering:
		return m.feedRegistering(ref)
	case StateConnected:
		return nil
	default:
		return nil
	}
}

func joinParams(ref wireproto.MessageRef) string {
	var b strings.Builder
	for i := 0; i < ref.NumParams(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(ref.Param(i))
	}
	return b.String()
}

func (m *Machine) feedCapNegotiation(ref wireproto.MessageRef) []Action {
	if ref.Command() != "CAP" {
		return nil
	}
	if ref.NumParams() < 2 {
		return nil
	}
	sub := string(ref.Param(1))
	switch sub {
	case "LS":
		more := ref.NumParams() >= 3 && string(ref.Param(2)) == "*"
		listIdx := 2
		if more {
			listIdx = 3
		}
		if ref.NumParams() > listIdx {
			for _, tok := range strings.Fields(ref.ParamString(listIdx)) {
				name, val, hasVal := strings.Cut(tok, "=")
				if hasVal {
					m.offeredCaps[name] = val
				} else {
					m.offeredCaps[name] = ""
				}
			}
		}
		if more {
			return nil
		}
		m.lsDone = true
		return m.requestCaps()
	case "ACK":
		for _, tok := range strings.Fields(ref.ParamString(ref.NumParams() - 1)) {
			m.ackedCaps[tok] = true
		}
		return m.maybeAuthenticate()
	case "NAK":
		// All-or-nothing: treat as "none of these granted" and move on.
		return m.maybeAuthenticate()
	default:
		return nil
	}
}

func (m *Machine) requestCaps() []Action {
	var req []string
	for _, want := range m.cfg.WantCaps {
		if _, offered := m.offeredCaps[want]; offered {
			req = append(req, want)
		}
	}
	if m.cfg.SASLMech != SASLNone {
		if _, offered := m.offeredCaps["sasl"]; offered {
			req = append(req, "sasl")
		}
	}
	if len(req) == 0 {
		return m.maybeAuthenticate()
	}
	return []Action{send(&wireproto.Message{Command: "CAP", Params: []string{"REQ", strings.Join(req, " ")}})}
}

func (m *Machine) maybeAuthenticate() []Action {
	if m.cfg.SASLMech != SASLNone && m.ackedCaps["sasl"] {
		m.state = StateAuthenticating
		return m.startSASL()
	}
	m.state = StateRegistering
	return []Action{send(&wireproto.Message{Command: "CAP", Params: []string{"END"}})}
}

func (m *Machine) startSASL() []Action {
	switch m.cfg.SASLMech {
	case SASLScramSHA256:
		m.scram = newScramClient(m.cfg.SASLAuthcid, m.cfg.SASLPassword)
	}
	return []Action{send(&wireproto.Message{Command: "AUTHENTICATE", Params: []string{string(m.cfg.SASLMech)}})}
}

func (m *Machine) feedAuthenticating(ref wireproto.MessageRef) []Action {
	switch ref.Command() {
	case wireproto.RPL_SASLSUCCESS:
		m.state = StateRegistering
		return []Action{send(&wireproto.Message{Command: "CAP", Params: []string{"END"}})}
	case wireproto.ERR_SASLFAIL, wireproto.ERR_SASLTOOLONG, wireproto.ERR_SASLABORTED:
		m.state = StateCapabilityNegotiation
		actions := []Action{{Kind: ActionSaslFailed, Err: fmt.Errorf("handshake: sasl failed: %s", ref.Command())}}
		return append(actions, m.capEndUnauthenticated()...)
	case "AUTHENTICATE":
		return m.continueSASL(ref)
	default:
		return nil
	}
}

func (m *Machine) capEndUnauthenticated() []Action {
	m.state = StateRegistering
	return []Action{send(&wireproto.Message{Command: "CAP", Params: []string{"END"}})}
}

func (m *Machine) continueSASL(ref wireproto.MessageRef) []Action {
	challenge := ""
	if ref.NumParams() > 0 {
		challenge = ref.ParamString(0)
	}
	switch m.cfg.SASLMech {
	case SASLPlain:
		if challenge != "+" {
			return nil
		}
		payload := plainPayload(m.cfg.SASLAuthzid, m.cfg.SASLAuthcid, m.cfg.SASLPassword)
		return authenticateChunks(payload)
	case SASLScramSHA256:
		if m.scram == nil {
			return nil
		}
		switch {
		case !m.scram.started:
			return authenticateChunks(m.scram.clientFirst())
		case !m.scram.finalSent:
			reply, err := m.scram.serverFirst(challenge)
			if err != nil {
				return []Action{{Kind: ActionSaslFailed, Err: err}}
			}
			return authenticateChunks(reply)
		default:
			if err := m.scram.VerifyServerFinal(challenge); err != nil {
				return []Action{{Kind: ActionSaslFailed, Err: err}}
			}
			return nil
		}
	default:
		return nil
	}
}

// authenticateChunks splits payload into base64 AUTHENTICATE lines of
// at most 400 bytes, terminated by a lone "+" if the final chunk is
// itself exactly 400 bytes (so the server can tell "more data
// follows" from "payload ended on a chunk boundary").
func authenticateChunks(payload string) []Action {
	const chunkSize = 400
	if payload == "" {
		return []Action{send(&wireproto.Message{Command: "AUTHENTICATE", Params: []string{"+"}})}
	}
	var actions []Action
	for i := 0; i < len(payload); i += chunkSize {
		end := i + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		actions = append(actions, send(&wireproto.Message{Command: "AUTHENTICATE", Params: []string{payload[i:end]}}))
	}
	if len(payload)%chunkSize == 0 {
		actions = append(actions, send(&wireproto.Message{Command: "AUTHENTICATE", Params: []string{"+"}}))
	}
	return actions
}

func (m *Machine) feedRegistering(ref wireproto.MessageRef) []Action {
	switch ref.Command() {
	case wireproto.RPL_WELCOME:
		m.state = StateConnected
		return []Action{{Kind: ActionComplete}}
	case wireproto.ERR_NICKNAMEINUSE:
		return []Action{{Kind: ActionNicknameInUse, Err: fmt.Errorf("handshake: nickname in use")}}
	default:
		return nil
	}
}
