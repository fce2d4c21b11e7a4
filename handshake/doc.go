// Package handshake implements the sans-I/O state machine that logs
// a connection into a remote IRC server: capability negotiation,
// SASL authentication, and registration. It is "sans-I/O" in the same
// sense as the teacher's wire codec — the Machine never touches a
// socket. Feed is handed each line the remote side sends back and
// returns the Actions (lines to send, or a terminal outcome) the
// caller must carry out; a disconnect or reset simply drops the
// Machine value, no cleanup required.
//
// This is the client-role half of registration: it is what slircd
// runs when bouncing a session upstream into the network it
// represents, not what the router runs for a locally-attached bouncer
// client (that registration path is simpler and lives in router,
// since the local client and the server disagree about who leads
// capability negotiation).
package handshake
