// Package router dispatches parsed client commands to handlers: the
// NICK/USER/JOIN/PART/PRIVMSG/... table spec.md describes, plus the
// gate that keeps an unregistered connection from doing anything but
// complete registration. It is the thing a connection's read loop
// calls into once per line; everything it touches (user.Registry,
// channel.Registry, session.Registry, access.List/OperTable,
// history.Provider, config.Supervisor) is handed in once at
// construction and referenced through a Context built fresh per call.
//
// There is no teacher analog — droyo-styx dispatches 9P T-messages by
// Go type switch inside conn.go, a shape this package's Table keeps
// in spirit (a name, here a command string, maps to one handler) but
// not in form, since IRC commands are dispatched by an uppercase verb
// rather than a wire opcode.
package router
