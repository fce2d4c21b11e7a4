/*
Package slircd implements a multiclient, always-on capable IRC
server: a wire codec and framing layer shared across plain TCP, TLS,
and WebSocket transports, a command router driving per-connection
registration and dispatch, channel actors serving one goroutine per
channel, a session layer that fans a single logical identity out to
every attached device, and a CRDT clock for eventual clustering.

Server wires these together behind a single accept loop; every other
package is usable on its own and is exercised independently in its
own tests.
*/
package slircd
