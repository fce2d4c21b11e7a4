// Package history stores per-target event history (PRIVMSG, NOTICE,
// TOPIC, TAGMSG, and opt-in JOIN/PART/QUIT/KICK/MODE) for CHATHISTORY
// replay and session autoreplay. Provider is the storage
// contract; Store is an in-memory implementation keyed the same way a
// durable store would be, so a future disk-backed implementation is a
// drop-in replacement. No teacher analog (9P has no message history);
// grounded on the key layout and query shape original_source's
// history store uses, expressed with Go's sort.Search over a
// slice-backed index rather than an external KV/SQL engine.
package history
