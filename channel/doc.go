// Package channel implements the per-channel actor: one goroutine per
// joined channel, owning membership, modes, list-mode masks, topic,
// and a bounded ring of recent events, fed through a single events
// channel. No teacher analog exists for a resource-owning actor
// goroutine (droyo-styx dispatches 9P requests through a session/mux
// pair rather than one actor per resource); the shape here follows
// the pack's own session/conn read-loop idiom — one goroutine reading
// a channel, applying state transitions serially, and replying
// through per-request channels — generalised from a single connection
// to a single channel resource.
package channel
