// Package session implements the multiclient layer above the channel
// and user registries: one Session per logical identity (an account,
// or a single unauthenticated connection treated as its own session),
// fronting however many device connections ("siblings") are currently
// attached to it. It owns sibling fan-out, the always-on survival
// policy, and the reattach/autoreplay sequence a newly-attached device
// runs against every channel the session already belongs to.
//
// There is no teacher analog — droyo-styx serves one 9P request per
// caller with no concept of a durable identity spanning connections —
// so this package is grounded directly on the multiclient/autoreplay
// design spec.md describes, informed by original_source's
// src/config/multiclient.rs (the always-on policy enum) and
// src/network/connection/autoreplay.rs (treating reattach replay as
// its own step, separate from JOIN).
package session
