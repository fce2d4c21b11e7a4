// Package crdt implements the convergent replicated data types slircd
// uses for clustered state: a hybrid logical clock and three
// CRDT containers built on it (last-writer-wins register, add-wins
// set, and a tag-based OR-set). None of this has a teacher analog -
// droyo-styx is a single-process 9P server - so these are grounded
// directly on the invariants a hybrid logical clock must satisfy: merge must be
// commutative, associative, and idempotent.
package crdt

import (
	"fmt"
	"sync/atomic"
)

// HybridTimestamp totally orders events across replicas by combining
// a millisecond wall clock with a logical counter and a tie-breaking
// server identifier, packed as HybridTimestamp{wall_ms, counter,
// server_hash}.
type HybridTimestamp struct {
	WallMS     int64
	Counter    uint32
	ServerHash uint32
}

// Compare returns -1, 0, or 1 as t sorts before, equal to, or after o.
func (t HybridTimestamp) Compare(o HybridTimestamp) int {
	switch {
	case t.WallMS != o.WallMS:
		if t.WallMS < o.WallMS {
			return -1
		}
		return 1
	case t.Counter != o.Counter:
		if t.Counter < o.Counter {
			return -1
		}
		return 1
	case t.ServerHash != o.ServerHash:
		if t.ServerHash < o.ServerHash {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// After reports whether t strictly follows o.
func (t HybridTimestamp) After(o HybridTimestamp) bool { return t.Compare(o) > 0 }

func (t HybridTimestamp) String() string {
	return fmt.Sprintf("%d.%d@%08x", t.WallMS, t.Counter, t.ServerHash)
}

// counterBits is how many low bits of Clock.state hold the counter;
// the high bits hold wallMS, which needs 41 bits for present-day
// millisecond times.
const counterBits = 22

const counterMask = 1<<counterBits - 1

// Clock generates monotonically increasing HybridTimestamps for one
// server replica. It is safe for concurrent use.
type Clock struct {
	serverHash uint32
	state      atomic.Uint64 // packed wallMS<<counterBits | counter
}

// NewClock returns a Clock tagging every timestamp it produces with
// serverHash, used as the final tie-breaker between replicas whose
// wall clocks and counters coincide.
func NewClock(serverHash uint32) *Clock {
	return &Clock{serverHash: serverHash}
}

// Now returns a timestamp strictly greater than every timestamp this
// Clock has previously produced, advancing the counter when wallMS
// (milliseconds since epoch, supplied by the caller so the package
// never calls time.Now itself) has not advanced.
func (c *Clock) Now(wallMS int64) HybridTimestamp {
	for {
		old := c.state.Load()
		oldWall := int64(old >> counterBits)
		oldCounter := uint32(old & counterMask)

		var newWall int64
		var newCounter uint32
		if wallMS > oldWall {
			newWall, newCounter = wallMS, 0
		} else {
			newWall, newCounter = oldWall, oldCounter+1
		}
		packed := uint64(newWall)<<counterBits | uint64(newCounter)
		if c.state.CompareAndSwap(old, packed) {
			return HybridTimestamp{WallMS: newWall, Counter: newCounter, ServerHash: c.serverHash}
		}
	}
}

// Update folds an observed remote timestamp into the clock so a
// subsequent Now() is guaranteed to exceed it, implementing the
// invariant that update(other) returns a timestamp strictly greater than
// both and the local wall clock".
func (c *Clock) Update(wallMS int64, remote HybridTimestamp) HybridTimestamp {
	for {
		old := c.state.Load()
		oldWall := int64(old >> counterBits)
		oldCounter := uint32(old & counterMask)
		localMax := HybridTimestamp{WallMS: oldWall, Counter: oldCounter, ServerHash: c.serverHash}

		base := wallMS
		if remote.WallMS > base {
			base = remote.WallMS
		}
		if oldWall > base {
			base = oldWall
		}

		var newCounter uint32
		if base == remote.WallMS && remote.Compare(localMax) >= 0 {
			newCounter = remote.Counter + 1
		} else if base == oldWall {
			newCounter = oldCounter + 1
		}

		packed := uint64(base)<<counterBits | uint64(newCounter)
		if c.state.CompareAndSwap(old, packed) {
			return HybridTimestamp{WallMS: base, Counter: newCounter, ServerHash: c.serverHash}
		}
	}
}
