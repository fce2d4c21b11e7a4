package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ts(wall int64, counter, server uint32) HybridTimestamp {
	return HybridTimestamp{WallMS: wall, Counter: counter, ServerHash: server}
}

func TestClockMonotonic(t *testing.T) {
	c := NewClock(1)
	a := c.Now(1000)
	b := c.Now(1000)
	require.True(t, b.After(a))
	d := c.Now(500) // clock regression on the wall input
	require.True(t, d.After(b))
}

func TestLwwRegisterMergeCommutative(t *testing.T) {
	a := NewLwwRegister("a", ts(100, 0, 1))
	b := NewLwwRegister("b", ts(200, 0, 2))
	require.Equal(t, a.Merge(b), b.Merge(a))
}

func TestLwwRegisterMergeIdempotent(t *testing.T) {
	a := NewLwwRegister("a", ts(100, 0, 1))
	require.Equal(t, a, a.Merge(a))
}

func TestAwSetAddWins(t *testing.T) {
	s := NewAwSet[string]()
	s.Add("alice", ts(100, 0, 1))
	s.Remove("alice", ts(50, 0, 1)) // older tombstone: add wins
	require.True(t, s.Contains("alice"))

	s.Remove("alice", ts(150, 0, 1)) // newer tombstone: removed
	require.False(t, s.Contains("alice"))
}

func TestAwSetMergeCommutativeAssociativeIdempotent(t *testing.T) {
	a := NewAwSet[string]()
	a.Add("x", ts(10, 0, 1))
	b := NewAwSet[string]()
	b.Remove("x", ts(20, 0, 2))
	c := NewAwSet[string]()
	c.Add("y", ts(5, 0, 3))

	ab := a.Merge(b)
	ba := b.Merge(a)
	require.ElementsMatch(t, ab.Elements(), ba.Elements())

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	require.ElementsMatch(t, left.Elements(), right.Elements())

	idem := a.Merge(a)
	require.ElementsMatch(t, a.Elements(), idem.Elements())
}

func TestOrSetConcurrentAddSurvivesRemove(t *testing.T) {
	replicaA := NewOrSet[string]()
	replicaA.Add("alice")

	replicaB := replicaA.Merge(NewOrSet[string]()) // B starts from A's state
	replicaB.RemoveObserved("alice")               // B removes what it observed

	// Meanwhile A adds a fresh tag for "alice" concurrently.
	replicaA.Add("alice")

	merged := replicaA.Merge(replicaB)
	require.True(t, merged.Contains("alice"), "concurrent add must survive a remove of the old tag")
}

func TestOrSetMergeUnionIsCommutative(t *testing.T) {
	a := NewOrSet[string]()
	a.Add("p")
	b := NewOrSet[string]()
	b.Add("q")
	require.ElementsMatch(t, a.Merge(b).Elements(), b.Merge(a).Elements())
}
