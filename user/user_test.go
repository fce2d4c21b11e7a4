package user

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/wireproto"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(wireproto.CaseMappingRFC1459, 3)
	require.NoError(t, r.Register(1, "Alice", "alice", "Alice Example", "host.example"))

	rec, uid, ok := r.Lookup("ALICE")
	require.True(t, ok)
	require.Equal(t, UID(1), uid)
	require.Equal(t, "Alice", rec.Snapshot().Nick)
}

func TestRegisterDuplicateNick(t *testing.T) {
	r := NewRegistry(wireproto.CaseMappingRFC1459, 3)
	require.NoError(t, r.Register(1, "alice", "a", "A", "h"))
	err := r.Register(2, "Alice", "b", "B", "h2")
	require.ErrorIs(t, err, ErrNicknameInUse)
}

func TestRenameReleasesOldNick(t *testing.T) {
	r := NewRegistry(wireproto.CaseMappingRFC1459, 3)
	require.NoError(t, r.Register(1, "alice", "a", "A", "h"))
	require.NoError(t, r.Rename(1, "alicia"))

	_, _, ok := r.Lookup("alice")
	require.False(t, ok)
	_, uid, ok := r.Lookup("alicia")
	require.True(t, ok)
	require.Equal(t, UID(1), uid)

	require.NoError(t, r.Register(2, "alice", "b", "B", "h2"))
}

func TestUnregisterRecordsWhowas(t *testing.T) {
	r := NewRegistry(wireproto.CaseMappingRFC1459, 2)
	require.NoError(t, r.Register(1, "alice", "a", "A", "h"))
	r.Unregister(1, 12345)

	_, _, ok := r.Lookup("alice")
	require.False(t, ok)

	ring := r.Whowas("alice")
	require.Len(t, ring, 1)
	require.Equal(t, "alice", ring[0].Nick)
}

func TestWhowasRingBounded(t *testing.T) {
	r := NewRegistry(wireproto.CaseMappingRFC1459, 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Register(UID(i), "bob", "b", "B", "h"))
		r.Unregister(UID(i), int64(i))
	}
	require.Len(t, r.Whowas("bob"), 2)
}
