package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/crdt"
	"github.com/sid3xyz/slircd/wireproto"
)

func item(wallMS int64, msgid string) Item {
	return Item{
		TS:      crdt.HybridTimestamp{WallMS: wallMS, Counter: 0, ServerHash: 1},
		MsgID:   msgid,
		Command: "PRIVMSG",
		Prefix:  "alice!a@h",
		Params:  []string{"#chan", "hi"},
	}
}

func TestStoreQueryLatest(t *testing.T) {
	s := NewStore(wireproto.CaseMappingRFC1459)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Store("#chan", item(int64(1000+i), "m"+string(rune('a'+i)))))
	}
	got, err := s.Query(Query{Target: "#CHAN", Selector: SelectorLatest, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "md", got[0].MsgID)
	require.Equal(t, "me", got[1].MsgID)
}

func TestStoreQueryBeforeAfterMsgID(t *testing.T) {
	s := NewStore(wireproto.CaseMappingRFC1459)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Store("#chan", item(int64(1000+i), "m"+string(rune('a'+i)))))
	}
	before, err := s.Query(Query{Target: "#chan", Selector: SelectorBefore, Start: Anchor{MsgID: "mc"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, before, 2)

	after, err := s.Query(Query{Target: "#chan", Selector: SelectorAfter, Start: Anchor{MsgID: "mc"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, after, 2)
}

func TestStorePrune(t *testing.T) {
	s := NewStore(wireproto.CaseMappingRFC1459)
	old := Item{TS: crdt.HybridTimestamp{WallMS: time.Now().Add(-time.Hour).UnixMilli()}, MsgID: "old", Command: "PRIVMSG"}
	fresh := Item{TS: crdt.HybridTimestamp{WallMS: time.Now().UnixMilli()}, MsgID: "fresh", Command: "PRIVMSG"}
	require.NoError(t, s.Store("#chan", old))
	require.NoError(t, s.Store("#chan", fresh))

	n, err := s.Prune(time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, _ := s.Query(Query{Target: "#chan", Selector: SelectorLatest, Limit: 10})
	require.Len(t, got, 1)
	require.Equal(t, "fresh", got[0].MsgID)
}

func TestStorePurgeTarget(t *testing.T) {
	s := NewStore(wireproto.CaseMappingRFC1459)
	require.NoError(t, s.Store("#chan", item(1, "a")))
	require.NoError(t, s.Purge("#chan"))
	got, _ := s.Query(Query{Target: "#chan", Selector: SelectorLatest, Limit: 10})
	require.Empty(t, got)
}

func TestFrameProducesBatchEnvelope(t *testing.T) {
	open, body, close := Frame("irc.example", "#chan", []Item{item(1, "a")})
	require.Equal(t, "BATCH", open.Command)
	require.Len(t, body, 1)
	require.Equal(t, "BATCH", close.Command)
	require.Equal(t, byte('+'), open.Params[0][0])
	require.Equal(t, byte('-'), close.Params[0][0])
}
