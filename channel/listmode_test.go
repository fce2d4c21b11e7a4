package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/access"
)

func TestListModeSetPlainGlobMatch(t *testing.T) {
	s := &ListModeSet{}
	require.True(t, s.Add("*!*@bad.host", "op", time.Now()))
	require.True(t, s.MatchAny("evil!u@bad.host", access.MatchContext{}))
	require.False(t, s.MatchAny("evil!u@good.host", access.MatchContext{}))
}

func TestListModeSetExtBanMatch(t *testing.T) {
	s := &ListModeSet{}
	require.True(t, s.Add("$a:spammer", "op", time.Now()))
	require.True(t, s.MatchAny("x!y@z", access.MatchContext{Account: "spammer"}))
	require.False(t, s.MatchAny("x!y@z", access.MatchContext{Account: "someoneelse"}))
}

func TestListModeSetAddRejectsDuplicate(t *testing.T) {
	s := &ListModeSet{}
	require.True(t, s.Add("*!*@bad.host", "op", time.Now()))
	require.False(t, s.Add("*!*@bad.host", "op2", time.Now()))
	require.Equal(t, 1, s.Len())
}

func TestListModeSetRemove(t *testing.T) {
	s := &ListModeSet{}
	s.Add("*!*@bad.host", "op", time.Now())
	require.True(t, s.Remove("*!*@bad.host"))
	require.Equal(t, 0, s.Len())
	require.False(t, s.Remove("*!*@bad.host"))
}
