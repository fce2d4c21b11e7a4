package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testModeSet() *ModeSet {
	return NewModeSet("beI", "k", "l", "imnstCS", "qaohv", "~&@%+")
}

func TestModeSetClassification(t *testing.T) {
	ms := testModeSet()
	c, ok := ms.Class('b')
	require.True(t, ok)
	require.Equal(t, ClassList, c)

	c, ok = ms.Class('k')
	require.True(t, ok)
	require.Equal(t, ClassParamBoth, c)

	c, ok = ms.Class('l')
	require.True(t, ok)
	require.Equal(t, ClassParamSet, c)

	c, ok = ms.Class('i')
	require.True(t, ok)
	require.Equal(t, ClassFlag, c)

	require.True(t, ms.IsPrefix('o'))
	require.Equal(t, byte('@'), ms.Glyph('o'))
}

func TestModeSetRankOrder(t *testing.T) {
	ms := testModeSet()
	rq, _ := ms.Rank('q')
	ra, _ := ms.Rank('a')
	ro, _ := ms.Rank('o')
	rh, _ := ms.Rank('h')
	rv, _ := ms.Rank('v')
	require.True(t, rq < ra)
	require.True(t, ra < ro)
	require.True(t, ro < rh)
	require.True(t, rh < rv)
}

func TestTakesParam(t *testing.T) {
	ms := testModeSet()
	require.True(t, ms.TakesParam('b', '+'))
	require.True(t, ms.TakesParam('b', '-'))
	require.True(t, ms.TakesParam('k', '+'))
	require.True(t, ms.TakesParam('k', '-'))
	require.True(t, ms.TakesParam('l', '+'))
	require.False(t, ms.TakesParam('l', '-'))
	require.False(t, ms.TakesParam('i', '+'))
}

func TestRenderCollapsesSigns(t *testing.T) {
	changes := []Change{
		{Sign: '+', Mode: 's'},
		{Sign: '+', Mode: 'n'},
		{Sign: '+', Mode: 'b', Arg: "*!*@bad.host"},
		{Sign: '-', Mode: 'o', Arg: "badop"},
	}
	params := Render(changes)
	require.Equal(t, []string{"+snb-o", "*!*@bad.host", "badop"}, params)
}

func TestRenderEmpty(t *testing.T) {
	require.Nil(t, Render(nil))
}
