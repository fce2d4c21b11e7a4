package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/wireproto"
)

func baseConfig() *Config {
	return &Config{
		ServerName:     "irc.example.net",
		SID:            "0AB",
		Network:        "ExampleNet",
		CaseMapping:    wireproto.CaseMappingRFC1459,
		Listeners:      []ListenSpec{{Addr: "0.0.0.0:6667"}},
		NickLen:        30,
		ChannelLen:     64,
		TopicLen:       390,
		MaxTargets:     4,
		ChannelModesA:  "eIbq",
		ChannelModesB:  "k",
		ChannelModesC:  "flj",
		ChannelModesD:  "CFLMPQScgimnprstuz",
		PrefixModes:    "qaohv",
		PrefixGlyphs:   "~&@%+",
		PingIdle:       120 * time.Second,
		PingTimeout:    180 * time.Second,
		QueueDepth:     256,
		MaxSessions:    10,
		AlwaysOnPolicy: "opt-in",
	}
}

func TestValidateRejectsBadSID(t *testing.T) {
	c := baseConfig()
	c.SID = "ab"
	require.Error(t, c.Validate())
}

func TestSupervisorRehashAtomicOnFailure(t *testing.T) {
	s := NewSupervisor(baseConfig())
	live := s.Current()

	bad := baseConfig()
	bad.SID = "XYZ" // sid change must be rejected
	err := s.Rehash(bad)
	require.Error(t, err)
	require.Same(t, live, s.Current(), "live config must be untouched on rehash failure")
}

func TestSupervisorRehashSwapsOnSuccess(t *testing.T) {
	s := NewSupervisor(baseConfig())
	next := baseConfig()
	next.MOTD = []string{"new motd"}
	require.NoError(t, s.Rehash(next))
	require.Equal(t, []string{"new motd"}, s.Current().MOTD)
}

func TestSupervisorRehashRejectsCaseMappingChange(t *testing.T) {
	s := NewSupervisor(baseConfig())
	next := baseConfig()
	next.CaseMapping = wireproto.CaseMappingASCII
	require.Error(t, s.Rehash(next))
}

func TestSupervisorRehashRejectsRemovedListener(t *testing.T) {
	s := NewSupervisor(baseConfig())
	next := baseConfig()
	next.Listeners = []ListenSpec{{Addr: "0.0.0.0:6697", TLS: true}}
	require.Error(t, s.Rehash(next))
}

func TestISUPPORTRendering(t *testing.T) {
	c := baseConfig()
	require.Equal(t, "eIbq,k,flj,CFLMPQScgimnprstuz", c.ISUPPORTChanModes())
	require.Equal(t, "(qaohv)~&@%+", c.ISUPPORTPrefix())
}
