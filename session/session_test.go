package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/wireproto"
)

type fakeConn struct {
	mu       sync.Mutex
	received []*wireproto.Message
}

func (f *fakeConn) Deliver(m *wireproto.Message) {
	f.mu.Lock()
	f.received = append(f.received, m)
	f.mu.Unlock()
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestDeliverFansOutToEverySibling(t *testing.T) {
	sess := newSession("alice", 1, "alice")
	a, b := &fakeConn{}, &fakeConn{}
	sess.attach(newDevice("phone", 1, a, nil))
	sess.attach(newDevice("laptop", 1, b, nil))

	sess.Deliver(&wireproto.Message{Command: "PRIVMSG", Params: []string{"#chan", "hi"}})

	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
}

func TestDetachLastDeviceDisabledPolicyExpiresImmediately(t *testing.T) {
	sess := newSession("alice", 1, "alice")
	sess.attach(newDevice("phone", 1, &fakeConn{}, nil))

	remaining := sess.detach("phone", time.Hour, false)
	require.Equal(t, 0, remaining)
	require.False(t, sess.ExpiresAt().IsZero())
	require.False(t, sess.ExpiresAt().After(time.Now().Add(time.Second)))
}

func TestDetachLastDeviceAlwaysOnSchedulesFutureExpiry(t *testing.T) {
	sess := newSession("alice", 1, "alice")
	sess.attach(newDevice("phone", 1, &fakeConn{}, nil))

	sess.detach("phone", time.Hour, true)
	require.True(t, sess.AlwaysOn())
	require.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt(), 5*time.Second)
}

func TestAttachClearsScheduledExpiry(t *testing.T) {
	sess := newSession("alice", 1, "alice")
	sess.attach(newDevice("phone", 1, &fakeConn{}, nil))
	sess.detach("phone", time.Hour, false)
	require.False(t, sess.ExpiresAt().IsZero())

	sess.attach(newDevice("laptop", 1, &fakeConn{}, nil))
	require.True(t, sess.ExpiresAt().IsZero())
}

func TestEffectiveAlwaysOn(t *testing.T) {
	yes, no := true, false

	require.True(t, EffectiveAlwaysOn(AlwaysOnMandatory, nil))
	require.True(t, EffectiveAlwaysOn(AlwaysOnMandatory, &no))

	require.False(t, EffectiveAlwaysOn(AlwaysOnOptIn, nil))
	require.True(t, EffectiveAlwaysOn(AlwaysOnOptIn, &yes))
	require.False(t, EffectiveAlwaysOn(AlwaysOnOptIn, &no))

	require.True(t, EffectiveAlwaysOn(AlwaysOnOptOut, nil))
	require.True(t, EffectiveAlwaysOn(AlwaysOnOptOut, &yes))
	require.False(t, EffectiveAlwaysOn(AlwaysOnOptOut, &no))

	require.False(t, EffectiveAlwaysOn(AlwaysOnDisabled, &yes))
}

func TestRegistryForAccountReusesExistingSession(t *testing.T) {
	r := NewRegistry(RegistryConfig{ServerName: "irc.example", CaseMapping: wireproto.CaseMappingRFC1459})

	first, reused := r.ForAccount("Alice", 1, "alice")
	require.False(t, reused)

	second, reused := r.ForAccount("alice", 1, "alice")
	require.True(t, reused)
	require.Same(t, first, second)
	require.Equal(t, 1, r.Count())
}

func TestRegistryAttachRespectsMaxSessions(t *testing.T) {
	r := NewRegistry(RegistryConfig{ServerName: "irc.example", CaseMapping: wireproto.CaseMappingRFC1459, MaxSessions: 1})
	sess, _ := r.ForAccount("alice", 1, "alice")

	_, err := r.Attach(sess, "phone", 1, &fakeConn{}, nil)
	require.NoError(t, err)

	_, err = r.Attach(sess, "laptop", 1, &fakeConn{}, nil)
	require.ErrorIs(t, err, ErrMaxSessions)
}

func TestRegistryDetachDropsNonAlwaysOnSession(t *testing.T) {
	r := NewRegistry(RegistryConfig{ServerName: "irc.example", CaseMapping: wireproto.CaseMappingRFC1459, Policy: AlwaysOnDisabled})
	sess, _ := r.ForAccount("alice", 1, "alice")
	d, err := r.Attach(sess, "phone", 1, &fakeConn{}, nil)
	require.NoError(t, err)

	survives := r.Detach(sess, d.ID, nil)
	require.False(t, survives)
	require.Equal(t, 0, r.Count())
}

func TestRegistrySweepRemovesExpiredAlwaysOnSessions(t *testing.T) {
	r := NewRegistry(RegistryConfig{ServerName: "irc.example", CaseMapping: wireproto.CaseMappingRFC1459, Policy: AlwaysOnMandatory, Expiry: time.Millisecond})
	sess, _ := r.ForAccount("alice", 1, "alice")
	d, err := r.Attach(sess, "phone", 1, &fakeConn{}, nil)
	require.NoError(t, err)

	survives := r.Detach(sess, d.ID, nil)
	require.True(t, survives)
	require.Equal(t, 1, r.Count())

	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 0, r.Count())
}
