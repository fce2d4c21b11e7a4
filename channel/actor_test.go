package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sid3xyz/slircd/access"
	"github.com/sid3xyz/slircd/wireproto"
)

type fakeSender struct {
	mu       sync.Mutex
	received []*wireproto.Message
}

func (f *fakeSender) Deliver(m *wireproto.Message) {
	f.mu.Lock()
	f.received = append(f.received, m)
	f.mu.Unlock()
}

func (f *fakeSender) last() *wireproto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) == 0 {
		return nil
	}
	return f.received[len(f.received)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func newTestActor(t *testing.T) (*Actor, context.CancelFunc) {
	a := New("#test", "#test", Config{
		ServerName:   "irc.example",
		ModeSet:      testModeSet(),
		QueueDepth:   32,
		DestroyGrace: 20 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	t.Cleanup(cancel)
	return a, cancel
}

func join(t *testing.T, a *Actor, uid uint32, nick string, sender Sender) JoinReply {
	t.Helper()
	reply := make(chan JoinReply, 1)
	ok := a.Submit(Join{
		UID: uid, Nick: nick, Hostmask: nick + "!u@h",
		Sender: sender, Reply: reply,
	})
	require.True(t, ok)
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatal("join timed out")
		return JoinReply{}
	}
}

func TestFirstJoinerBecomesFounder(t *testing.T) {
	a, _ := newTestActor(t)
	sender := &fakeSender{}
	r := join(t, a, 1, "alice", sender)
	require.True(t, r.First)
	require.Equal(t, []string{"~alice"}, r.Names)
}

func TestSecondJoinerIsNotFounder(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})
	sender2 := &fakeSender{}
	r := join(t, a, 2, "bob", sender2)
	require.False(t, r.First)

	require.Eventually(t, func() bool { return sender2.count() > 0 }, time.Second, time.Millisecond)
}

func TestModeRequiresAuthority(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})
	join(t, a, 2, "bob", &fakeSender{})

	reply := make(chan ModeReply, 1)
	a.Submit(Mode{
		ActorUID: 2, ActorNick: "bob",
		Changes: []RequestedChange{{Sign: '+', Mode: 'o', Arg: "bob"}},
		Reply:   reply,
	})
	r := <-reply
	require.Empty(t, r.Applied)
	require.Len(t, r.Denied, 1)
}

func TestFounderCanOpAnotherMember(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})
	join(t, a, 2, "bob", &fakeSender{})

	reply := make(chan ModeReply, 1)
	a.Submit(Mode{
		ActorUID: 1, ActorNick: "alice",
		Changes: []RequestedChange{{Sign: '+', Mode: 'o', Arg: "bob"}},
		Reply:   reply,
	})
	r := <-reply
	require.Len(t, r.Applied, 1)
}

func TestModerateBlocksNonVoiced(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})
	join(t, a, 2, "bob", &fakeSender{})

	modeReply := make(chan ModeReply, 1)
	a.Submit(Mode{ActorUID: 1, ActorNick: "alice", Changes: []RequestedChange{{Sign: '+', Mode: 'm'}}, Reply: modeReply})
	<-modeReply

	msgReply := make(chan error, 1)
	a.Submit(Message{
		ActorUID: 2, ActorNick: "bob", Hostmask: "bob!u@h",
		Command: "PRIVMSG", Text: "hi", Reply: msgReply,
	})
	err := <-msgReply
	require.Error(t, err)
}

func TestBanBlocksJoin(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})

	modeReply := make(chan ModeReply, 1)
	a.Submit(Mode{
		ActorUID: 1, ActorNick: "alice",
		Changes: []RequestedChange{{Sign: '+', Mode: 'b', Arg: "*!*@bad.host"}},
		Reply:   modeReply,
	})
	<-modeReply

	reply := make(chan JoinReply, 1)
	a.Submit(Join{
		UID: 2, Nick: "evil", Hostmask: "evil!u@bad.host",
		Ctx: access.MatchContext{}, Reply: reply,
	})
	r := <-reply
	require.ErrorIs(t, r.Err, errBanned)
}

func TestTopicProtectedRequiresOp(t *testing.T) {
	a, _ := newTestActor(t)
	join(t, a, 1, "alice", &fakeSender{})
	join(t, a, 2, "bob", &fakeSender{})

	modeReply := make(chan ModeReply, 1)
	a.Submit(Mode{ActorUID: 1, ActorNick: "alice", Changes: []RequestedChange{{Sign: '+', Mode: 't'}}, Reply: modeReply})
	<-modeReply

	topicReply := make(chan TopicReply, 1)
	newTopic := "hello"
	a.Submit(Topic{ActorUID: 2, ActorNick: "bob", HasOp: false, New: &newTopic, Reply: topicReply})
	r := <-topicReply
	require.Error(t, r.Err)
}

func TestPartThenDestroyAfterGrace(t *testing.T) {
	a, cancel := newTestActor(t)
	defer cancel()
	join(t, a, 1, "alice", &fakeSender{})
	a.Submit(Part{UID: 1, Reason: "bye"})

	require.Eventually(t, func() bool {
		reply := make(chan ChannelInfo, 1)
		if !a.Submit(GetInfo{Reply: reply}) {
			return false
		}
		select {
		case info := <-reply:
			return info.MemberCount == 0
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Once the grace period passes with no rejoin, the actor exits and
	// stops answering.
	require.Eventually(t, func() bool {
		reply := make(chan ChannelInfo, 1)
		if !a.Submit(GetInfo{Reply: reply}) {
			return true
		}
		select {
		case <-reply:
			return false
		case <-time.After(50 * time.Millisecond):
			return true
		}
	}, time.Second, 5*time.Millisecond)
}
