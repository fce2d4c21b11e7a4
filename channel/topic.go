package channel

import (
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

func (a *Actor) handleTopic(e Topic) {
	if e.New == nil {
		e.Reply <- TopicReply{Current: a.st.topic}
		return
	}
	if a.st.flags['t'] && !e.HasOp {
		e.Reply <- TopicReply{Err: errChanopNeeded, Current: a.st.topic}
		return
	}
	a.st.topic = TopicState{Text: *e.New, SetBy: e.ActorNick, SetAt: time.Now()}

	topicMsg := &wireproto.Message{
		Prefix:  &wireproto.Prefix{Nick: e.ActorNick},
		Command: "TOPIC",
		Params:  []string{a.st.name, *e.New},
	}
	a.broadcast(topicMsg)
	a.st.pushRing(RingEvent{At: time.Now(), Kind: "topic", Actor: e.ActorNick, Detail: *e.New})
	a.persist("TOPIC", topicMsg)

	e.Reply <- TopicReply{Current: a.st.topic}
}
