package channel

import (
	"github.com/google/uuid"
	"github.com/sid3xyz/slircd/history"
	"github.com/sid3xyz/slircd/wireproto"
)

// persist appends msg to the durable history store if both a store
// is configured and command is one of the persisted event types.
func (a *Actor) persist(command string, msg *wireproto.Message) {
	if a.hist == nil || !a.historyEvents[command] {
		return
	}
	ts := a.now()
	item := history.Item{
		TS:      ts,
		MsgID:   uuid.NewString(),
		Command: msg.Command,
		Params:  msg.Params,
	}
	if msg.Prefix != nil {
		item.Prefix = msg.Prefix.String()
	}
	if len(msg.Tags) > 0 {
		item.Tags = make(map[string]string, len(msg.Tags))
		for _, t := range msg.Tags {
			item.Tags[t.Key] = t.Value
		}
	}
	_ = a.hist.Store(a.st.folded, item)
}
