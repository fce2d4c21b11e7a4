package channel

func (a *Actor) handleGetInfo(e GetInfo) {
	info := ChannelInfo{
		Name:        a.st.name,
		Created:     a.st.created.Unix(),
		Topic:       a.st.topic,
		MemberCount: len(a.st.members),
	}
	for m, set := range a.st.flags {
		if set {
			info.Modes = append(info.Modes, Change{Sign: '+', Mode: m})
		}
	}
	for m, val := range a.st.scalars {
		info.Modes = append(info.Modes, Change{Sign: '+', Mode: m, Arg: val})
	}
	for uid, mem := range a.st.members {
		info.Members = append(info.Members, MemberInfo{UID: uid, Nick: mem.Nick, Glyphs: mem.AllGlyphs(a.ms)})
	}
	e.Reply <- info
}
