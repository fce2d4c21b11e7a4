package user

// WhoisView is a read-only assembly of the data needed to answer a
// WHOIS query: the user record plus the channel list, supplied by
// the caller since the channel package owns membership.
type WhoisView struct {
	Snapshot
	Channels []string // "@#ops", "+#lobby", prefixed per the querying client's multi-prefix cap
	Server   string
	Idle     int64 // seconds
	SignedOn int64 // unix seconds
	Operator bool
}

// BuildWhois assembles a WhoisView for uid, or ok=false if uid is
// unknown.
func (r *Registry) BuildWhois(uid UID, channels []string, server string, idle, signedOn int64) (WhoisView, bool) {
	rec, ok := r.Record(uid)
	if !ok {
		return WhoisView{}, false
	}
	snap := rec.Snapshot()
	return WhoisView{
		Snapshot: snap,
		Channels: channels,
		Server:   server,
		Idle:     idle,
		SignedOn: signedOn,
		Operator: rec.HasMode('o'),
	}, true
}
