package history

import "time"

// Provider is the storage contract the channel actor, session
// registry, and router's CHATHISTORY handler depend on. Store is the
// only implementation today; the interface exists so a durable
// backend can replace it without touching call sites.
type Provider interface {
	Store(target string, item Item) error
	Query(q Query) ([]Item, error)
	Prune(retention time.Duration) (int, error)
	Purge(target string) error
	LookupTimestamp(target, msgID string) (time.Time, bool)
	QueryTargets(q TargetsQuery) ([]TargetActivity, error)
}
