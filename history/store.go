package history

import (
	"sort"
	"sync"
	"time"

	"github.com/sid3xyz/slircd/wireproto"
)

// Store is an in-memory Provider implementation: one append-only,
// nanotime-sorted slice per case-folded target, with a parallel msgid
// index for anchor lookups. Safe for concurrent use.
type Store struct {
	cm wireproto.CaseMapping

	mu      sync.RWMutex
	byTarget map[string][]Item
	byMsgID  map[string]msgIDRef // msgid -> (folded target, index at insertion time is not stable across prune, so we re-resolve by scan)
	nextID  uint64
}

type msgIDRef struct {
	target string
	nano   int64
}

// NewStore returns an empty in-memory Store using cm to fold target
// names.
func NewStore(cm wireproto.CaseMapping) *Store {
	return &Store{
		cm:       cm,
		byTarget: make(map[string][]Item),
		byMsgID:  make(map[string]msgIDRef),
	}
}

// Store inserts item into target's history in nanotime order,
// assigning it the next monotonic ID (any ID already set is replaced).
func (s *Store) Store(target string, item Item) error {
	folded := s.cm.Fold(target)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	list := s.byTarget[folded]
	idx := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() > item.NanoTime() })
	list = append(list, Item{})
	copy(list[idx+1:], list[idx:])
	list[idx] = item
	s.byTarget[folded] = list
	if item.MsgID != "" {
		s.byMsgID[item.MsgID] = msgIDRef{target: folded, nano: item.NanoTime()}
	}
	return nil
}

// Query resolves q against the stored items for its target.
func (s *Store) Query(q Query) ([]Item, error) {
	folded := s.cm.Fold(q.Target)
	s.mu.RLock()
	list := append([]Item(nil), s.byTarget[folded]...)
	s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	switch q.Selector {
	case SelectorLatest:
		return tail(list, limit), nil
	case SelectorBefore:
		pivot := s.resolveAnchor(folded, q.Start)
		cut := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() >= pivot })
		return lastN(list[:cut], limit), nil
	case SelectorAfter:
		pivot := s.resolveAnchor(folded, q.Start)
		start := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() > pivot })
		return firstN(list[start:], limit), nil
	case SelectorAround:
		pivot := s.resolveAnchor(folded, q.Start)
		center := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() >= pivot })
		half := limit / 2
		lo := center - half
		if lo < 0 {
			lo = 0
		}
		hi := lo + limit
		if hi > len(list) {
			hi = len(list)
		}
		return append([]Item(nil), list[lo:hi]...), nil
	case SelectorBetween:
		lo := s.resolveAnchor(folded, q.Start)
		hi := s.resolveAnchor(folded, q.End)
		if lo > hi {
			lo, hi = hi, lo
		}
		start := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() >= lo })
		end := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() > hi })
		if q.Reverse {
			return lastN(list[start:end], limit), nil
		}
		return firstN(list[start:end], limit), nil
	default:
		return tail(list, limit), nil
	}
}

func (s *Store) resolveAnchor(foldedTarget string, a Anchor) int64 {
	if a.MsgID != "" {
		s.mu.RLock()
		ref, ok := s.byMsgID[a.MsgID]
		s.mu.RUnlock()
		if ok && ref.target == foldedTarget {
			return ref.nano
		}
	}
	return a.Time.UnixNano()
}

// Prune removes every item older than retention across every target,
// returning the count removed.
func (s *Store) Prune(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for target, list := range s.byTarget {
		cut := sort.Search(len(list), func(i int) bool { return list[i].NanoTime() >= cutoff })
		removed += cut
		for _, it := range list[:cut] {
			delete(s.byMsgID, it.MsgID)
		}
		s.byTarget[target] = append([]Item(nil), list[cut:]...)
	}
	return removed, nil
}

// Purge deletes all history for target, or for every target if target
// is empty.
func (s *Store) Purge(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == "" {
		s.byTarget = make(map[string][]Item)
		s.byMsgID = make(map[string]msgIDRef)
		return nil
	}
	folded := s.cm.Fold(target)
	for _, it := range s.byTarget[folded] {
		delete(s.byMsgID, it.MsgID)
	}
	delete(s.byTarget, folded)
	return nil
}

// LookupTimestamp resolves msgID to its stored time, if target has an
// item with that msgid.
func (s *Store) LookupTimestamp(target, msgID string) (time.Time, bool) {
	folded := s.cm.Fold(target)
	s.mu.RLock()
	ref, ok := s.byMsgID[msgID]
	s.mu.RUnlock()
	if !ok || ref.target != folded {
		return time.Time{}, false
	}
	return time.Unix(0, ref.nano), true
}

// QueryTargets returns activity for every candidate target with an
// item in [start, end), most recent first, capped at limit.
func (s *Store) QueryTargets(q TargetsQuery) ([]TargetActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TargetActivity
	for _, cand := range q.Candidates {
		folded := s.cm.Fold(cand)
		list := s.byTarget[folded]
		if len(list) == 0 {
			continue
		}
		last := list[len(list)-1]
		if !q.Start.IsZero() && last.NanoTime() < q.Start.UnixNano() {
			continue
		}
		if !q.End.IsZero() && last.NanoTime() >= q.End.UnixNano() {
			continue
		}
		out = append(out, TargetActivity{Target: cand, LastNanoTime: last.NanoTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastNanoTime > out[j].LastNanoTime })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func tail(list []Item, limit int) []Item {
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return append([]Item(nil), list...)
}

func lastN(list []Item, limit int) []Item { return tail(list, limit) }

func firstN(list []Item, limit int) []Item {
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]Item(nil), list...)
}

var _ Provider = (*Store)(nil)
