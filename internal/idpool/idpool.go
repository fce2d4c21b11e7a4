// Package idpool allocates the opaque per-connection UIDs the router
// requires ("stable for the life of the connection"), ported from the
// teacher's internal/pool.FidPool: identifiers are handed out from a
// contiguous counter and a freed id is only reusable once every id
// above it has also been freed, trading worst-case density for a
// lock-free Get.
package idpool

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Ceiling is the largest id a Pool will hand out before reporting
// itself full. 32 bits is ample for concurrent connections on one
// process; unlike 9P's Fid/Tag split there is only one id space here.
const Ceiling = 1<<32 - 1

// Pool allocates unique uint32 ids. The zero value is an empty pool
// ready for use.
type Pool struct {
	next uint32

	mu      sync.Mutex
	clunked []uint32
}

// Get returns a fresh id. ok is false once the pool is exhausted.
func (p *Pool) Get() (id uint32, ok bool) {
	if atomic.LoadUint32(&p.next) == Ceiling {
		return 0, false
	}
	return atomic.AddUint32(&p.next, 1) - 1, true
}

// Free releases id for reuse. Free must be called at most once per id
// returned by Get.
func (p *Pool) Free(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !atomic.CompareAndSwapUint32(&p.next, id+1, id) {
		p.clunked = append(p.clunked, id)
		sort.Sort(uint32slice(p.clunked))
	}
	for i := len(p.clunked); i > 0; i-- {
		if atomic.CompareAndSwapUint32(&p.next, p.clunked[i-1]+1, p.clunked[i-1]) {
			p.clunked = p.clunked[:len(p.clunked)-1]
		} else {
			break
		}
	}
}

type uint32slice []uint32

func (s uint32slice) Less(i, j int) bool { return s[i] < s[j] }
func (s uint32slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s uint32slice) Len() int           { return len(s) }
