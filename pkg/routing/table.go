// Package routing keeps per-endpoint state keyed by endpoint address
// equality.
//
// A Table maps addresses to values the way a channel factory maps remote
// endpoints to open channels: two addresses share an entry when
// EndpointEquals reports them equal. Entries live in hash buckets of a
// bounded LRU cache, so the least recently used buckets are dropped once the
// table is full.
package routing

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/epr-protocol/epr-go/pkg/epr"
	"github.com/epr-protocol/epr-go/pkg/fault"
)

// DefaultSize is the bucket capacity used when a size of zero is requested.
const DefaultSize = 1024

type entry[V any] struct {
	addr  *epr.EndpointAddress
	value V
}

// Table is a bounded map from endpoint addresses to values. It is safe for
// concurrent use.
type Table[V any] struct {
	mu      sync.Mutex
	buckets *lru.Cache[uint32, []entry[V]]
}

// New creates a table holding at most size hash buckets.
func New[V any](size int) (*Table[V], error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return nil, fault.Malformed("table size %d must be positive", size)
	}
	buckets, err := lru.New[uint32, []entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Table[V]{buckets: buckets}, nil
}

// find returns the index of addr in bucket, or -1.
func find[V any](bucket []entry[V], addr *epr.EndpointAddress) (int, error) {
	for i, e := range bucket {
		eq, err := e.addr.EndpointEquals(addr)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

// Put stores v for addr, replacing the value of an equal address.
func (t *Table[V]) Put(addr *epr.EndpointAddress, v V) error {
	if addr == nil {
		return fault.Malformed("nil endpoint address")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := addr.Hash()
	bucket, _ := t.buckets.Peek(key)
	i, err := find(bucket, addr)
	if err != nil {
		return err
	}

	next := make([]entry[V], len(bucket), len(bucket)+1)
	copy(next, bucket)
	if i >= 0 {
		next[i].value = v
	} else {
		next = append(next, entry[V]{addr: addr, value: v})
	}
	t.buckets.Add(key, next)
	return nil
}

// Get returns the value stored for an address equal to addr.
func (t *Table[V]) Get(addr *epr.EndpointAddress) (V, bool, error) {
	var zero V
	if addr == nil {
		return zero, false, fault.Malformed("nil endpoint address")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket, ok := t.buckets.Get(addr.Hash())
	if !ok {
		return zero, false, nil
	}
	i, err := find(bucket, addr)
	if err != nil || i < 0 {
		return zero, false, err
	}
	return bucket[i].value, true, nil
}

// Remove deletes the entry for an address equal to addr and reports whether
// one existed.
func (t *Table[V]) Remove(addr *epr.EndpointAddress) (bool, error) {
	if addr == nil {
		return false, fault.Malformed("nil endpoint address")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := addr.Hash()
	bucket, ok := t.buckets.Peek(key)
	if !ok {
		return false, nil
	}
	i, err := find(bucket, addr)
	if err != nil || i < 0 {
		return false, err
	}
	if len(bucket) == 1 {
		t.buckets.Remove(key)
		return true, nil
	}
	next := make([]entry[V], 0, len(bucket)-1)
	next = append(next, bucket[:i]...)
	next = append(next, bucket[i+1:]...)
	t.buckets.Add(key, next)
	return true, nil
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, bucket := range t.buckets.Values() {
		n += len(bucket)
	}
	return n
}

// Purge removes all entries.
func (t *Table[V]) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buckets.Purge()
}
