// Package dedupe tracks recently seen punch ids for idempotent ingestion.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen punch IDs so re-posted rows are acknowledged
// without being stored twice.
type Deduper interface {
	// SeenAndRecord records id and reports whether it was already known.
	// Check and insert happen under one lock.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so a later retry is not mistaken for a
	// duplicate. Called when persisting the punch failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type node struct {
	id   string
	next *node
}

func (n *node) reset() {
	n.id = ""
	n.next = nil
}

// inMemoryDeduper implements Deduper with an in-memory linked list.
// Bounded mode (maxSize > 0) evicts the oldest entry and recycles nodes
// through a sync.Pool; unbounded mode keeps a plain map.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]*node // id -> node for bounded mode, nil for unbounded
	head     *node            // most recently added
	maxSize  int              // 0 or negative means unbounded
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*node)

	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return d
}

// SeenAndRecord records id and reports whether it was already known.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}

		n := d.nodePool.Get().(*node)
		n.id = id
		n.next = d.head

		d.head = n
		d.seen[id] = n
	} else {
		d.seen[id] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord forgets an id so a later retry is not mistaken for a duplicate.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.maxSize > 0 {
		if node, exists := d.seen[id]; exists {
			delete(d.seen, id)

			if d.head == node {
				d.head = node.next
			} else {
				current := d.head
				for current != nil && current.next != node {
					current = current.next
				}
				if current != nil {
					current.next = node.next
				}
			}

			node.reset()
			d.nodePool.Put(node)

			d.size.Add(-1)
		}
	} else {
		if _, exists := d.seen[id]; exists {
			delete(d.seen, id)
			d.size.Add(-1)
		}
	}
}

// evictOldest drops the tail of the list from the map. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if len(d.seen) == 0 || d.head == nil {
		return
	}

	var prev *node
	current := d.head

	if current.next == nil {
		delete(d.seen, current.id)
		current.reset()
		d.nodePool.Put(current)
		d.head = nil
		d.size.Add(-1)
		return
	}

	for current.next != nil {
		prev = current
		current = current.next
	}

	if prev != nil {
		prev.next = nil
		delete(d.seen, current.id)
		current.reset()
		d.nodePool.Put(current)
		d.size.Add(-1)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
