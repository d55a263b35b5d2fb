// Package unchecked holds blocks whose predecessor or source has not
// yet arrived in the ledger. It is a bounded mapping
// from the missing dependency hash to the blocks waiting on it; once
// that dependency is processed, the waiting blocks are resubmitted to
// the block processor with source Unchecked.
package unchecked

import (
	"sync"

	"github.com/coreledger/coreledger-node/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// Entry is one block queued on a dependency, with the time it arrived.
type Entry struct {
	Block   types.Block
	Arrival int64
}

// Map is the bounded dependency -> []Entry cache. Capacity bounds the
// number of distinct dependency hashes tracked, not the raw entry
// count; a dependency hash with many waiting blocks (a burst of
// descendants racing ahead of a slow-arriving ancestor) still counts
// as a single LRU slot. Evicting whole dependency buckets keeps the
// index a single simplelru.LRU instead of a second ordering structure
// over individual entries.
type Map struct {
	mu  sync.Mutex
	lru *lru.LRU[types.Hash, []Entry]

	log     log.Logger
	evicted metrics.Counter
}

// New constructs a Map bounded to capacity distinct dependency hashes.
func New(capacity int) *Map {
	m := &Map{
		log:     log.New("module", "unchecked"),
		evicted: metrics.NewRegisteredCounter("unchecked/evicted", nil),
	}
	l, err := lru.NewLRU[types.Hash, []Entry](capacity, func(dependency types.Hash, entries []Entry) {
		m.evicted.Inc(int64(len(entries)))
		m.log.Debug("unchecked bucket evicted", "dependency", dependency, "count", len(entries))
	})
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// construction bug, not a runtime condition.
		panic(err)
	}
	m.lru = l
	return m
}

// Put queues blk awaiting dependency, recorded as arriving at now (unix
// seconds, supplied by the caller's clock).
func (m *Map) Put(dependency types.Hash, blk types.Block, now int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, _ := m.lru.Get(dependency)
	entries = append(entries, Entry{Block: blk, Arrival: now})
	m.lru.Add(dependency, entries)
}

// Resolve removes and returns every block waiting on dependency, in
// arrival order, for resubmission to the block processor.
func (m *Map) Resolve(dependency types.Hash) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.lru.Get(dependency)
	if !ok {
		return nil
	}
	m.lru.Remove(dependency)
	return entries
}

// Get scans for a queued block by its own hash, for the RPC
// unchecked_get lookup. A linear scan: nothing indexes entries by
// their own hash, only by dependency.
func (m *Map) Get(hash types.Hash) (dependency types.Hash, entry Entry, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dep := range m.lru.Keys() {
		entries, _ := m.lru.Get(dep)
		for _, e := range entries {
			if e.Block.Hash() == hash {
				return dep, e, true
			}
		}
	}
	return types.Hash{}, Entry{}, false
}

// Len reports the number of distinct dependency hashes tracked.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
