// Package votecache holds votes for blocks that do not (yet) belong to
// an active or recently finished election. It is a
// bounded, ordered multi-index: unique by block hash, FIFO by
// insertion for eviction, and queryable by descending tally for the
// hinted scheduler's Top lookup.
package votecache

import (
	"container/list"
	"sync"

	"github.com/coreledger/coreledger-node/types"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// VoterEntry records one representative's vote on an entry: the
// weight captured at vote time (not a live lookup), so tally is always
// a plain sum over captured values and never needs wrapping or
// underflow-tolerant arithmetic. Tallies are recomputed from the
// bounded voter list on every mutation rather than accumulated as a
// running total.
type VoterEntry struct {
	Representative types.Account
	Timestamp      uint64
	Weight         types.Amount
}

// Entry stores every vote seen for a single block hash.
type Entry struct {
	ID         uint64
	Hash       types.Hash
	Voters     []VoterEntry
	Tally      types.Amount
	FinalTally types.Amount

	seen mapset.Set[types.Account]
}

func newEntry(id uint64, hash types.Hash) *Entry {
	return &Entry{ID: id, Hash: hash, seen: mapset.NewThreadUnsafeSet[types.Account]()}
}

// vote records representative's vote, enforcing maxVoters. Returns
// whether the entry's tally changed.
func (e *Entry) vote(representative types.Account, timestamp uint64, weight types.Amount, maxVoters int) bool {
	if e.seen.Contains(representative) {
		for i := range e.Voters {
			if e.Voters[i].Representative != representative {
				continue
			}
			if timestamp <= e.Voters[i].Timestamp {
				return false
			}
			e.Voters[i].Timestamp = timestamp
			e.Voters[i].Weight = weight
			e.recalculate()
			return true
		}
		return false
	}
	if len(e.Voters) >= maxVoters {
		return false
	}
	e.Voters = append(e.Voters, VoterEntry{Representative: representative, Timestamp: timestamp, Weight: weight})
	e.seen.Add(representative)
	e.recalculate()
	return true
}

func (e *Entry) recalculate() {
	tally := types.ZeroAmount
	final := types.ZeroAmount
	for _, v := range e.Voters {
		tally = tally.Add(v.Weight)
		if v.Timestamp == types.FinalTimestamp {
			final = final.Add(v.Weight)
		}
	}
	e.Tally = tally
	e.FinalTally = final
}

// snapshot returns a copy of e safe to hand to callers outside the
// cache's lock.
func (e *Entry) snapshot() Entry {
	voters := make([]VoterEntry, len(e.Voters))
	copy(voters, e.Voters)
	return Entry{ID: e.ID, Hash: e.Hash, Voters: voters, Tally: e.Tally, FinalTally: e.FinalTally}
}

// TopEntry is one result of Top: a hash and its tallies, without the
// full voter list.
type TopEntry struct {
	Hash       types.Hash
	Tally      types.Amount
	FinalTally types.Amount
}

// Cache is the bounded hash-keyed vote cache.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	maxVoters int
	nextID    uint64

	order  *list.List // of *Entry, front = oldest insertion
	byHash map[types.Hash]*list.Element
}

// New constructs a Cache bounded to maxSize entries with up to
// maxVoters captured per entry.
func New(maxSize, maxVoters int) *Cache {
	return &Cache{
		maxSize:   maxSize,
		maxVoters: maxVoters,
		order:     list.New(),
		byHash:    make(map[types.Hash]*list.Element),
	}
}

// Vote records voter's timestamped weight against hash, creating the
// entry if absent and evicting the oldest entry if this insert pushes
// the cache over capacity.
func (c *Cache) Vote(hash types.Hash, voter types.Account, timestamp uint64, weight types.Amount) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byHash[hash]; ok {
		return elem.Value.(*Entry).vote(voter, timestamp, weight, c.maxVoters)
	}

	entry := newEntry(c.nextID, hash)
	c.nextID++
	changed := entry.vote(voter, timestamp, weight, c.maxVoters)
	elem := c.order.PushBack(entry)
	c.byHash[hash] = elem

	if c.order.Len() > c.maxSize {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.byHash, oldest.Value.(*Entry).Hash)
	}
	return changed
}

// Empty reports whether the cache holds no entries.
func (c *Cache) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len() == 0
}

// Size reports the number of distinct hashes held.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Find returns a snapshot of the entry for hash, if present.
func (c *Cache) Find(hash types.Hash) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byHash[hash]
	if !ok {
		return Entry{}, false
	}
	return elem.Value.(*Entry).snapshot(), true
}

// Erase removes the entry for hash, reporting whether one existed.
func (c *Cache) Erase(hash types.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byHash[hash]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.byHash, hash)
	return true
}

// Top returns every entry whose tally is at least minTally, sorted
// descending by (final_tally, tally): entries locked in by final
// votes outrank entries that merely poll well.
func (c *Cache) Top(minTally types.Amount) []TopEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]TopEntry, 0, len(c.byHash))
	for _, elem := range c.byHash {
		e := elem.Value.(*Entry)
		if e.Tally.Cmp(minTally) < 0 {
			continue
		}
		results = append(results, TopEntry{Hash: e.Hash, Tally: e.Tally, FinalTally: e.FinalTally})
	}
	slices.SortFunc(results, func(a, b TopEntry) int {
		if cmp := b.FinalTally.Cmp(a.FinalTally); cmp != 0 {
			return cmp
		}
		return b.Tally.Cmp(a.Tally)
	})
	return results
}
