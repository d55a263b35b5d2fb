package election

import (
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/votecache"
)

// ReplayCached feeds every vote already cached for e's candidate
// blocks into e: a freshly seeded election picks up any votes that
// arrived before the block did.
func (e *Election) ReplayCached(cache *votecache.Cache) {
	e.mu.Lock()
	candidates := make([]types.Hash, 0, len(e.lastBlocks))
	for h := range e.lastBlocks {
		candidates = append(candidates, h)
	}
	e.mu.Unlock()

	for _, h := range candidates {
		entry, ok := cache.Find(h)
		if !ok {
			continue
		}
		for _, voter := range entry.Voters {
			e.Vote(voter.Representative, voter.Timestamp, h)
		}
	}
}
