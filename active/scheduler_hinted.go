package active

import (
	"context"

	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/votecache"
)

// HintedScheduler promotes blocks the vote cache already shows
// significant tally for, even though no election is tracking them
// yet.
type HintedScheduler struct {
	db        store.KV
	cache     *votecache.Cache
	minTally  types.Amount
	batchSize int
}

// NewHintedScheduler constructs a scheduler promoting vote-cache
// entries with tally at least minTally.
func NewHintedScheduler(db store.KV, cache *votecache.Cache, minTally types.Amount, batchSize int) *HintedScheduler {
	return &HintedScheduler{db: db, cache: cache, minTally: minTally, batchSize: batchSize}
}

func (s *HintedScheduler) Tick(ctx context.Context, registry *Registry) (int, error) {
	top := s.cache.Top(s.minTally)

	var candidates []types.Block
	err := s.db.View(func(txn store.Txn) error {
		for _, entry := range top {
			if len(candidates) >= s.batchSize {
				break
			}
			blk, _, err := store.NewBlocks(txn).Get(entry.Hash)
			if err != nil {
				// Not yet in the ledger; the block processor's own
				// unchecked-map path handles that case, not scheduling.
				continue
			}
			candidates = append(candidates, blk)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, blk := range candidates {
		if _, created := registry.Insert(blk); created {
			inserted++
		}
		s.cache.Erase(blk.Hash())
	}
	return inserted, nil
}
