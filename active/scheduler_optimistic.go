package active

import (
	"context"
	"sync"

	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

// OptimisticScheduler opportunistically retries accounts that the
// block processor just touched, on the chance their new head can be
// confirmed without waiting for the priority scheduler's next pass.
// Candidates are pushed in by Notify, typically from a
// blockproc.Processed subscription.
type OptimisticScheduler struct {
	db store.KV

	mu      sync.Mutex
	pending map[types.Account]struct{}

	batchSize int
}

// NewOptimisticScheduler constructs a scheduler over db.
func NewOptimisticScheduler(db store.KV, batchSize int) *OptimisticScheduler {
	return &OptimisticScheduler{db: db, pending: make(map[types.Account]struct{}), batchSize: batchSize}
}

// Notify queues account for an optimistic retry on the next Tick.
func (s *OptimisticScheduler) Notify(account types.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[account] = struct{}{}
}

func (s *OptimisticScheduler) Tick(ctx context.Context, registry *Registry) (int, error) {
	s.mu.Lock()
	accounts := make([]types.Account, 0, len(s.pending))
	for a := range s.pending {
		accounts = append(accounts, a)
		if len(accounts) >= s.batchSize {
			break
		}
	}
	for _, a := range accounts {
		delete(s.pending, a)
	}
	s.mu.Unlock()

	var candidates []types.Block
	err := s.db.View(func(txn store.Txn) error {
		for _, account := range accounts {
			info, err := store.NewAccounts(txn).Get(account)
			if err != nil {
				continue
			}
			height, err := store.NewConfirmationHeight(txn).Get(account)
			if err != nil {
				return err
			}
			if height.Frontier == info.Head {
				continue
			}
			blk, _, err := store.NewBlocks(txn).Get(info.Head)
			if err != nil {
				continue
			}
			candidates = append(candidates, blk)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, blk := range candidates {
		if _, ok := registry.Insert(blk); ok {
			created++
		}
	}
	return created, nil
}
