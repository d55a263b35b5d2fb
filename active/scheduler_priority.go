package active

import (
	"context"

	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

// PriorityScheduler schedules unconfirmed account frontiers, favoring
// accounts with larger balances first: a descending list of
// balance-bucket thresholds visited round-robin, one bucket per Tick,
// each pass bounded to ScanLimit accounts so a huge ledger never
// blocks a single scheduling pass.
type PriorityScheduler struct {
	db         store.KV
	thresholds []types.Amount
	batchSize  int
	scanLimit  int
	cursor     int
}

// NewPriorityScheduler constructs a scheduler over db. thresholds must
// be sorted descending; each Tick visits the next threshold in
// round-robin order.
func NewPriorityScheduler(db store.KV, thresholds []types.Amount, batchSize, scanLimit int) *PriorityScheduler {
	if scanLimit < batchSize {
		scanLimit = batchSize * 4
	}
	return &PriorityScheduler{db: db, thresholds: thresholds, batchSize: batchSize, scanLimit: scanLimit}
}

func (s *PriorityScheduler) Tick(ctx context.Context, registry *Registry) (int, error) {
	if len(s.thresholds) == 0 {
		return 0, nil
	}
	threshold := s.thresholds[s.cursor%len(s.thresholds)]
	s.cursor++

	var candidates []types.Block
	err := s.db.View(func(txn store.Txn) error {
		it := txn.Iterator(store.TableAccounts, nil)
		defer it.Release()
		scanned := 0
		for it.Next() && scanned < s.scanLimit && len(candidates) < s.batchSize {
			scanned++
			var account types.Account
			copy(account[:], it.Key())
			info, err := store.NewAccounts(txn).Get(account)
			if err != nil {
				continue
			}
			if info.Balance.Cmp(threshold) < 0 {
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
		return it.Error()
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
