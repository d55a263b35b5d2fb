package election

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

// OnlineWeight maintains the trailing estimate of representative
// weight seen voting within a sliding window, and derives quorum_delta
// from it.
type OnlineWeight struct {
	db            store.KV
	windowSeconds int64
	quorumPercent int
	clock         func() int64
}

// NewOnlineWeight constructs an estimator persisting samples through
// db, trailing windowSeconds, applying quorumPercent (0-100) of the
// window's peak observed weight as quorum_delta.
func NewOnlineWeight(db store.KV, windowSeconds int64, quorumPercent int, clock func() int64) *OnlineWeight {
	return &OnlineWeight{db: db, windowSeconds: windowSeconds, quorumPercent: quorumPercent, clock: clock}
}

// Sample records the currently observed total online weight, pruning
// samples that have aged out of the trailing window.
func (o *OnlineWeight) Sample(observed types.Amount) error {
	now := o.clock()
	cutoff := now - o.windowSeconds
	return o.db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		times, _, err := store.NewOnlineWeight(txn).Samples()
		if err != nil {
			return err
		}
		for _, ts := range times {
			if ts < cutoff {
				if err := store.DeleteOnlineWeightSample(txn, ts); err != nil {
					return err
				}
			}
		}
		return store.PutOnlineWeightSample(txn, now, observed)
	})
}

// QuorumDelta returns quorumPercent% of the trailing window's peak
// sampled weight, the threshold elections compare tallies against.
func (o *OnlineWeight) QuorumDelta() (types.Amount, error) {
	var peak types.Amount
	err := o.db.View(func(txn store.Txn) error {
		_, weights, err := store.NewOnlineWeight(txn).Samples()
		if err != nil {
			return err
		}
		for _, w := range weights {
			if w.Cmp(peak) > 0 {
				peak = w
			}
		}
		return nil
	})
	if err != nil {
		return types.ZeroAmount, err
	}
	if o.quorumPercent <= 0 {
		return types.ZeroAmount, nil
	}
	return peak.MulFrac(uint64(o.quorumPercent), 100), nil
}
