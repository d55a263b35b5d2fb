package ledger

import (
	"sync"

	"github.com/coreledger/coreledger-node/types"
)

// RepWeights is the representative weight snapshot: account -> total
// balance of chains delegating to it. It is maintained incrementally
// by the ledger engine as blocks are processed, not gated on
// confirmation, so derived weight stays in lockstep with state writes
// rather than trailing them as a second pass.
type RepWeights struct {
	mu      sync.RWMutex
	weights map[types.Account]types.Amount
}

func NewRepWeights() *RepWeights {
	return &RepWeights{weights: make(map[types.Account]types.Amount)}
}

// Weight returns the current weight delegated to rep.
func (w *RepWeights) Weight(rep types.Account) types.Amount {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.weights[rep]
}

// Add credits delta to rep's weight.
func (w *RepWeights) Add(rep types.Account, delta types.Amount) {
	if delta.IsZero() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.weights[rep] = w.weights[rep].Add(delta)
}

// Sub debits delta from rep's weight, floored at zero. Weight
// bookkeeping is driven entirely by this engine's own balance deltas,
// so an underflow here means an internal accounting bug rather than a
// legitimate transient (contrast with the vote cache's tally, which
// tracks a live external snapshot and must tolerate weight shrinking
// between snapshots).
func (w *RepWeights) Sub(rep types.Account, delta types.Amount) {
	if delta.IsZero() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, underflow := w.weights[rep].Sub(delta); !underflow {
		w.weights[rep] = v
	} else {
		w.weights[rep] = types.ZeroAmount
	}
}

// Move is the common case: balance delta moves from oldRep to newRep
// (oldRep == newRep for a plain balance change with no representative
// switch).
func (w *RepWeights) Move(oldRep, newRep types.Account, oldBalance, newBalance types.Amount) {
	if oldRep == newRep {
		if newBalance.Cmp(oldBalance) >= 0 {
			diff, _ := newBalance.Sub(oldBalance)
			w.Add(newRep, diff)
		} else {
			diff, _ := oldBalance.Sub(newBalance)
			w.Sub(newRep, diff)
		}
		return
	}
	w.Sub(oldRep, oldBalance)
	w.Add(newRep, newBalance)
}
