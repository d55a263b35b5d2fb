package blockproc

import (
	"context"

	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

// RunOnce takes every Forced item, then fills the batch up to BatchSize
// items from the other queues in weighted round-robin (a Forced backlog
// larger than BatchSize is taken whole), processes the batch under a
// single write transaction, and
// fans out the results. It returns the number of items processed, for
// tests that want to drive the worker deterministically instead of
// through Start/Stop.
func (p *Processor) RunOnce(ctx context.Context) int {
	batch := p.pullBatch()
	if len(batch) == 0 {
		return 0
	}

	results := make([]ledger.ProcessResult, len(batch))
	err := p.cfg.Store.Update(store.WriterBlockProcessor, func(txn store.WriteTxn) error {
		for i, it := range batch {
			results[i] = p.cfg.Ledger.Process(txn, it.block)
			if results[i] == ledger.Fork {
				p.reportForkLocked(txn, it.block)
			}
		}
		return nil
	})
	if err != nil {
		// Nothing in the batch was applied. Blocking callers are left
		// to their context deadline rather than handed a validation
		// result that never happened.
		p.log.Error("block processor batch commit failed", "err", err, "count", len(batch))
		return len(batch)
	}

	for i, it := range batch {
		p.handleResult(it, results[i])
		if it.resultCh != nil {
			it.resultCh <- results[i]
		}
	}
	return len(batch)
}

// pullBatch drains Forced first (it bypasses capacity and quota), then
// round-robins one item at a time across queuedSources until BatchSize
// is reached or every queue is empty.
func (p *Processor) pullBatch() []item {
	batch := make([]item, 0, p.cfg.BatchSize)

	p.forcedMu.Lock()
	batch = append(batch, p.forced...)
	p.forced = nil
	p.forcedMu.Unlock()

	for len(batch) < p.cfg.BatchSize {
		drained := true
		for _, s := range queuedSources {
			if len(batch) >= p.cfg.BatchSize {
				break
			}
			select {
			case it := <-p.queues[s]:
				batch = append(batch, it)
				drained = false
			default:
			}
		}
		if drained {
			break
		}
	}
	return batch
}

func (p *Processor) handleResult(it item, result ledger.ProcessResult) {
	counter := p.counters[result]
	if counter == nil {
		counter = metricsCounterFor(result)
		p.counters[result] = counter
	}
	counter.Inc(1)

	switch {
	case result == ledger.Progress:
		p.feed.Send(Processed{Block: it.block, Source: it.source})
		p.resolveDependents(it.block.Hash())
		// A send reaching the ledger may also unblock an epoch-open
		// parked on the destination account's root.
		if dest, ok := linkedAccount(it.block); ok {
			p.resolveDependents(types.Hash(dest))
		}
	case result.IsGap():
		p.cfg.Unchecked.Put(missingDependency(it.block, result), it.block, p.cfg.Clock())
	case result == ledger.Fork:
		// forkFeed already sent inside the write transaction in
		// reportForkLocked, where the competing block is still
		// resolvable from the same snapshot.
	default:
		p.dropped.Inc(1)
		if result == ledger.BadSignature && p.cfg.PenalizeOrigin != nil && it.origin != "" {
			p.cfg.PenalizeOrigin(it.origin)
		}
	}
}

// resolveDependents resubmits every block that was waiting on hash,
// now that it has entered the ledger.
func (p *Processor) resolveDependents(hash types.Hash) {
	for _, entry := range p.cfg.Unchecked.Resolve(hash) {
		p.Add(entry.Block, SourceUnchecked, "")
	}
}

// missingDependency recovers the hash the ledger was waiting on from a
// gap result: the block's own Previous for GapPrevious, its Link/Source
// for GapSource. An epoch-open gates on any pending send arriving for
// its account rather than on one specific hash, so it is keyed by the
// account root and released when a send linking that account lands.
func missingDependency(blk types.Block, result ledger.ProcessResult) types.Hash {
	switch b := blk.(type) {
	case *types.SendBlock:
		return b.Previous()
	case *types.ReceiveBlock:
		if result == ledger.GapSource {
			return b.Source()
		}
		return b.Previous()
	case *types.OpenBlock:
		return b.Source()
	case *types.ChangeBlock:
		return b.Previous()
	case *types.StateBlock:
		if result == ledger.GapEpochOpenPending {
			return types.Hash(b.Account())
		}
		if result == ledger.GapSource {
			return b.Link()
		}
		return b.Previous()
	default:
		return blk.Hash()
	}
}

// linkedAccount names the account a processed block may have credited:
// the destination of a send, or a state block's link interpreted as
// one. A spurious resolution for a non-send state block is harmless;
// the re-submitted dependents simply gap again.
func linkedAccount(blk types.Block) (types.Account, bool) {
	switch b := blk.(type) {
	case *types.SendBlock:
		return b.Destination(), true
	case *types.StateBlock:
		if b.Link().IsZero() {
			return types.Account{}, false
		}
		return types.Account(b.Link()), true
	default:
		return types.Account{}, false
	}
}

// reportForkLocked resolves the block already occupying the candidate's
// qualified root, under the same write transaction the fork was
// detected in, and emits it on forkFeed for election arbitration.
func (p *Processor) reportForkLocked(txn store.Reader, candidate types.Block) {
	existing, root, ok := existingAtRoot(txn, candidate)
	if !ok {
		return
	}
	p.forkFeed.Send(Forked{Candidate: candidate, Existing: existing, Root: root})
}

func existingAtRoot(txn store.Reader, candidate types.Block) (types.Block, types.QualifiedRoot, bool) {
	root := candidate.QualifiedRoot()
	if !candidate.Previous().IsZero() {
		_, prevSideband, err := store.NewBlocks(txn).Get(candidate.Previous())
		if err != nil || prevSideband.Successor.IsZero() {
			return nil, root, false
		}
		existing, _, err := store.NewBlocks(txn).Get(prevSideband.Successor)
		if err != nil {
			return nil, root, false
		}
		return existing, root, true
	}

	var account types.Account
	switch b := candidate.(type) {
	case *types.OpenBlock:
		account = b.Account()
	case *types.StateBlock:
		account = b.Account()
	default:
		return nil, root, false
	}
	info, err := store.NewAccounts(txn).Get(account)
	if err != nil {
		return nil, root, false
	}
	existing, _, err := store.NewBlocks(txn).Get(info.OpenBlock)
	if err != nil {
		return nil, root, false
	}
	return existing, root, true
}
