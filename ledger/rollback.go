package ledger

import (
	"errors"

	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

var (
	// ErrBlockNotFound is returned by Rollback when hash is not stored.
	ErrBlockNotFound = errors.New("ledger: block not found")
	// ErrNotOnChain is returned by Rollback when hash is not reachable
	// by walking Previous() from its account's current head.
	ErrNotOnChain = errors.New("ledger: block not on account's current chain")
	// ErrCemented is returned by Rollback when hash (or a descendant
	// being removed with it) is already cemented.
	ErrCemented = errors.New("ledger: cannot roll back a cemented block")
)

// Rollback removes hash and every descendant block already applied
// after it on its account's chain, reversing each one's pending,
// account_info and representative-weight effects in strict reverse
// application order. It fails without mutating txn if hash or any of
// its descendants is cemented.
func (l *Ledger) Rollback(txn store.WriteTxn, hash types.Hash) error {
	_, targetSideband, err := store.NewBlocks(txn).Get(hash)
	if err != nil {
		return ErrBlockNotFound
	}
	account := targetSideband.Account

	info, err := store.NewAccounts(txn).Get(account)
	if err != nil {
		return ErrBlockNotFound
	}
	height, err := store.NewConfirmationHeight(txn).Get(account)
	if err != nil {
		return err
	}
	if targetSideband.Height <= height.Height {
		return ErrCemented
	}

	// Collect hash and its descendants, head-first (the order blocks
	// must be undone in), by walking Previous() back from the current
	// head until hash is reached.
	chain := []types.Hash{info.Head}
	cursor := info.Head
	for cursor != hash {
		curBlk, _, err := store.NewBlocks(txn).Get(cursor)
		if err != nil {
			return err
		}
		prev := curBlk.Previous()
		if prev.IsZero() {
			return ErrNotOnChain
		}
		cursor = prev
		chain = append(chain, cursor)
	}

	for _, h := range chain {
		if err := l.undoOne(txn, h); err != nil {
			return err
		}
	}
	return nil
}

// undoOne removes h, which must currently be account's head, and
// restores account_info/pending/representative-weight state to what
// it was immediately before h was processed.
func (l *Ledger) undoOne(txn store.WriteTxn, h types.Hash) error {
	blk, sb, err := store.NewBlocks(txn).Get(h)
	if err != nil {
		return err
	}
	account := sb.Account
	info, err := store.NewAccounts(txn).Get(account)
	if err != nil {
		return err
	}

	if h == info.OpenBlock {
		return l.undoOpen(txn, blk, sb, account)
	}
	return l.undoContinuation(txn, blk, sb, info)
}

func (l *Ledger) undoOpen(txn store.WriteTxn, blk types.Block, sb types.Sideband, account types.Account) error {
	// An epoch-open consumed no pending entry, so there is nothing to
	// restore for it.
	if sb.Details.IsReceive {
		if err := unreceive(txn, blk, sb, types.ZeroAmount); err != nil {
			return err
		}
	}
	l.weights.Sub(sb.Representative, sb.Balance)
	if err := store.DeleteBlock(txn, blk.Hash()); err != nil {
		return err
	}
	if err := store.DeleteAccountInfo(txn, account); err != nil {
		return err
	}
	if blk.Type().IsLegacy() {
		if err := store.DeleteFrontier(txn, blk.Hash()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) undoContinuation(txn store.WriteTxn, blk types.Block, sb types.Sideband, info types.AccountInfo) error {
	prevBlock, prevSideband, err := store.NewBlocks(txn).Get(blk.Previous())
	if err != nil {
		return err
	}

	if sb.Details.IsSend {
		if err := unsend(txn, blk); err != nil {
			return err
		}
	} else if sb.Details.IsReceive {
		if err := unreceive(txn, blk, sb, prevSideband.Balance); err != nil {
			return err
		}
	}

	l.weights.Move(sb.Representative, prevSideband.Representative, sb.Balance, prevSideband.Balance)

	if err := store.DeleteBlock(txn, blk.Hash()); err != nil {
		return err
	}
	prevSideband.Successor = types.Hash{}
	if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
		return err
	}

	restored := types.AccountInfo{
		Head:           blk.Previous(),
		Representative: prevSideband.Representative,
		OpenBlock:      info.OpenBlock,
		Balance:        prevSideband.Balance,
		Modified:       l.cfg.Clock(),
		BlockCount:     info.BlockCount - 1,
		Epoch:          prevSideband.Details.Epoch,
	}
	if err := store.PutAccountInfo(txn, sb.Account, restored); err != nil {
		return err
	}

	if blk.Type().IsLegacy() {
		if err := store.DeleteFrontier(txn, blk.Hash()); err != nil {
			return err
		}
		if err := store.PutFrontier(txn, blk.Previous(), sb.Account); err != nil {
			return err
		}
	}
	return nil
}

// unsend deletes the pending entry blk's send created.
func unsend(txn store.WriteTxn, blk types.Block) error {
	destination, ok := pendingDestination(blk)
	if !ok {
		return nil
	}
	return store.DeletePending(txn, types.PendingKey{Destination: destination, Send: blk.Hash()})
}

// unreceive restores the pending entry blk's receive consumed.
// balanceBefore is the account's balance immediately before blk was
// applied, so the restored amount is sb.Balance - balanceBefore.
func unreceive(txn store.WriteTxn, blk types.Block, sb types.Sideband, balanceBefore types.Amount) error {
	source, ok := pendingSource(blk)
	if !ok {
		return nil
	}
	_, sourceSideband, err := store.NewBlocks(txn).Get(source)
	if err != nil {
		return err
	}
	gained, underflow := sb.Balance.Sub(balanceBefore)
	if underflow {
		gained = sb.Balance
	}
	key := types.PendingKey{Destination: sb.Account, Send: source}
	return store.PutPending(txn, key, types.PendingInfo{
		Source: sourceSideband.Account,
		Amount: gained,
		Epoch:  sb.SourceEpoch,
	})
}

func pendingDestination(blk types.Block) (types.Account, bool) {
	switch b := blk.(type) {
	case *types.SendBlock:
		return b.Destination(), true
	case *types.StateBlock:
		return types.Account(b.Link()), true
	default:
		return types.Account{}, false
	}
}

func pendingSource(blk types.Block) (types.Hash, bool) {
	switch b := blk.(type) {
	case *types.ReceiveBlock:
		return b.Source(), true
	case *types.OpenBlock:
		return b.Source(), true
	case *types.StateBlock:
		return b.Link(), true
	default:
		return types.Hash{}, false
	}
}
