package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
)

func (l *Ledger) processState(txn store.WriteTxn, blk *types.StateBlock) ProcessResult {
	account := blk.Account()
	if blk.Previous().IsZero() {
		return l.processStateOpen(txn, blk, account)
	}
	return l.processStateContinuation(txn, blk, account)
}

// processStateOpen handles a state block whose Previous is zero: the
// first block of account's chain, either an ordinary receive-shaped
// open or an epoch upgrade opening the chain ahead of any receive.
func (l *Ledger) processStateOpen(txn store.WriteTxn, blk *types.StateBlock, account types.Account) ProcessResult {
	if account == burnAccount {
		return OpenedBurnAccount
	}
	if has, _ := store.NewAccounts(txn).Has(account); has {
		return Fork
	}

	if epoch, isEpoch := l.matchEpochLink(blk.Link()); isEpoch {
		if !types.VerifyBlockSignature(l.cfg.EpochSigners[epoch], blk) {
			return BadSignature
		}
		if !blk.Balance().IsZero() {
			return BalanceMismatch
		}
		if !blk.Representative().IsZero() {
			return RepresentativeMismatch
		}
		_, infos, err := store.NewPending(txn).ByDestination(account)
		if err != nil {
			panic(err)
		}
		if len(infos) == 0 {
			return GapEpochOpenPending
		}
		sb := types.Sideband{
			Account:   account,
			Height:    1,
			Balance:   types.ZeroAmount,
			Timestamp: l.cfg.Clock(),
			Details:   types.BlockDetails{IsEpoch: true, Epoch: epoch},
			// No representative yet: an epoch-open precedes any receive,
			// so the chain has none until a later block sets one.
			Representative: types.Account{},
		}
		if err := store.PutBlock(txn, blk, sb); err != nil {
			panic(err)
		}
		info := types.AccountInfo{
			Head:       blk.Hash(),
			OpenBlock:  blk.Hash(),
			Balance:    types.ZeroAmount,
			Modified:   l.cfg.Clock(),
			BlockCount: 1,
			Epoch:      epoch,
		}
		if err := store.PutAccountInfo(txn, account, info); err != nil {
			panic(err)
		}
		return Progress
	}

	if _, _, err := store.NewBlocks(txn).Get(blk.Link()); err != nil {
		return GapSource
	}
	pendingKey := types.PendingKey{Destination: account, Send: blk.Link()}
	pending, err := store.NewPending(txn).Get(pendingKey)
	if err != nil {
		return Unreceivable
	}
	if !types.VerifyBlockSignature(account, blk) {
		return BadSignature
	}
	if blk.Balance().Cmp(pending.Amount) != 0 {
		return BalanceMismatch
	}
	if res := l.verifyWork(types.Hash(account), blk.Work(), work.ClassReceive, pending.Epoch); res != Progress {
		return res
	}

	sb := types.Sideband{
		Account:        account,
		Height:         1,
		Balance:        blk.Balance(),
		Timestamp:      l.cfg.Clock(),
		Details:        types.BlockDetails{IsReceive: true, Epoch: pending.Epoch},
		SourceEpoch:    pending.Epoch,
		Representative: blk.Representative(),
	}
	if err := store.PutBlock(txn, blk, sb); err != nil {
		panic(err)
	}
	if err := store.DeletePending(txn, pendingKey); err != nil {
		panic(err)
	}
	info := types.AccountInfo{
		Head:           blk.Hash(),
		Representative: blk.Representative(),
		OpenBlock:      blk.Hash(),
		Balance:        blk.Balance(),
		Modified:       l.cfg.Clock(),
		BlockCount:     1,
		Epoch:          pending.Epoch,
	}
	if err := store.PutAccountInfo(txn, account, info); err != nil {
		panic(err)
	}
	l.weights.Add(blk.Representative(), blk.Balance())
	return Progress
}

// processStateContinuation handles a state block extending an
// existing chain, classifying it as change/send/receive/epoch by
// comparing balance against the account's prior state and matching
// the link.
func (l *Ledger) processStateContinuation(txn store.WriteTxn, blk *types.StateBlock, account types.Account) ProcessResult {
	prevBlock, prevSideband, err := store.NewBlocks(txn).Get(blk.Previous())
	if err != nil {
		return GapPrevious
	}
	if prevSideband.Account != account {
		return GapPrevious
	}
	info, err := store.NewAccounts(txn).Get(account)
	if err != nil {
		return GapPrevious
	}
	if res := checkFork(prevSideband, blk.Hash()); res != Progress {
		return res
	}
	cmp := blk.Balance().Cmp(info.Balance)
	_, isEpochLink := l.matchEpochLink(blk.Link())
	isEpochUpgrade := isEpochLink && cmp == 0
	if !isEpochUpgrade && !types.VerifyBlockSignature(account, blk) {
		return BadSignature
	}

	var (
		details   types.BlockDetails
		sourceEp  types.Epoch
		pendKey   types.PendingKey
		pendInfo  types.PendingInfo
		isSend    bool
		isReceive bool
	)

	switch {
	case blk.Link().IsZero():
		if cmp != 0 {
			return BalanceMismatch
		}
		if res := l.verifyWork(blk.Previous(), blk.Work(), work.ClassSend, info.Epoch); res != Progress {
			return res
		}
		details = types.BlockDetails{Epoch: info.Epoch}

	case cmp < 0:
		isSend = true
		destination := types.Account(blk.Link())
		sent, underflow := info.Balance.Sub(blk.Balance())
		if underflow {
			return NegativeSpend
		}
		if res := l.verifyWork(blk.Previous(), blk.Work(), work.ClassSend, info.Epoch); res != Progress {
			return res
		}
		pendKey = types.PendingKey{Destination: destination, Send: blk.Hash()}
		pendInfo = types.PendingInfo{Source: account, Amount: sent, Epoch: info.Epoch}
		details = types.BlockDetails{IsSend: true, Epoch: info.Epoch}

	case cmp > 0 || isEpochUpgrade:
		if epoch, isEpoch := l.matchEpochLink(blk.Link()); isEpoch {
			if !blk.Representative().IsZero() && blk.Representative() != info.Representative {
				return RepresentativeMismatch
			}
			if blk.Balance().Cmp(info.Balance) != 0 {
				return BalanceMismatch
			}
			if !types.VerifyBlockSignature(l.cfg.EpochSigners[epoch], blk) {
				return BadSignature
			}
			sb := types.Sideband{
				Account:        account,
				Height:         prevSideband.Height + 1,
				Balance:        info.Balance,
				Timestamp:      l.cfg.Clock(),
				Details:        types.BlockDetails{IsEpoch: true, Epoch: epoch},
				Representative: info.Representative,
			}
			if err := store.PutBlock(txn, blk, sb); err != nil {
				panic(err)
			}
			prevSideband.Successor = blk.Hash()
			if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
				panic(err)
			}
			newInfo := info
			newInfo.Head = blk.Hash()
			newInfo.Modified = l.cfg.Clock()
			newInfo.BlockCount = info.BlockCount + 1
			newInfo.Epoch = epoch
			if err := store.PutAccountInfo(txn, account, newInfo); err != nil {
				panic(err)
			}
			return Progress
		}
		isReceive = true
		pendKey = types.PendingKey{Destination: account, Send: blk.Link()}
		pending, perr := store.NewPending(txn).Get(pendKey)
		if perr != nil {
			if _, _, berr := store.NewBlocks(txn).Get(blk.Link()); berr != nil {
				return GapSource
			}
			return Unreceivable
		}
		if pending.Epoch > info.Epoch {
			return Unreceivable
		}
		gained, _ := blk.Balance().Sub(info.Balance)
		if gained.Cmp(pending.Amount) != 0 {
			return BalanceMismatch
		}
		if res := l.verifyWork(blk.Previous(), blk.Work(), work.ClassReceive, info.Epoch); res != Progress {
			return res
		}
		pendInfo = pending
		sourceEp = pending.Epoch
		details = types.BlockDetails{IsReceive: true, Epoch: info.Epoch}
	}

	sb := types.Sideband{
		Account:        account,
		Height:         prevSideband.Height + 1,
		Balance:        blk.Balance(),
		Timestamp:      l.cfg.Clock(),
		Details:        details,
		SourceEpoch:    sourceEp,
		Representative: blk.Representative(),
	}
	if err := store.PutBlock(txn, blk, sb); err != nil {
		panic(err)
	}
	prevSideband.Successor = blk.Hash()
	if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
		panic(err)
	}
	if isSend {
		if err := store.PutPending(txn, pendKey, pendInfo); err != nil {
			panic(err)
		}
	}
	if isReceive {
		if err := store.DeletePending(txn, pendKey); err != nil {
			panic(err)
		}
	}

	newInfo := types.AccountInfo{
		Head:           blk.Hash(),
		Representative: blk.Representative(),
		OpenBlock:      info.OpenBlock,
		Balance:        blk.Balance(),
		Modified:       l.cfg.Clock(),
		BlockCount:     info.BlockCount + 1,
		Epoch:          info.Epoch,
	}
	if err := store.PutAccountInfo(txn, account, newInfo); err != nil {
		panic(err)
	}
	l.weights.Move(info.Representative, newInfo.Representative, info.Balance, newInfo.Balance)
	return Progress
}

func (l *Ledger) matchEpochLink(link types.Hash) (types.Epoch, bool) {
	for epoch := range l.cfg.EpochSigners {
		if marker, ok := types.EpochLink(epoch); ok && marker == link {
			return epoch, true
		}
	}
	return types.EpochUnspecified, false
}
