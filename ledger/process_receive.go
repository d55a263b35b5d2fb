package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
)

func (l *Ledger) processReceive(txn store.WriteTxn, blk *types.ReceiveBlock) ProcessResult {
	prevBlock, prevSideband, info, res := l.predecessor(txn, blk.Previous())
	if res != Progress {
		return res
	}
	if !prevBlock.Type().IsLegacy() {
		return BlockPositionMispredecessor
	}
	if res := checkFork(prevSideband, blk.Hash()); res != Progress {
		return res
	}
	account := prevSideband.Account
	if !types.VerifyBlockSignature(account, blk) {
		return BadSignature
	}

	if _, _, err := store.NewBlocks(txn).Get(blk.Source()); err != nil {
		return GapSource
	}
	pendingKey := types.PendingKey{Destination: account, Send: blk.Source()}
	pending, err := store.NewPending(txn).Get(pendingKey)
	if err != nil {
		return Unreceivable
	}
	// A receive cannot pull in value sent under an epoch the
	// receiving account has not yet upgraded to.
	if pending.Epoch > info.Epoch {
		return Unreceivable
	}

	if res := l.verifyWork(blk.Previous(), blk.Work(), work.ClassReceive, info.Epoch); res != Progress {
		return res
	}

	newBalance := info.Balance.Add(pending.Amount)
	sb := types.Sideband{
		Account:        account,
		Height:         prevSideband.Height + 1,
		Balance:        newBalance,
		Timestamp:      l.cfg.Clock(),
		Details:        types.BlockDetails{IsReceive: true, Epoch: info.Epoch},
		SourceEpoch:    pending.Epoch,
		Representative: info.Representative,
	}

	if err := store.PutBlock(txn, blk, sb); err != nil {
		panic(err)
	}
	prevSideband.Successor = blk.Hash()
	if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
		panic(err)
	}
	if err := store.DeletePending(txn, pendingKey); err != nil {
		panic(err)
	}

	newInfo := types.AccountInfo{
		Head:           blk.Hash(),
		Representative: info.Representative,
		OpenBlock:      info.OpenBlock,
		Balance:        newBalance,
		Modified:       l.cfg.Clock(),
		BlockCount:     info.BlockCount + 1,
		Epoch:          info.Epoch,
	}
	if err := store.PutAccountInfo(txn, account, newInfo); err != nil {
		panic(err)
	}
	if err := store.DeleteFrontier(txn, info.Head); err != nil {
		panic(err)
	}
	if err := store.PutFrontier(txn, blk.Hash(), account); err != nil {
		panic(err)
	}
	l.weights.Move(info.Representative, newInfo.Representative, info.Balance, newBalance)
	return Progress
}
