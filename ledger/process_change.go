package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
)

func (l *Ledger) processChange(txn store.WriteTxn, blk *types.ChangeBlock) ProcessResult {
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
	if res := l.verifyWork(blk.Previous(), blk.Work(), work.ClassSend, info.Epoch); res != Progress {
		return res
	}

	sb := types.Sideband{
		Account:        account,
		Height:         prevSideband.Height + 1,
		Balance:        info.Balance,
		Timestamp:      l.cfg.Clock(),
		Details:        types.BlockDetails{Epoch: info.Epoch},
		Representative: blk.Representative(),
	}
	if err := store.PutBlock(txn, blk, sb); err != nil {
		panic(err)
	}
	prevSideband.Successor = blk.Hash()
	if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
		panic(err)
	}

	newInfo := types.AccountInfo{
		Head:           blk.Hash(),
		Representative: blk.Representative(),
		OpenBlock:      info.OpenBlock,
		Balance:        info.Balance,
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
	l.weights.Move(info.Representative, newInfo.Representative, info.Balance, info.Balance)
	return Progress
}
