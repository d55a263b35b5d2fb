package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
)

func (l *Ledger) processSend(txn store.WriteTxn, blk *types.SendBlock) ProcessResult {
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
	newBalance := blk.Balance()
	sent, underflow := info.Balance.Sub(newBalance)
	if underflow {
		return NegativeSpend
	}

	sb := types.Sideband{
		Account:        account,
		Height:         prevSideband.Height + 1,
		Balance:        newBalance,
		Timestamp:      l.cfg.Clock(),
		Details:        types.BlockDetails{IsSend: true, Epoch: info.Epoch},
		Representative: info.Representative,
	}

	if err := store.PutBlock(txn, blk, sb); err != nil {
		panic(err)
	}
	prevSideband.Successor = blk.Hash()
	if err := store.PutBlock(txn, prevBlock, prevSideband); err != nil {
		panic(err)
	}
	pendingKey := types.PendingKey{Destination: blk.Destination(), Send: blk.Hash()}
	if err := store.PutPending(txn, pendingKey, types.PendingInfo{Source: account, Amount: sent, Epoch: info.Epoch}); err != nil {
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
