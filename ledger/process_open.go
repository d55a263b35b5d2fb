package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
)

func (l *Ledger) processOpen(txn store.WriteTxn, blk *types.OpenBlock) ProcessResult {
	account := blk.Account()
	if account == burnAccount {
		return OpenedBurnAccount
	}
	if has, _ := store.NewAccounts(txn).Has(account); has {
		return Fork
	}
	if _, _, err := store.NewBlocks(txn).Get(blk.Source()); err != nil {
		return GapSource
	}
	pendingKey := types.PendingKey{Destination: account, Send: blk.Source()}
	pending, err := store.NewPending(txn).Get(pendingKey)
	if err != nil {
		return Unreceivable
	}
	if !types.VerifyBlockSignature(account, blk) {
		return BadSignature
	}
	if res := l.verifyWork(types.Hash(account), blk.Work(), work.ClassReceive, pending.Epoch); res != Progress {
		return res
	}

	sb := types.Sideband{
		Account:        account,
		Height:         1,
		Balance:        pending.Amount,
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
		Balance:        pending.Amount,
		Modified:       l.cfg.Clock(),
		BlockCount:     1,
		Epoch:          pending.Epoch,
	}
	if err := store.PutAccountInfo(txn, account, info); err != nil {
		panic(err)
	}
	if err := store.PutFrontier(txn, blk.Hash(), account); err != nil {
		panic(err)
	}
	l.weights.Add(blk.Representative(), pending.Amount)
	return Progress
}
