package active

import (
	"context"
	"testing"

	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/votecache"
	"github.com/stretchr/testify/require"
)

func putAccountHead(t *testing.T, db store.KV, account types.Account, blk types.Block, balance types.Amount, cemented bool) {
	t.Helper()
	err := db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		if err := store.PutBlock(txn, blk, types.Sideband{}); err != nil {
			return err
		}
		info := types.AccountInfo{
			Head:      blk.Hash(),
			OpenBlock: blk.Hash(),
			Balance:   balance,
		}
		if err := store.PutAccountInfo(txn, account, info); err != nil {
			return err
		}
		var frontier types.Hash
		if cemented {
			frontier = blk.Hash()
		}
		return store.PutConfirmationHeight(txn, account, types.ConfirmationHeightInfo{Height: 1, Frontier: frontier})
	})
	require.NoError(t, err)
}

func TestPrioritySchedulerInsertsAboveThreshold(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()

	rich := acct(1)
	poor := acct(2)
	richBlock := types.NewChangeBlock(hash(1), acct(9), [64]byte{}, 0)
	poorBlock := types.NewChangeBlock(hash(2), acct(9), [64]byte{}, 0)

	putAccountHead(t, db, rich, richBlock, types.NewAmount(1000), false)
	putAccountHead(t, db, poor, poorBlock, types.NewAmount(1), false)

	sched := NewPriorityScheduler(db, []types.Amount{types.NewAmount(500)}, 10, 100)
	r, _, _ := newTestRegistry(t, 8)

	n, err := sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, ok := r.Find(richBlock.QualifiedRoot())
	require.True(t, ok)
	_, ok = r.Find(poorBlock.QualifiedRoot())
	require.False(t, ok)
}

func TestPrioritySchedulerSkipsAlreadyCemented(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()

	account := acct(1)
	blk := types.NewChangeBlock(hash(1), acct(9), [64]byte{}, 0)
	putAccountHead(t, db, account, blk, types.NewAmount(1000), true)

	sched := NewPriorityScheduler(db, []types.Amount{types.NewAmount(500)}, 10, 100)
	r, _, _ := newTestRegistry(t, 8)

	n, err := sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestOptimisticSchedulerOnlyActsOnNotified(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()

	notified := acct(1)
	other := acct(2)
	notifiedBlock := types.NewChangeBlock(hash(1), acct(9), [64]byte{}, 0)
	otherBlock := types.NewChangeBlock(hash(2), acct(9), [64]byte{}, 0)
	putAccountHead(t, db, notified, notifiedBlock, types.NewAmount(1), false)
	putAccountHead(t, db, other, otherBlock, types.NewAmount(1), false)

	sched := NewOptimisticScheduler(db, 10)
	sched.Notify(notified)

	r, _, _ := newTestRegistry(t, 8)
	n, err := sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, ok := r.Find(notifiedBlock.QualifiedRoot())
	require.True(t, ok)
	_, ok = r.Find(otherBlock.QualifiedRoot())
	require.False(t, ok)

	n, err = sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 0, n, "a second tick with nothing renotified must do nothing")
}

func TestHintedSchedulerPromotesTopCacheEntries(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()

	blk := types.NewChangeBlock(hash(1), acct(9), [64]byte{}, 0)
	err := db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		return store.PutBlock(txn, blk, types.Sideband{})
	})
	require.NoError(t, err)

	cache := votecache.New(8, 4)
	cache.Vote(blk.Hash(), acct(1), 1, types.NewAmount(1000))

	sched := NewHintedScheduler(db, cache, types.NewAmount(1), 10)
	r, _, _ := newTestRegistry(t, 8)

	n, err := sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, ok := r.Find(blk.QualifiedRoot())
	require.True(t, ok)
	_, ok = cache.Find(blk.Hash())
	require.False(t, ok, "promoted entries must be erased from the cache")
}

func TestManualSchedulerDrainsQueue(t *testing.T) {
	sched := NewManualScheduler()
	blk := types.NewChangeBlock(hash(1), acct(9), [64]byte{}, 0)
	sched.Queue(blk)

	r, _, _ := newTestRegistry(t, 8)
	n, err := sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = sched.Tick(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
