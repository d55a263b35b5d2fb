package confirm

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/coreledger/coreledger-node/active"
	"github.com/coreledger/coreledger-node/election"
	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
	"github.com/stretchr/testify/require"
)

type alwaysValidWork struct{}

func (alwaysValidWork) Validate(types.Hash, uint64, work.Class) bool { return true }

type keypair struct {
	account types.Account
	priv    ed25519.PrivateKey
}

func newKeypair(t *testing.T) keypair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var a types.Account
	copy(a[:], pub)
	return keypair{account: a, priv: priv}
}

func signedStateBlock(kp keypair, previous types.Hash, representative, acct types.Account, balance types.Amount, link types.Hash) *types.StateBlock {
	unsigned := types.NewStateBlock(acct, representative, previous, balance, link, [64]byte{}, 1)
	h := unsigned.Hash()
	sig := ed25519.Sign(kp.priv, h[:])
	var sigArr [64]byte
	copy(sigArr[:], sig)
	return types.NewStateBlock(acct, representative, previous, balance, link, sigArr, 1)
}

func seedGenesis(t *testing.T, l *ledger.Ledger, txn store.WriteTxn, g keypair, balance types.Amount) types.Hash {
	t.Helper()
	open := signedStateBlock(g, types.Hash{}, g.account, g.account, balance, types.Hash{})
	sb := types.Sideband{
		Account:        g.account,
		Height:         1,
		Balance:        balance,
		Details:        types.BlockDetails{IsReceive: true},
		Representative: g.account,
	}
	require.NoError(t, store.PutBlock(txn, open, sb))
	require.NoError(t, store.PutAccountInfo(txn, g.account, types.AccountInfo{
		Head: open.Hash(), Representative: g.account, OpenBlock: open.Hash(),
		Balance: balance, BlockCount: 1,
	}))
	l.Weights().Add(g.account, balance)
	return open.Hash()
}

func newTestSet(db store.KV, l *ledger.Ledger) *Set {
	return New(Config{Ledger: l, Store: db, BatchInterval: time.Hour})
}

func TestConfirmOneSweepsUncementedAncestors(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	g := newKeypair(t)

	var genesisHash, changeHash, change2Hash types.Hash
	require.NoError(t, db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		genesisHash = seedGenesis(t, l, txn, g, types.NewAmount(1_000_000))
		change := signedStateBlock(g, genesisHash, g.account, g.account, types.NewAmount(1_000_000), types.Hash{})
		changeHash = change.Hash()
		require.Equal(t, ledger.Progress, l.Process(txn, change))
		change2 := signedStateBlock(g, changeHash, g.account, g.account, types.NewAmount(1_000_000), types.Hash{})
		change2Hash = change2.Hash()
		require.Equal(t, ledger.Progress, l.Process(txn, change2))
		return nil
	}))

	set := newTestSet(db, l)
	var events []Confirmed
	ch := make(chan Confirmed, 8)
	sub := set.Subscribe(ch)
	defer sub.Unsubscribe()

	require.NoError(t, db.Update(store.WriterConfirmingSet, func(txn store.WriteTxn) error {
		ev, err := set.confirmOne(txn, change2Hash)
		events = ev
		return err
	}))
	require.Len(t, events, 3, "genesis open, first change and second change must all be swept")
	require.Equal(t, genesisHash, events[0].Block.Hash())
	require.Equal(t, changeHash, events[1].Block.Hash())
	require.Equal(t, change2Hash, events[2].Block.Hash())

	require.NoError(t, db.View(func(txn store.Txn) error {
		height, err := store.NewConfirmationHeight(txn).Get(g.account)
		require.NoError(t, err)
		require.Equal(t, uint64(3), height.Height)
		require.Equal(t, change2Hash, height.Frontier)
		return nil
	}))
}

func TestConfirmOneNoopWhenAlreadyCemented(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	g := newKeypair(t)

	var genesisHash types.Hash
	require.NoError(t, db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		genesisHash = seedGenesis(t, l, txn, g, types.NewAmount(1_000_000))
		return store.PutConfirmationHeight(txn, g.account, types.ConfirmationHeightInfo{Height: 1, Frontier: genesisHash})
	}))

	set := newTestSet(db, l)
	require.NoError(t, db.Update(store.WriterConfirmingSet, func(txn store.WriteTxn) error {
		events, err := set.confirmOne(txn, genesisHash)
		require.Empty(t, events)
		return err
	}))
}

func TestCementEnqueuesAndRunOnceEmits(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	g := newKeypair(t)

	var genesisHash types.Hash
	var open *types.StateBlock
	require.NoError(t, db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		genesisHash = seedGenesis(t, l, txn, g, types.NewAmount(1_000_000))
		return nil
	}))
	require.NoError(t, db.View(func(txn store.Txn) error {
		blk, _, err := store.NewBlocks(txn).Get(genesisHash)
		open = blk.(*types.StateBlock)
		return err
	}))

	set := newTestSet(db, l)
	ch := make(chan Confirmed, 8)
	sub := set.Subscribe(ch)
	defer sub.Unsubscribe()

	require.NoError(t, set.Cement(open))
	set.RunOnce()

	select {
	case ev := <-ch:
		require.Equal(t, genesisHash, ev.Block.Hash())
	default:
		t.Fatal("expected a Confirmed event after RunOnce")
	}

	require.NoError(t, db.View(func(txn store.Txn) error {
		height, err := store.NewConfirmationHeight(txn).Get(g.account)
		require.NoError(t, err)
		require.Equal(t, uint64(1), height.Height)
		return nil
	}))
}

func TestRollbackAndReprocessAppliesWinner(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	g := newKeypair(t)
	a := newKeypair(t)

	var genesisHash types.Hash
	var loser *types.StateBlock
	var winner *types.StateBlock
	require.NoError(t, db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		genesisHash = seedGenesis(t, l, txn, g, types.NewAmount(1_000_000))
		loser = signedStateBlock(g, genesisHash, g.account, g.account, types.NewAmount(999_900), types.Hash(a.account))
		require.Equal(t, ledger.Progress, l.Process(txn, loser))
		return nil
	}))
	// winner is a different block extending the same previous (a fork
	// at the same qualified root): a plain representative change instead
	// of the send loser carried.
	winner = signedStateBlock(g, genesisHash, g.account, g.account, types.NewAmount(1_000_000), types.Hash{})

	set := newTestSet(db, l)
	require.NoError(t, set.RollbackAndReprocess(loser, winner))

	require.NoError(t, db.View(func(txn store.Txn) error {
		info, err := store.NewAccounts(txn).Get(g.account)
		require.NoError(t, err)
		require.Equal(t, winner.Hash(), info.Head)
		require.True(t, info.Balance.Cmp(types.NewAmount(1_000_000)) == 0)
		return nil
	}))
}

func TestSetStartStop(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	set := newTestSet(db, l)
	set.cfg.BatchInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	set.Start(ctx)
	cancel()
	_ = set.Stop()
}

// Fork resolution end to end: the first-seen fork candidate is in the
// ledger, a final vote with quorum weight lands on the other, and the
// election's confirmation rolls the loser back, applies the winner and
// cements it.
func TestForkResolvedByFinalVote(t *testing.T) {
	db := store.NewMemDB()
	defer db.Close()
	l := ledger.New(ledger.Config{Work: alwaysValidWork{}, Clock: func() int64 { return 100 }})
	g := newKeypair(t)
	a := newKeypair(t)
	b := newKeypair(t)

	var genesisHash types.Hash
	var s1 *types.StateBlock
	require.NoError(t, db.Update(store.WriterTesting, func(txn store.WriteTxn) error {
		genesisHash = seedGenesis(t, l, txn, g, types.NewAmount(1_000_000))
		s1 = signedStateBlock(g, genesisHash, g.account, g.account, types.NewAmount(999_900), types.Hash(a.account))
		require.Equal(t, ledger.Progress, l.Process(txn, s1))
		return nil
	}))
	s2 := signedStateBlock(g, genesisHash, g.account, g.account, types.NewAmount(999_900), types.Hash(b.account))

	set := newTestSet(db, l)
	registry := active.New(active.Config{
		Capacity: 8,
		ElectionCfg: election.Config{
			Weights:             l.Weights(),
			QuorumDelta:         func() types.Amount { return types.NewAmount(600_000) },
			ConfirmationMinTime: 1_000_000,
			Clock:               func() int64 { return 100 },
		},
		Handler: set,
	})

	e, created := registry.Insert(s1)
	require.True(t, created)
	e.AddBlock(s2)

	deliveries := registry.Vote(g.account, types.FinalTimestamp, s2.Hash())
	require.Len(t, deliveries, 1)
	set.RunOnce()

	require.NoError(t, db.View(func(txn store.Txn) error {
		has, err := store.NewBlocks(txn).Has(s1.Hash())
		require.NoError(t, err)
		require.False(t, has, "the losing fork must be rolled back")

		info, err := store.NewAccounts(txn).Get(g.account)
		require.NoError(t, err)
		require.Equal(t, s2.Hash(), info.Head)

		height, err := store.NewConfirmationHeight(txn).Get(g.account)
		require.NoError(t, err)
		require.Equal(t, uint64(2), height.Height)
		require.Equal(t, s2.Hash(), height.Frontier)
		return nil
	}))
}
