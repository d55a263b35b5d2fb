package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/coreledger/coreledger-node/types"
	"github.com/stretchr/testify/require"
)

// backends runs a subtest against both the in-memory store and the
// goleveldb-backed one, keeping the two implementations honest against
// the same KV contract.
func backends(t *testing.T, fn func(t *testing.T, db KV)) {
	t.Helper()
	t.Run("memdb", func(t *testing.T) {
		db := NewMemDB()
		defer db.Close()
		fn(t, db)
	})
	t.Run("leveldb", func(t *testing.T) {
		db, err := OpenLevelDB(filepath.Join(t.TempDir(), "ledger"))
		require.NoError(t, err)
		defer db.Close()
		fn(t, db)
	})
}

func TestUpdateIsAtomicOnError(t *testing.T) {
	backends(t, func(t *testing.T, db KV) {
		failed := errors.New("deliberate")
		err := db.Update(WriterTesting, func(txn WriteTxn) error {
			require.NoError(t, txn.Put(TableAccounts, []byte("k"), []byte("v")))
			return failed
		})
		require.ErrorIs(t, err, failed)

		require.NoError(t, db.View(func(txn Txn) error {
			_, err := txn.Get(TableAccounts, []byte("k"))
			require.ErrorIs(t, err, ErrNotFound, "a failing Update must leave nothing behind")
			return nil
		}))
	})
}

func TestWriteTxnReadsItsOwnStagedWrites(t *testing.T) {
	backends(t, func(t *testing.T, db KV) {
		require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
			require.NoError(t, txn.Put(TableBlocks, []byte("a"), []byte("1")))
			v, err := txn.Get(TableBlocks, []byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), v)

			require.NoError(t, txn.Delete(TableBlocks, []byte("a")))
			_, err = txn.Get(TableBlocks, []byte("a"))
			require.ErrorIs(t, err, ErrNotFound)
			return nil
		}))
	})
}

func TestTablesAreDisjoint(t *testing.T) {
	backends(t, func(t *testing.T, db KV) {
		require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
			require.NoError(t, txn.Put(TableBlocks, []byte("k"), []byte("blocks")))
			require.NoError(t, txn.Put(TableAccounts, []byte("k"), []byte("accounts")))
			return nil
		}))
		require.NoError(t, db.View(func(txn Txn) error {
			v, err := txn.Get(TableBlocks, []byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("blocks"), v)
			v, err = txn.Get(TableAccounts, []byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("accounts"), v)
			return nil
		}))
	})
}

func TestIteratorOrderAndPrefix(t *testing.T) {
	backends(t, func(t *testing.T, db KV) {
		require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
			for _, k := range []string{"b2", "a1", "a2", "c1"} {
				require.NoError(t, txn.Put(TablePending, []byte(k), []byte(k)))
			}
			return nil
		}))
		require.NoError(t, db.View(func(txn Txn) error {
			it := txn.Iterator(TablePending, nil)
			defer it.Release()
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			require.Equal(t, []string{"a1", "a2", "b2", "c1"}, keys)

			pit := txn.Iterator(TablePending, []byte("a"))
			defer pit.Release()
			keys = nil
			for pit.Next() {
				keys = append(keys, string(pit.Key()))
			}
			require.Equal(t, []string{"a1", "a2"}, keys)
			return nil
		}))
	})
}

func TestAccountInfoRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	info := types.AccountInfo{
		Head:           types.Hash{1},
		Representative: types.Account{2},
		OpenBlock:      types.Hash{3},
		Balance:        types.NewAmount(42),
		Modified:       99,
		BlockCount:     7,
		Epoch:          types.Epoch1,
	}
	require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
		return PutAccountInfo(txn, types.Account{9}, info)
	}))
	require.NoError(t, db.View(func(txn Txn) error {
		got, err := NewAccounts(txn).Get(types.Account{9})
		require.NoError(t, err)
		require.Equal(t, info, got)
		return nil
	}))
}

func TestBlockAndSidebandRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	blk := types.NewStateBlock(types.Account{1}, types.Account{2}, types.Hash{3},
		types.NewAmount(55), types.Hash{4}, [64]byte{5}, 6)
	sb := types.Sideband{
		Account:        types.Account{1},
		Height:         3,
		Successor:      types.Hash{7},
		Balance:        types.NewAmount(55),
		Timestamp:      123,
		Details:        types.BlockDetails{IsSend: true, Epoch: types.Epoch1},
		SourceEpoch:    types.Epoch1,
		Representative: types.Account{2},
	}
	require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
		return PutBlock(txn, blk, sb)
	}))
	require.NoError(t, db.View(func(txn Txn) error {
		gotBlk, gotSb, err := NewBlocks(txn).Get(blk.Hash())
		require.NoError(t, err)
		require.Equal(t, blk, gotBlk)
		require.Equal(t, sb, gotSb)
		return nil
	}))
}

func TestPendingByDestinationScansOnlyThatAccount(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	dest := types.Account{1}
	other := types.Account{2}
	require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
		for i := byte(1); i <= 3; i++ {
			key := types.PendingKey{Destination: dest, Send: types.Hash{i}}
			if err := PutPending(txn, key, types.PendingInfo{Source: types.Account{9}, Amount: types.NewAmount(uint64(i))}); err != nil {
				return err
			}
		}
		return PutPending(txn, types.PendingKey{Destination: other, Send: types.Hash{9}},
			types.PendingInfo{Source: types.Account{9}, Amount: types.NewAmount(100)})
	}))
	require.NoError(t, db.View(func(txn Txn) error {
		keys, infos, err := NewPending(txn).ByDestination(dest)
		require.NoError(t, err)
		require.Len(t, keys, 3)
		require.Len(t, infos, 3)
		for _, k := range keys {
			require.Equal(t, dest, k.Destination)
		}
		return nil
	}))
}

func TestOnlineWeightSamplesAscending(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
		require.NoError(t, PutOnlineWeightSample(txn, 30, types.NewAmount(3)))
		require.NoError(t, PutOnlineWeightSample(txn, 10, types.NewAmount(1)))
		require.NoError(t, PutOnlineWeightSample(txn, 20, types.NewAmount(2)))
		return nil
	}))
	require.NoError(t, db.View(func(txn Txn) error {
		times, weights, err := NewOnlineWeight(txn).Samples()
		require.NoError(t, err)
		require.Equal(t, []int64{10, 20, 30}, times)
		require.Len(t, weights, 3)
		require.True(t, weights[0].Cmp(types.NewAmount(1)) == 0)
		return nil
	}))
}

func TestVersionDefaultsToZero(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.View(func(txn Txn) error {
		v, err := NewVersion(txn).Get()
		require.NoError(t, err)
		require.Zero(t, v)
		return nil
	}))
	require.NoError(t, db.Update(WriterTesting, func(txn WriteTxn) error {
		return PutVersion(txn, 22)
	}))
	require.NoError(t, db.View(func(txn Txn) error {
		v, err := NewVersion(txn).Get()
		require.NoError(t, err)
		require.Equal(t, uint32(22), v)
		return nil
	}))
}
