package store

import (
	"github.com/coreledger/coreledger-node/types"
)

// Blocks accesses the blocks table: block hash -> block bytes ‖ sideband.
type Blocks struct{ r Reader }

func NewBlocks(r Reader) Blocks { return Blocks{r: r} }

func (a Blocks) Get(hash types.Hash) (types.Block, types.Sideband, error) {
	v, err := a.r.Get(TableBlocks, hash[:])
	if err != nil {
		return nil, types.Sideband{}, err
	}
	return decodeBlockAndSideband(v)
}

func (a Blocks) Has(hash types.Hash) (bool, error) {
	return a.r.Has(TableBlocks, hash[:])
}

// Put is only valid against a WriteTxn; embedding Reader above would
// not type-check Put, so accessors that write take a WriteTxn directly.
func PutBlock(w WriteTxn, b types.Block, sb types.Sideband) error {
	return w.Put(TableBlocks, b.Hash().Bytes(), encodeBlockAndSideband(b, sb))
}

func DeleteBlock(w WriteTxn, hash types.Hash) error {
	return w.Delete(TableBlocks, hash[:])
}

// Accounts accesses the accounts table: account -> account_info.
type Accounts struct{ r Reader }

func NewAccounts(r Reader) Accounts { return Accounts{r: r} }

func (a Accounts) Get(account types.Account) (types.AccountInfo, error) {
	v, err := a.r.Get(TableAccounts, account[:])
	if err != nil {
		return types.AccountInfo{}, err
	}
	return decodeAccountInfo(v)
}

func (a Accounts) Has(account types.Account) (bool, error) {
	return a.r.Has(TableAccounts, account[:])
}

func PutAccountInfo(w WriteTxn, account types.Account, info types.AccountInfo) error {
	return w.Put(TableAccounts, account[:], encodeAccountInfo(info))
}

func DeleteAccountInfo(w WriteTxn, account types.Account) error {
	return w.Delete(TableAccounts, account[:])
}

// Pending accesses the pending table: (destination ‖ send hash) -> (source, amount, epoch).
type Pending struct{ r Reader }

func NewPending(r Reader) Pending { return Pending{r: r} }

func (a Pending) Get(key types.PendingKey) (types.PendingInfo, error) {
	v, err := a.r.Get(TablePending, pendingKeyBytes(key))
	if err != nil {
		return types.PendingInfo{}, err
	}
	return decodePendingInfo(v)
}

func (a Pending) Has(key types.PendingKey) (bool, error) {
	return a.r.Has(TablePending, pendingKeyBytes(key))
}

func PutPending(w WriteTxn, key types.PendingKey, info types.PendingInfo) error {
	return w.Put(TablePending, pendingKeyBytes(key), encodePendingInfo(info))
}

func DeletePending(w WriteTxn, key types.PendingKey) error {
	return w.Delete(TablePending, pendingKeyBytes(key))
}

// ByDestination iterates every pending entry for a destination
// account, the scan behind the receivable read helper.
func (a Pending) ByDestination(destination types.Account) ([]types.PendingKey, []types.PendingInfo, error) {
	it := a.r.Iterator(TablePending, destination[:])
	defer it.Release()
	var keys []types.PendingKey
	var infos []types.PendingInfo
	for it.Next() {
		k := it.Key()
		if len(k) != types.HashSize*2 {
			continue
		}
		var pk types.PendingKey
		copy(pk.Destination[:], k[:types.HashSize])
		copy(pk.Send[:], k[types.HashSize:])
		info, err := decodePendingInfo(it.Value())
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, pk)
		infos = append(infos, info)
	}
	return keys, infos, it.Error()
}

// Frontiers accesses the legacy frontiers table: block hash -> account.
type Frontiers struct{ r Reader }

func NewFrontiers(r Reader) Frontiers { return Frontiers{r: r} }

func (a Frontiers) Get(hash types.Hash) (types.Account, error) {
	v, err := a.r.Get(TableFrontiers, hash[:])
	if err != nil {
		return types.Account{}, err
	}
	return types.AccountFromBytes(v)
}

func PutFrontier(w WriteTxn, hash types.Hash, account types.Account) error {
	return w.Put(TableFrontiers, hash[:], account[:])
}

func DeleteFrontier(w WriteTxn, hash types.Hash) error {
	return w.Delete(TableFrontiers, hash[:])
}

// ConfirmationHeight accesses the per-account cementation bookmark.
type ConfirmationHeight struct{ r Reader }

func NewConfirmationHeight(r Reader) ConfirmationHeight { return ConfirmationHeight{r: r} }

func (a ConfirmationHeight) Get(account types.Account) (types.ConfirmationHeightInfo, error) {
	v, err := a.r.Get(TableConfirmationHeight, account[:])
	if err == ErrNotFound {
		return types.ConfirmationHeightInfo{}, nil
	}
	if err != nil {
		return types.ConfirmationHeightInfo{}, err
	}
	return decodeConfirmationHeight(v)
}

func PutConfirmationHeight(w WriteTxn, account types.Account, info types.ConfirmationHeightInfo) error {
	return w.Put(TableConfirmationHeight, account[:], encodeConfirmationHeight(info))
}

func DeleteConfirmationHeight(w WriteTxn, account types.Account) error {
	return w.Delete(TableConfirmationHeight, account[:])
}

// Pruned accesses the pruned-block marker set: block hash -> ∅.
type Pruned struct{ r Reader }

func NewPruned(r Reader) Pruned { return Pruned{r: r} }

func (a Pruned) Has(hash types.Hash) (bool, error) {
	return a.r.Has(TablePruned, hash[:])
}

func PutPruned(w WriteTxn, hash types.Hash) error {
	return w.Put(TablePruned, hash[:], []byte{1})
}

// Version accesses the single schema-version record.
type Version struct{ r Reader }

func NewVersion(r Reader) Version { return Version{r: r} }

var versionKey = []byte("schema_version")

func (a Version) Get() (uint32, error) {
	v, err := a.r.Get(TableVersion, versionKey)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, errShort
	}
	return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), nil
}

func PutVersion(w WriteTxn, v uint32) error {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return w.Put(TableVersion, versionKey, b)
}
