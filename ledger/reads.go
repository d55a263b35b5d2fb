package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
)

// Receivable lists every pending send awaiting receipt by account,
// the read the RPC receivable query sits on.
func (l *Ledger) Receivable(txn store.Reader, account types.Account) ([]types.PendingKey, []types.PendingInfo, error) {
	return store.NewPending(txn).ByDestination(account)
}

// BlockInfo returns the block stored at hash along with its sideband.
func (l *Ledger) BlockInfo(txn store.Reader, hash types.Hash) (types.Block, types.Sideband, error) {
	blk, sb, err := store.NewBlocks(txn).Get(hash)
	if err != nil {
		return nil, types.Sideband{}, ErrBlockNotFound
	}
	return blk, sb, nil
}

// Chain walks an account's blocks starting at hash, in successor order
// (oldest-to-newest) or reverse (newest-to-oldest via Previous()),
// stopping after count hashes or at the end of the chain.
func (l *Ledger) Chain(txn store.Reader, hash types.Hash, count int, successors bool) ([]types.Hash, error) {
	var out []types.Hash
	cursor := hash
	for !cursor.IsZero() && len(out) < count {
		blk, sb, err := store.NewBlocks(txn).Get(cursor)
		if err != nil {
			break
		}
		out = append(out, cursor)
		if successors {
			cursor = sb.Successor
		} else {
			cursor = blk.Previous()
		}
	}
	return out, nil
}

// IsConfirmed reports whether hash's block has height at or below its
// account's confirmation_height_info, i.e. it has been cemented.
func (l *Ledger) IsConfirmed(txn store.Reader, hash types.Hash) (bool, error) {
	_, sb, err := store.NewBlocks(txn).Get(hash)
	if err != nil {
		return false, ErrBlockNotFound
	}
	height, err := store.NewConfirmationHeight(txn).Get(sb.Account)
	if err != nil {
		return false, err
	}
	return sb.Height <= height.Height, nil
}

// ClearConfirmationHeight resets account's confirmation-height
// bookmark to zero, a maintenance operation for operators rebuilding
// the cementation index.
func (l *Ledger) ClearConfirmationHeight(txn store.WriteTxn, account types.Account) error {
	return store.PutConfirmationHeight(txn, account, types.ConfirmationHeightInfo{})
}
