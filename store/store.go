// Package store is the ledger's persistence leaf: a transactional,
// table-oriented key/value mapping with ordered iteration and a
// single-writer/many-reader discipline.
package store

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"
)

// ErrNotFound is returned by Get/accessor lookups that miss.
var ErrNotFound = errors.New("store: not found")

// Table identifies one of the ledger's typed tables. Backends that
// have no native table/column-family concept (goleveldb, the
// in-memory map) namespace keys by prefixing with the table byte.
type Table byte

const (
	TableBlocks Table = iota
	TableAccounts
	TablePending
	TableFrontiers
	TableConfirmationHeight
	TablePruned
	TableFinalVotes
	TableOnlineWeight
	TablePeers
	TableVersion
)

// Writer is the name of a logical writer on the single exclusive
// write lock shared across the block processor, confirming set and
// fork-rollback paths. Naming the writer makes lock contention
// attributable and keeps rollback from racing cementation.
type Writer string

const (
	WriterBlockProcessor Writer = "block_processor"
	WriterConfirmingSet  Writer = "confirming_set"
	WriterRollbackFork   Writer = "rollback_fork"
	WriterTesting        Writer = "testing"
)

// Iterator walks keys within a table in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Reader is the read surface shared by snapshot (View) and write (Update)
// transactions.
type Reader interface {
	Get(table Table, key []byte) ([]byte, error)
	Has(table Table, key []byte) (bool, error)
	// Iterator returns keys in table with the given prefix, in
	// ascending order. A nil prefix iterates the whole table.
	Iterator(table Table, prefix []byte) Iterator
}

// Txn is a read-only snapshot transaction: a consistent point-in-time
// view that is unaffected by concurrent writers.
type Txn interface {
	Reader
}

// WriteTxn is the single exclusive write transaction. Its writes become
// visible to readers only when the Update callback that received it
// returns nil; an error return discards them.
type WriteTxn interface {
	Reader
	Put(table Table, key, value []byte) error
	Delete(table Table, key []byte) error
}

// KV is the transactional engine the ledger is built over. Any engine
// that can offer a consistent read snapshot and an atomic batched
// write satisfies it; the on-disk layout and engine choice stay
// behind this interface.
type KV interface {
	View(fn func(Txn) error) error
	// Update runs fn under the single process-wide write lock,
	// tagged with writer for diagnostics. The batch commits
	// atomically iff fn returns nil.
	Update(writer Writer, fn func(WriteTxn) error) error
	Close() error
}

var logger = log.New("module", "store")
