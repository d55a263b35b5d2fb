package store

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelKV is the persistent backend: a single goleveldb keyspace with
// keys namespaced by a one-byte table prefix. goleveldb already gives
// us the two primitives the store contract needs, db.GetSnapshot() for
// a consistent multi-reader view and an atomic leveldb.Batch for the
// exclusive writer, so the engine-specific plumbing here is just the
// table-prefixing and the named-writer lock.
type levelKV struct {
	db      *leveldb.DB
	writeMu sync.Mutex
}

// OpenLevelDB opens (creating if absent) a persistent store at path.
func OpenLevelDB(path string) (KV, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &levelKV{db: db}, nil
}

func tableKey(table Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(table)
	copy(out[1:], key)
	return out
}

func (l *levelKV) View(fn func(Txn) error) error {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()
	return fn(&levelTxn{snap: snap})
}

func (l *levelKV) Update(writer Writer, fn func(WriteTxn) error) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	logger.Debug("store write lock acquired", "writer", writer)
	defer logger.Debug("store write lock released", "writer", writer)

	snap, err := l.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()

	batch := new(leveldb.Batch)
	staged := &levelWriteTxn{snap: snap, batch: batch, puts: map[string][]byte{}, dels: map[string]bool{}}
	if err := fn(staged); err != nil {
		return err
	}
	return l.db.Write(batch, nil)
}

func (l *levelKV) Close() error {
	return l.db.Close()
}

type levelTxn struct {
	snap *leveldb.Snapshot
}

func (t *levelTxn) Get(table Table, key []byte) ([]byte, error) {
	v, err := t.snap.Get(tableKey(table, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (t *levelTxn) Has(table Table, key []byte) (bool, error) {
	return t.snap.Has(tableKey(table, key), nil)
}

func (t *levelTxn) Iterator(table Table, prefix []byte) Iterator {
	rng := util.BytesPrefix(tableKey(table, prefix))
	it := t.snap.NewIterator(rng, nil)
	return &levelIterator{it: it, prefixLen: 1}
}

// levelWriteTxn overlays staged writes for read-your-own-writes within
// a single Update call, then flushes them into the batch.
type levelWriteTxn struct {
	snap  *leveldb.Snapshot
	batch *leveldb.Batch
	puts  map[string][]byte
	dels  map[string]bool
}

func (t *levelWriteTxn) Get(table Table, key []byte) ([]byte, error) {
	k := string(tableKey(table, key))
	if t.dels[k] {
		return nil, ErrNotFound
	}
	if v, ok := t.puts[k]; ok {
		return v, nil
	}
	v, err := t.snap.Get([]byte(k), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (t *levelWriteTxn) Has(table Table, key []byte) (bool, error) {
	_, err := t.Get(table, key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *levelWriteTxn) Iterator(table Table, prefix []byte) Iterator {
	// Overlay semantics for iteration within an in-flight write
	// transaction are not needed by any caller in this module (every
	// Update callback iterates before it starts mutating that table);
	// fall back to the pre-write snapshot view.
	rng := util.BytesPrefix(tableKey(table, prefix))
	it := t.snap.NewIterator(rng, nil)
	return &levelIterator{it: it, prefixLen: 1}
}

func (t *levelWriteTxn) Put(table Table, key, value []byte) error {
	k := tableKey(table, key)
	v := make([]byte, len(value))
	copy(v, value)
	t.puts[string(k)] = v
	delete(t.dels, string(k))
	t.batch.Put(k, v)
	return nil
}

func (t *levelWriteTxn) Delete(table Table, key []byte) error {
	k := tableKey(table, key)
	t.dels[string(k)] = true
	delete(t.puts, string(k))
	t.batch.Delete(k)
	return nil
}

type levelIterator struct {
	it        iterator
	prefixLen int
}

// iterator is the subset of goleveldb's iterator.Iterator this package uses.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

func (it *levelIterator) Next() bool     { return it.it.Next() }
func (it *levelIterator) Key() []byte    { return it.it.Key()[it.prefixLen:] }
func (it *levelIterator) Value() []byte  { return it.it.Value() }
func (it *levelIterator) Release()       { it.it.Release() }
func (it *levelIterator) Error() error   { return it.it.Error() }
