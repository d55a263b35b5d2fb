package store

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// memDB is an in-memory KV, the store package's equivalent of
// ethdb/memorydb: used by tests and as a reference implementation.
type memDB struct {
	mu     sync.RWMutex
	writeMu sync.Mutex
	tables map[Table]map[string][]byte
	closed bool
}

// NewMemDB constructs an empty in-memory store.
func NewMemDB() KV {
	tables := make(map[Table]map[string][]byte)
	for t := TableBlocks; t <= TableVersion; t++ {
		tables[t] = make(map[string][]byte)
	}
	return &memDB{tables: tables}
}

func (m *memDB) View(fn func(Txn) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTxn{m: m})
}

func (m *memDB) Update(writer Writer, fn func(WriteTxn) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	logger.Debug("store write lock acquired", "writer", writer)
	defer logger.Debug("store write lock released", "writer", writer)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage writes so a failing fn leaves the store untouched.
	staged := &memWriteTxn{m: m, puts: map[Table]map[string][]byte{}, dels: map[Table]map[string]bool{}}
	if err := fn(staged); err != nil {
		return err
	}
	for t, kv := range staged.puts {
		for k, v := range kv {
			m.tables[t][k] = v
		}
	}
	for t, ks := range staged.dels {
		for k := range ks {
			delete(m.tables[t], k)
		}
	}
	return nil
}

func (m *memDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memTxn struct {
	m *memDB
}

func (t *memTxn) Get(table Table, key []byte) ([]byte, error) {
	v, ok := t.m.tables[table][string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memTxn) Has(table Table, key []byte) (bool, error) {
	_, ok := t.m.tables[table][string(key)]
	return ok, nil
}

func (t *memTxn) Iterator(table Table, prefix []byte) Iterator {
	var keys []string
	for k := range t.m.tables[table] {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return &memIterator{table: t.m.tables[table], keys: keys, idx: -1}
}

// memWriteTxn overlays staged puts/deletes on top of the committed
// state for read-your-own-writes within one Update call.
type memWriteTxn struct {
	m    *memDB
	puts map[Table]map[string][]byte
	dels map[Table]map[string]bool
}

func (t *memWriteTxn) Get(table Table, key []byte) ([]byte, error) {
	k := string(key)
	if t.dels[table] != nil && t.dels[table][k] {
		return nil, ErrNotFound
	}
	if v, ok := t.puts[table][k]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	v, ok := t.m.tables[table][k]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memWriteTxn) Has(table Table, key []byte) (bool, error) {
	_, err := t.Get(table, key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *memWriteTxn) Iterator(table Table, prefix []byte) Iterator {
	merged := make(map[string][]byte, len(t.m.tables[table]))
	for k, v := range t.m.tables[table] {
		merged[k] = v
	}
	for k, v := range t.puts[table] {
		merged[k] = v
	}
	for k := range t.dels[table] {
		delete(merged, k)
	}
	var keys []string
	for k := range merged {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return &memIterator{table: merged, keys: keys, idx: -1}
}

func (t *memWriteTxn) Put(table Table, key, value []byte) error {
	if t.puts[table] == nil {
		t.puts[table] = map[string][]byte{}
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.puts[table][string(key)] = v
	if t.dels[table] != nil {
		delete(t.dels[table], string(key))
	}
	return nil
}

func (t *memWriteTxn) Delete(table Table, key []byte) error {
	if t.dels[table] == nil {
		t.dels[table] = map[string]bool{}
	}
	t.dels[table][string(key)] = true
	if t.puts[table] != nil {
		delete(t.puts[table], string(key))
	}
	return nil
}

type memIterator struct {
	table map[string][]byte
	keys  []string
	idx   int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIterator) Value() []byte { return it.table[it.keys[it.idx]] }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }
