package surety

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

const keySeparator = "\x00"

type memItem struct {
	key   string
	value []byte
}

func memItemLess(a, b memItem) bool { return a.key < b.key }

// MemoryStore is an in-process Store over an ordered B-tree. It is safe for
// concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[memItem]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: btree.NewG(16, memItemLess)}
}

// memKey mirrors the Fabric composite key layout so prefixes only match whole
// attributes.
func memKey(objectType string, attrs []string) string {
	var b strings.Builder
	b.WriteString(keySeparator)
	b.WriteString(objectType)
	b.WriteString(keySeparator)
	for _, a := range attrs {
		b.WriteString(a)
		b.WriteString(keySeparator)
	}
	return b.String()
}

func (m *MemoryStore) GetState(objectType string, attrs []string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tree.Get(memItem{key: memKey(objectType, attrs)})
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryStore) PutState(objectType string, attrs []string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(memItem{key: memKey(objectType, attrs), value: append([]byte(nil), value...)})
	return nil
}

func (m *MemoryStore) DelState(objectType string, attrs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(memItem{key: memKey(objectType, attrs)})
	return nil
}

// ScanState copies the matching values before calling fn, so fn may use the
// store.
func (m *MemoryStore) ScanState(objectType string, partial []string, fn func(value []byte) error) error {
	prefix := memKey(objectType, partial)
	var values [][]byte
	m.mu.RLock()
	m.tree.AscendGreaterOrEqual(memItem{key: prefix}, func(item memItem) bool {
		if !strings.HasPrefix(item.key, prefix) {
			return false
		}
		values = append(values, append([]byte(nil), item.value...))
		return true
	})
	m.mu.RUnlock()

	for _, v := range values {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}
