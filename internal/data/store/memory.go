package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mongoprov/internal/schema"
)

// Document is a record held by MemoryStore.
type Document map[string]interface{}

type memCollection struct {
	indexes []IndexInfo
	docs    []Document
}

// MemoryStore is an in-process Store with the server's provisioning
// semantics: collections are created implicitly by index builds and inserts,
// every collection carries an _id_ index, and unique indexes are enforced.
type MemoryStore struct {
	mu          sync.Mutex
	database    string
	collections map[string]*memCollection
	order       []string
	calls       []string
	down        error
}

// NewMemoryStore returns an empty store bound to database.
func NewMemoryStore(database string) *MemoryStore {
	return &MemoryStore{
		database:    database,
		collections: make(map[string]*memCollection),
	}
}

// SetUnavailable makes every call fail as if the server were unreachable.
// A nil cause restores the store.
func (m *MemoryStore) SetUnavailable(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = cause
}

// Calls returns the mutating calls received, e.g. "createIndex usuarios email_1".
func (m *MemoryStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Seed inserts documents without enforcing unique indexes, to model data
// that predates the constraint.
func (m *MemoryStore) Seed(collection string, docs ...Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.ensure(collection)
	c.docs = append(c.docs, docs...)
}

// InsertOne inserts doc, failing with CodeDuplicateValues when a unique
// index would be violated.
func (m *MemoryStore) InsertOne(ctx context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const op = "store.InsertOne"
	if m.down != nil {
		return unavailable(op, m.down)
	}

	c := m.ensure(collection)
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		key := tupleOf(doc, idx.Keys)
		for _, existing := range c.docs {
			if tupleOf(existing, idx.Keys) == key {
				spec := schema.IndexSpec{Name: idx.Name, Keys: idx.Keys, Unique: true}
				return duplicateValues(op, collection, spec, fmt.Errorf("E11000 duplicate key error index: %s dup key: %s", idx.Name, key))
			}
		}
	}
	c.docs = append(c.docs, doc)
	return nil
}

// Database returns the bound database name.
func (m *MemoryStore) Database() string {
	return m.database
}

// Ping fails only when the store was marked unavailable.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return unavailable("store.Ping", m.down)
	}
	return nil
}

// CollectionNames lists collections in creation order.
func (m *MemoryStore) CollectionNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return nil, unavailable("store.CollectionNames", m.down)
	}
	return append([]string(nil), m.order...), nil
}

// CreateCollection fails with CodeNamespaceExists for an existing name.
func (m *MemoryStore) CreateCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const op = "store.CreateCollection"
	if m.down != nil {
		return unavailable(op, m.down)
	}
	m.calls = append(m.calls, "createCollection "+name)

	if _, ok := m.collections[name]; ok {
		return namespaceExists(op, name, fmt.Errorf("collection %s.%s already exists", m.database, name))
	}
	m.ensure(name)
	return nil
}

// Indexes lists the indexes of collection, _id_ first.
func (m *MemoryStore) Indexes(ctx context.Context, collection string) ([]IndexInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down != nil {
		return nil, unavailable("store.Indexes", m.down)
	}
	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}

	out := make([]IndexInfo, len(c.indexes))
	for i, idx := range c.indexes {
		out[i] = IndexInfo{Name: idx.Name, Keys: append([]schema.KeyField(nil), idx.Keys...), Unique: idx.Unique}
	}
	return out, nil
}

// CreateIndex builds spec on collection, creating the collection if needed.
func (m *MemoryStore) CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	const op = "store.CreateIndex"
	if m.down != nil {
		return "", unavailable(op, m.down)
	}

	name := spec.IndexName()
	m.calls = append(m.calls, "createIndex "+collection+" "+name)

	c := m.ensure(collection)
	for _, idx := range c.indexes {
		sameName := idx.Name == name
		sameKeys := spec.SameKeys(idx.Keys)
		switch {
		case sameName && sameKeys && idx.Unique == spec.Unique:
			return name, nil
		case sameName || sameKeys:
			return "", indexConflict(op, collection, spec, fmt.Errorf("index %s conflicts with existing index %s", name, idx.Name))
		}
	}

	if spec.Unique {
		seen := make(map[string]struct{}, len(c.docs))
		for _, doc := range c.docs {
			key := tupleOf(doc, spec.Keys)
			if _, dup := seen[key]; dup {
				return "", duplicateValues(op, collection, spec, fmt.Errorf("E11000 duplicate key error index: %s dup key: %s", name, key))
			}
			seen[key] = struct{}{}
		}
	}

	c.indexes = append(c.indexes, IndexInfo{
		Name:   name,
		Keys:   append([]schema.KeyField(nil), spec.Keys...),
		Unique: spec.Unique,
	})
	return name, nil
}

// Close is a no-op.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) ensure(name string) *memCollection {
	if c, ok := m.collections[name]; ok {
		return c
	}
	c := &memCollection{
		indexes: []IndexInfo{{Name: "_id_", Keys: []schema.KeyField{{Field: "_id", Order: schema.Ascending}}}},
	}
	m.collections[name] = c
	m.order = append(m.order, name)
	return c
}

// tupleOf renders the indexed values of doc. Missing fields index as null,
// as they do on the server.
func tupleOf(doc Document, keys []schema.KeyField) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		v, ok := doc[key.Field]
		if !ok {
			v = nil
		}
		parts[i] = fmt.Sprintf("%s: %#v", key.Field, v)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

var _ Store = (*MemoryStore)(nil)
