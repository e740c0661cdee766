package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps collections in process memory. It implements the same
// contract as PostgresStore and is used for tests and mock-data mode.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Document)}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filter Filter, opts ...FindOption) ([]Document, error) {
	o := buildFindOptions(opts)

	s.mu.RLock()
	var out []Document
	for _, doc := range s.collections[collection] {
		if filter.Matches(doc) {
			out = append(out, doc.clone())
		}
	}
	s.mu.RUnlock()

	if o.SortField != "" {
		sortDocuments(out, o.SortField, o.SortDesc)
	}
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out, nil
}

func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if filter.Matches(doc) {
			return doc.clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, docs ...Document) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		stored := doc.clone()
		if stored.ID() == "" {
			stored[IDField] = uuid.NewString()
		}
		s.collections[collection] = append(s.collections[collection], stored)
		ids = append(ids, stored.ID())
	}
	return ids, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection string, filter Filter, set Document, upsert bool) (UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.collections[collection] {
		if !filter.Matches(doc) {
			continue
		}
		for k, v := range set {
			doc[k] = v
		}
		return UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	if !upsert {
		return UpdateResult{}, nil
	}

	doc := make(Document, len(filter)+len(set)+1)
	for k, v := range filter {
		doc[k] = v
	}
	for k, v := range set {
		doc[k] = v
	}
	if doc.ID() == "" {
		doc[IDField] = uuid.NewString()
	}
	s.collections[collection] = append(s.collections[collection], doc)
	return UpdateResult{UpsertedID: doc.ID()}, nil
}

func (s *MemoryStore) Drop(ctx context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.collections[collection])
	delete(s.collections, collection)
	return n, nil
}
