package profile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dhabedank/fin-advisor/internal/docstore"
)

// DocSource reads tables from document store collections of the same name,
// as written by the import command.
type DocSource struct {
	store docstore.Store
}

func NewDocSource(store docstore.Store) *DocSource {
	return &DocSource{store: store}
}

func (s *DocSource) Name() string {
	return "docstore:" + s.store.Name()
}

func (s *DocSource) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *DocSource) ReadTable(ctx context.Context, table Table) ([]Row, error) {
	collections, err := s.store.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	if !slices.Contains(collections, string(table)) {
		return nil, ErrTableNotFound
	}

	docs, err := s.store.Find(ctx, string(table), nil)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		row := make(Row, len(doc))
		for k, v := range doc {
			if k == docstore.IDField || v == nil {
				continue
			}
			row[strings.ToLower(k)] = doc.String(k)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
