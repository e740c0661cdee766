package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// IDField is the document key assigned on insert when absent.
const IDField = "_id"

var ErrNotFound = errors.New("document not found")

// Document is a schemaless record.
type Document map[string]any

// Filter matches documents whose fields equal every given value.
type Filter map[string]any

// UpdateResult reports the outcome of Update.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
	UpsertedID    string
}

// Store is a collection-oriented document store.
type Store interface {
	// Name returns the store identifier for logging.
	Name() string

	Ping(ctx context.Context) error
	Collections(ctx context.Context) ([]string, error)

	// Find returns matching documents, in insertion order unless sorted.
	Find(ctx context.Context, collection string, filter Filter, opts ...FindOption) ([]Document, error)

	// FindOne returns the first match or ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// Insert stores documents and returns their ids.
	Insert(ctx context.Context, collection string, docs ...Document) ([]string, error)

	// Update sets fields on the first match. With upsert, a missing match
	// inserts filter+set as a new document.
	Update(ctx context.Context, collection string, filter Filter, set Document, upsert bool) (UpdateResult, error)

	// Drop removes a collection and returns how many documents it held.
	Drop(ctx context.Context, collection string) (int, error)

	Close()
}

// FindOptions controls ordering and size of Find results.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int
}

type FindOption func(*FindOptions)

func SortBy(field string, desc bool) FindOption {
	return func(o *FindOptions) {
		o.SortField = field
		o.SortDesc = desc
	}
}

func Limit(n int) FindOption {
	return func(o *FindOptions) {
		o.Limit = n
	}
}

func buildFindOptions(opts []FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Matches reports whether doc satisfies filter.
func (f Filter) Matches(doc Document) bool {
	for k, want := range f {
		got, ok := doc[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

// String returns a field as a string, or "" when absent.
func (d Document) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ID returns the document's _id.
func (d Document) ID() string {
	return d.String(IDField)
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compareValues(a, b any) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortDocuments(docs []Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i][field], docs[j][field])
		if desc {
			return c > 0
		}
		return c < 0
	})
}
