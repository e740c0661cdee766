package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_seq_idx ON documents (collection, seq);
CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body jsonb_path_ops);
`

// PostgresConfig configures the PostgreSQL document store.
type PostgresConfig struct {
	Logger      *slog.Logger
	DatabaseURL string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

func (c *PostgresConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("database url is required")
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return nil
}

// PostgresStore keeps every collection in one JSONB table.
type PostgresStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies the connection and ensures the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(connectCtx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create documents schema: %w", err)
	}

	cfg.Logger.Info("connected to postgres",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)

	return &PostgresStore{log: cfg.Logger, pool: pool}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter, opts ...FindOption) ([]Document, error) {
	o := buildFindOptions(opts)

	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT body FROM documents WHERE collection = $1 AND body @> $2::jsonb`
	args := []any{collection, filterJSON}
	if o.SortField != "" {
		dir := "ASC"
		if o.SortDesc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY body->>$3 %s, seq %s", dir, dir)
		args = append(args, o.SortField)
	} else {
		query += " ORDER BY seq"
	}
	if o.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", o.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(bodies))
	for _, body := range bodies {
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document in %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	docs, err := s.Find(ctx, collection, filter, Limit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, docs ...Document) ([]string, error) {
	batch := &pgx.Batch{}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		stored := doc.clone()
		if stored.ID() == "" {
			stored[IDField] = uuid.NewString()
		}
		body, err := json.Marshal(stored)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
		batch.Queue(`INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)`,
			collection, stored.ID(), string(body))
		ids = append(ids, stored.ID())
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return ids, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection string, filter Filter, set Document, upsert bool) (UpdateResult, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	setJSON, err := json.Marshal(set)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("failed to encode update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET body = body || $3::jsonb
		WHERE collection = $1 AND id = (
			SELECT id FROM documents
			WHERE collection = $1 AND body @> $2::jsonb
			ORDER BY seq LIMIT 1
		)`, collection, filterJSON, string(setJSON))
	if err != nil {
		return UpdateResult{}, fmt.Errorf("failed to update %s: %w", collection, err)
	}
	if n := int(tag.RowsAffected()); n > 0 {
		return UpdateResult{MatchedCount: n, ModifiedCount: n}, nil
	}
	if !upsert {
		return UpdateResult{}, nil
	}

	doc := make(Document, len(filter)+len(set))
	for k, v := range filter {
		doc[k] = v
	}
	for k, v := range set {
		doc[k] = v
	}
	ids, err := s.Insert(ctx, collection, doc)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{UpsertedID: ids[0]}, nil
}

func (s *PostgresStore) Drop(ctx context.Context, collection string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", collection, err)
	}
	return int(tag.RowsAffected()), nil
}

func marshalFilter(filter Filter) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(b), nil
}
