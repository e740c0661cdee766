package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"

	"github.com/dhabedank/fin-advisor/internal/metrics"
)

const defaultLoadPoolSize = 4

// StoreConfig configures dataset loading.
type StoreConfig struct {
	Logger   *slog.Logger
	Source   Source
	PoolSize int
}

func (c *StoreConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Source == nil {
		return errors.New("source is required")
	}
	if c.PoolSize <= 0 {
		c.PoolSize = defaultLoadPoolSize
	}
	return nil
}

// Store holds the per-user datasets. It is immutable after Load and safe for
// concurrent reads without locking.
type Store struct {
	single map[Table]map[string]Row
	multi  map[Table]map[string][]Row
	counts map[Table]int
}

// Empty returns a store with no data. Every lookup misses.
func Empty() *Store {
	return &Store{
		single: map[Table]map[string]Row{},
		multi:  map[Table]map[string][]Row{},
		counts: map[Table]int{},
	}
}

// Load reads all tables from the source concurrently. A table that is missing
// or fails to read is logged and left empty; only an unusable source fails.
func Load(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.With("source", cfg.Source.Name())

	if err := cfg.Source.Ping(ctx); err != nil {
		log.Error("dataset source unavailable", "error", err)
		return nil, fmt.Errorf("dataset source unavailable: %w", err)
	}

	results := make([][]Row, len(Tables))
	pool := pond.NewPool(cfg.PoolSize, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for i, table := range Tables {
		group.Submit(func() {
			rows, err := cfg.Source.ReadTable(ctx, table)
			switch {
			case errors.Is(err, ErrTableNotFound):
				log.Warn("dataset not found, continuing without it", "table", table)
				return
			case err != nil:
				log.Error("failed to load dataset, continuing without it", "table", table, "error", err)
				return
			}
			results[i] = rows
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	s := Empty()
	for i, table := range Tables {
		s.index(table, results[i])
		metrics.DatasetRows.WithLabelValues(string(table)).Set(float64(len(results[i])))
		log.Info("loaded dataset", "table", table, "records", len(results[i]))
	}
	return s, nil
}

// NewFromRows builds a store from in-memory tables.
func NewFromRows(tables map[Table][]Row) *Store {
	s := Empty()
	for _, table := range Tables {
		s.index(table, tables[table])
	}
	return s
}

func (s *Store) index(table Table, rows []Row) {
	s.counts[table] = len(rows)
	if table.IsMulti() {
		byUser := make(map[string][]Row)
		for _, row := range rows {
			id := row[UserIDColumn]
			if id == "" {
				continue
			}
			byUser[id] = append(byUser[id], row)
		}
		s.multi[table] = byUser
		return
	}

	byUser := make(map[string]Row)
	for _, row := range rows {
		id := row[UserIDColumn]
		if id == "" {
			continue
		}
		// First match in source order wins.
		if _, ok := byUser[id]; !ok {
			byUser[id] = row
		}
	}
	s.single[table] = byUser
}

// Count returns the number of rows loaded for a table.
func (s *Store) Count(table Table) int {
	return s.counts[table]
}

// Lookup returns the user's row in a single-row table.
func (s *Store) Lookup(table Table, userID string) (Row, bool) {
	row, ok := s.single[table][userID]
	return row, ok
}

// LookupMany returns the user's rows in source order.
func (s *Store) LookupMany(table Table, userID string) []Row {
	return s.multi[table][userID]
}

func (s *Store) Demographics(userID string) DemographicRecord {
	if row, ok := s.Lookup(TableDemographics, userID); ok {
		rec := DecodeDemographics(row)
		rec.Found = true
		return rec
	}
	return DemographicRecord{}
}

func (s *Store) Account(userID string) AccountRecord {
	if row, ok := s.Lookup(TableAccounts, userID); ok {
		rec := DecodeAccount(row)
		rec.Found = true
		return rec
	}
	return AccountRecord{}
}

func (s *Store) Credit(userID string) CreditRecord {
	if row, ok := s.Lookup(TableCredit, userID); ok {
		rec := DecodeCredit(row)
		rec.Found = true
		return rec
	}
	return CreditRecord{}
}

func (s *Store) Investments(userID string) InvestmentRecord {
	if row, ok := s.Lookup(TableInvestments, userID); ok {
		rec := DecodeInvestments(row)
		rec.Found = true
		return rec
	}
	return InvestmentRecord{}
}

func (s *Store) Transactions(userID string) []TransactionRecord {
	rows := s.LookupMany(TableTransactions, userID)
	out := make([]TransactionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, DecodeTransaction(row))
	}
	return out
}

func (s *Store) Sentiment(userID string) []SentimentRecord {
	rows := s.LookupMany(TableSentiment, userID)
	out := make([]SentimentRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, DecodeSentiment(row))
	}
	return out
}

// UserData gathers every record kind for a user.
func (s *Store) UserData(userID string) UserData {
	return UserData{
		Demographics: s.Demographics(userID),
		Account:      s.Account(userID),
		Credit:       s.Credit(userID),
		Investments:  s.Investments(userID),
		Transactions: s.Transactions(userID),
		Sentiment:    s.Sentiment(userID),
	}
}
