package profile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTableNotFound is returned by a Source when a table does not exist.
// The store treats it as an empty table rather than a failure.
var ErrTableNotFound = errors.New("table not found")

// Source reads raw tables for the store.
type Source interface {
	// Name returns the source identifier for logging.
	Name() string

	// Ping fails when the source as a whole is unusable.
	Ping(ctx context.Context) error

	// ReadTable returns every row of the table in source order.
	ReadTable(ctx context.Context, table Table) ([]Row, error)
}

// CSVSource reads <table>.csv files from a directory.
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.dir
}

func (s *CSVSource) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data directory %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", s.dir)
	}
	return nil
}

// Path returns the file backing a table.
func (s *CSVSource) Path(table Table) string {
	return filepath.Join(s.dir, string(table)+".csv")
}

func (s *CSVSource) ReadTable(ctx context.Context, table Table) ([]Row, error) {
	f, err := os.Open(s.Path(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", table, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses a CSV stream with a header line into rows.
// Header names are lower-cased and spaces become underscores.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MemorySource serves tables from memory. Tables not present read as missing.
type MemorySource struct {
	Tables map[Table][]Row
}

func (s *MemorySource) Name() string { return "memory" }

func (s *MemorySource) Ping(ctx context.Context) error { return nil }

func (s *MemorySource) ReadTable(ctx context.Context, table Table) ([]Row, error) {
	rows, ok := s.Tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	return rows, nil
}
