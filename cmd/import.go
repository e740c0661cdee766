package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/alitto/pond/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/profile"
	"github.com/dhabedank/fin-advisor/internal/tui"
)

const importBatchSize = 500

var (
	importPoolSize int
	importAppend   bool
	noProgress     bool
)

// ImportCmd loads the dataset CSV files into the document store.
var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the dataset CSV files into the document store",
	Long: `Read the six profile datasets and the product catalog from the data
directory and write each into a document store collection of the same name.
Tables are imported concurrently. Existing collections are replaced unless
--append is given.

Serve the imported data with: fin-advisor serve --source db`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	addCommonFlags(ImportCmd)
	ImportCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "data", "Directory holding the dataset CSV files")
	ImportCmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL for the document store (default: $DATABASE_URL)")
	ImportCmd.Flags().IntVar(&importPoolSize, "pool-size", 4, "Tables imported in parallel")
	ImportCmd.Flags().BoolVar(&importAppend, "append", false, "Append to existing collections instead of replacing them")
	ImportCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress display")
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if databaseURL == "" {
		return errors.New("import needs a database: set --database-url or DATABASE_URL")
	}
	log := newLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := openDocStore(ctx, log)
	if err != nil {
		return err
	}
	defer docs.Close()

	src := profile.NewCSVSource(dataDir)
	if err := src.Ping(ctx); err != nil {
		return err
	}

	tables := append(slices.Clone(profile.Tables), profile.TableProducts)
	job := tableImport{
		log:      log,
		src:      src,
		docs:     docs,
		poolSize: importPoolSize,
		replace:  !importAppend,
	}

	if noProgress || !isatty.IsTerminal(os.Stderr.Fd()) {
		_, err := job.run(ctx, tables)
		return err
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = string(t)
	}
	// The progress view owns the terminal; keep log lines out of it.
	job.log = slog.New(slog.DiscardHandler)
	p := tea.NewProgram(tui.NewImportProgress(names), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	job.report = p.Send

	done := make(chan error, 1)
	go func() {
		_, err := job.run(ctx, tables)
		p.Send(tui.ImportFinishedMsg{})
		done <- err
	}()
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("progress display failed: %w", err)
	}
	return <-done
}

// tableImport copies tables from a source into document store collections.
type tableImport struct {
	log      *slog.Logger
	src      profile.Source
	docs     docstore.Store
	poolSize int
	replace  bool
	report   func(tea.Msg)
}

// run imports every table concurrently and returns the row count per table.
// Missing tables are skipped; failed tables are joined into the error.
func (j tableImport) run(ctx context.Context, tables []profile.Table) (map[profile.Table]int, error) {
	report := j.report
	if report == nil {
		report = func(tea.Msg) {}
	}
	if j.poolSize <= 0 {
		j.poolSize = 1
	}

	var (
		mu     sync.Mutex
		counts = make(map[profile.Table]int, len(tables))
		errs   []error
	)

	pool := pond.NewPool(j.poolSize, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, table := range tables {
		group.Submit(func() {
			report(tui.TableStartedMsg{Name: string(table)})
			n, err := j.importTable(ctx, table)
			switch {
			case errors.Is(err, profile.ErrTableNotFound):
				j.log.Warn("dataset file not found, skipping", "table", table)
				report(tui.TableDoneMsg{Name: string(table), Missing: true})
				return
			case err != nil:
				j.log.Error("failed to import dataset", "table", table, "error", err)
				report(tui.TableDoneMsg{Name: string(table), Err: err})
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", table, err))
				mu.Unlock()
				return
			}
			j.log.Info("imported dataset", "table", table, "records", n)
			report(tui.TableDoneMsg{Name: string(table), Rows: n})
			mu.Lock()
			counts[table] = n
			mu.Unlock()
		})
	}
	if err := group.Wait(); err != nil {
		return counts, fmt.Errorf("failed to import datasets: %w", err)
	}
	return counts, errors.Join(errs...)
}

func (j tableImport) importTable(ctx context.Context, table profile.Table) (int, error) {
	rows, err := j.src.ReadTable(ctx, table)
	if err != nil {
		return 0, err
	}

	if j.replace {
		dropped, err := j.docs.Drop(ctx, string(table))
		if err != nil {
			return 0, err
		}
		if dropped > 0 {
			j.log.Debug("replaced existing collection", "table", table, "dropped", dropped)
		}
	}

	for batch := range slices.Chunk(rows, importBatchSize) {
		docs := make([]docstore.Document, 0, len(batch))
		for _, row := range batch {
			doc := make(docstore.Document, len(row))
			for k, v := range row {
				doc[k] = v
			}
			docs = append(docs, doc)
		}
		if _, err := j.docs.Insert(ctx, string(table), docs...); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
