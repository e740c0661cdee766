package profile_test

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/profile"
)

var logger *slog.Logger

func TestMain(m *testing.M) {
	flag.Parse()
	verbose := false
	if vFlag := flag.Lookup("test.v"); vFlag != nil && vFlag.Value.String() == "true" {
		verbose = true
	}
	if verbose {
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	os.Exit(m.Run())
}

func writeCSV(t *testing.T, dir string, table profile.Table, content string) {
	t.Helper()
	path := filepath.Join(dir, string(table)+".csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProfile_Store_LoadCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, profile.TableDemographics, "user_id,age,gender,occupation,annual_income,education_level,city,state\n"+
		"u1,34,Female,Engineer,95000,Masters,Austin,TX\n"+
		"u1,99,Male,Duplicate,1,PhD,Nowhere,ZZ\n"+
		"u2,51.0,Male,Nurse,nan,Bachelors,Denver,CO\n")
	writeCSV(t, dir, profile.TableTransactions, "transaction_id,user_id,amount,category,transaction_date,merchant\n"+
		"t1,u1,100,Food,2024-01-05,Grocer\n"+
		"t2,u1,300,Food,2024-02-05,Grocer\n"+
		"t3,u2,50,Travel,2024-01-09,Airline\n"+
		"t4,u1,50,Travel,2024-01-20,Airline\n")

	store, err := profile.Load(t.Context(), profile.StoreConfig{
		Logger: logger,
		Source: profile.NewCSVSource(dir),
	})
	require.NoError(t, err)

	t.Run("first row wins for singular tables", func(t *testing.T) {
		d := store.Demographics("u1")
		require.NotNil(t, d.Age)
		assert.Equal(t, 34, *d.Age)
		assert.Equal(t, "Engineer", *d.Occupation)
		assert.Equal(t, "95000", d.AnnualIncome.String())
	})

	t.Run("malformed fields degrade to absent", func(t *testing.T) {
		d := store.Demographics("u2")
		require.NotNil(t, d.Age)
		assert.Equal(t, 51, *d.Age)
		assert.Nil(t, d.AnnualIncome)
		assert.True(t, d.Found)
	})

	t.Run("many rows keep source order", func(t *testing.T) {
		txns := store.Transactions("u1")
		require.Len(t, txns, 3)
		assert.Equal(t, "100", txns[0].Amount.String())
		assert.Equal(t, "300", txns[1].Amount.String())
		assert.Equal(t, "Travel", *txns[2].Category)
		assert.Equal(t, time.January, txns[2].Timestamp.Month())
	})

	t.Run("missing tables and users are empty", func(t *testing.T) {
		assert.False(t, store.Account("u1").Found)
		assert.Empty(t, store.Sentiment("u1"))
		assert.Equal(t, profile.DemographicRecord{}, store.Demographics("nobody"))
		_, ok := store.Lookup(profile.TableCredit, "u1")
		assert.False(t, ok)
		assert.Equal(t, 0, store.Count(profile.TableCredit))
		assert.Equal(t, 4, store.Count(profile.TableTransactions))
	})
}

func TestProfile_Store_MissingDirectoryFails(t *testing.T) {
	t.Parallel()

	_, err := profile.Load(t.Context(), profile.StoreConfig{
		Logger: logger,
		Source: profile.NewCSVSource(filepath.Join(t.TempDir(), "missing")),
	})
	require.Error(t, err)
}

type failingSource struct {
	profile.MemorySource
	failTable profile.Table
}

func (s *failingSource) ReadTable(ctx context.Context, table profile.Table) ([]profile.Row, error) {
	if table == s.failTable {
		return nil, errors.New("disk on fire")
	}
	return s.MemorySource.ReadTable(ctx, table)
}

func TestProfile_Store_TableFailureIsIsolated(t *testing.T) {
	t.Parallel()

	src := &failingSource{
		MemorySource: profile.MemorySource{Tables: map[profile.Table][]profile.Row{
			profile.TableCredit:      {{"user_id": "u1", "credit_score": "720"}},
			profile.TableInvestments: {{"user_id": "u1", "risk_tolerance": "High"}},
		}},
		failTable: profile.TableCredit,
	}
	store, err := profile.Load(t.Context(), profile.StoreConfig{Logger: logger, Source: src})
	require.NoError(t, err)

	assert.Equal(t, profile.CreditRecord{}, store.Credit("u1"))
	inv := store.Investments("u1")
	require.NotNil(t, inv.RiskTolerance)
	assert.Equal(t, "High", *inv.RiskTolerance)
}

func TestProfile_Store_DocSource(t *testing.T) {
	t.Parallel()

	docs := docstore.NewMemoryStore()
	_, err := docs.Insert(t.Context(), string(profile.TableSentiment),
		docstore.Document{"user_id": "u1", "sentiment": "Negative", "topics": "debt;savings", "sentiment_score": -0.6},
		docstore.Document{"user_id": "u1", "sentiment": "positive", "topics": "investing"},
	)
	require.NoError(t, err)
	_, err = docs.Insert(t.Context(), string(profile.TableCredit),
		docstore.Document{"user_id": "u1", "credit_score": float64(700), "credit_utilization": 35.5},
	)
	require.NoError(t, err)

	store, err := profile.Load(t.Context(), profile.StoreConfig{Logger: logger, Source: profile.NewDocSource(docs)})
	require.NoError(t, err)

	rows := store.Sentiment("u1")
	require.Len(t, rows, 2)
	assert.Equal(t, "negative", *rows[0].Label)
	assert.Equal(t, []string{"debt", "savings"}, rows[0].Topics)
	assert.InDelta(t, -0.6, *rows[0].Score, 1e-9)

	credit := store.Credit("u1")
	require.NotNil(t, credit.CreditScore)
	assert.Equal(t, 700, *credit.CreditScore)
	assert.Equal(t, "35.5", credit.CreditUtilization.String())
	assert.Nil(t, credit.PaymentHistory)
}

func TestProfile_ReadCSV(t *testing.T) {
	t.Parallel()

	rows, err := profile.ReadCSV(strings.NewReader("\ufeffUser ID, Amount ,Category\nu1,\"$1,200.50\",Food\nu2\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0]["user_id"])
	assert.Equal(t, "1200.5", rows[0].Decimal("amount").String())
	assert.Nil(t, rows[1].String("category"))

	rows, err = profile.ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProfile_Store_UnreadableRowIsFound(t *testing.T) {
	t.Parallel()

	store, err := profile.Load(t.Context(), profile.StoreConfig{
		Logger: logger,
		Source: &profile.MemorySource{Tables: map[profile.Table][]profile.Row{
			profile.TableCredit: {{"user_id": "u1", "credit_score": "n/a", "outstanding_debt": "lots"}},
		}},
	})
	require.NoError(t, err)

	c := store.Credit("u1")
	assert.True(t, c.Found)
	assert.Nil(t, c.CreditScore)
	assert.Nil(t, c.OutstandingDebt)
	assert.False(t, store.Credit("u2").Found)
	assert.True(t, store.UserData("u1").Credit.Found)
}

func TestProfile_Row_Int(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *int
	}{
		{"720", ptrInt(720)},
		{"34.0", ptrInt(34)},
		{"-12", ptrInt(-12)},
		{"2147483647", ptrInt(2147483647)},
		{"34.5", nil},
		{"1e30", nil},
		{"2147483648", nil},
		{"-99999999999999999999", nil},
		{"n/a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, profile.Row{"credit_score": tt.in}.Int("credit_score"))
		})
	}
}

func ptrInt(n int) *int { return &n }
