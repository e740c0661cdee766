package metaprompt_test

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/fin-advisor/internal/insight"
	"github.com/dhabedank/fin-advisor/internal/metaprompt"
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

func ptr[T any](v T) *T { return &v }

func dec(s string) *decimal.Decimal { return ptr(decimal.RequireFromString(s)) }

var allHeaders = []string{
	metaprompt.HeaderDemographic,
	metaprompt.HeaderFinancial,
	metaprompt.HeaderInvestment,
	metaprompt.HeaderSpending,
	metaprompt.HeaderSentiment,
}

func fullInput() metaprompt.Input {
	return metaprompt.Input{
		Demographics: profile.DemographicRecord{
			Found:          true,
			Age:            ptr(34),
			Gender:         ptr("Female"),
			Occupation:     ptr("Engineer"),
			AnnualIncome:   dec("95000"),
			EducationLevel: ptr("Masters"),
			City:           ptr("Austin"),
			State:          ptr("TX"),
		},
		Account: profile.AccountRecord{
			Found:              true,
			AccountType:        ptr("Checking"),
			AccountBalance:     dec("5250.5"),
			SavingsBalance:     dec("12000"),
			AccountOpeningDate: ptr("2018-03-01"),
		},
		Credit: profile.CreditRecord{
			Found:             true,
			CreditScore:       ptr(720),
			OutstandingDebt:   dec("15000"),
			CreditUtilization: dec("35"),
			PaymentHistory:    ptr("Good"),
		},
		Investments: profile.InvestmentRecord{
			Found:                 true,
			RiskTolerance:         ptr("Moderate"),
			InvestmentGoals:       ptr("Retirement"),
			CurrentInvestments:    dec("40000"),
			RetirementSavings:     dec("60000"),
			InvestmentPreferences: ptr("Index funds"),
		},
		Transactions: insight.TransactionInsights{
			Count:             12,
			MonthlySpending:   dec("2345.678"),
			TopCategories:     []string{"Rent", "Food", "Travel"},
			LargeTransactions: "$2500.00 at Best Buy (Electronics, 2024-02-14)",
			RecurringPayments: "Streaming $15.99/month (3 months)",
		},
		Sentiment: insight.SentimentInsights{
			Count:              4,
			OverallSentiment:   "positive",
			FinancialInterests: []string{"investing", "savings"},
			FinancialConcerns:  "None",
		},
	}
}

func TestMetaprompt_Render_Full(t *testing.T) {
	t.Parallel()

	want := strings.Join([]string{
		"## Demographic Profile",
		"Age: 34",
		"Gender: Female",
		"Occupation: Engineer",
		"Annual Income: $95000",
		"Education: Masters",
		"Location: Austin, TX",
		"",
		"## Financial Profile",
		"Account Type: Checking",
		"Account Balance: $5250.50",
		"Savings Balance: $12000",
		"Account Opened: 2018-03-01",
		"Credit Score: 720",
		"Outstanding Debt: $15000",
		"Credit Utilization: 35%",
		"Payment History: Good",
		"",
		"## Investment Profile",
		"Risk Tolerance: Moderate",
		"Investment Goals: Retirement",
		"Current Investments: $40000",
		"Retirement Savings: $60000",
		"Investment Preferences: Index funds",
		"",
		"## Spending Patterns",
		"Monthly Spending: $2345.68",
		"Top Spending Categories: Rent, Food, Travel",
		"Recent Large Transactions: $2500.00 at Best Buy (Electronics, 2024-02-14)",
		"Recurring Payments: Streaming $15.99/month (3 months)",
		"",
		"## Social Media Insights",
		"Overall Sentiment: positive",
		"Financial Interests: investing, savings",
		"Recent Concerns: None",
	}, "\n")

	got := metaprompt.Render(fullInput())
	assert.Equal(t, want, got)
	assert.Equal(t, got, metaprompt.Render(fullInput()), "rendering is deterministic")
}

func TestMetaprompt_Render_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, metaprompt.EmptyProfilePrompt, metaprompt.Render(metaprompt.Input{}))
}

func TestMetaprompt_Render_DemographicsOnly(t *testing.T) {
	t.Parallel()

	in := metaprompt.Input{Demographics: fullInput().Demographics}
	got := metaprompt.Render(in)

	assert.True(t, strings.HasPrefix(got, metaprompt.HeaderDemographic))
	for _, h := range allHeaders[1:] {
		assert.NotContains(t, got, h)
	}
}

func TestMetaprompt_Render_InvestmentsOnly(t *testing.T) {
	t.Parallel()

	in := metaprompt.Input{Investments: fullInput().Investments}
	got := metaprompt.Render(in)

	assert.Equal(t, 1, strings.Count(got, "## "))
	assert.True(t, strings.HasPrefix(got, metaprompt.HeaderInvestment))
}

func TestMetaprompt_Render_UnknownFields(t *testing.T) {
	t.Parallel()

	in := metaprompt.Input{
		Demographics: profile.DemographicRecord{Found: true, State: ptr("TX")},
		Credit:       profile.CreditRecord{Found: true, OutstandingDebt: dec("100.5")},
	}
	got := metaprompt.Render(in)

	assert.Contains(t, got, "Age: Unknown")
	assert.Contains(t, got, "Location: Unknown, TX")
	assert.Contains(t, got, "Credit Score: Unknown")
	assert.Contains(t, got, "Outstanding Debt: $100.50")
	assert.NotContains(t, got, "Account Type")
}

func TestMetaprompt_Generator_UnreadableRowKeepsSection(t *testing.T) {
	t.Parallel()

	store, err := profile.Load(t.Context(), profile.StoreConfig{
		Logger: logger,
		Source: &profile.MemorySource{Tables: map[profile.Table][]profile.Row{
			profile.TableCredit: {{"user_id": "u1", "credit_score": "n/a", "outstanding_debt": "lots"}},
		}},
	})
	require.NoError(t, err)
	gen, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{Logger: logger, Store: store})
	require.NoError(t, err)

	got := gen.Generate(t.Context(), "u1")
	assert.True(t, strings.HasPrefix(got, metaprompt.HeaderFinancial))
	assert.Contains(t, got, "Credit Score: Unknown")
	assert.Contains(t, got, "Outstanding Debt: Unknown")
	assert.NotContains(t, got, "Account Type")
	assert.NotEqual(t, metaprompt.EmptyProfilePrompt, got)
}

func TestMetaprompt_Render_OutOfRangeScoreIsUnknown(t *testing.T) {
	t.Parallel()

	row := profile.Row{"user_id": "u1", "credit_score": "1e30", "outstanding_debt": "250"}
	rec := profile.DecodeCredit(row)
	rec.Found = true
	got := metaprompt.Render(metaprompt.Input{Credit: rec})

	assert.Contains(t, got, "Credit Score: Unknown")
	assert.Contains(t, got, "Outstanding Debt: $250")
}

func TestMetaprompt_Render_SectionOrder(t *testing.T) {
	t.Parallel()

	got := metaprompt.Render(fullInput())
	last := -1
	for _, h := range allHeaders {
		idx := strings.Index(got, h)
		require.Greater(t, idx, last, "header %q out of order", h)
		last = idx
	}
}

func TestMetaprompt_Render_SpendingDefaults(t *testing.T) {
	t.Parallel()

	in := metaprompt.Input{Transactions: insight.TransactionInsights{Count: 1}}
	got := metaprompt.Render(in)

	assert.Contains(t, got, "Monthly Spending: Unknown")
	assert.Contains(t, got, "Top Spending Categories: Unknown")
	assert.Contains(t, got, "Recurring Payments: None")
}

func newStore(t *testing.T) *profile.Store {
	t.Helper()
	store, err := profile.Load(t.Context(), profile.StoreConfig{
		Logger: logger,
		Source: &profile.MemorySource{Tables: map[profile.Table][]profile.Row{
			profile.TableDemographics: {{"user_id": "u1", "age": "41", "city": "Denver", "state": "CO"}},
			profile.TableTransactions: {
				{"user_id": "u1", "amount": "100", "category": "Food", "transaction_date": "2024-01-02"},
				{"user_id": "u1", "amount": "200", "category": "Food", "transaction_date": "2024-02-02"},
			},
		}},
	})
	require.NoError(t, err)
	return store
}

func TestMetaprompt_Generator(t *testing.T) {
	t.Parallel()

	gen, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{
		Logger:   logger,
		Store:    newStore(t),
		Insights: insight.DefaultConfig(),
	})
	require.NoError(t, err)

	t.Run("known user", func(t *testing.T) {
		got := gen.Generate(t.Context(), "u1")
		assert.Contains(t, got, "Age: 41")
		assert.Contains(t, got, "Location: Denver, CO")
		assert.Contains(t, got, "Monthly Spending: $150.00")
		assert.NotContains(t, got, metaprompt.HeaderFinancial)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, metaprompt.EmptyProfilePrompt, gen.Generate(t.Context(), "ghost"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		assert.Equal(t, metaprompt.FallbackPrompt, gen.Generate(ctx, "u1"))
	})
}

func TestMetaprompt_Generator_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{Logger: logger})
	require.Error(t, err)
}

type panickingStore struct{}

func (panickingStore) UserData(string) profile.UserData {
	panic("index corrupted")
}

func TestMetaprompt_Generator_RecoversPanics(t *testing.T) {
	t.Parallel()

	gen, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{Logger: logger, Store: panickingStore{}})
	require.NoError(t, err)
	assert.Equal(t, metaprompt.FallbackPrompt, gen.Generate(t.Context(), "u1"))
}

type countingGenerator struct {
	calls  atomic.Int32
	prompt string
}

func (g *countingGenerator) Generate(context.Context, string) string {
	g.calls.Add(1)
	return g.prompt
}

func TestMetaprompt_CachedGenerator(t *testing.T) {
	t.Parallel()

	t.Run("hits skip the wrapped generator", func(t *testing.T) {
		next := &countingGenerator{prompt: "## Demographic Profile\nAge: 1"}
		cached := metaprompt.NewCachedGenerator(next, time.Minute)

		assert.Equal(t, next.prompt, cached.Generate(t.Context(), "u1"))
		assert.Equal(t, next.prompt, cached.Generate(t.Context(), "u1"))
		assert.EqualValues(t, 1, next.calls.Load())

		cached.Generate(t.Context(), "u2")
		assert.EqualValues(t, 2, next.calls.Load())
	})

	t.Run("fallbacks are not cached", func(t *testing.T) {
		next := &countingGenerator{prompt: metaprompt.FallbackPrompt}
		cached := metaprompt.NewCachedGenerator(next, time.Minute)

		cached.Generate(t.Context(), "u1")
		cached.Generate(t.Context(), "u1")
		assert.EqualValues(t, 2, next.calls.Load())
	})

	t.Run("entries expire", func(t *testing.T) {
		next := &countingGenerator{prompt: "prompt"}
		cached := metaprompt.NewCachedGenerator(next, 20*time.Millisecond)

		cached.Generate(t.Context(), "u1")
		time.Sleep(40 * time.Millisecond)
		cached.Generate(t.Context(), "u1")
		assert.EqualValues(t, 2, next.calls.Load())
	})
}
