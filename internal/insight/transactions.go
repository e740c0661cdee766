package insight

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dhabedank/fin-advisor/internal/profile"
)

// None is the description used when nothing was detected.
const None = "None"

// TransactionInsights summarizes a user's transaction history.
type TransactionInsights struct {
	// Count is the number of input transactions; zero means no insights.
	Count int

	// MonthlySpending is nil when no transaction carried an amount.
	MonthlySpending *decimal.Decimal

	TopCategories     []string
	LargeTransactions string
	RecurringPayments string
}

func (t TransactionInsights) IsEmpty() bool {
	return t.Count == 0
}

// ExtractTransactionInsights derives spending aggregates, top categories,
// outliers and recurring payments. Empty input yields empty insights.
func ExtractTransactionInsights(txns []profile.TransactionRecord, cfg Config) TransactionInsights {
	if len(txns) == 0 {
		return TransactionInsights{}
	}
	cfg = cfg.withDefaults()

	return TransactionInsights{
		Count:             len(txns),
		MonthlySpending:   monthlySpending(txns),
		TopCategories:     topCategories(txns, cfg.TopCategories),
		LargeTransactions: largeTransactions(txns, cfg),
		RecurringPayments: recurringPayments(txns, cfg),
	}
}

// monthlySpending averages the per-calendar-month totals. Undated amounts
// count toward the total without adding a month; with no dated rows the raw
// sum is returned.
func monthlySpending(txns []profile.TransactionRecord) *decimal.Decimal {
	total := decimal.Zero
	seen := false
	months := make(map[int]struct{})
	for _, t := range txns {
		if t.Amount == nil {
			continue
		}
		seen = true
		total = total.Add(*t.Amount)
		if t.Timestamp != nil {
			months[monthIndex(t)] = struct{}{}
		}
	}
	if !seen {
		return nil
	}
	if len(months) > 1 {
		total = total.Div(decimal.NewFromInt(int64(len(months))))
	}
	return &total
}

func topCategories(txns []profile.TransactionRecord, limit int) []string {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Category == nil || t.Amount == nil {
			continue
		}
		totals[*t.Category] = totals[*t.Category].Add(*t.Amount)
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if c := totals[names[i]].Cmp(totals[names[j]]); c != 0 {
			return c > 0
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func largeTransactions(txns []profile.TransactionRecord, cfg Config) string {
	type flagged struct {
		idx    int
		amount float64
	}

	var amounts []float64
	var idxs []int
	for i, t := range txns {
		if t.Amount == nil {
			continue
		}
		amounts = append(amounts, t.Amount.InexactFloat64())
		idxs = append(idxs, i)
	}
	if len(amounts) < 2 {
		return None
	}

	mean, sd := meanStdDev(amounts)
	threshold := mean + cfg.LargeStdDevMultiplier*sd

	var hits []flagged
	for k, a := range amounts {
		if a > threshold {
			hits = append(hits, flagged{idx: idxs[k], amount: a})
		}
	}
	if len(hits) == 0 {
		return None
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].amount > hits[j].amount
	})

	parts := make([]string, 0, cfg.MaxListed)
	for i, h := range hits {
		if i == cfg.MaxListed {
			break
		}
		parts = append(parts, describeTransaction(txns[h.idx]))
	}
	out := strings.Join(parts, "; ")
	if extra := len(hits) - len(parts); extra > 0 {
		out += fmt.Sprintf("; and %d more", extra)
	}
	return out
}

// meanStdDev returns the mean and sample standard deviation.
func meanStdDev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}

func describeTransaction(t profile.TransactionRecord) string {
	var b strings.Builder
	b.WriteString("$" + t.Amount.StringFixed(2))
	switch {
	case t.Merchant != nil:
		b.WriteString(" at " + *t.Merchant)
	case t.Description != nil:
		b.WriteString(" for " + *t.Description)
	}
	var details []string
	if t.Category != nil {
		details = append(details, *t.Category)
	}
	if t.Timestamp != nil {
		details = append(details, t.Timestamp.Format("2006-01-02"))
	}
	if len(details) > 0 {
		b.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	return b.String()
}

type recurringKey struct {
	category string
	amount   string
}

type recurringPayment struct {
	category string
	amount   decimal.Decimal
	months   int
}

func recurringPayments(txns []profile.TransactionRecord, cfg Config) string {
	monthsByKey := make(map[recurringKey]map[int]struct{})
	amountByKey := make(map[recurringKey]decimal.Decimal)
	for _, t := range txns {
		if t.Category == nil || t.Amount == nil || t.Timestamp == nil {
			continue
		}
		k := recurringKey{category: *t.Category, amount: t.Amount.String()}
		if monthsByKey[k] == nil {
			monthsByKey[k] = make(map[int]struct{})
			amountByKey[k] = *t.Amount
		}
		monthsByKey[k][monthIndex(t)] = struct{}{}
	}

	var found []recurringPayment
	for k, set := range monthsByKey {
		if len(set) < cfg.RecurringMinMonths {
			continue
		}
		months := make([]int, 0, len(set))
		for m := range set {
			months = append(months, m)
		}
		sort.Ints(months)
		if !isMonthlyCadence(months, cfg.RecurringMaxGapMonths) {
			continue
		}
		found = append(found, recurringPayment{category: k.category, amount: amountByKey[k], months: len(months)})
	}
	if len(found) == 0 {
		return None
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].months != found[j].months {
			return found[i].months > found[j].months
		}
		if found[i].category != found[j].category {
			return found[i].category < found[j].category
		}
		return found[i].amount.LessThan(found[j].amount)
	})

	parts := make([]string, 0, cfg.MaxListed)
	for i, p := range found {
		if i == cfg.MaxListed {
			break
		}
		parts = append(parts, fmt.Sprintf("%s $%s/month (%d months)", p.category, p.amount.StringFixed(2), p.months))
	}
	out := strings.Join(parts, ", ")
	if extra := len(found) - len(parts); extra > 0 {
		out += fmt.Sprintf(", and %d more", extra)
	}
	return out
}

func isMonthlyCadence(sortedMonths []int, maxGap int) bool {
	for i := 1; i < len(sortedMonths); i++ {
		if sortedMonths[i]-sortedMonths[i-1] > maxGap {
			return false
		}
	}
	return true
}

// monthIndex maps a timestamp to a sequential calendar month number.
func monthIndex(t profile.TransactionRecord) int {
	ts := t.Timestamp.UTC()
	return ts.Year()*12 + int(ts.Month()) - 1
}
