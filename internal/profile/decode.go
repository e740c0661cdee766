package profile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxInt bounds integer fields so corrupt values cannot overflow.
var maxInt = decimal.NewFromInt(math.MaxInt32)

// Accepted timestamp layouts for transaction dates, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
}

// DecodeDemographics maps a demographic_data row to a typed record.
func DecodeDemographics(row Row) DemographicRecord {
	return DemographicRecord{
		Age:            row.Int("age"),
		Gender:         row.String("gender"),
		Occupation:     row.String("occupation"),
		AnnualIncome:   row.Decimal("annual_income", "income"),
		EducationLevel: row.String("education_level", "education"),
		City:           row.String("city"),
		State:          row.String("state"),
	}
}

func DecodeAccount(row Row) AccountRecord {
	return AccountRecord{
		AccountType:        row.String("account_type"),
		AccountBalance:     row.Decimal("account_balance", "balance"),
		SavingsBalance:     row.Decimal("savings_balance"),
		AccountOpeningDate: row.String("account_opening_date", "opening_date"),
	}
}

func DecodeCredit(row Row) CreditRecord {
	return CreditRecord{
		CreditScore:       row.Int("credit_score"),
		OutstandingDebt:   row.Decimal("outstanding_debt"),
		CreditUtilization: row.Decimal("credit_utilization"),
		PaymentHistory:    row.String("payment_history"),
	}
}

func DecodeInvestments(row Row) InvestmentRecord {
	return InvestmentRecord{
		RiskTolerance:         row.String("risk_tolerance"),
		InvestmentGoals:       row.String("investment_goals"),
		CurrentInvestments:    row.Decimal("current_investments"),
		RetirementSavings:     row.Decimal("retirement_savings"),
		InvestmentPreferences: row.String("investment_preferences"),
	}
}

func DecodeTransaction(row Row) TransactionRecord {
	return TransactionRecord{
		Amount:      row.Decimal("amount", "transaction_amount"),
		Category:    row.String("category", "transaction_category"),
		Timestamp:   row.Time("transaction_date", "timestamp", "date"),
		Merchant:    row.String("merchant", "merchant_name"),
		Description: row.String("description"),
	}
}

func DecodeSentiment(row Row) SentimentRecord {
	rec := SentimentRecord{
		Label: row.String("sentiment", "sentiment_label"),
		Score: row.Float("sentiment_score", "score"),
		Text:  row.String("post_content", "content", "text"),
	}
	if l := rec.Label; l != nil {
		lower := strings.ToLower(*l)
		rec.Label = &lower
	}
	if raw := row.String("topics", "topic", "interests", "financial_interests"); raw != nil {
		rec.Topics = splitTags(*raw)
	}
	if raw := row.String("financial_concern", "concern"); raw != nil {
		var flag bool
		switch strings.ToLower(*raw) {
		case "true", "1", "yes", "y":
			flag = true
			rec.FinancialConcern = &flag
		case "false", "0", "no", "n":
			rec.FinancialConcern = &flag
		}
	}
	return rec
}

// String returns the first present, non-blank value among the given columns.
func (r Row) String(cols ...string) *string {
	for _, c := range cols {
		v, ok := r[c]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if isBlank(v) {
			continue
		}
		return &v
	}
	return nil
}

// Decimal parses a currency or percentage column, ignoring $ , and % marks.
func (r Row) Decimal(cols ...string) *decimal.Decimal {
	s := r.String(cols...)
	if s == nil {
		return nil
	}
	clean := strings.NewReplacer("$", "", ",", "", "%", "").Replace(*s)
	d, err := decimal.NewFromString(strings.TrimSpace(clean))
	if err != nil {
		return nil
	}
	return &d
}

// Int parses whole numbers, accepting float spellings such as "34.0".
func (r Row) Int(cols ...string) *int {
	d := r.Decimal(cols...)
	if d == nil || !d.Equal(d.Truncate(0)) || d.Abs().GreaterThan(maxInt) {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

func (r Row) Float(cols ...string) *float64 {
	s := r.String(cols...)
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func (r Row) Time(cols ...string) *time.Time {
	s := r.String(cols...)
	if s == nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}

// isBlank treats pandas-style null spellings as missing.
func isBlank(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "null", "none", "n/a", "na":
		return true
	}
	return false
}

func splitTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}
