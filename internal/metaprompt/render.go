package metaprompt

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dhabedank/fin-advisor/internal/insight"
	"github.com/dhabedank/fin-advisor/internal/profile"
)

const (
	// EmptyProfilePrompt is rendered when the user has no data at all.
	EmptyProfilePrompt = "New financial advisor user with limited context information available."

	// FallbackPrompt is returned when generation fails.
	FallbackPrompt = "Financial advisor user with limited context information available."

	unknown = "Unknown"
)

// Section headers. Downstream prompt templates match on these exact strings.
const (
	HeaderDemographic = "## Demographic Profile"
	HeaderFinancial   = "## Financial Profile"
	HeaderInvestment  = "## Investment Profile"
	HeaderSpending    = "## Spending Patterns"
	HeaderSentiment   = "## Social Media Insights"
)

// Input is everything the renderer needs for one user.
type Input struct {
	Demographics profile.DemographicRecord
	Account      profile.AccountRecord
	Credit       profile.CreditRecord
	Investments  profile.InvestmentRecord
	Transactions insight.TransactionInsights
	Sentiment    insight.SentimentInsights
}

// Render builds the meta-prompt. Sections appear in a fixed order and are
// omitted when the user has no row in their source; fields that are missing
// or failed to decode read "Unknown".
func Render(in Input) string {
	var sections []string

	if in.Demographics.Found {
		d := in.Demographics
		sections = append(sections, section(HeaderDemographic,
			field("Age", integer(d.Age)),
			field("Gender", text(d.Gender)),
			field("Occupation", text(d.Occupation)),
			field("Annual Income", money(d.AnnualIncome)),
			field("Education", text(d.EducationLevel)),
			field("Location", text(d.City)+", "+text(d.State)),
		))
	}

	if in.Account.Found || in.Credit.Found {
		var lines []string
		if a := in.Account; a.Found {
			lines = append(lines,
				field("Account Type", text(a.AccountType)),
				field("Account Balance", money(a.AccountBalance)),
				field("Savings Balance", money(a.SavingsBalance)),
				field("Account Opened", text(a.AccountOpeningDate)),
			)
		}
		if c := in.Credit; c.Found {
			lines = append(lines,
				field("Credit Score", integer(c.CreditScore)),
				field("Outstanding Debt", money(c.OutstandingDebt)),
				field("Credit Utilization", percent(c.CreditUtilization)),
				field("Payment History", text(c.PaymentHistory)),
			)
		}
		sections = append(sections, section(HeaderFinancial, lines...))
	}

	if inv := in.Investments; inv.Found {
		sections = append(sections, section(HeaderInvestment,
			field("Risk Tolerance", text(inv.RiskTolerance)),
			field("Investment Goals", text(inv.InvestmentGoals)),
			field("Current Investments", money(inv.CurrentInvestments)),
			field("Retirement Savings", money(inv.RetirementSavings)),
			field("Investment Preferences", text(inv.InvestmentPreferences)),
		))
	}

	if t := in.Transactions; !t.IsEmpty() {
		monthly := unknown
		if t.MonthlySpending != nil {
			monthly = "$" + t.MonthlySpending.StringFixed(2)
		}
		sections = append(sections, section(HeaderSpending,
			field("Monthly Spending", monthly),
			field("Top Spending Categories", list(t.TopCategories)),
			field("Recent Large Transactions", orNone(t.LargeTransactions)),
			field("Recurring Payments", orNone(t.RecurringPayments)),
		))
	}

	if s := in.Sentiment; !s.IsEmpty() {
		overall := s.OverallSentiment
		if overall == "" {
			overall = unknown
		}
		sections = append(sections, section(HeaderSentiment,
			field("Overall Sentiment", overall),
			field("Financial Interests", list(s.FinancialInterests)),
			field("Recent Concerns", orNone(s.FinancialConcerns)),
		))
	}

	if len(sections) == 0 {
		return EmptyProfilePrompt
	}
	return strings.Join(sections, "\n\n")
}

func section(header string, lines ...string) string {
	return header + "\n" + strings.Join(lines, "\n")
}

func field(label, value string) string {
	return label + ": " + value
}

func text(v *string) string {
	if v == nil {
		return unknown
	}
	return *v
}

func integer(v *int) string {
	if v == nil {
		return unknown
	}
	return strconv.Itoa(*v)
}

// money renders whole amounts without cents and everything else with two
// decimal places.
func money(v *decimal.Decimal) string {
	if v == nil {
		return unknown
	}
	if v.IsInteger() {
		return "$" + v.String()
	}
	return "$" + v.StringFixed(2)
}

func percent(v *decimal.Decimal) string {
	if v == nil {
		return unknown
	}
	return v.String() + "%"
}

func list(items []string) string {
	if len(items) == 0 {
		return unknown
	}
	return strings.Join(items, ", ")
}

func orNone(s string) string {
	if s == "" {
		return insight.None
	}
	return s
}
