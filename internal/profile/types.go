package profile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table identifies one of the per-user source datasets.
type Table string

const (
	TableDemographics Table = "demographic_data"
	TableAccounts     Table = "account_data"
	TableCredit       Table = "credit_history"
	TableInvestments  Table = "investment_data"
	TableTransactions Table = "transaction_data"
	TableSentiment    Table = "social_media_sentiment"

	// TableProducts is the product catalog. It is not keyed by user and is
	// not part of Tables.
	TableProducts Table = "products"
)

// Tables lists every dataset the store loads, in load order.
var Tables = []Table{
	TableDemographics,
	TableAccounts,
	TableCredit,
	TableInvestments,
	TableTransactions,
	TableSentiment,
}

// IsMulti reports whether a user may own many rows in the table.
func (t Table) IsMulti() bool {
	return t == TableTransactions || t == TableSentiment
}

// UserIDColumn is the join key present in every table.
const UserIDColumn = "user_id"

// Row is one raw record keyed by normalized column name.
type Row map[string]string

// DemographicRecord describes who the user is.
// Nil fields were absent or malformed in the source row.
type DemographicRecord struct {
	// Found is set when the user has a row in the table, even one whose
	// fields all failed to decode.
	Found bool

	Age            *int
	Gender         *string
	Occupation     *string
	AnnualIncome   *decimal.Decimal
	EducationLevel *string
	City           *string
	State          *string
}

// AccountRecord is the user's primary bank account.
type AccountRecord struct {
	Found bool

	AccountType        *string
	AccountBalance     *decimal.Decimal
	SavingsBalance     *decimal.Decimal
	AccountOpeningDate *string
}

// CreditRecord summarizes the user's credit history.
type CreditRecord struct {
	Found bool

	CreditScore       *int
	OutstandingDebt   *decimal.Decimal
	CreditUtilization *decimal.Decimal // percent
	PaymentHistory    *string
}

// InvestmentRecord captures risk appetite and holdings.
type InvestmentRecord struct {
	Found bool

	RiskTolerance         *string
	InvestmentGoals       *string
	CurrentInvestments    *decimal.Decimal
	RetirementSavings     *decimal.Decimal
	InvestmentPreferences *string
}

// TransactionRecord is a single card or account movement.
type TransactionRecord struct {
	Amount      *decimal.Decimal
	Category    *string
	Timestamp   *time.Time
	Merchant    *string
	Description *string
}

// SentimentRecord is one scored social media post.
type SentimentRecord struct {
	Label            *string
	Score            *float64
	Topics           []string
	Text             *string
	FinancialConcern *bool
}

// UserData is everything the store knows about one user.
type UserData struct {
	Demographics DemographicRecord
	Account      AccountRecord
	Credit       CreditRecord
	Investments  InvestmentRecord
	Transactions []TransactionRecord
	Sentiment    []SentimentRecord
}
