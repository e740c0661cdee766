package insight

// Config holds the tunable heuristics for insight extraction.
type Config struct {
	// TopCategories bounds the ranked spending categories.
	TopCategories int `yaml:"top_categories"`

	// LargeStdDevMultiplier flags amounts above mean + k*stddev.
	LargeStdDevMultiplier float64 `yaml:"large_stddev_multiplier"`

	// MaxListed bounds how many large or recurring items are spelled out.
	MaxListed int `yaml:"max_listed"`

	// RecurringMinMonths is the distinct months a (category, amount) pair
	// must appear in to count as recurring.
	RecurringMinMonths int `yaml:"recurring_min_months"`

	// RecurringMaxGapMonths is the widest allowed gap between consecutive
	// occurrences, so a single skipped month still reads as monthly.
	RecurringMaxGapMonths int `yaml:"recurring_max_gap_months"`

	// TopInterests bounds the ranked social media interests.
	TopInterests int `yaml:"top_interests"`

	// FinancialTopics are the tags that mark a post as money related.
	FinancialTopics []string `yaml:"financial_topics"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopCategories:         3,
		LargeStdDevMultiplier: 2,
		MaxListed:             3,
		RecurringMinMonths:    2,
		RecurringMaxGapMonths: 2,
		TopInterests:          5,
		FinancialTopics: []string{
			"banking", "budgeting", "credit", "credit cards", "crypto", "cryptocurrency",
			"debt", "finance", "financial planning", "housing", "insurance", "investing",
			"investment", "investments", "loans", "mortgage", "personal finance",
			"real estate", "retirement", "saving", "savings", "stocks", "student loans",
			"taxes", "wealth",
		},
	}
}

// withDefaults fills zero values so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopCategories <= 0 {
		c.TopCategories = d.TopCategories
	}
	if c.LargeStdDevMultiplier <= 0 {
		c.LargeStdDevMultiplier = d.LargeStdDevMultiplier
	}
	if c.MaxListed <= 0 {
		c.MaxListed = d.MaxListed
	}
	if c.RecurringMinMonths <= 0 {
		c.RecurringMinMonths = d.RecurringMinMonths
	}
	if c.RecurringMaxGapMonths <= 0 {
		c.RecurringMaxGapMonths = d.RecurringMaxGapMonths
	}
	if c.TopInterests <= 0 {
		c.TopInterests = d.TopInterests
	}
	if len(c.FinancialTopics) == 0 {
		c.FinancialTopics = d.FinancialTopics
	}
	return c
}
