package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhabedank/fin-advisor/internal/profile"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"

	// Scores within this band of zero read as neutral.
	neutralScoreBand = 0.05
)

// SentimentInsights summarizes a user's social media activity.
type SentimentInsights struct {
	// Count is the number of input rows; zero means no insights.
	Count int

	// OverallSentiment is empty when no row carried a label or score.
	OverallSentiment   string
	FinancialInterests []string
	FinancialConcerns  string
}

func (s SentimentInsights) IsEmpty() bool {
	return s.Count == 0
}

// ExtractSentimentInsights derives the dominant sentiment, ranked interests
// and a summary of negative money-related posts.
func ExtractSentimentInsights(rows []profile.SentimentRecord, cfg Config) SentimentInsights {
	if len(rows) == 0 {
		return SentimentInsights{}
	}
	cfg = cfg.withDefaults()

	return SentimentInsights{
		Count:              len(rows),
		OverallSentiment:   overallSentiment(rows),
		FinancialInterests: rankTags(allTags(rows), cfg.TopInterests),
		FinancialConcerns:  financialConcerns(rows, cfg),
	}
}

// label resolves a row's sentiment from its label, or from its score.
func label(r profile.SentimentRecord) string {
	if r.Label != nil {
		return *r.Label
	}
	if r.Score == nil {
		return ""
	}
	switch {
	case *r.Score < -neutralScoreBand:
		return SentimentNegative
	case *r.Score > neutralScoreBand:
		return SentimentPositive
	}
	return SentimentNeutral
}

// overallSentiment picks the most frequent label. Ties go to neutral when it
// is among the leaders, otherwise to the leader seen first.
func overallSentiment(rows []profile.SentimentRecord) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range rows {
		l := label(r)
		if l == "" {
			continue
		}
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	if len(order) == 0 {
		return ""
	}

	best := 0
	for _, l := range order {
		best = max(best, counts[l])
	}
	if counts[SentimentNeutral] == best {
		return SentimentNeutral
	}
	for _, l := range order {
		if counts[l] == best {
			return l
		}
	}
	return ""
}

func allTags(rows []profile.SentimentRecord) []string {
	var tags []string
	for _, r := range rows {
		tags = append(tags, r.Topics...)
	}
	return tags
}

// rankTags dedupes tags case-insensitively and orders them by frequency,
// breaking ties by first appearance. The first spelling seen is kept.
func rankTags(tags []string, limit int) []string {
	type tagCount struct {
		display string
		count   int
		first   int
	}
	byKey := make(map[string]*tagCount)
	var ranked []*tagCount
	for i, t := range tags {
		key := strings.ToLower(t)
		tc, ok := byKey[key]
		if !ok {
			tc = &tagCount{display: t, first: i}
			byKey[key] = tc
			ranked = append(ranked, tc)
		}
		tc.count++
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	out := make([]string, 0, min(limit, len(ranked)))
	for i, tc := range ranked {
		if i == limit {
			break
		}
		out = append(out, tc.display)
	}
	return out
}

// financialConcerns describes negative posts that carry a financial topic or
// an explicit concern marker.
func financialConcerns(rows []profile.SentimentRecord, cfg Config) string {
	financial := make(map[string]struct{}, len(cfg.FinancialTopics))
	for _, t := range cfg.FinancialTopics {
		financial[strings.ToLower(t)] = struct{}{}
	}

	posts := 0
	var topics []string
	for _, r := range rows {
		if label(r) != SentimentNegative {
			continue
		}
		var matched []string
		for _, t := range r.Topics {
			if _, ok := financial[strings.ToLower(t)]; ok {
				matched = append(matched, t)
			}
		}
		flagged := r.FinancialConcern != nil && *r.FinancialConcern
		if len(matched) == 0 && !flagged {
			continue
		}
		posts++
		topics = append(topics, matched...)
	}
	if posts == 0 {
		return None
	}

	noun := "post"
	if posts != 1 {
		noun = "posts"
	}
	ranked := rankTags(topics, cfg.MaxListed)
	if len(ranked) == 0 {
		return fmt.Sprintf("Negative sentiment about personal finances (%d %s)", posts, noun)
	}
	return fmt.Sprintf("Negative sentiment about %s (%d %s)", strings.Join(ranked, ", "), posts, noun)
}
