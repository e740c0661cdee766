// Package recommend matches catalog products to a chat message and the
// user's risk tolerance.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/dhabedank/fin-advisor/internal/profile"
)

// DefaultLimit is how many products a reply carries at most.
const DefaultLimit = 3

const riskMatchBonus = 2

// Product is one catalog entry.
type Product struct {
	ID            string
	Name          string
	Category      string
	Description   string
	RiskLevel     string
	MinInvestment *decimal.Decimal
	Features      []string
}

// Recommendation is the wire shape of a matched product.
type Recommendation struct {
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	Description   string   `json:"description,omitempty"`
	RiskLevel     string   `json:"risk_level,omitempty"`
	MinInvestment string   `json:"min_investment,omitempty"`
	Features      []string `json:"features,omitempty"`
	Score         int      `json:"score"`
}

// Catalog is an immutable product list.
type Catalog struct {
	products []Product
}

func NewCatalog(products []Product) *Catalog {
	return &Catalog{products: products}
}

// LoadCatalog reads the products table. A missing table gives an empty catalog.
func LoadCatalog(ctx context.Context, src profile.Source) (*Catalog, error) {
	rows, err := src.ReadTable(ctx, profile.TableProducts)
	if errors.Is(err, profile.ErrTableNotFound) {
		return NewCatalog(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		if p, ok := DecodeProduct(row); ok {
			products = append(products, p)
		}
	}
	return NewCatalog(products), nil
}

// DecodeProduct maps a products row. Rows without an id or name are skipped.
func DecodeProduct(row profile.Row) (Product, bool) {
	id := row.String("product_id", "id")
	name := row.String("name", "product_name")
	if id == nil || name == nil {
		return Product{}, false
	}
	p := Product{
		ID:            *id,
		Name:          *name,
		Category:      deref(row.String("category", "product_category")),
		Description:   deref(row.String("description")),
		RiskLevel:     deref(row.String("risk_level", "risk")),
		MinInvestment: row.Decimal("min_investment", "minimum_investment"),
	}
	if raw := row.String("features"); raw != nil {
		for _, f := range strings.FieldsFunc(*raw, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
			if f = strings.TrimSpace(f); f != "" {
				p.Features = append(p.Features, f)
			}
		}
	}
	return p, true
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// Recommend scores every product against the message and risk tolerance and
// returns the best matches. With keywords present a product needs at least
// one keyword hit; an empty message ranks on risk match alone.
func (c *Catalog) Recommend(message, riskTolerance string, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}
	keywords := Keywords(message)
	risk := normalizeRisk(riskTolerance)

	type scored struct {
		product Product
		score   int
	}
	var matches []scored
	for _, p := range c.products {
		hits := keywordHits(p, keywords)
		if len(keywords) > 0 && hits == 0 {
			continue
		}
		score := hits
		if risk != "" && normalizeRisk(p.RiskLevel) == risk {
			score += riskMatchBonus
		}
		if score == 0 {
			continue
		}
		matches = append(matches, scored{product: p, score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].product.ID < matches[j].product.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Recommendation, 0, len(matches))
	for _, m := range matches {
		out = append(out, toRecommendation(m.product, m.score))
	}
	return out
}

func toRecommendation(p Product, score int) Recommendation {
	r := Recommendation{
		ProductID:   p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		RiskLevel:   p.RiskLevel,
		Features:    p.Features,
		Score:       score,
	}
	if p.MinInvestment != nil {
		r.MinInvestment = p.MinInvestment.StringFixed(2)
	}
	return r
}

// keywordHits counts, per keyword, each product field that mentions it.
func keywordHits(p Product, keywords []string) int {
	fields := []string{
		strings.ToLower(p.Name),
		strings.ToLower(p.Category),
		strings.ToLower(p.Description),
		strings.ToLower(strings.Join(p.Features, " ")),
	}
	hits := 0
	for _, k := range keywords {
		for _, f := range fields {
			if strings.Contains(f, k) {
				hits++
			}
		}
	}
	return hits
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "what": {},
	"how": {}, "should": {}, "can": {}, "about": {}, "are": {}, "you": {}, "your": {},
	"have": {}, "has": {}, "want": {}, "need": {}, "some": {}, "any": {}, "would": {},
	"could": {}, "into": {}, "from": {}, "more": {}, "best": {}, "good": {}, "does": {},
	"my": {}, "me": {}, "is": {}, "do": {}, "to": {}, "in": {}, "of": {}, "on": {},
	"get": {}, "give": {}, "tell": {}, "which": {}, "will": {}, "there": {}, "them": {},
}

// Keywords lower-cases the message and keeps distinct words of three or
// more letters that are not stop words, in order of appearance.
func Keywords(message string) []string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// normalizeRisk folds the risk vocabularies used by the product and
// investment tables onto low, medium and high.
func normalizeRisk(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "low"), strings.Contains(s, "conservative"):
		return "low"
	case strings.Contains(s, "medium"), strings.Contains(s, "moderate"), strings.Contains(s, "balanced"):
		return "medium"
	case strings.Contains(s, "high"), strings.Contains(s, "aggressive"):
		return "high"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
