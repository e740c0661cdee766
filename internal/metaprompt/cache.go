package metaprompt

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/dhabedank/fin-advisor/internal/metrics"
)

const defaultCacheTTL = 5 * time.Minute

// CachedGenerator memoizes meta-prompts per user for a fixed TTL.
// Fallback prompts are never cached.
type CachedGenerator struct {
	next  Generator
	cache *ttlcache.Cache[string, string]
}

func NewCachedGenerator(next Generator, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedGenerator{
		next: next,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

func (c *CachedGenerator) Generate(ctx context.Context, userID string) string {
	if item := c.cache.Get(userID); item != nil {
		metrics.MetaPromptsTotal.WithLabelValues("cached").Inc()
		return item.Value()
	}
	prompt := c.next.Generate(ctx, userID)
	if prompt != FallbackPrompt {
		c.cache.Set(userID, prompt, ttlcache.DefaultTTL)
	}
	return prompt
}

// Start runs the expiry loop until Stop is called.
func (c *CachedGenerator) Start() {
	go c.cache.Start()
}

func (c *CachedGenerator) Stop() {
	c.cache.Stop()
}
