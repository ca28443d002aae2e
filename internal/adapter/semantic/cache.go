package semantic

import (
	"context"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingSearcher memoizes successful semantic lookups per normalized query.
// Errors are passed through and never cached.
type CachingSearcher struct {
	next  domain.SemanticSearcher
	cache *expirable.LRU[string, []string]
}

func NewCachingSearcher(next domain.SemanticSearcher, size int, ttl time.Duration) *CachingSearcher {
	return &CachingSearcher{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

func (c *CachingSearcher) Search(ctx context.Context, query string) ([]string, error) {
	key := normalizeQuery(query)
	if ids, ok := c.cache.Get(key); ok {
		return ids, nil
	}
	ids, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, ids)
	return ids, nil
}

// Len reports the number of cached queries.
func (c *CachingSearcher) Len() int {
	return c.cache.Len()
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
