package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto"
)

// cachedEmbedder wraps an Embedder with a read-through vector cache keyed by
// the input text. Remember embeds two layers derived from the same content
// and recall re-embeds repeated queries, so hits are common.
type cachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// Cached wraps e with an in-process cache. If the cache cannot be created,
// e is returned unwrapped.
func Cached(e Embedder) Embedder {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000, // number of cached vectors
		BufferItems: 64,
	})
	if err != nil {
		return e
	}
	return &cachedEmbedder{inner: e, cache: cache}
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.(Vector); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

func (c *cachedEmbedder) Dims() int { return c.inner.Dims() }
