package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(4, time.Minute)

	result := &domain.QueryResult{Observed: []domain.PhenotypeID{"HP:0000510"}}
	c.Set("k1", result)

	got := c.Get("k1")
	require.NotNil(t, got)
	assert.Same(t, result, got)

	assert.Nil(t, c.Get("missing"))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)

	c.Set("a", &domain.QueryResult{})
	c.Set("b", &domain.QueryResult{})
	c.Set("c", &domain.QueryResult{})

	// Oldest entry evicted once the bound is exceeded.
	assert.Equal(t, 2, c.Len())
	assert.Nil(t, c.Get("a"))
	assert.NotNil(t, c.Get("c"))
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache(4, 10*time.Millisecond)

	c.Set("k", &domain.QueryResult{})
	require.NotNil(t, c.Get("k"))

	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, c.Get("k"))
}

func TestMemoryCachePurge(t *testing.T) {
	c := NewMemoryCache(4, time.Minute)

	c.Set("a", &domain.QueryResult{})
	c.Set("b", &domain.QueryResult{})
	c.Purge()

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Get("a"))
}
