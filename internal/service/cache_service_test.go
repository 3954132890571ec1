package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberLoadsOnceThenHits(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	loads := 0
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"du", "buet"}, nil
	}

	value, hit, err := Remember(context.Background(), cache, "unis", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"du", "buet"}, value)
	assert.Contains(t, repo.store, "admission:unis")

	value, hit, err = Remember(context.Background(), cache, "unis", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"du", "buet"}, value)
	assert.Equal(t, 1, loads)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, nil, true)
	_, _, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestDisabledCacheIsNoop(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, repo.store)

	ok, err := cache.Acquire(context.Background(), "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestNamespacedIsIdempotent(t *testing.T) {
	assert.Equal(t, "admission:eligibility:*", namespaced("eligibility:*"))
	assert.Equal(t, "admission:x", namespaced("admission:x"))
}
