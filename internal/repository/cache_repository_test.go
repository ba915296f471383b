package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

func TestCacheRepositoryRoundTripAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCacheRepository(client, zap.NewNop())
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "sections:list:a", &dest), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "sections:list:a", map[string]int{"total": 3}, time.Minute))
	require.NoError(t, repo.Set(ctx, "sections:list:b", map[string]int{"total": 4}, time.Minute))
	require.NoError(t, repo.Set(ctx, "catalog", map[string]int{"days": 7}, time.Minute))

	require.NoError(t, repo.Get(ctx, "sections:list:a", &dest))
	assert.Equal(t, 3, dest["total"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "sections:list:a", &dest), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "sections:list:a", map[string]int{"total": 3}, time.Minute))
	deleted, err := repo.DeleteByPattern(ctx, "sections:*")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted, "expired key b is gone, only a remains")
	assert.False(t, mr.Exists("sections:list:a"))
}

func TestCacheRepositoryCorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCacheRepository(client, nil)

	require.NoError(t, mr.Set("sections:list:x", "{not json"))
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "sections:list:x", &dest), appErrors.ErrCacheMiss)
	assert.False(t, mr.Exists("sections:list:x"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	n, err := repo.DeleteByPattern(context.Background(), "*")
	assert.NoError(t, err)
	assert.Zero(t, n)
}
