package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type cacheRepoStub struct {
	getErr     error
	setErr     error
	setTTL     time.Duration
	setCalls   int
	patterns   []string
	deleteErr  error
	storedKeys []string
}

func (s *cacheRepoStub) Get(_ context.Context, _ string, _ interface{}) error {
	return s.getErr
}

func (s *cacheRepoStub) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) error {
	s.setCalls++
	s.setTTL = ttl
	s.storedKeys = append(s.storedKeys, key)
	return s.setErr
}

func (s *cacheRepoStub) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	s.patterns = append(s.patterns, pattern)
	return 1, s.deleteErr
}

func TestCacheServiceDisabledSkipsRepository(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	assert.False(t, svc.Enabled())
	assert.False(t, svc.Get(context.Background(), "k", &struct{}{}))
	svc.Set(context.Background(), "k", 1, 0)
	svc.Invalidate(context.Background(), "sections:*")

	assert.Zero(t, repo.setCalls)
	assert.Empty(t, repo.patterns)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceDefaultTTLAndHits(t *testing.T) {
	repo := &cacheRepoStub{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)

	svc.Set(context.Background(), "sections:list:x", []int{1}, 0)
	assert.Equal(t, 5*time.Minute, repo.setTTL)

	svc.Set(context.Background(), "catalog:v1", []int{1}, time.Hour)
	assert.Equal(t, time.Hour, repo.setTTL)

	assert.True(t, svc.Get(context.Background(), "sections:list:x", &[]int{}))

	repo.getErr = appErrors.ErrCacheMiss
	assert.False(t, svc.Get(context.Background(), "sections:list:y", &[]int{}))

	repo.getErr = errors.New("connection refused")
	assert.False(t, svc.Get(context.Background(), "sections:list:z", &[]int{}))
}

func TestCacheServiceFailuresAreSwallowed(t *testing.T) {
	repo := &cacheRepoStub{setErr: errors.New("down"), deleteErr: errors.New("down")}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	assert.NotPanics(t, func() {
		svc.Set(context.Background(), "k", 1, 0)
		svc.Invalidate(context.Background(), "sections:*")
	})
	assert.Equal(t, []string{"sections:*"}, repo.patterns)
}
