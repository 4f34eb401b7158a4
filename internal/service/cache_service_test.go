package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

type memoryCacheRepo struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.values, key)
		}
	}
	return nil
}

func TestRememberLoadsOnceThenHits(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	loads := 0
	load := func(ctx context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	first, hit, err := remember(context.Background(), cache, "k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a", "b"}, first)

	second, hit, err := remember(context.Background(), cache, "k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 0.5, cache.metrics.Snapshot().CacheHitRatio)
}

func TestRememberBypassesDisabledOrFailingCache(t *testing.T) {
	loads := 0
	load := func(ctx context.Context) (int, error) {
		loads++
		return 42, nil
	}

	disabled := NewCacheService(&memoryCacheRepo{values: map[string][]byte{}}, nil, 0, nil, false)
	_, _, _ = remember(context.Background(), disabled, "k", load)
	_, hit, _ := remember(context.Background(), disabled, "k", load)
	assert.False(t, hit)

	failing := NewCacheService(&memoryCacheRepo{values: map[string][]byte{}, getErr: errors.New("redis down")}, nil, 0, nil, true)
	value, hit, err := remember(context.Background(), failing, "k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, value)
	assert.Equal(t, 3, loads)
}

func TestRememberWithNilCache(t *testing.T) {
	value, hit, err := remember(context.Background(), nil, "k", func(ctx context.Context) (string, error) { return "v", nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "v", value)
}

func TestInvalidateDropsMatchingKeysOnly(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	cache.Set(context.Background(), "teachers:all", []string{"t1"}, 0)
	cache.Set(context.Background(), "courses:all", []string{"c1"}, 0)

	require.NoError(t, cache.Invalidate(context.Background(), teacherListingPattern))
	assert.NotContains(t, repo.values, "teachers:all")
	assert.Contains(t, repo.values, "courses:all")

	disabled := NewCacheService(repo, nil, time.Minute, nil, false)
	assert.NoError(t, disabled.Invalidate(context.Background(), "*"))
	assert.Contains(t, repo.values, "courses:all")
}

func TestReconciledTeacherRefreshesCachedDirectory(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	cache.Set(context.Background(), "teachers:all", []models.TeacherCard{{Profile: models.Profile{ID: "t1", Email: "old@example.com"}}}, 0)

	events := NewSessionEvents(8, nil)
	provider := NewSessionProvider(events, roleReconciler{"t1": models.RoleTeacher}, nil, nil, ProviderConfig{Workers: 1})
	provider.InvalidateListings(cache)
	provider.Start(context.Background())
	defer provider.Stop()
	require.Eventually(t, func() bool { return events.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	events.Publish(signedIn("t1", "new@example.com"))
	require.Eventually(t, func() bool {
		var cards []models.TeacherCard
		return !cache.Get(context.Background(), "teachers:all", &cards)
	}, time.Second, 5*time.Millisecond)
}
