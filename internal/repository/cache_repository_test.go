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

	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, zap.NewNop()), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	payload := map[string]int{"Good": 1, "Bad": 0}
	require.NoError(t, repo.Set(ctx, "report:form:f1:false", payload, time.Minute, "tag:form:f1"))
	assert.True(t, mr.Exists("report:form:f1:false"))
	members, err := mr.Members("tag:form:f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"report:form:f1:false"}, members)

	var got map[string]int
	require.NoError(t, repo.Get(ctx, "report:form:f1:false", &got))
	assert.Equal(t, payload, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "report:form:f1:false", &got), appErrors.ErrCacheMiss)
	assert.False(t, mr.Exists("tag:form:f1"))
}

func TestCacheRepositoryUndecodableIsMiss(t *testing.T) {
	repo, mr := newCacheRepo(t)
	require.NoError(t, mr.Set("report:form:f1:false", "not json"))

	var got map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "report:form:f1:false", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryInvalidateTags(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "report:form:f1:false", 1, time.Minute, "tag:form:f1"))
	require.NoError(t, repo.Set(ctx, "report:form:f1:true", 2, time.Minute, "tag:form:f1"))
	require.NoError(t, repo.Set(ctx, "report:campaign:c1:false", 3, time.Minute, "tag:campaign:c1"))
	require.NoError(t, repo.Set(ctx, "report:form:f2:false", 4, time.Minute, "tag:form:f2"))

	require.NoError(t, repo.InvalidateTags(ctx, "tag:form:f1", "tag:campaign:c1", "tag:unknown"))
	assert.False(t, mr.Exists("report:form:f1:false"))
	assert.False(t, mr.Exists("report:form:f1:true"))
	assert.False(t, mr.Exists("report:campaign:c1:false"))
	assert.False(t, mr.Exists("tag:form:f1"))
	assert.True(t, mr.Exists("report:form:f2:false"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute, "t"))
	assert.NoError(t, repo.InvalidateTags(context.Background(), "t"))
}
