package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/projects/cache"
	"github.com/tacticboard/projects-api/internal/projects/domain"
)

func TestResolver_One(t *testing.T) {
	ctx := context.Background()

	t.Run("not found is distinct from a store error", func(t *testing.T) {
		store := newMemStore()
		r := NewResolver(store, nil)

		_, err := r.One(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		store.enrichErr = errStore
		_, err = r.One(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, errStore)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returns the matching project", func(t *testing.T) {
		store := newMemStore()
		id := primitive.NewObjectID()
		store.enriched = []domain.EnrichedProject{{ID: id, Name: "apollo"}}

		p, err := NewResolver(store, nil).One(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "apollo", p.Name)
	})
}

func TestResolver_UsesViewCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	views := cache.NewViewCache(client, time.Minute)

	store := newMemStore()
	id := primitive.NewObjectID()
	store.enriched = []domain.EnrichedProject{{ID: id, Name: "apollo", AssignedTactics: []string{}}}
	r := NewResolver(store, views)

	_, err := r.All(ctx)
	require.NoError(t, err)
	_, err = r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.enrichCalls)

	_, err = r.One(ctx, id)
	require.NoError(t, err)
	_, err = r.One(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, store.enrichCalls)

	require.NoError(t, views.Invalidate(ctx))
	_, err = r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.enrichCalls)
}

func TestResolver_CacheOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	views := cache.NewViewCache(client, time.Minute)
	mr.Close()

	store := newMemStore()
	store.enriched = []domain.EnrichedProject{{ID: primitive.NewObjectID()}}

	out, err := NewResolver(store, views).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

// racingFinder simulates an edit landing while the aggregation runs:
// the first call returns the pre-edit view and bumps the generation.
type racingFinder struct {
	views *cache.ViewCache
	calls int
	id    primitive.ObjectID
}

func (f *racingFinder) Enriched(ctx context.Context, _ *primitive.ObjectID) ([]domain.EnrichedProject, error) {
	f.calls++
	if f.calls == 1 {
		if err := f.views.Invalidate(ctx); err != nil {
			return nil, err
		}
		return []domain.EnrichedProject{{ID: f.id, Name: "before"}}, nil
	}
	return []domain.EnrichedProject{{ID: f.id, Name: "after"}}, nil
}

func TestResolver_EditDuringLoadIsNotCachedAsCurrent(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	views := cache.NewViewCache(client, time.Minute)

	finder := &racingFinder{views: views, id: primitive.NewObjectID()}
	r := NewResolver(finder, views)

	p, err := r.One(ctx, finder.id)
	require.NoError(t, err)
	assert.Equal(t, "before", p.Name)

	p, err = r.One(ctx, finder.id)
	require.NoError(t, err)
	assert.Equal(t, "after", p.Name)
	assert.Equal(t, 2, finder.calls)
}
