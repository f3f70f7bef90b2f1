package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

func setupViewCache(t *testing.T) (*ViewCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewViewCache(client, time.Minute), mr
}

func TestViewCache_ProjectRoundTrip(t *testing.T) {
	c, _ := setupViewCache(t)
	ctx := context.Background()

	p := &domain.EnrichedProject{
		ID:              primitive.NewObjectID(),
		Name:            "apollo",
		AssignedTactics: []string{"t1"},
	}

	_, err := c.GetProject(ctx, 0, p.ID.Hex())
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.PutProject(ctx, 0, p))

	got, err := c.GetProject(ctx, 0, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "apollo", got.Name)
	assert.Equal(t, []string{"t1"}, got.AssignedTactics)
}

func TestViewCache_InvalidateDropsViews(t *testing.T) {
	c, _ := setupViewCache(t)
	ctx := context.Background()

	list := []domain.EnrichedProject{{ID: primitive.NewObjectID(), Name: "a"}}
	require.NoError(t, c.PutAll(ctx, 0, list))

	got, err := c.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, c.Invalidate(ctx))
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	_, err = c.GetAll(ctx, gen)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_EntriesExpire(t *testing.T) {
	c, mr := setupViewCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutAll(ctx, 0, []domain.EnrichedProject{}))
	mr.FastForward(2 * time.Minute)

	_, err := c.GetAll(ctx, 0)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_StoreFailure(t *testing.T) {
	c, mr := setupViewCache(t)
	mr.Close()

	_, err := c.Generation(context.Background())
	require.Error(t, err)

	_, err = c.GetAll(context.Background(), 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestViewCache_WriteUnderStaleGenerationIsNotServed(t *testing.T) {
	c, _ := setupViewCache(t)
	ctx := context.Background()

	stale, err := c.Generation(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx))

	p := &domain.EnrichedProject{ID: primitive.NewObjectID(), Name: "old"}
	require.NoError(t, c.PutProject(ctx, stale, p))

	current, err := c.Generation(ctx)
	require.NoError(t, err)
	_, err = c.GetProject(ctx, current, p.ID.Hex())
	assert.ErrorIs(t, err, ErrMiss)
}
