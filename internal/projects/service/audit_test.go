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

func TestFindViolations(t *testing.T) {
	p1, p2, gone := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	projects := []domain.Project{
		{ID: p1, AssignedDevelopers: []primitive.ObjectID{a, b}},
		{ID: p2, AssignedDevelopers: []primitive.ObjectID{c}},
	}
	users := []domain.User{
		{ID: a, AssignedProjects: []primitive.ObjectID{p1}},
		{ID: b},
		{ID: c, AssignedProjects: []primitive.ObjectID{p1, p2, gone}},
	}

	got := FindViolations(projects, users)

	assert.ElementsMatch(t, []Violation{
		{ProjectID: p1, UserID: b, Kind: ViolationMissingBackReference},
		{ProjectID: p1, UserID: c, Kind: ViolationStaleBackReference},
		{ProjectID: gone, UserID: c, Kind: ViolationStaleBackReference},
	}, got)
}

func TestFindViolations_ConsistentStore(t *testing.T) {
	p := primitive.NewObjectID()
	a := primitive.NewObjectID()
	got := FindViolations(
		[]domain.Project{{ID: p, AssignedDevelopers: []primitive.ObjectID{a}}},
		[]domain.User{{ID: a, AssignedProjects: []primitive.ObjectID{p}}},
	)
	assert.Empty(t, got)
}

func TestAuditor_Run(t *testing.T) {
	ctx := context.Background()

	setup := func() (*memStore, primitive.ObjectID, primitive.ObjectID, primitive.ObjectID) {
		store := newMemStore()
		a := store.addUser()
		p := store.addProject(a)
		b := store.addUser(p)
		return store, p, a, b
	}

	t.Run("report only", func(t *testing.T) {
		store, _, a, _ := setup()
		report, err := NewAuditor(store, userView{store}, nil, false, 0).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Projects)
		assert.Equal(t, 2, report.Users)
		assert.Len(t, report.Violations, 2)
		assert.Zero(t, report.Repaired)
		assert.Empty(t, store.userProjects(a))
	})

	t.Run("repair makes users match projects", func(t *testing.T) {
		store, p, a, b := setup()
		report, err := NewAuditor(store, userView{store}, nil, true, 1000).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Repaired)
		assert.Zero(t, report.Failed)
		assert.Equal(t, []primitive.ObjectID{p}, store.userProjects(a))
		assert.Empty(t, store.userProjects(b))

		again, err := NewAuditor(store, userView{store}, nil, false, 0).Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, again.Violations)
	})

	t.Run("repair failures are counted", func(t *testing.T) {
		store, _, a, _ := setup()
		store.failUsers[a] = true
		report, err := NewAuditor(store, userView{store}, nil, true, 0).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Repaired)
		assert.Equal(t, 1, report.Failed)
	})
}

func TestAuditor_RepairInvalidatesViews(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	views := cache.NewViewCache(client, time.Minute)

	store := newMemStore()
	a := store.addUser()
	p := store.addProject(a)

	generation := func() int64 {
		gen, err := views.Generation(ctx)
		require.NoError(t, err)
		return gen
	}

	_, err := NewAuditor(store, userView{store}, views, false, 0).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, generation(), "report-only runs leave the cache alone")

	report, err := NewAuditor(store, userView{store}, views, true, 0).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Repaired)
	assert.Equal(t, []primitive.ObjectID{p}, store.userProjects(a))
	assert.Equal(t, int64(1), generation())

	report, err = NewAuditor(store, userView{store}, views, true, 0).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Repaired)
	assert.Equal(t, int64(1), generation(), "a clean repair pass does not invalidate")
}
