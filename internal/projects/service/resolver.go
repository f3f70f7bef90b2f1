package service

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/projects/cache"
	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// EnrichedFinder runs the join aggregation.
type EnrichedFinder interface {
	Enriched(ctx context.Context, id *primitive.ObjectID) ([]domain.EnrichedProject, error)
}

// Resolver assembles enriched project views, consulting the view cache first when one is configured.
type Resolver struct {
	projects EnrichedFinder
	cache    ViewCache
}

// NewResolver creates a Resolver. views may be nil.
func NewResolver(projects EnrichedFinder, views ViewCache) *Resolver {
	return &Resolver{projects: projects, cache: views}
}

// All returns every project, enriched.
func (r *Resolver) All(ctx context.Context) ([]domain.EnrichedProject, error) {
	gen, cached := r.generation(ctx)
	if cached {
		out, err := r.cache.GetAll(ctx, gen)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("[projects] view cache read failed: %v", err)
		}
	}

	out, err := r.projects.Enriched(ctx, nil)
	if err != nil {
		return nil, err
	}

	if cached {
		if err := r.cache.PutAll(ctx, gen, out); err != nil {
			log.Printf("[projects] view cache write failed: %v", err)
		}
	}
	return out, nil
}

// One returns a single enriched project or domain.ErrNotFound.
func (r *Resolver) One(ctx context.Context, id primitive.ObjectID) (*domain.EnrichedProject, error) {
	gen, cached := r.generation(ctx)
	if cached {
		p, err := r.cache.GetProject(ctx, gen, id.Hex())
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("[projects] view cache read failed: %v", err)
		}
	}

	out, err := r.projects.Enriched(ctx, &id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	p := &out[0]

	if cached {
		if err := r.cache.PutProject(ctx, gen, p); err != nil {
			log.Printf("[projects] view cache write failed: %v", err)
		}
	}
	return p, nil
}

// generation pins the cache generation before the store is read.
// The cache is bypassed for this call when there is none or it cannot be read.
func (r *Resolver) generation(ctx context.Context) (int64, bool) {
	if r.cache == nil {
		return 0, false
	}
	gen, err := r.cache.Generation(ctx)
	if err != nil {
		log.Printf("[projects] view cache read failed: %v", err)
		return 0, false
	}
	return gen, true
}
