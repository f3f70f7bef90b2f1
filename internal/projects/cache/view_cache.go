package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

const (
	generationKey = "projects:view:gen" // bumped on every mutation
	viewKeyPrefix = "projects:view:"    // projects:view:{gen}:{all|project_id}
	allKey        = "all"
	defaultTTL    = 5 * time.Minute
)

// ErrMiss is returned when no cached view exists for the current generation.
var ErrMiss = errors.New("cache miss")

// ViewCache stores enriched project views in Redis.
// Entries are keyed by a generation counter so a single INCR invalidates every view.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ViewCache{client: client, ttl: ttl}
}

// Generation returns the current view generation. Callers read it once
// before loading from the store and pass it to both Get and Put, so a view
// built before an Invalidate is never stored under the newer generation.
func (c *ViewCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read view generation: %w", err)
	}
	return gen, nil
}

// GetAll returns the cached enriched list for gen.
func (c *ViewCache) GetAll(ctx context.Context, gen int64) ([]domain.EnrichedProject, error) {
	var out []domain.EnrichedProject
	if err := c.get(ctx, c.key(gen, allKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ViewCache) PutAll(ctx context.Context, gen int64, projects []domain.EnrichedProject) error {
	return c.put(ctx, c.key(gen, allKey), projects)
}

// GetProject returns the cached enriched view of one project for gen.
func (c *ViewCache) GetProject(ctx context.Context, gen int64, id string) (*domain.EnrichedProject, error) {
	var out domain.EnrichedProject
	if err := c.get(ctx, c.key(gen, id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ViewCache) PutProject(ctx context.Context, gen int64, p *domain.EnrichedProject) error {
	return c.put(ctx, c.key(gen, p.ID.Hex()), p)
}

// Invalidate drops every cached view.
func (c *ViewCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump view generation: %w", err)
	}
	return nil
}

func (c *ViewCache) key(gen int64, name string) string {
	return fmt.Sprintf("%s%d:%s", viewKeyPrefix, gen, name)
}

func (c *ViewCache) get(ctx context.Context, key string, v any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get view: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal view: %w", err)
	}
	return nil
}

func (c *ViewCache) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set view: %w", err)
	}
	return nil
}
