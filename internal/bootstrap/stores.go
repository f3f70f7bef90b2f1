package bootstrap

import (
	"context"
	"database/sql"
	"log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tacticboard/projects-api/config"
	httpapi "github.com/tacticboard/projects-api/internal/api/http"
	"github.com/tacticboard/projects-api/internal/storage/postgres"
)

// Stores holds every backing connection. Redis and SQL are nil when disabled.
type Stores struct {
	Mongo   *mongo.Client
	MongoDB *mongo.Database
	Redis   *redis.Client
	SQL     *sql.DB
}

func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	client, db, err := OpenMongo(ctx, MongoOptions{
		URI:       cfg.Mongo.URI,
		Database:  cfg.Mongo.Database,
		ConnectTO: cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	s := &Stores{Mongo: client, MongoDB: db}

	s.Redis, err = OpenRedis(ctx, cfg.Redis)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	if s.Redis == nil {
		log.Println("[bootstrap] REDIS_ADDR not set, view cache disabled")
	}

	if cfg.Database.Enabled() {
		s.SQL, err = postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
	} else {
		log.Println("[bootstrap] DB_HOST not set, activity log disabled")
	}

	return s, nil
}

// HealthChecks reports each store by name; disabled stores map to nil.
func (s *Stores) HealthChecks() map[string]httpapi.Check {
	checks := map[string]httpapi.Check{
		"mongo":    func(ctx context.Context) error { return s.Mongo.Ping(ctx, readpref.Primary()) },
		"redis":    nil,
		"postgres": nil,
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
	}
	if s.SQL != nil {
		checks["postgres"] = s.SQL.PingContext
	}
	return checks
}

func (s *Stores) Close(ctx context.Context) {
	if s.SQL != nil {
		if err := s.SQL.Close(); err != nil {
			log.Printf("[bootstrap] postgres close: %v", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("[bootstrap] redis close: %v", err)
		}
	}
	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			log.Printf("[bootstrap] mongo disconnect: %v", err)
		}
	}
}
