package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tacticboard/projects-api/config"
	"github.com/tacticboard/projects-api/internal/auth"
	authmw "github.com/tacticboard/projects-api/internal/auth/middleware"
	"github.com/tacticboard/projects-api/internal/bootstrap"
	"github.com/tacticboard/projects-api/internal/projects/cache"
	projecthttp "github.com/tacticboard/projects-api/internal/projects/http"
	"github.com/tacticboard/projects-api/internal/projects/repository"
	"github.com/tacticboard/projects-api/internal/projects/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stores.Close(cctx)
	}()

	projects := repository.NewProjectRepository(stores.MongoDB)
	if err := projects.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	users := repository.NewUserRepository(stores.MongoDB)

	var views service.ViewCache
	if stores.Redis != nil {
		views = cache.NewViewCache(stores.Redis, cfg.Redis.TTL)
	}

	var activity service.ActivityLog
	if stores.SQL != nil {
		repo := repository.NewActivityRepository(stores.SQL)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("activity schema: %v", err)
		}
		activity = repo
	}

	requireAuth, err := authMiddleware(ctx, cfg, users)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	svc := service.NewProjectService(projects, users, views, activity)
	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  "projects-api",
		Version:      cfg.App.Version,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		RateRPS:      cfg.RateLimit.RPS,
		RateBurst:    cfg.RateLimit.Burst,
		HealthChecks: stores.HealthChecks(),
		Projects:     projecthttp.New(svc),
		RequireAuth:  requireAuth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (env=%s, auth=%s)", cfg.Server.Port, cfg.App.Environment, cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func authMiddleware(ctx context.Context, cfg *config.Config, users *repository.UserRepository) (gin.HandlerFunc, error) {
	if cfg.Auth.Mode == config.AuthModeHeader {
		log.Println("[auth] AUTH_MODE=header: trusting X-User-Id, do not use in production")
		return auth.HeaderAuth(), nil
	}

	client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		return nil, err
	}
	return authmw.FirebaseAuthMiddleware(client, users), nil
}
