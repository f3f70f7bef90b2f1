package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/tacticboard/projects-api/internal/api/http"
	"github.com/tacticboard/projects-api/internal/api/http/middleware"
	projecthttp "github.com/tacticboard/projects-api/internal/projects/http"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	CORSOrigins  []string
	RateRPS      float64
	RateBurst    int
	HealthChecks map[string]httpapi.Check
	Projects     *projecthttp.Handler
	RequireAuth  gin.HandlerFunc
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.HealthChecks)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	if dep.RateRPS > 0 {
		api.Use(middleware.NewRateLimiter(dep.RateRPS, dep.RateBurst).Middleware())
	}

	dep.Projects.Register(api.Group("/projects"), dep.RequireAuth)

	return r
}
