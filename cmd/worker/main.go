package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tacticboard/projects-api/config"
	"github.com/tacticboard/projects-api/internal/bootstrap"
	"github.com/tacticboard/projects-api/internal/projects/cache"
	cronjob "github.com/tacticboard/projects-api/internal/projects/cron"
	"github.com/tacticboard/projects-api/internal/projects/repository"
	"github.com/tacticboard/projects-api/internal/projects/service"
)

const usage = "usage: worker audit [-repair] | worker schedule"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg := config.Read()
	if err := cfg.ValidateStores(); err != nil {
		log.Fatalf("config: %v", err)
	}

	switch os.Args[1] {
	case "audit":
		runAudit(cfg, os.Args[2:])
	case "schedule":
		runSchedule(cfg)
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

func newAuditor(ctx context.Context, cfg *config.Config, repair bool) (*service.Auditor, func()) {
	client, db, err := bootstrap.OpenMongo(ctx, bootstrap.MongoOptions{
		URI:       cfg.Mongo.URI,
		Database:  cfg.Mongo.Database,
		ConnectTO: cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}

	// Repairs rewrite memberships, so cached views must be dropped afterwards.
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, cached views will expire on their TTL: %v", err)
	}
	var views service.ViewCache
	if rdb != nil {
		views = cache.NewViewCache(rdb, cfg.Redis.TTL)
	}

	closeFn := func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(cctx)
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	auditor := service.NewAuditor(
		repository.NewProjectRepository(db),
		repository.NewUserRepository(db),
		views,
		repair,
		cfg.Audit.RepairRPS,
	)
	return auditor, closeFn
}

// runAudit performs a single pass and prints the report as JSON.
func runAudit(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	repair := fs.Bool("repair", cfg.Audit.Repair, "rewrite user back-references to match projects")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditor, closeFn := newAuditor(ctx, cfg, *repair)
	defer closeFn()

	report, err := auditor.Run(ctx)
	if err != nil {
		log.Printf("audit: %v", err)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Printf("encode report: %v", err)
	}
}

// runSchedule runs the audit on AUDIT_SCHEDULE until interrupted.
func runSchedule(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditor, closeFn := newAuditor(ctx, cfg, cfg.Audit.Repair)
	defer closeFn()

	scheduler := cronjob.NewScheduler(auditor)
	if err := scheduler.Start(cfg.Audit.Schedule); err != nil {
		log.Printf("scheduler: %v", err)
		return
	}

	<-ctx.Done()
	log.Println("stopping scheduler")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(sctx)
}
