package cronjob

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tacticboard/projects-api/internal/projects/service"
)

// AuditRunner is satisfied by *service.Auditor.
type AuditRunner interface {
	Run(ctx context.Context) (*service.AuditReport, error)
}

type Scheduler struct {
	cron    *cron.Cron
	auditor AuditRunner
	timeout time.Duration
}

func NewScheduler(auditor AuditRunner) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		auditor: auditor,
		timeout: 30 * time.Minute,
	}
}

// Start registers the audit job on a six-field (seconds first) schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runAudit); err != nil {
		return fmt.Errorf("register audit job %q: %w", schedule, err)
	}

	log.Printf("[cron] scheduler started (audit: %s)", schedule)
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running audit to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runAudit() {
	log.Println("[cron] relationship audit started")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.auditor.Run(ctx)
	if err != nil {
		log.Printf("[cron] relationship audit failed: %v", err)
		return
	}

	log.Printf("[cron] relationship audit completed at %s: violations=%d repaired=%d failed=%d",
		time.Now().Format(time.RFC1123), len(report.Violations), report.Repaired, report.Failed)
}
