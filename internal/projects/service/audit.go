package service

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

const (
	// ViolationMissingBackReference: the project lists the developer but the user does not list the project.
	ViolationMissingBackReference = "missing_back_reference"
	// ViolationStaleBackReference: the user lists a project that does not list the user (or no longer exists).
	ViolationStaleBackReference = "stale_back_reference"
)

type Violation struct {
	ProjectID primitive.ObjectID `json:"project_id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Kind      string             `json:"kind"`
}

type AuditReport struct {
	Projects   int         `json:"projects"`
	Users      int         `json:"users"`
	Violations []Violation `json:"violations"`
	Repaired   int         `json:"repaired"`
	Failed     int         `json:"failed"`
}

// FindViolations lists every pair that breaks the project/developer invariant.
// Developers referenced by a project but missing from users are ignored.
func FindViolations(projects []domain.Project, users []domain.User) []Violation {
	userProjects := make(map[primitive.ObjectID]map[primitive.ObjectID]bool, len(users))
	for _, u := range users {
		set := make(map[primitive.ObjectID]bool, len(u.AssignedProjects))
		for _, pid := range u.AssignedProjects {
			set[pid] = true
		}
		userProjects[u.ID] = set
	}

	projectDevs := make(map[primitive.ObjectID]map[primitive.ObjectID]bool, len(projects))
	var out []Violation
	for _, p := range projects {
		devs := make(map[primitive.ObjectID]bool, len(p.AssignedDevelopers))
		for _, uid := range p.AssignedDevelopers {
			if devs[uid] {
				continue
			}
			devs[uid] = true
			set, known := userProjects[uid]
			if known && !set[p.ID] {
				out = append(out, Violation{ProjectID: p.ID, UserID: uid, Kind: ViolationMissingBackReference})
			}
		}
		projectDevs[p.ID] = devs
	}

	for _, u := range users {
		seen := make(map[primitive.ObjectID]bool, len(u.AssignedProjects))
		for _, pid := range u.AssignedProjects {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			if !projectDevs[pid][u.ID] {
				out = append(out, Violation{ProjectID: pid, UserID: u.ID, Kind: ViolationStaleBackReference})
			}
		}
	}
	return out
}

type projectLister interface {
	List(ctx context.Context) ([]domain.Project, error)
}

type userLister interface {
	MembershipWriter
	List(ctx context.Context) ([]domain.User, error)
}

// Auditor checks the project/developer invariant across the whole store and,
// when repair is enabled, rewrites user back-references to match projects.
type Auditor struct {
	projects projectLister
	users    userLister
	views    ViewCache
	sync     *Synchronizer
	limiter  *rate.Limiter
	repair   bool
}

// NewAuditor creates an Auditor. views may be nil; when set, cached views are
// dropped after a repair that changed anything.
// repairRPS paces repair writes; zero or less means unlimited.
func NewAuditor(projects projectLister, users userLister, views ViewCache, repair bool, repairRPS float64) *Auditor {
	limit := rate.Inf
	if repairRPS > 0 {
		limit = rate.Limit(repairRPS)
	}
	return &Auditor{
		projects: projects,
		users:    users,
		views:    views,
		sync:     NewSynchronizer(users),
		limiter:  rate.NewLimiter(limit, 1),
		repair:   repair,
	}
}

func (a *Auditor) Run(ctx context.Context) (*AuditReport, error) {
	projects, err := a.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	report := &AuditReport{
		Projects:   len(projects),
		Users:      len(users),
		Violations: FindViolations(projects, users),
	}
	log.Printf("[audit] scanned projects=%d users=%d violations=%d", report.Projects, report.Users, len(report.Violations))

	if !a.repair {
		return report, nil
	}

	for _, v := range report.Violations {
		if err := a.limiter.Wait(ctx); err != nil {
			return report, err
		}
		op := Op{Kind: OpAdd, UserID: v.UserID}
		if v.Kind == ViolationStaleBackReference {
			op.Kind = OpRemove
		}
		if err := a.sync.apply(ctx, v.ProjectID, op); err != nil {
			report.Failed++
			log.Printf("[audit] repair %s project=%s user=%s failed: %v", op.Kind, v.ProjectID.Hex(), v.UserID.Hex(), err)
			continue
		}
		report.Repaired++
	}
	log.Printf("[audit] repaired=%d failed=%d", report.Repaired, report.Failed)

	if report.Repaired > 0 && a.views != nil {
		if err := a.views.Invalidate(ctx); err != nil {
			log.Printf("[audit] view cache invalidate failed: %v", err)
		}
	}
	return report, nil
}
