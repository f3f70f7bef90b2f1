package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// ProjectService handles project-related business logic
type ProjectService struct {
	projects ProjectStore
	users    UserStore
	sync     *Synchronizer
	resolver *Resolver
	views    ViewCache
	activity ActivityLog
	now      func() time.Time
}

// NewProjectService creates a new project service. views and activity may be nil.
func NewProjectService(projects ProjectStore, users UserStore, views ViewCache, activity ActivityLog) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		sync:     NewSynchronizer(users),
		resolver: NewResolver(projects, views),
		views:    views,
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns every project, enriched.
func (s *ProjectService) List(ctx context.Context) ([]domain.EnrichedProject, error) {
	return s.resolver.All(ctx)
}

// Get returns one enriched project or domain.ErrNotFound.
func (s *ProjectService) Get(ctx context.Context, id primitive.ObjectID) (*domain.EnrichedProject, error) {
	return s.resolver.One(ctx, id)
}

// Create stores a new project owned by creator. Callers validate the payload first.
// Assigned developers receive the back-reference on a best-effort basis.
func (s *ProjectService) Create(ctx context.Context, creator primitive.ObjectID, req domain.CreateProjectRequest) (*domain.Project, error) {
	name := strings.TrimSpace(req.Name)

	exists, err := s.projects.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateName
	}

	now := s.now()
	p := &domain.Project{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		Description:        req.Description,
		Finished:           req.Finished,
		AssignedDevelopers: nonNil(req.AssignedDevelopers),
		AssignedStrategies: nonNil(req.AssignedStrategies),
		AssignedTactics:    nonNil(req.AssignedTactics),
		FinishedTactics:    []primitive.ObjectID{},
		Comments:           make([]domain.Comment, 0, len(req.Comments)),
		Creator:            creator,
		Date:               now,
	}
	for _, c := range req.Comments {
		p.Comments = append(p.Comments, s.newComment(c, creator))
	}

	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}

	ops := Plan(p.ID, p.AssignedDevelopers, nil, nil)
	res := s.sync.Apply(ctx, p.ID, ops, BestEffort)
	if err := res.Err(); err != nil {
		log.Printf("[projects] create %s: developer back-references incomplete: %v", p.ID.Hex(), err)
	}
	s.afterMutation(ctx, creator.Hex(), p.ID, res)

	return p, nil
}

// Delete removes the project and pulls it from every developer still listing it.
func (s *ProjectService) Delete(ctx context.Context, actor string, id primitive.ObjectID) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	var res BatchResult
	holders, err := s.users.FindAssignedTo(ctx, id)
	if err != nil {
		log.Printf("[projects] delete %s: could not load developers: %v", id.Hex(), err)
	} else {
		ops := Plan(id, []primitive.ObjectID{}, nil, developerRefs(holders))
		res = s.sync.Apply(ctx, id, ops, BestEffort)
		if err := res.Err(); err != nil {
			log.Printf("[projects] delete %s: developer cleanup incomplete: %v", id.Hex(), err)
		}
	}

	s.afterMutation(ctx, actor, id, res)
	return nil
}

// Edit applies a partial update and reconciles developer back-references when
// AssignedDevelopers is supplied. The project update and membership operations
// run concurrently; any failure fails the edit without rolling back the others.
func (s *ProjectService) Edit(ctx context.Context, actor string, req domain.EditProjectRequest) (*domain.Project, error) {
	fields := editFields(req)

	var ops []Op
	if desired := req.DeveloperIDs(); desired != nil {
		fields["assignedDevelopers"] = desired

		if _, err := s.projects.FindByID(ctx, req.ID); err != nil {
			return nil, err
		}

		known := req.AllDevelopers
		if known == nil {
			var err error
			known, err = s.knownDevelopers(ctx, req.ID, desired)
			if err != nil {
				return nil, err
			}
		}
		ops = Plan(req.ID, desired, *req.AssignedDevelopers, known)
	}

	var (
		updated *domain.Project
		res     BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.projects.Set(gctx, req.ID, fields)
		updated = p
		return err
	})
	g.Go(func() error {
		res = s.sync.Apply(gctx, req.ID, ops, FailFast)
		return res.Err()
	})
	err := g.Wait()

	s.afterMutation(ctx, actor, req.ID, res)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// knownDevelopers loads every developer that currently lists the project or is desired.
func (s *ProjectService) knownDevelopers(ctx context.Context, projectID primitive.ObjectID, desired []primitive.ObjectID) ([]domain.DeveloperRef, error) {
	holders, err := s.users.FindAssignedTo(ctx, projectID)
	if err != nil {
		return nil, err
	}
	wanted, err := s.users.FindByIDs(ctx, desired)
	if err != nil {
		return nil, err
	}
	return append(developerRefs(holders), developerRefs(wanted)...), nil
}

func editFields(req domain.EditProjectRequest) bson.M {
	fields := bson.M{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Finished != nil {
		fields["finished"] = *req.Finished
	}
	if req.Progress != nil {
		fields["progress"] = *req.Progress
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.AssignedStrategies != nil {
		fields["assignedStrategies"] = nonNil(*req.AssignedStrategies)
	}
	if req.AssignedTactics != nil {
		fields["assignedTactics"] = nonNil(*req.AssignedTactics)
	}
	if req.FinishedTactics != nil {
		fields["finishedTactics"] = nonNil(*req.FinishedTactics)
	}
	return fields
}

// SetComment appends req.Comment or, when req.Delete is set, removes req.CommentID.
// It returns the resulting comment list.
func (s *ProjectService) SetComment(ctx context.Context, actor primitive.ObjectID, req domain.CommentRequest) ([]domain.Comment, error) {
	var (
		p   *domain.Project
		err error
	)
	if !req.Delete {
		if req.Comment == nil {
			return nil, fmt.Errorf("comment required")
		}
		c := s.newComment(*req.Comment, actor)
		if c.Author.IsZero() {
			return nil, domain.ErrNoAuthor
		}
		p, err = s.projects.PushComment(ctx, req.ID, c)
	} else {
		current := req.Comments
		if current == nil {
			stored, ferr := s.projects.FindByID(ctx, req.ID)
			if ferr != nil {
				return nil, ferr
			}
			current = stored.Comments
		}
		p, err = s.projects.ReplaceComments(ctx, req.ID, domain.RemoveComment(current, req.CommentID))
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return p.Comments, nil
}

func (s *ProjectService) newComment(c domain.Comment, author primitive.ObjectID) domain.Comment {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Author.IsZero() {
		c.Author = author
	}
	if c.Date.IsZero() {
		c.Date = s.now()
	}
	return c
}

// ToggleFinishedTactic marks req.FinishedTactic finished when it is not, and unfinished when it is.
func (s *ProjectService) ToggleFinishedTactic(ctx context.Context, req domain.FinishedTacticRequest) (*domain.Project, error) {
	current := req.FinishedTactics
	if current == nil {
		stored, err := s.projects.FindByID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		current = stored.FinishedTactics
	}

	var (
		p   *domain.Project
		err error
	)
	if _, added := domain.ToggleID(current, req.FinishedTactic); added {
		p, err = s.projects.PushFinishedTactic(ctx, req.ID, req.FinishedTactic)
	} else {
		p, err = s.projects.PullFinishedTactic(ctx, req.ID, req.FinishedTactic)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return p, nil
}

// AddAssignedProject pushes the project onto every listed developer.
func (s *ProjectService) AddAssignedProject(ctx context.Context, actor string, req domain.AssignedProjectRequest) (BatchResult, error) {
	return s.bulkMembership(ctx, actor, req, OpAdd)
}

// DeleteAssignedProject pulls the project from every listed developer.
func (s *ProjectService) DeleteAssignedProject(ctx context.Context, actor string, req domain.AssignedProjectRequest) (BatchResult, error) {
	return s.bulkMembership(ctx, actor, req, OpRemove)
}

func (s *ProjectService) bulkMembership(ctx context.Context, actor string, req domain.AssignedProjectRequest, kind OpKind) (BatchResult, error) {
	ops := make([]Op, 0, len(req.AssignedDevelopers))
	for _, d := range req.AssignedDevelopers {
		ops = append(ops, Op{Kind: kind, UserID: d.ID})
	}
	res := s.sync.Apply(ctx, req.ProjectID, ops, BestEffort)
	s.afterMutation(ctx, actor, req.ProjectID, res)
	return res, res.Err()
}

// Activity lists recent membership changes for a project.
func (s *ProjectService) Activity(ctx context.Context, id primitive.ObjectID, limit int) ([]domain.Activity, error) {
	if s.activity == nil {
		return []domain.Activity{}, nil
	}
	return s.activity.ListByProject(ctx, id.Hex(), domain.ClampActivityLimit(limit))
}

// afterMutation drops cached views and records applied membership changes.
// Failures are logged, not returned.
func (s *ProjectService) afterMutation(ctx context.Context, actor string, projectID primitive.ObjectID, res BatchResult) {
	s.invalidate(ctx)

	if s.activity == nil {
		return
	}
	applied := res.Succeeded()
	if len(applied) == 0 {
		return
	}
	entries := make([]domain.Activity, 0, len(applied))
	for _, op := range applied {
		action := domain.ActivityAssigned
		if op.Kind == OpRemove {
			action = domain.ActivityUnassigned
		}
		entries = append(entries, domain.Activity{
			ProjectID: projectID.Hex(),
			UserID:    op.UserID.Hex(),
			Action:    action,
			Actor:     actor,
		})
	}
	if err := s.activity.InsertBatch(ctx, entries); err != nil {
		log.Printf("[projects] activity log write failed for %s: %v", projectID.Hex(), err)
	}
}

func (s *ProjectService) invalidate(ctx context.Context) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx); err != nil {
		log.Printf("[projects] view cache invalidation failed: %v", err)
	}
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
