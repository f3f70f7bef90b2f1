package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// ProjectStore is the project document store. *repository.ProjectRepository implements it.
type ProjectStore interface {
	Create(ctx context.Context, p *domain.Project) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Set(ctx context.Context, id primitive.ObjectID, fields bson.M) (*domain.Project, error)
	PushComment(ctx context.Context, id primitive.ObjectID, c domain.Comment) (*domain.Project, error)
	ReplaceComments(ctx context.Context, id primitive.ObjectID, comments []domain.Comment) (*domain.Project, error)
	PushFinishedTactic(ctx context.Context, id, tactic primitive.ObjectID) (*domain.Project, error)
	PullFinishedTactic(ctx context.Context, id, tactic primitive.ObjectID) (*domain.Project, error)
	Enriched(ctx context.Context, id *primitive.ObjectID) ([]domain.EnrichedProject, error)
}

// UserStore reads users and writes their project back-references.
// *repository.UserRepository implements it.
type UserStore interface {
	MembershipWriter
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	FindAssignedTo(ctx context.Context, projectID primitive.ObjectID) ([]domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// ViewCache caches enriched views. *cache.ViewCache implements it.
// Reads and writes are scoped to a generation obtained from Generation.
type ViewCache interface {
	Generation(ctx context.Context) (int64, error)
	GetAll(ctx context.Context, gen int64) ([]domain.EnrichedProject, error)
	PutAll(ctx context.Context, gen int64, projects []domain.EnrichedProject) error
	GetProject(ctx context.Context, gen int64, id string) (*domain.EnrichedProject, error)
	PutProject(ctx context.Context, gen int64, p *domain.EnrichedProject) error
	Invalidate(ctx context.Context) error
}

// ActivityLog records membership changes. *repository.ActivityRepository implements it.
type ActivityLog interface {
	InsertBatch(ctx context.Context, entries []domain.Activity) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Activity, error)
}

func developerRefs(users []domain.User) []domain.DeveloperRef {
	out := make([]domain.DeveloperRef, 0, len(users))
	for _, u := range users {
		out = append(out, domain.DeveloperRef{ID: u.ID, AssignedProjects: u.AssignedProjects})
	}
	return out
}
