package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

const (
	ProjectsCollection   = "projects"
	UsersCollection      = "users"
	StrategiesCollection = "strategies"
)

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	coll *mongo.Collection
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{coll: db.Collection(ProjectsCollection)}
}

// EnsureIndexes creates the unique index on project names.
func (r *ProjectRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_unique"),
	})
	if err != nil {
		return fmt.Errorf("create project name index: %w", err)
	}
	return nil
}

// Create inserts p. A duplicate name surfaces as domain.ErrDuplicateName.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// ExistsByName reports whether a project named name exists.
func (r *ProjectRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count projects by name: %w", err)
	}
	return n > 0, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Project, error) {
	var p domain.Project
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &p, nil
}

// List returns every project document without joins.
func (r *ProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]domain.Project, 0, 16)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}

// Delete removes the project. It does not touch developers' assigned-project lists.
func (r *ProjectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Set applies a $set of fields and returns the updated document.
func (r *ProjectRepository) Set(ctx context.Context, id primitive.ObjectID, fields bson.M) (*domain.Project, error) {
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": fields})
}

// PushComment appends c to the project's comment list.
func (r *ProjectRepository) PushComment(ctx context.Context, id primitive.ObjectID, c domain.Comment) (*domain.Project, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$push": bson.M{"comment": c}})
}

// ReplaceComments overwrites the whole comment list.
func (r *ProjectRepository) ReplaceComments(ctx context.Context, id primitive.ObjectID, comments []domain.Comment) (*domain.Project, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{"comment": comments}})
}

// PushFinishedTactic adds tactic to finishedTactics unless it is already there.
func (r *ProjectRepository) PushFinishedTactic(ctx context.Context, id, tactic primitive.ObjectID) (*domain.Project, error) {
	return r.findOneAndUpdate(ctx, id, addFinishedTactic(tactic))
}

func addFinishedTactic(tactic primitive.ObjectID) bson.M {
	return bson.M{"$addToSet": bson.M{"finishedTactics": tactic}}
}

// PullFinishedTactic removes tactic from finishedTactics.
func (r *ProjectRepository) PullFinishedTactic(ctx context.Context, id, tactic primitive.ObjectID) (*domain.Project, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$pull": bson.M{"finishedTactics": tactic}})
}

// Enriched runs the list or detail aggregation and returns the joined documents
// with each strategy's tactics already narrowed to the project's assigned tactics.
// A nil id selects every project.
func (r *ProjectRepository) Enriched(ctx context.Context, id *primitive.ObjectID) ([]domain.EnrichedProject, error) {
	pipeline := ListPipeline()
	if id != nil {
		pipeline = DetailPipeline(*id)
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate projects: %w", err)
	}
	out := make([]domain.EnrichedProject, 0, 16)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode enriched projects: %w", err)
	}
	for i := range out {
		out[i].FilterStrategyTactics()
	}
	return out, nil
}

func (r *ProjectRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*domain.Project, error) {
	var p domain.Project
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &p, nil
}
