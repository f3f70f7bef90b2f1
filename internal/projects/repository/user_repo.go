package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// UserRepository reads users and maintains their assignedProjects back-references.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// AddAssignedProject appends projectID to the user's assignedProjects if absent.
func (r *UserRepository) AddAssignedProject(ctx context.Context, userID, projectID primitive.ObjectID) error {
	return r.update(ctx, userID, bson.M{"$addToSet": bson.M{"assignedProjects": projectID}})
}

// RemoveAssignedProject pulls projectID from the user's assignedProjects.
func (r *UserRepository) RemoveAssignedProject(ctx context.Context, userID, projectID primitive.ObjectID) error {
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"assignedProjects": projectID}})
}

func (r *UserRepository) update(ctx context.Context, userID primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID.Hex(), domain.ErrUserNotFound)
	}
	return nil
}

// FindByIDs returns the users whose identity is in ids, in store order.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// FindAssignedTo returns the users whose assignedProjects contains projectID.
func (r *UserRepository) FindAssignedTo(ctx context.Context, projectID primitive.ObjectID) ([]domain.User, error) {
	return r.find(ctx, bson.M{"assignedProjects": projectID})
}

// List returns every user.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.find(ctx, bson.M{})
}

// FindByFirebaseUID resolves the user linked to a Firebase account.
func (r *UserRepository) FindByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	var u domain.User
	if err := r.coll.FindOne(ctx, bson.M{"firebaseUid": uid}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by firebase uid: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	out := make([]domain.User, 0, 8)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}
