package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a planning entity with assigned developers, strategies and tactics.
// Identities are Mongo ObjectIDs and are rendered as hex strings in JSON.
type Project struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name               string               `bson:"name" json:"name"`
	Description        string               `bson:"description" json:"description"`
	Finished           bool                 `bson:"finished" json:"finished"`
	Progress           float64              `bson:"progress" json:"progress"`
	AssignedDevelopers []primitive.ObjectID `bson:"assignedDevelopers" json:"assignedDevelopers"`
	AssignedStrategies []primitive.ObjectID `bson:"assignedStrategies" json:"assignedStrategies"`
	AssignedTactics    []primitive.ObjectID `bson:"assignedTactics" json:"assignedTactics"`
	FinishedTactics    []primitive.ObjectID `bson:"finishedTactics" json:"finishedTactics"`
	Comments           []Comment            `bson:"comment" json:"comment"`
	Creator            primitive.ObjectID   `bson:"creator" json:"creator"`
	Date               time.Time            `bson:"date" json:"date"`
}

// Comment is embedded in Project.Comments.
type Comment struct {
	ID     primitive.ObjectID `bson:"_id" json:"_id"`
	Author primitive.ObjectID `bson:"author" json:"author"`
	Text   string             `bson:"text" json:"text"`
	Date   time.Time          `bson:"date" json:"date"`
}

// User is owned by the accounts subsystem. Only AssignedProjects is written here.
type User struct {
	ID               primitive.ObjectID   `bson:"_id" json:"_id"`
	Name             string               `bson:"name" json:"name"`
	Email            string               `bson:"email" json:"email"`
	Avatar           string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	FirebaseUID      string               `bson:"firebaseUid,omitempty" json:"-"`
	AssignedProjects []primitive.ObjectID `bson:"assignedProjects" json:"assignedProjects"`
}

// Strategy groups tactics.
type Strategy struct {
	ID              primitive.ObjectID `bson:"_id" json:"_id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	AssignedTactics []Tactic           `bson:"assignedTactics" json:"assignedTactics"`
}

type Tactic struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
}

// EnrichedProject is a Project with its foreign keys replaced by the referenced documents.
// CommentAttendees is only populated on the single-project path.
type EnrichedProject struct {
	ID                               primitive.ObjectID   `bson:"_id" json:"_id"`
	Name                             string               `bson:"name" json:"name"`
	Description                      string               `bson:"description" json:"description"`
	Finished                         bool                 `bson:"finished" json:"finished"`
	Progress                         float64              `bson:"progress" json:"progress"`
	AssignedDevelopers               []User               `bson:"assignedDevelopers" json:"assignedDevelopers"`
	AssignedStrategies               []Strategy           `bson:"assignedStrategies" json:"assignedStrategies"`
	AssignedStrategiesWithAllTactics []Strategy           `bson:"assignedStrategiesWithAllTactics" json:"assignedStrategiesWithAllTactics"`
	AssignedTactics                  []string             `bson:"-" json:"assignedTactics"`
	RawAssignedTactics               []primitive.ObjectID `bson:"assignedTactics" json:"-"`
	FinishedTactics                  []primitive.ObjectID `bson:"finishedTactics" json:"finishedTactics"`
	Comments                         []Comment            `bson:"comment" json:"comment"`
	CommentAttendees                 []User               `bson:"commentAttendees,omitempty" json:"commentAttendees,omitempty"`
	Creator                          primitive.ObjectID   `bson:"creator" json:"creator"`
	Date                             time.Time            `bson:"date" json:"date"`
}

// DeveloperRef is a developer's identity together with a snapshot of its assigned projects.
type DeveloperRef struct {
	ID               primitive.ObjectID   `json:"_id"`
	AssignedProjects []primitive.ObjectID `json:"assignedProjects"`
}

// Has reports whether the snapshot lists projectID.
func (d DeveloperRef) Has(projectID primitive.ObjectID) bool {
	return containsID(d.AssignedProjects, projectID)
}

// CreateProjectRequest is the creation payload.
type CreateProjectRequest struct {
	Name               string               `json:"name" validate:"required,min=2,max=60"`
	Description        string               `json:"description" validate:"max=2000"`
	Finished           bool                 `json:"finished"`
	AssignedDevelopers []primitive.ObjectID `json:"assignedDevelopers"`
	AssignedStrategies []primitive.ObjectID `json:"assignedStrategies"`
	AssignedTactics    []primitive.ObjectID `json:"assignedTactics"`
	Comments           []Comment            `json:"comment"`
}

// EditProjectRequest carries a partial update. Nil fields are left unchanged.
// An explicitly empty AssignedDevelopers unassigns every developer.
type EditProjectRequest struct {
	ID                 primitive.ObjectID    `json:"id"`
	Name               *string               `json:"name,omitempty"`
	Finished           *bool                 `json:"finished,omitempty"`
	Progress           *float64              `json:"progress,omitempty"`
	Description        *string               `json:"description,omitempty"`
	AssignedStrategies *[]primitive.ObjectID `json:"assignedStrategies,omitempty"`
	AssignedTactics    *[]primitive.ObjectID `json:"assignedTactics,omitempty"`
	FinishedTactics    *[]primitive.ObjectID `json:"finishedTactic,omitempty"`
	AssignedDevelopers *[]DeveloperRef       `json:"assignedDevelopers,omitempty"`
	AllDevelopers      []DeveloperRef        `json:"allDevelopers,omitempty"`
}

// DeveloperIDs returns the desired developer identities, or nil when none were supplied.
func (r EditProjectRequest) DeveloperIDs() []primitive.ObjectID {
	if r.AssignedDevelopers == nil {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(*r.AssignedDevelopers))
	for _, d := range *r.AssignedDevelopers {
		ids = append(ids, d.ID)
	}
	return ids
}

// CommentRequest either appends Comment or, when Delete is set, removes CommentID.
type CommentRequest struct {
	ID        primitive.ObjectID `json:"id"`
	Delete    bool               `json:"delete"`
	Comment   *Comment           `json:"comment,omitempty"`
	Comments  []Comment          `json:"comments,omitempty"`
	CommentID primitive.ObjectID `json:"commentId"`
}

// FinishedTacticRequest toggles FinishedTactic. FinishedTactics is the caller's current view;
// when nil the stored set is used.
type FinishedTacticRequest struct {
	ID              primitive.ObjectID   `json:"id"`
	FinishedTactic  primitive.ObjectID   `json:"finishedTactic"`
	FinishedTactics []primitive.ObjectID `json:"finishedTactics,omitempty"`
}

// AssignedProjectRequest pushes or pulls ProjectID across AssignedDevelopers.
type AssignedProjectRequest struct {
	ProjectID          primitive.ObjectID `json:"_id"`
	AssignedDevelopers []DeveloperRef     `json:"assignedDevelopers"`
}

// Activity records one change to a developer's project membership.
type Activity struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ActivityAssigned   = "assigned"
	ActivityUnassigned = "unassigned"
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

// ClampActivityLimit maps a requested page size into [1, MaxActivityLimit].
// Non-positive values fall back to DefaultActivityLimit.
func ClampActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultActivityLimit
	case limit > MaxActivityLimit:
		return MaxActivityLimit
	}
	return limit
}
