package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
)

// Op adds or removes a project from one developer's assignedProjects.
type Op struct {
	Kind   OpKind
	UserID primitive.ObjectID
}

type OpResult struct {
	Op  Op
	Err error
}

// BatchResult holds the outcome of every operation in a fan-out, in dispatch order.
type BatchResult struct {
	Results []OpResult
}

// Failed returns the results whose operation did not succeed.
func (b BatchResult) Failed() []OpResult {
	var out []OpResult
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded returns the operations that were applied.
func (b BatchResult) Succeeded() []Op {
	var out []Op
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r.Op)
		}
	}
	return out
}

// Err joins every per-operation failure, or returns nil when all succeeded.
func (b BatchResult) Err() error {
	var errs []error
	for _, r := range b.Failed() {
		errs = append(errs, fmt.Errorf("%s %s: %w", r.Op.Kind, r.Op.UserID.Hex(), r.Err))
	}
	return errors.Join(errs...)
}

// Mode selects how a fan-out reacts to a failing operation.
type Mode int

const (
	// FailFast cancels operations that have not started once one fails.
	FailFast Mode = iota
	// BestEffort runs every operation regardless of failures.
	BestEffort
)

// Plan computes the membership operations that make every developer's
// assignedProjects agree with desired.
//
// previous holds snapshots of the desired developers and all holds snapshots of
// every developer known to the caller. A developer counts as holding the project
// when any snapshot of it lists projectID. Desired developers without a snapshot
// are treated as not holding it.
func Plan(projectID primitive.ObjectID, desired []primitive.ObjectID, previous, all []domain.DeveloperRef) []Op {
	holds := make(map[primitive.ObjectID]bool, len(previous)+len(all))
	for _, snapshots := range [][]domain.DeveloperRef{previous, all} {
		for _, d := range snapshots {
			holds[d.ID] = holds[d.ID] || d.Has(projectID)
		}
	}

	wanted := make(map[primitive.ObjectID]bool, len(desired))
	var ops []Op
	for _, id := range desired {
		if wanted[id] {
			continue
		}
		wanted[id] = true
		if !holds[id] {
			ops = append(ops, Op{Kind: OpAdd, UserID: id})
		}
	}

	seen := make(map[primitive.ObjectID]bool, len(all))
	for _, d := range all {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		if holds[d.ID] && !wanted[d.ID] {
			ops = append(ops, Op{Kind: OpRemove, UserID: d.ID})
		}
	}
	return ops
}

// MembershipWriter updates a user's assignedProjects list.
type MembershipWriter interface {
	AddAssignedProject(ctx context.Context, userID, projectID primitive.ObjectID) error
	RemoveAssignedProject(ctx context.Context, userID, projectID primitive.ObjectID) error
}

// Synchronizer keeps developers' assignedProjects consistent with projects' assignedDevelopers.
type Synchronizer struct {
	users MembershipWriter
}

func NewSynchronizer(users MembershipWriter) *Synchronizer {
	return &Synchronizer{users: users}
}

// Reconcile plans and applies the operations for one project. It fails when any
// single operation fails; operations already applied are not rolled back.
func (s *Synchronizer) Reconcile(ctx context.Context, projectID primitive.ObjectID, desired []primitive.ObjectID, previous, all []domain.DeveloperRef) (BatchResult, error) {
	res := s.Apply(ctx, projectID, Plan(projectID, desired, previous, all), FailFast)
	return res, res.Err()
}

// Apply dispatches ops concurrently and waits for all of them.
func (s *Synchronizer) Apply(ctx context.Context, projectID primitive.ObjectID, ops []Op, mode Mode) BatchResult {
	results := make([]OpResult, len(ops))
	if len(ops) == 0 {
		return BatchResult{Results: results}
	}

	g, gctx := errgroup.WithContext(ctx)
	if mode == BestEffort {
		g, gctx = &errgroup.Group{}, ctx
	}

	for i, op := range ops {
		results[i].Op = op
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			err := s.apply(gctx, projectID, op)
			results[i].Err = err
			if mode == BestEffort {
				return nil
			}
			return err
		})
	}
	_ = g.Wait()

	return BatchResult{Results: results}
}

func (s *Synchronizer) apply(ctx context.Context, projectID primitive.ObjectID, op Op) error {
	switch op.Kind {
	case OpAdd:
		return s.users.AddAssignedProject(ctx, op.UserID, projectID)
	case OpRemove:
		return s.users.RemoveAssignedProject(ctx, op.UserID, projectID)
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
}
