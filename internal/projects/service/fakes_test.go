package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

var errStore = errors.New("store unavailable")

// memStore is an in-memory ProjectStore. Wrap it in userView for a UserStore.
type memStore struct {
	mu       sync.Mutex
	projects map[primitive.ObjectID]*domain.Project
	users    map[primitive.ObjectID]*domain.User
	enriched []domain.EnrichedProject

	failUsers   map[primitive.ObjectID]bool
	enrichErr   error
	enrichCalls int
	userWrites  int
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[primitive.ObjectID]*domain.Project{},
		users:     map[primitive.ObjectID]*domain.User{},
		failUsers: map[primitive.ObjectID]bool{},
	}
}

func (m *memStore) addUser(projects ...primitive.ObjectID) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.users[id] = &domain.User{ID: id, AssignedProjects: append([]primitive.ObjectID{}, projects...)}
	return id
}

func (m *memStore) addProject(devs ...primitive.ObjectID) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.projects[id] = &domain.Project{ID: id, Name: id.Hex(), AssignedDevelopers: append([]primitive.ObjectID{}, devs...)}
	return id
}

func (m *memStore) userProjects(id primitive.ObjectID) []primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primitive.ObjectID{}, m.users[id].AssignedProjects...)
}

func (m *memStore) ref(id primitive.ObjectID) domain.DeveloperRef {
	return domain.DeveloperRef{ID: id, AssignedProjects: m.userProjects(id)}
}

func (m *memStore) project(id primitive.ObjectID) domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.projects[id]
}

func (m *memStore) Create(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.Name == p.Name {
			return domain.ErrDuplicateName
		}
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) ExistsByName(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) List(_ context.Context) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memStore) Set(_ context.Context, id primitive.ObjectID, fields bson.M) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = v.(string)
		case "finished":
			p.Finished = v.(bool)
		case "progress":
			p.Progress = v.(float64)
		case "assignedDevelopers":
			p.AssignedDevelopers = v.([]primitive.ObjectID)
		case "assignedStrategies":
			p.AssignedStrategies = v.([]primitive.ObjectID)
		case "assignedTactics":
			p.AssignedTactics = v.([]primitive.ObjectID)
		case "finishedTactics":
			p.FinishedTactics = v.([]primitive.ObjectID)
		}
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) PushComment(_ context.Context, id primitive.ObjectID, c domain.Comment) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	cp := *p
	return &cp, nil
}

func (m *memStore) ReplaceComments(_ context.Context, id primitive.ObjectID, comments []domain.Comment) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Comments = comments
	cp := *p
	return &cp, nil
}

func (m *memStore) PushFinishedTactic(_ context.Context, id, tactic primitive.ObjectID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !slices.Contains(p.FinishedTactics, tactic) {
		p.FinishedTactics = append(p.FinishedTactics, tactic)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) PullFinishedTactic(_ context.Context, id, tactic primitive.ObjectID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	kept := []primitive.ObjectID{}
	for _, t := range p.FinishedTactics {
		if t != tactic {
			kept = append(kept, t)
		}
	}
	p.FinishedTactics = kept
	cp := *p
	return &cp, nil
}

func (m *memStore) Enriched(_ context.Context, id *primitive.ObjectID) ([]domain.EnrichedProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichCalls++
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}
	if id == nil {
		return append([]domain.EnrichedProject{}, m.enriched...), nil
	}
	for _, p := range m.enriched {
		if p.ID == *id {
			return []domain.EnrichedProject{p}, nil
		}
	}
	return []domain.EnrichedProject{}, nil
}

func (m *memStore) AddAssignedProject(_ context.Context, userID, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userWrites++
	if m.failUsers[userID] {
		return errStore
	}
	u, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	for _, p := range u.AssignedProjects {
		if p == projectID {
			return nil
		}
	}
	u.AssignedProjects = append(u.AssignedProjects, projectID)
	return nil
}

func (m *memStore) RemoveAssignedProject(_ context.Context, userID, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userWrites++
	if m.failUsers[userID] {
		return errStore
	}
	u, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	kept := []primitive.ObjectID{}
	for _, p := range u.AssignedProjects {
		if p != projectID {
			kept = append(kept, p)
		}
	}
	u.AssignedProjects = kept
	return nil
}

func (m *memStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memStore) FindAssignedTo(_ context.Context, projectID primitive.ObjectID) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		for _, p := range u.AssignedProjects {
			if p == projectID {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) listUsers() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out
}

// userView exposes memStore as a UserStore; its List returns users.
type userView struct{ *memStore }

func (u userView) List(context.Context) ([]domain.User, error) { return u.listUsers(), nil }

// memActivity is an in-memory ActivityLog.
type memActivity struct {
	mu      sync.Mutex
	entries []domain.Activity
	err     error
	limit   int
}

func (a *memActivity) InsertBatch(_ context.Context, entries []domain.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entries...)
	return nil
}

func (a *memActivity) ListByProject(_ context.Context, projectID string, limit int) ([]domain.Activity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = limit
	var out []domain.Activity
	for _, e := range a.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}
