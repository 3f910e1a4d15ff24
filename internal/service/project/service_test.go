package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/service/github"
)

type fakeStore struct {
	mu          sync.Mutex
	projects    map[int64]*domain.Project
	deployments []domain.Deployment
	activities  []domain.Activity
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: make(map[int64]*domain.Project)}
}

func (f *fakeStore) CreateProject(_ context.Context, p *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	stored := *p
	f.projects[p.ID] = &stored
	return nil
}

func (f *fakeStore) GetProjectByID(_ context.Context, id int64) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) ListProjectsByUser(_ context.Context, userID int64) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListProjectsByRepository(context.Context, string) ([]domain.Project, error) {
	return nil, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, id int64, update domain.ProjectUpdate) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != "" {
		p.Name = update.Name
	}
	if update.Description != "" {
		p.Description = update.Description
	}
	if update.Branch != "" {
		p.Branch = update.Branch
	}
	if update.Framework != "" {
		p.Framework = update.Framework
	}
	if update.Status != "" {
		p.Status = update.Status
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeStore) CreateDeployment(context.Context, *domain.Deployment) error { return nil }
func (f *fakeStore) GetDeploymentByID(context.Context, int64) (*domain.Deployment, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeStore) ListDeploymentsByProject(context.Context, int64, int) ([]domain.Deployment, error) {
	return nil, nil
}
func (f *fakeStore) UpdateDeployment(context.Context, domain.DeploymentUpdate) (*domain.Deployment, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListDeploymentsByUser(_ context.Context, _ int64) ([]domain.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Deployment(nil), f.deployments...), nil
}

func (f *fakeStore) CreateActivity(_ context.Context, a *domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, *a)
	return nil
}

func (f *fakeStore) ListActivitiesByUser(context.Context, int64, int) ([]domain.Activity, error) {
	return nil, nil
}

func newTestService(store *fakeStore) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, store, activity.New(store, nil, log), github.New(log),
		"http://api.test/api/webhooks/github", log)
}

func TestCreateDefaults(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), 1, "", CreateInput{
		Name:           "widgets",
		RepositoryName: "octo/widgets",
		Framework:      "react",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Branch != "main" {
		t.Errorf("branch = %q, want main", created.Branch)
	}
	if created.RepositoryURL != "https://github.com/octo/widgets" {
		t.Errorf("repository url = %q", created.RepositoryURL)
	}
	if created.Status != domain.ProjectStatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if len(store.activities) != 1 || store.activities[0].Type != domain.ActivityProjectCreated {
		t.Errorf("activities = %+v", store.activities)
	}
}

func TestCreateInvalidInput(t *testing.T) {
	svc := newTestService(newFakeStore())
	cases := map[string]CreateInput{
		"empty name":     {RepositoryName: "octo/widgets"},
		"empty repo":     {Name: "widgets"},
		"repo not owner": {Name: "widgets", RepositoryName: "widgets"},
	}
	for name, input := range cases {
		if _, err := svc.Create(context.Background(), 1, "", input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: want ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	created, _ := svc.Create(context.Background(), 1, "", CreateInput{
		Name: "widgets", RepositoryName: "octo/widgets",
	})

	if _, err := svc.Get(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := svc.Get(context.Background(), 2, created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), 1, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteRecordsActivity(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	created, _ := svc.Create(context.Background(), 1, "", CreateInput{
		Name: "widgets", RepositoryName: "octo/widgets",
	})

	if err := svc.Delete(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), 1, created.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("project still present after delete: %v", err)
	}
	last := store.activities[len(store.activities)-1]
	if last.Type != domain.ActivityProjectDeleted {
		t.Errorf("last activity = %q", last.Type)
	}
	if last.ProjectID != nil {
		t.Errorf("deleted project activity should not reference the project")
	}
}

func TestStatsByUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	created, _ := svc.Create(context.Background(), 1, "", CreateInput{
		Name: "widgets", RepositoryName: "octo/widgets",
	})
	store.UpdateProject(context.Background(), created.ID,
		domain.ProjectUpdate{Status: domain.ProjectStatusDeployed})

	started := time.Now().Add(-time.Minute)
	completed := started.Add(30 * time.Second)
	store.deployments = []domain.Deployment{
		{ProjectID: created.ID, Status: domain.DeploymentStatusSuccess, StartedAt: started, CompletedAt: &completed},
		{ProjectID: created.ID, Status: domain.DeploymentStatusFailed, StartedAt: started},
	}

	stats, err := svc.StatsByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("StatsByUser: %v", err)
	}
	if stats.TotalProjects != 1 || stats.DeployedProjects != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalDeployments != 2 || stats.SuccessfulDeployments != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.SuccessRate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", stats.SuccessRate)
	}
	if stats.AvgBuildSeconds != 30 {
		t.Errorf("avg build seconds = %v, want 30", stats.AvgBuildSeconds)
	}
}
