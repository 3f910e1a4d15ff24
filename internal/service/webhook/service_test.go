package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/autoflow-dev/autoflow/internal/domain"
)

type fakeProjectLister struct {
	projects []domain.Project
}

func (f *fakeProjectLister) ListProjectsByRepository(_ context.Context, name string) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range f.projects {
		if p.RepositoryName == name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectLister) CreateProject(context.Context, *domain.Project) error { return nil }
func (f *fakeProjectLister) GetProjectByID(context.Context, int64) (*domain.Project, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProjectLister) ListProjectsByUser(context.Context, int64) ([]domain.Project, error) {
	return nil, nil
}
func (f *fakeProjectLister) UpdateProject(context.Context, int64, domain.ProjectUpdate) (*domain.Project, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProjectLister) DeleteProject(context.Context, int64) error { return nil }

type fakeDispatcher struct {
	project *domain.Project
	commit  string
	message string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, project *domain.Project, commitHash, commitMessage string) (*domain.Deployment, error) {
	f.project = project
	f.commit = commitHash
	f.message = commitMessage
	return &domain.Deployment{ID: 42, ProjectID: project.ID, Status: domain.DeploymentStatusBuilding}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(dispatcher Dispatcher, projects ...domain.Project) Service {
	return New(&fakeProjectLister{projects: projects}, dispatcher, "secret", discard())
}

func TestResolveProject(t *testing.T) {
	svc := newTestService(&fakeDispatcher{},
		domain.Project{ID: 1, RepositoryName: "octo/widgets", Branch: "develop"},
		domain.Project{ID: 2, RepositoryName: "octo/widgets", Branch: "main"},
		domain.Project{ID: 3, RepositoryName: "octo/other", Branch: "main"},
	)

	project, err := svc.ResolveProject(context.Background(), "octo/widgets", "main")
	if err != nil {
		t.Fatalf("ResolveProject: %v", err)
	}
	if project.ID != 2 {
		t.Errorf("resolved project %d, want 2", project.ID)
	}
}

func TestResolveProjectNotFound(t *testing.T) {
	svc := newTestService(&fakeDispatcher{},
		domain.Project{ID: 1, RepositoryName: "octo/widgets", Branch: "main"})

	cases := []struct{ repo, branch string }{
		{"octo/widgets", "develop"},
		{"octo/unknown", "main"},
	}
	for _, c := range cases {
		if _, err := svc.ResolveProject(context.Background(), c.repo, c.branch); !errors.Is(err, ErrProjectNotFound) {
			t.Errorf("(%s, %s): want ErrProjectNotFound, got %v", c.repo, c.branch, err)
		}
	}
}

func TestHandlePush(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newTestService(dispatcher,
		domain.Project{ID: 7, RepositoryName: "octo/widgets", Branch: "main"})

	body := pushBody("refs/heads/main", "octo/widgets", "abc123", "ship it")
	deployment, err := svc.HandlePush(context.Background(), body, "push", sign(body, "secret"))
	if err != nil {
		t.Fatalf("HandlePush: %v", err)
	}
	if deployment.ID != 42 {
		t.Errorf("deployment id = %d", deployment.ID)
	}
	if dispatcher.project == nil || dispatcher.project.ID != 7 {
		t.Fatalf("dispatched project = %+v", dispatcher.project)
	}
	if dispatcher.commit != "abc123" || dispatcher.message != "ship it" {
		t.Errorf("dispatched commit = %q message = %q", dispatcher.commit, dispatcher.message)
	}
}

func TestHandlePushRejectsBeforeDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newTestService(dispatcher,
		domain.Project{ID: 7, RepositoryName: "octo/widgets", Branch: "main"})
	body := pushBody("refs/heads/main", "octo/widgets", "abc123", "ship it")

	cases := []struct {
		name      string
		eventType string
		signature string
		want      error
	}{
		{"bad signature", "push", sign(body, "wrong"), ErrSignatureMismatch},
		{"no signature", "push", "", ErrMissingSignature},
		{"wrong event", "ping", sign(body, "secret"), ErrUnsupportedEvent},
	}
	for _, c := range cases {
		if _, err := svc.HandlePush(context.Background(), body, c.eventType, c.signature); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
		if dispatcher.project != nil {
			t.Fatalf("%s: dispatcher was invoked", c.name)
		}
	}
}
