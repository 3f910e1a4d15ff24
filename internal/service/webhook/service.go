package webhook

import (
	"context"
	"log/slog"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
)

// Dispatcher launches a deployment for a resolved project.
type Dispatcher interface {
	Dispatch(ctx context.Context, project *domain.Project, commitHash, commitMessage string) (*domain.Deployment, error)
}

// Service turns signed GitHub push events into deployment dispatches.
type Service struct {
	projects   repository.ProjectRepository
	dispatcher Dispatcher
	secret     string
	logger     *slog.Logger
}

func New(projects repository.ProjectRepository, dispatcher Dispatcher, secret string, logger *slog.Logger) Service {
	return Service{projects: projects, dispatcher: dispatcher, secret: secret, logger: logger}
}

// HandlePush runs the full intake pipeline: verify the signature against
// the raw body, normalize the payload, resolve the target project and
// dispatch a deployment. A trigger failure upstream does not surface
// here; the dispatcher converts it into recorded state.
func (s Service) HandlePush(ctx context.Context, body []byte, eventType, signature string) (*domain.Deployment, error) {
	if err := VerifySignature(body, signature, s.secret); err != nil {
		return nil, err
	}
	commit, err := NormalizePush(eventType, body)
	if err != nil {
		return nil, err
	}
	project, err := s.ResolveProject(ctx, commit.RepositoryFullName, commit.Branch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("push event accepted",
		slog.String("repository", commit.RepositoryFullName),
		slog.String("branch", commit.Branch),
		slog.String("commit", commit.CommitHash),
		slog.Int64("project_id", project.ID))

	return s.dispatcher.Dispatch(ctx, project, commit.CommitHash, commit.CommitMessage)
}

// ResolveProject maps a (repository, branch) pair to the first project
// tracking it, or ErrProjectNotFound.
func (s Service) ResolveProject(ctx context.Context, repositoryFullName, branch string) (*domain.Project, error) {
	projects, err := s.projects.ListProjectsByRepository(ctx, repositoryFullName)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Branch == branch {
			return &projects[i], nil
		}
	}
	return nil, ErrProjectNotFound
}
