package repository

import (
	"context"
	"errors"

	"github.com/autoflow-dev/autoflow/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository persists platform accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByGitHubID(ctx context.Context, githubID string) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, id int64) (*domain.Project, error)
	ListProjectsByUser(ctx context.Context, userID int64) ([]domain.Project, error)
	ListProjectsByRepository(ctx context.Context, repositoryName string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, id int64, update domain.ProjectUpdate) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

// DeploymentRepository persists deployment attempts.
type DeploymentRepository interface {
	CreateDeployment(ctx context.Context, deployment *domain.Deployment) error
	GetDeploymentByID(ctx context.Context, id int64) (*domain.Deployment, error)
	ListDeploymentsByProject(ctx context.Context, projectID int64, limit int) ([]domain.Deployment, error)
	ListDeploymentsByUser(ctx context.Context, userID int64) ([]domain.Deployment, error)
	UpdateDeployment(ctx context.Context, update domain.DeploymentUpdate) (*domain.Deployment, error)
}

// ActivityRepository persists the per-user event feed.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *domain.Activity) error
	ListActivitiesByUser(ctx context.Context, userID int64, limit int) ([]domain.Activity, error)
}
