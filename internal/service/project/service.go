package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/service/github"
)

// ErrInvalidInput is returned when a create or update payload fails
// validation.
var ErrInvalidInput = errors.New("project: invalid input")

// ErrForbidden is returned when a user touches a project they do not own.
var ErrForbidden = errors.New("project: forbidden")

// Service owns project CRUD and dashboard statistics.
type Service struct {
	projects    repository.ProjectRepository
	deployments repository.DeploymentRepository
	activity    activity.Service
	github      github.Service
	callbackURL string
	logger      *slog.Logger
}

func New(
	projects repository.ProjectRepository,
	deployments repository.DeploymentRepository,
	activitySvc activity.Service,
	githubSvc github.Service,
	callbackURL string,
	logger *slog.Logger,
) Service {
	return Service{
		projects:    projects,
		deployments: deployments,
		activity:    activitySvc,
		github:      githubSvc,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// CreateInput is the payload for registering a project.
type CreateInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	RepositoryURL  string `json:"repository_url"`
	RepositoryName string `json:"repository_name"`
	Branch         string `json:"branch"`
	Framework      string `json:"framework"`
}

// Create registers a project and, when a GitHub token is available,
// provisions the deploy workflow in its repository. Workflow provisioning
// is best effort; a project without the workflow can still deploy
// manually.
func (s Service) Create(ctx context.Context, userID int64, accessToken string, input CreateInput) (*domain.Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.RepositoryName = strings.TrimSpace(input.RepositoryName)
	if input.Name == "" || input.RepositoryName == "" || !strings.Contains(input.RepositoryName, "/") {
		return nil, ErrInvalidInput
	}
	if input.Branch == "" {
		input.Branch = "main"
	}
	if input.RepositoryURL == "" {
		input.RepositoryURL = "https://github.com/" + input.RepositoryName
	}

	project := &domain.Project{
		UserID:         userID,
		Name:           input.Name,
		Description:    input.Description,
		RepositoryURL:  input.RepositoryURL,
		RepositoryName: input.RepositoryName,
		Branch:         input.Branch,
		Framework:      input.Framework,
		Status:         domain.ProjectStatusPending,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	if accessToken != "" {
		if err := s.github.EnsureWorkflowFile(ctx, accessToken, project, s.callbackURL); err != nil {
			s.logger.Warn("provision deploy workflow",
				slog.String("repository", project.RepositoryName),
				slog.String("error", err.Error()))
		}
	}

	projectID := project.ID
	metadata, _ := json.Marshal(map[string]any{"repository": project.RepositoryName})
	if err := s.activity.Record(ctx, domain.Activity{
		UserID:      userID,
		ProjectID:   &projectID,
		Type:        domain.ActivityProjectCreated,
		Description: fmt.Sprintf("Project %q created", project.Name),
		Metadata:    metadata,
	}); err != nil {
		s.logger.Warn("record project activity", slog.String("error", err.Error()))
	}
	return project, nil
}

// Get returns a project owned by userID.
func (s Service) Get(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, ErrForbidden
	}
	return project, nil
}

// ListByUser returns all projects owned by a user.
func (s Service) ListByUser(ctx context.Context, userID int64) ([]domain.Project, error) {
	return s.projects.ListProjectsByUser(ctx, userID)
}

// UpdateInput is the payload for a partial project update.
type UpdateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Branch      string `json:"branch"`
	Framework   string `json:"framework"`
}

// Update applies a partial update to an owned project.
func (s Service) Update(ctx context.Context, userID, projectID int64, input UpdateInput) (*domain.Project, error) {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.projects.UpdateProject(ctx, projectID, domain.ProjectUpdate{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Branch:      input.Branch,
		Framework:   input.Framework,
	})
}

// Delete removes an owned project. Its deployment history stays behind.
func (s Service) Delete(ctx context.Context, userID, projectID int64) error {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.activity.Record(ctx, domain.Activity{
		UserID:      userID,
		Type:        domain.ActivityProjectDeleted,
		Description: fmt.Sprintf("Project %q deleted", project.Name),
	}); err != nil {
		s.logger.Warn("record project activity", slog.String("error", err.Error()))
	}
	return nil
}

// Stats summarizes a user's projects and deployment history for the
// dashboard.
type Stats struct {
	TotalProjects         int     `json:"total_projects"`
	DeployedProjects      int     `json:"deployed_projects"`
	TotalDeployments      int     `json:"total_deployments"`
	SuccessfulDeployments int     `json:"successful_deployments"`
	SuccessRate           float64 `json:"success_rate"`
	AvgBuildSeconds       float64 `json:"avg_build_seconds"`
}

// StatsByUser computes dashboard statistics from stored records.
func (s Service) StatsByUser(ctx context.Context, userID int64) (*Stats, error) {
	projects, err := s.projects.ListProjectsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	deployments, err := s.deployments.ListDeploymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalProjects: len(projects), TotalDeployments: len(deployments)}
	for _, p := range projects {
		if p.Status == domain.ProjectStatusDeployed {
			stats.DeployedProjects++
		}
	}

	var buildSeconds float64
	var completed int
	for _, d := range deployments {
		if d.Status == domain.DeploymentStatusSuccess {
			stats.SuccessfulDeployments++
		}
		if d.CompletedAt != nil {
			buildSeconds += d.CompletedAt.Sub(d.StartedAt).Seconds()
			completed++
		}
	}
	if len(deployments) > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDeployments) / float64(len(deployments))
	}
	if completed > 0 {
		stats.AvgBuildSeconds = buildSeconds / float64(completed)
	}
	return stats, nil
}
