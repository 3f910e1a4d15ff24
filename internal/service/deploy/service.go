package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/service/trigger"
)

// ErrMissingDeploymentID is returned for callbacks without a deployment id.
var ErrMissingDeploymentID = errors.New("deploy: missing deployment id")

// Service owns the deployment lifecycle: dispatching new attempts to
// provider triggers and folding CI status reports back into stored state.
type Service struct {
	projects       repository.ProjectRepository
	deployments    repository.DeploymentRepository
	triggers       *trigger.Registry
	activity       activity.Service
	logger         *slog.Logger
	triggerTimeout time.Duration
	locks          *keyedMutex
	now            func() time.Time
}

func New(
	projects repository.ProjectRepository,
	deployments repository.DeploymentRepository,
	triggers *trigger.Registry,
	activitySvc activity.Service,
	triggerTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		projects:       projects,
		deployments:    deployments,
		triggers:       triggers,
		activity:       activitySvc,
		logger:         logger,
		triggerTimeout: triggerTimeout,
		locks:          newKeyedMutex(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch creates a deployment record, flips the project to building and
// fires the provider trigger for the project's framework. Dispatches for
// the same repository and branch are serialized so interleaved pushes
// cannot cross their writes.
//
// A trigger failure is not an error for the caller: the attempt is
// recorded as failed, the project marked failed, and the created
// deployment is still returned.
func (s *Service) Dispatch(ctx context.Context, project *domain.Project, commitHash, commitMessage string) (*domain.Deployment, error) {
	unlock := s.locks.Lock(project.RepositoryName + "@" + project.Branch)
	defer unlock()

	startedAt := s.now()
	deployment := &domain.Deployment{
		ProjectID:     project.ID,
		Status:        domain.DeploymentStatusBuilding,
		CommitHash:    commitHash,
		CommitMessage: commitMessage,
		StartedAt:     startedAt,
	}
	if err := s.deployments.CreateDeployment(ctx, deployment); err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	if _, err := s.projects.UpdateProject(ctx, project.ID, domain.ProjectUpdate{
		Status:           domain.ProjectStatusBuilding,
		LastDeploymentAt: &startedAt,
	}); err != nil {
		s.logger.Warn("mark project building",
			slog.Int64("project_id", project.ID),
			slog.String("error", err.Error()))
	}

	attemptID := uuid.NewString()
	s.record(ctx, project, deployment.ID, attemptID, domain.ActivityDeploymentStarted,
		fmt.Sprintf("Deployment started for %q", project.Name))

	t := s.triggers.Resolve(project.Framework)
	triggerCtx, cancel := context.WithTimeout(ctx, s.triggerTimeout)
	defer cancel()

	err := t.Fire(triggerCtx, trigger.Request{
		ProjectName:    project.Name,
		RepositoryName: project.RepositoryName,
		Branch:         project.Branch,
		Framework:      project.Framework,
		CommitHash:     commitHash,
		AttemptID:      attemptID,
	})
	if err != nil {
		s.logger.Error("deploy trigger failed",
			slog.String("provider", t.Name()),
			slog.Int64("deployment_id", deployment.ID),
			slog.String("error", err.Error()))
		s.compensate(ctx, project, deployment, attemptID, err)
		return deployment, nil
	}

	s.logger.Info("deployment dispatched",
		slog.String("provider", t.Name()),
		slog.Int64("deployment_id", deployment.ID),
		slog.String("attempt_id", attemptID))
	return deployment, nil
}

// compensate records a trigger failure: deployment failed with the error
// in its logs, project failed, one failure activity. There is nothing to
// roll back; the failed attempt is part of the history.
func (s *Service) compensate(ctx context.Context, project *domain.Project, deployment *domain.Deployment, attemptID string, cause error) {
	completedAt := s.now()
	if _, err := s.deployments.UpdateDeployment(ctx, domain.DeploymentUpdate{
		DeploymentID: deployment.ID,
		Status:       domain.DeploymentStatusFailed,
		BuildLogs:    "failed to trigger deployment: " + cause.Error(),
		CompletedAt:  &completedAt,
	}); err != nil {
		s.logger.Warn("mark deployment failed",
			slog.Int64("deployment_id", deployment.ID),
			slog.String("error", err.Error()))
	}
	if _, err := s.projects.UpdateProject(ctx, project.ID, domain.ProjectUpdate{
		Status: domain.ProjectStatusFailed,
	}); err != nil {
		s.logger.Warn("mark project failed",
			slog.Int64("project_id", project.ID),
			slog.String("error", err.Error()))
	}
	s.record(ctx, project, deployment.ID, attemptID, domain.ActivityDeploymentFailed,
		fmt.Sprintf("Failed to trigger deployment for %q", project.Name))
}

// Deploy starts a manual deployment for a project by id.
func (s *Service) Deploy(ctx context.Context, projectID int64, commitHash, commitMessage string) (*domain.Deployment, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if commitHash == "" {
		commitHash = "HEAD"
	}
	if commitMessage == "" {
		commitMessage = "Manual deployment"
	}
	return s.Dispatch(ctx, project, commitHash, commitMessage)
}

// ListByProject returns the most recent deployments of a project.
func (s *Service) ListByProject(ctx context.Context, projectID int64, limit int) ([]domain.Deployment, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.deployments.ListDeploymentsByProject(ctx, projectID, limit)
}

// StatusCallback is the terminal report a CI run posts back.
type StatusCallback struct {
	DeploymentID  int64
	Status        string
	Logs          string
	DeploymentURL string
}

// ProcessStatusCallback folds a CI status report into the deployment and,
// when it still exists, the parent project. A "success" deployment flips
// the project to "deployed" and publishes the deployment URL; any other
// reported status is written to the project verbatim.
func (s *Service) ProcessStatusCallback(ctx context.Context, cb StatusCallback) error {
	if cb.DeploymentID == 0 {
		return ErrMissingDeploymentID
	}

	deployment, err := s.deployments.GetDeploymentByID(ctx, cb.DeploymentID)
	if err != nil {
		return err
	}

	update := domain.DeploymentUpdate{
		DeploymentID:  cb.DeploymentID,
		Status:        cb.Status,
		BuildLogs:     cb.Logs,
		DeploymentURL: cb.DeploymentURL,
	}
	if cb.Status == domain.DeploymentStatusSuccess || cb.Status == domain.DeploymentStatusFailed {
		completedAt := s.now()
		update.CompletedAt = &completedAt
	}
	if _, err := s.deployments.UpdateDeployment(ctx, update); err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}

	project, err := s.projects.GetProjectByID(ctx, deployment.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Project deleted since dispatch; the deployment record is
			// updated and that is all there is to do.
			s.logger.Warn("status callback for orphaned deployment",
				slog.Int64("deployment_id", cb.DeploymentID),
				slog.Int64("project_id", deployment.ProjectID))
			return nil
		}
		return err
	}

	projectUpdate := domain.ProjectUpdate{Status: cb.Status}
	activityType := domain.ActivityDeploymentFailed
	description := fmt.Sprintf("Deployment failed for %q", project.Name)
	if cb.Status == domain.DeploymentStatusSuccess {
		projectUpdate.Status = domain.ProjectStatusDeployed
		projectUpdate.DeploymentURL = cb.DeploymentURL
		activityType = domain.ActivityDeploymentSuccess
		description = fmt.Sprintf("Deployment succeeded for %q", project.Name)
	}
	if _, err := s.projects.UpdateProject(ctx, project.ID, projectUpdate); err != nil {
		s.logger.Warn("update project from callback",
			slog.Int64("project_id", project.ID),
			slog.String("error", err.Error()))
	}
	s.record(ctx, project, cb.DeploymentID, "", activityType, description)

	s.logger.Info("status callback processed",
		slog.Int64("deployment_id", cb.DeploymentID),
		slog.String("status", cb.Status))
	return nil
}

func (s *Service) record(ctx context.Context, project *domain.Project, deploymentID int64, attemptID, activityType, description string) {
	meta := map[string]any{"deployment_id": deploymentID}
	if attemptID != "" {
		meta["attempt_id"] = attemptID
	}
	metadata, _ := json.Marshal(meta)

	projectID := project.ID
	err := s.activity.Record(ctx, domain.Activity{
		UserID:      project.UserID,
		ProjectID:   &projectID,
		Type:        activityType,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.Warn("record activity",
			slog.String("type", activityType),
			slog.String("error", err.Error()))
	}
}
