package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
)

// Repository implements the repository interfaces on PostgreSQL via pgx.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New wires a Repository over an existing connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	return &Repository{pool: pool, logger: logger}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, github_id, avatar_url, access_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		user.Username, user.Email, user.GitHubID, user.AvatarURL, user.AccessToken,
	)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, username, email, github_id, avatar_url, access_token, created_at
		FROM users WHERE id = $1`, id))
}

func (r *Repository) GetUserByGitHubID(ctx context.Context, githubID string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, username, email, github_id, avatar_url, access_token, created_at
		FROM users WHERE github_id = $1`, githubID))
}

func (r *Repository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			avatar_url = COALESCE(NULLIF($2, ''), avatar_url),
			access_token = COALESCE($3, access_token)
		WHERE id = $1
		RETURNING id, username, email, github_id, avatar_url, access_token, created_at`,
		id, update.AvatarURL, update.AccessToken))
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.GitHubID,
		&user.AvatarURL, &user.AccessToken, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (user_id, name, description, repository_url, repository_name,
			branch, framework, deployment_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		project.UserID, project.Name, project.Description, project.RepositoryURL,
		project.RepositoryName, project.Branch, project.Framework,
		project.DeploymentURL, project.Status,
	)
	if err := row.Scan(&project.ID, &project.CreatedAt); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

const projectColumns = `id, user_id, name, description, repository_url, repository_name,
	branch, framework, deployment_url, status, last_deployment_at, created_at`

func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	return r.scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

func (r *Repository) ListProjectsByUser(ctx context.Context, userID int64) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects by user: %w", err)
	}
	return r.collectProjects(rows)
}

func (r *Repository) ListProjectsByRepository(ctx context.Context, repositoryName string) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE repository_name = $1 ORDER BY id`, repositoryName)
	if err != nil {
		return nil, fmt.Errorf("list projects by repository: %w", err)
	}
	return r.collectProjects(rows)
}

func (r *Repository) UpdateProject(ctx context.Context, id int64, update domain.ProjectUpdate) (*domain.Project, error) {
	return r.scanProject(r.pool.QueryRow(ctx, `
		UPDATE projects SET
			name = COALESCE(NULLIF($2, ''), name),
			description = COALESCE(NULLIF($3, ''), description),
			branch = COALESCE(NULLIF($4, ''), branch),
			framework = COALESCE(NULLIF($5, ''), framework),
			status = COALESCE(NULLIF($6, ''), status),
			deployment_url = COALESCE(NULLIF($7, ''), deployment_url),
			last_deployment_at = COALESCE($8, last_deployment_at)
		WHERE id = $1
		RETURNING `+projectColumns,
		id, update.Name, update.Description, update.Branch, update.Framework,
		update.Status, update.DeploymentURL, update.LastDeploymentAt))
}

func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) scanProject(row pgx.Row) (*domain.Project, error) {
	var project domain.Project
	err := row.Scan(&project.ID, &project.UserID, &project.Name, &project.Description,
		&project.RepositoryURL, &project.RepositoryName, &project.Branch,
		&project.Framework, &project.DeploymentURL, &project.Status,
		&project.LastDeploymentAt, &project.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &project, nil
}

func (r *Repository) collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	defer rows.Close()
	var projects []domain.Project
	for rows.Next() {
		project, err := r.scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

func (r *Repository) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO deployments (project_id, status, commit_hash, commit_message,
			build_logs, deployment_url, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		deployment.ProjectID, deployment.Status, deployment.CommitHash,
		deployment.CommitMessage, deployment.BuildLogs, deployment.DeploymentURL,
		deployment.StartedAt,
	)
	if err := row.Scan(&deployment.ID); err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

const deploymentColumns = `id, project_id, status, commit_hash, commit_message,
	build_logs, deployment_url, started_at, completed_at`

func (r *Repository) GetDeploymentByID(ctx context.Context, id int64) (*domain.Deployment, error) {
	return r.scanDeployment(r.pool.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id))
}

func (r *Repository) ListDeploymentsByProject(ctx context.Context, projectID int64, limit int) ([]domain.Deployment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE project_id = $1 ORDER BY started_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployments by project: %w", err)
	}
	return r.collectDeployments(rows)
}

func (r *Repository) ListDeploymentsByUser(ctx context.Context, userID int64) ([]domain.Deployment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.project_id, d.status, d.commit_hash, d.commit_message,
			d.build_logs, d.deployment_url, d.started_at, d.completed_at
		FROM deployments d
		JOIN projects p ON p.id = d.project_id
		WHERE p.user_id = $1
		ORDER BY d.started_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list deployments by user: %w", err)
	}
	return r.collectDeployments(rows)
}

func (r *Repository) UpdateDeployment(ctx context.Context, update domain.DeploymentUpdate) (*domain.Deployment, error) {
	return r.scanDeployment(r.pool.QueryRow(ctx, `
		UPDATE deployments SET
			status = COALESCE(NULLIF($2, ''), status),
			build_logs = COALESCE(NULLIF($3, ''), build_logs),
			deployment_url = COALESCE(NULLIF($4, ''), deployment_url),
			completed_at = COALESCE($5, completed_at)
		WHERE id = $1
		RETURNING `+deploymentColumns,
		update.DeploymentID, update.Status, update.BuildLogs,
		update.DeploymentURL, update.CompletedAt))
}

func (r *Repository) scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	var deployment domain.Deployment
	err := row.Scan(&deployment.ID, &deployment.ProjectID, &deployment.Status,
		&deployment.CommitHash, &deployment.CommitMessage, &deployment.BuildLogs,
		&deployment.DeploymentURL, &deployment.StartedAt, &deployment.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}
	return &deployment, nil
}

func (r *Repository) collectDeployments(rows pgx.Rows) ([]domain.Deployment, error) {
	defer rows.Close()
	var deployments []domain.Deployment
	for rows.Next() {
		deployment, err := r.scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *deployment)
	}
	return deployments, rows.Err()
}

func (r *Repository) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO activities (user_id, project_id, type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		activity.UserID, activity.ProjectID, activity.Type, activity.Description,
		activity.Metadata, activity.CreatedAt,
	)
	if err := row.Scan(&activity.ID); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *Repository) ListActivitiesByUser(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, project_id, type, description, metadata, created_at
		FROM activities WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(&activity.ID, &activity.UserID, &activity.ProjectID,
			&activity.Type, &activity.Description, &activity.Metadata,
			&activity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
