package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"github.com/autoflow-dev/autoflow/internal/domain"
)

// Service wraps the GitHub REST API calls the platform depends on: the
// repository picker and workflow provisioning.
type Service struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) Service {
	return Service{logger: logger}
}

func (s Service) client(ctx context.Context, token string) *gh.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return gh.NewClient(oauth2.NewClient(ctx, source))
}

// Repository is the trimmed repo representation returned to the dashboard.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	Language      string `json:"language"`
	DefaultBranch string `json:"default_branch"`
}

// ListRepositories returns the authenticated user's repositories, most
// recently updated first.
func (s Service) ListRepositories(ctx context.Context, token string) ([]Repository, error) {
	client := s.client(ctx, token)
	repos, _, err := client.Repositories.List(ctx, "", &gh.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("github: list repositories: %w", err)
	}

	out := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		out = append(out, Repository{
			ID:            repo.GetID(),
			Name:          repo.GetName(),
			FullName:      repo.GetFullName(),
			Description:   repo.GetDescription(),
			Private:       repo.GetPrivate(),
			HTMLURL:       repo.GetHTMLURL(),
			Language:      repo.GetLanguage(),
			DefaultBranch: repo.GetDefaultBranch(),
		})
	}
	return out, nil
}

const workflowPath = ".github/workflows/autoflow-deploy.yml"

// EnsureWorkflowFile commits the deploy workflow into the project's
// repository, updating it in place when a previous version exists.
func (s Service) EnsureWorkflowFile(ctx context.Context, token string, project *domain.Project, callbackURL string) error {
	owner, repo, err := splitRepository(project.RepositoryName)
	if err != nil {
		return err
	}
	client := s.client(ctx, token)
	content := workflowYAML(project.Branch, callbackURL)

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String("Add AutoFlow deploy workflow"),
		Content: []byte(content),
		Branch:  gh.String(project.Branch),
	}
	_, resp, err := client.Repositories.CreateFile(ctx, owner, repo, workflowPath, opts)
	if err == nil {
		s.logger.Info("workflow file created",
			slog.String("repository", project.RepositoryName))
		return nil
	}
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		return fmt.Errorf("github: create workflow file: %w", err)
	}

	// 422 means the file already exists; fetch its SHA and update.
	existing, _, _, err := client.Repositories.GetContents(ctx, owner, repo, workflowPath,
		&gh.RepositoryContentGetOptions{Ref: project.Branch})
	if err != nil {
		return fmt.Errorf("github: get workflow file: %w", err)
	}
	opts.SHA = existing.SHA
	opts.Message = gh.String("Update AutoFlow deploy workflow")
	if _, _, err := client.Repositories.UpdateFile(ctx, owner, repo, workflowPath, opts); err != nil {
		return fmt.Errorf("github: update workflow file: %w", err)
	}
	s.logger.Info("workflow file updated",
		slog.String("repository", project.RepositoryName))
	return nil
}

func splitRepository(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("github: malformed repository name %q", fullName)
	}
	return parts[0], parts[1], nil
}
