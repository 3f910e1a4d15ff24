package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/service/project"
)

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.withRateLimit(ruleUserRead, r.listProjects)(w, req)
	case http.MethodPost:
		r.withRateLimit(ruleUserWrite, r.createProject)(w, req)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (r *Router) listProjects(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFrom(req.Context())
	projects, err := r.projects.ListByUser(req.Context(), info.UserID)
	if err != nil {
		r.logger.Error("list projects", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (r *Router) createProject(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFrom(req.Context())

	var input project.CreateInput
	if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Workflow provisioning needs the GitHub token; carry on without it.
	accessToken, err := r.auth.AccessToken(info.User)
	if err != nil {
		accessToken = ""
	}

	created, err := r.projects.Create(req.Context(), info.UserID, accessToken, input)
	if err != nil {
		if errors.Is(err, project.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "name and repository_name are required")
			return
		}
		r.logger.Error("create project", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleProjectSubtree routes /api/projects/{id} and its children.
func (r *Router) handleProjectSubtree(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/api/projects/")
	idPart, child, _ := strings.Cut(rest, "/")
	projectID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || projectID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	switch child {
	case "":
		r.handleProjectByID(w, req, projectID)
	case "deployments":
		if req.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		r.withRateLimit(ruleUserRead, func(w http.ResponseWriter, req *http.Request) {
			r.listProjectDeployments(w, req, projectID)
		})(w, req)
	case "deploy":
		if req.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		r.withRateLimit(ruleUserWrite, func(w http.ResponseWriter, req *http.Request) {
			r.deployProject(w, req, projectID)
		})(w, req)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (r *Router) handleProjectByID(w http.ResponseWriter, req *http.Request, projectID int64) {
	info, _ := authInfoFrom(req.Context())

	switch req.Method {
	case http.MethodGet:
		found, err := r.projects.Get(req.Context(), info.UserID, projectID)
		if err != nil {
			r.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	case http.MethodPatch, http.MethodPut:
		var input project.UpdateInput
		if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.projects.Update(req.Context(), info.UserID, projectID, input)
		if err != nil {
			r.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.projects.Delete(req.Context(), info.UserID, projectID); err != nil {
			r.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (r *Router) listProjectDeployments(w http.ResponseWriter, req *http.Request, projectID int64) {
	info, _ := authInfoFrom(req.Context())
	if _, err := r.projects.Get(req.Context(), info.UserID, projectID); err != nil {
		r.writeProjectError(w, err)
		return
	}

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	deployments, err := r.deploy.ListByProject(req.Context(), projectID, limit)
	if err != nil {
		r.logger.Error("list deployments", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list deployments")
		return
	}
	writeJSON(w, http.StatusOK, deployments)
}

func (r *Router) deployProject(w http.ResponseWriter, req *http.Request, projectID int64) {
	info, _ := authInfoFrom(req.Context())
	if _, err := r.projects.Get(req.Context(), info.UserID, projectID); err != nil {
		r.writeProjectError(w, err)
		return
	}

	var input struct {
		CommitHash    string `json:"commit_hash"`
		CommitMessage string `json:"commit_message"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&input)
	}

	deployment, err := r.deploy.Deploy(req.Context(), projectID, input.CommitHash, input.CommitMessage)
	if err != nil {
		r.writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Deployment started",
		"deploymentId": deployment.ID,
	})
}

func (r *Router) writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, project.ErrForbidden):
		writeError(w, http.StatusForbidden, "not your project")
	default:
		r.logger.Error("project request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
