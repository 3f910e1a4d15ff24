package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
)

func (r *Router) handleActivities(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, _ := authInfoFrom(req.Context())
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	activities, err := r.activity.ListByUser(req.Context(), info.UserID, limit)
	if err != nil {
		r.logger.Error("list activities", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, _ := authInfoFrom(req.Context())

	stats, err := r.projects.StatsByUser(req.Context(), info.UserID)
	if err != nil {
		r.logger.Error("compute stats", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleGitHubRepositories(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, _ := authInfoFrom(req.Context())

	accessToken, err := r.auth.AccessToken(info.User)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "github account not linked")
		return
	}
	repos, err := r.github.ListRepositories(req.Context(), accessToken)
	if err != nil {
		r.logger.Error("list github repositories", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to fetch repositories")
		return
	}
	writeJSON(w, http.StatusOK, repos)
}
