package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const stateCookie = "autoflow_oauth_state"

func (r *Router) handleAuthStart(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, req, r.auth.AuthURL(state), http.StatusFound)
}

func (r *Router) handleAuthCallback(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cookie, err := req.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != req.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := req.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	user, session, err := r.auth.HandleCallback(req.Context(), code)
	if err != nil {
		r.logger.Error("oauth callback failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "github sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(r.cfg.SessionTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.logger.Info("user signed in", slog.Int64("user_id", user.ID))
	http.Redirect(w, req, r.cfg.FrontendURL+"/?login=ok", http.StatusFound)
}

func (r *Router) handleAuthUser(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, _ := authInfoFrom(req.Context())
	writeJSON(w, http.StatusOK, info.User)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}
