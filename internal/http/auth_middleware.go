package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/autoflow-dev/autoflow/internal/domain"
)

type contextKey string

const authInfoKey contextKey = "autoflow-auth-info"

// sessionCookie carries the JWT for browser clients; API clients send a
// Bearer token instead.
const sessionCookie = "autoflow_session"

type authInfo struct {
	UserID int64
	User   *domain.User
}

func authInfoFrom(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(authInfo)
	return info, ok
}

func sessionToken(req *http.Request) string {
	if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := req.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		user, err := r.auth.Authorize(req.Context(), sessionToken(req))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(req.Context(), authInfoKey, authInfo{UserID: user.ID, User: user})
		next(w, req.WithContext(ctx))
	}
}
