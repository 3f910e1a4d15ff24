package httpx

import (
	"log/slog"
	"net/http"

	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/ws"
)

// handleActivityStream upgrades the connection and subscribes it to the
// authenticated user's live activity feed.
func (r *Router) handleActivityStream(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFrom(req.Context())

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	ws.NewClient(r.hub, conn, activity.FeedKey(info.UserID)).Start()
}
