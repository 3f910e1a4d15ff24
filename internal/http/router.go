package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/service/auth"
	"github.com/autoflow-dev/autoflow/internal/service/deploy"
	"github.com/autoflow-dev/autoflow/internal/service/github"
	"github.com/autoflow-dev/autoflow/internal/service/project"
	"github.com/autoflow-dev/autoflow/internal/service/webhook"
	"github.com/autoflow-dev/autoflow/internal/ws"
	"github.com/autoflow-dev/autoflow/pkg/config"
)

// Router owns the HTTP surface of the API server.
type Router struct {
	mux            *http.ServeMux
	cfg            config.APIConfig
	logger         *slog.Logger
	auth           auth.Service
	projects       project.Service
	deploy         *deploy.Service
	webhook        webhook.Service
	activity       activity.Service
	github         github.Service
	hub            *ws.Hub
	limiter        RateLimiter
	metrics        *apiMetrics
	metricsHandler http.Handler
	upgrader       websocket.Upgrader
	pinger         Pinger
}

// Pinger reports backing-store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WithPinger attaches a connectivity check to /api/health.
func (r *Router) WithPinger(p Pinger) *Router {
	r.pinger = p
	return r
}

// New wires the router. A nil limiter falls back to the in-process one.
func New(
	cfg config.APIConfig,
	logger *slog.Logger,
	authSvc auth.Service,
	projectSvc project.Service,
	deploySvc *deploy.Service,
	webhookSvc webhook.Service,
	activitySvc activity.Service,
	githubSvc github.Service,
	hub *ws.Hub,
	limiter RateLimiter,
) *Router {
	if limiter == nil {
		limiter = newMemoryRateLimiter()
	}
	registry := prometheus.NewRegistry()
	r := &Router{
		mux:            http.NewServeMux(),
		cfg:            cfg,
		logger:         logger,
		auth:           authSvc,
		projects:       projectSvc,
		deploy:         deploySvc,
		webhook:        webhookSvc,
		activity:       activitySvc,
		github:         githubSvc,
		hub:            hub,
		limiter:        limiter,
		metrics:        newAPIMetrics(registry),
		metricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	r.routes()
	return r
}

func (r *Router) routes() {
	r.mux.HandleFunc("/api/health", r.audit("/api/health", r.handleHealth))
	r.mux.Handle("/metrics", r.metricsHandler)

	r.mux.HandleFunc("/api/auth/github", r.audit("/api/auth/github",
		r.withRateLimit(ruleAuth, r.handleAuthStart)))
	r.mux.HandleFunc("/api/auth/github/callback", r.audit("/api/auth/github/callback",
		r.withRateLimit(ruleAuth, r.handleAuthCallback)))
	r.mux.HandleFunc("/api/auth/user", r.audit("/api/auth/user",
		r.requireAuth(r.withRateLimit(ruleUserRead, r.handleAuthUser))))
	r.mux.HandleFunc("/api/auth/logout", r.audit("/api/auth/logout", r.handleLogout))

	r.mux.HandleFunc("/api/projects", r.audit("/api/projects",
		r.requireAuth(r.handleProjects)))
	r.mux.HandleFunc("/api/projects/", r.audit("/api/projects/{id}",
		r.requireAuth(r.handleProjectSubtree)))

	r.mux.HandleFunc("/api/activities", r.audit("/api/activities",
		r.requireAuth(r.withRateLimit(ruleUserRead, r.handleActivities))))
	r.mux.HandleFunc("/api/stats", r.audit("/api/stats",
		r.requireAuth(r.withRateLimit(ruleUserRead, r.handleStats))))
	r.mux.HandleFunc("/api/github/repositories", r.audit("/api/github/repositories",
		r.requireAuth(r.withRateLimit(ruleUserRead, r.handleGitHubRepositories))))

	r.mux.HandleFunc("/api/webhooks/github-push", r.audit("/api/webhooks/github-push",
		r.withRateLimit(ruleWebhook, r.handlePushWebhook)))
	r.mux.HandleFunc("/api/webhooks/github", r.audit("/api/webhooks/github",
		r.withRateLimit(ruleWebhook, r.handleStatusWebhook)))

	r.mux.HandleFunc("/api/ws/activities", r.requireAuth(
		r.withRateLimit(ruleWebsocket, r.handleActivityStream)))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health := map[string]string{
		"status":      "ok",
		"environment": r.cfg.Environment,
	}
	if r.pinger != nil {
		health["database"] = "ok"
		if err := r.pinger.Ping(req.Context()); err != nil {
			health["status"] = "degraded"
			health["database"] = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, health)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// audit logs every request with its outcome and feeds the metrics. The
// route label is the registered pattern, not the raw path, to keep label
// cardinality bounded.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, req)
		elapsed := time.Since(started)

		r.metrics.observe(req.Method, route, recorder.status, elapsed)
		r.logger.Info("http request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", recorder.status),
			slog.Duration("duration", elapsed),
			slog.String("ip", clientIP(req)))
	}
}
