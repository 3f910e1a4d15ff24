package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/service/deploy"
	"github.com/autoflow-dev/autoflow/internal/service/webhook"
)

// maxWebhookBody bounds the payload read into memory for signature
// verification.
const maxWebhookBody = 1 << 20

// handlePushWebhook receives signed GitHub push events and dispatches
// deployments. The signature is computed over the raw body, so the body
// is read before any decoding.
func (r *Router) handlePushWebhook(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	deployment, err := r.webhook.HandlePush(req.Context(), body,
		req.Header.Get("X-GitHub-Event"),
		req.Header.Get("X-Hub-Signature-256"))
	if err != nil {
		r.writePushError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Deployment started",
		"deploymentId": deployment.ID,
	})
}

func (r *Router) writePushError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrMisconfigured):
		r.logger.Error("webhook secret not configured")
		writeError(w, http.StatusInternalServerError, "webhook secret not configured")
	case errors.Is(err, webhook.ErrMissingSignature):
		writeError(w, http.StatusBadRequest, "missing signature header")
	case errors.Is(err, webhook.ErrSignatureMismatch):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, webhook.ErrUnsupportedEvent):
		writeError(w, http.StatusBadRequest, "unsupported event type")
	case errors.Is(err, webhook.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "Invalid payload")
	case errors.Is(err, webhook.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Project not found")
	default:
		r.logger.Error("push webhook failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to process webhook")
	}
}

// flexibleID accepts a JSON number or a numeric string. CI callbacks
// interpolate the id into shell, so it often arrives quoted.
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexibleID(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n)
	return nil
}

// handleStatusWebhook receives the terminal status report from a CI run.
// It is unsigned; it only ever flips state of an already-known deployment.
func (r *Router) handleStatusWebhook(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Both snake_case and camelCase field names are in the wild; the
	// Actions workflow sends snake_case, older callers camelCase.
	var payload struct {
		DeploymentID     flexibleID `json:"deployment_id"`
		DeploymentIDAlt  flexibleID `json:"deploymentId"`
		Status           string     `json:"status"`
		Logs             string     `json:"logs"`
		DeploymentURL    string     `json:"deployment_url"`
		DeploymentURLAlt string     `json:"deploymentUrl"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.DeploymentID == 0 {
		payload.DeploymentID = payload.DeploymentIDAlt
	}
	if payload.DeploymentURL == "" {
		payload.DeploymentURL = payload.DeploymentURLAlt
	}

	err := r.deploy.ProcessStatusCallback(req.Context(), deploy.StatusCallback{
		DeploymentID:  int64(payload.DeploymentID),
		Status:        payload.Status,
		Logs:          payload.Logs,
		DeploymentURL: payload.DeploymentURL,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed successfully"})
	case errors.Is(err, deploy.ErrMissingDeploymentID):
		writeError(w, http.StatusBadRequest, "deployment_id is required")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Deployment not found")
	default:
		r.logger.Error("status webhook failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to process webhook")
	}
}
