package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when a trigger is fired without a hook URL.
var ErrNotConfigured = errors.New("trigger: deploy hook URL not configured")

// Request carries the project coordinates handed to a deploy hook.
type Request struct {
	ProjectName    string `json:"project_name"`
	RepositoryName string `json:"repository_name"`
	Branch         string `json:"branch"`
	Framework      string `json:"framework"`
	CommitHash     string `json:"commit_hash"`
	AttemptID      string `json:"attempt_id"`
}

// Trigger starts a deployment on an external provider.
type Trigger interface {
	Name() string
	Fire(ctx context.Context, req Request) error
}

// hookTrigger posts the request payload to a provider deploy-hook URL.
type hookTrigger struct {
	name   string
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewVercel builds the trigger used for frontend frameworks.
func NewVercel(url string, timeout time.Duration, logger *slog.Logger) Trigger {
	return newHook("vercel", url, timeout, logger)
}

// NewRailway builds the trigger used for everything else.
func NewRailway(url string, timeout time.Duration, logger *slog.Logger) Trigger {
	return newHook("railway", url, timeout, logger)
}

func newHook(name, url string, timeout time.Duration, logger *slog.Logger) Trigger {
	return &hookTrigger{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (t *hookTrigger) Name() string { return t.name }

func (t *hookTrigger) Fire(ctx context.Context, req Request) error {
	if t.url == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("trigger %s: marshal request: %w", t.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("trigger %s: build request: %w", t.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Attempt-ID", req.AttemptID)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("trigger %s: deploy hook returned %s", t.name, resp.Status)
	}
	t.logger.Debug("deploy hook accepted",
		slog.String("provider", t.name),
		slog.String("attempt_id", req.AttemptID))
	return nil
}
