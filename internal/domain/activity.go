package domain

import (
	"encoding/json"
	"time"
)

// Activity types recorded in the audit feed.
const (
	ActivityProjectCreated    = "project_created"
	ActivityProjectDeleted    = "project_deleted"
	ActivityDeploymentStarted = "deployment_started"
	ActivityDeploymentSuccess = "deployment_success"
	ActivityDeploymentFailed  = "deployment_failed"
)

// Activity is one entry in a user's event feed. ProjectID is nil for
// entries that outlive their project.
type Activity struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	ProjectID   *int64          `json:"project_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
