package domain

import "time"

// Deployment lifecycle states. Note "success" is terminal for a
// deployment while the parent project reports "deployed".
const (
	DeploymentStatusPending  = "pending"
	DeploymentStatusBuilding = "building"
	DeploymentStatusSuccess  = "success"
	DeploymentStatusFailed   = "failed"
)

// Deployment is a single attempt to ship one commit of a project.
type Deployment struct {
	ID            int64      `json:"id"`
	ProjectID     int64      `json:"project_id"`
	Status        string     `json:"status"`
	CommitHash    string     `json:"commit_hash"`
	CommitMessage string     `json:"commit_message"`
	BuildLogs     string     `json:"build_logs"`
	DeploymentURL string     `json:"deployment_url"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// DeploymentUpdate carries partial changes to a deployment. Empty string
// fields leave the stored value untouched.
type DeploymentUpdate struct {
	DeploymentID  int64
	Status        string
	BuildLogs     string
	DeploymentURL string
	CompletedAt   *time.Time
}
