package domain

import "time"

// Project lifecycle states. A project reflects the outcome of its most
// recent deployment.
const (
	ProjectStatusPending  = "pending"
	ProjectStatusBuilding = "building"
	ProjectStatusDeployed = "deployed"
	ProjectStatusFailed   = "failed"
)

// Project is a deployable application bound to a repository and branch.
type Project struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	RepositoryURL    string     `json:"repository_url"`
	RepositoryName   string     `json:"repository_name"`
	Branch           string     `json:"branch"`
	Framework        string     `json:"framework"`
	DeploymentURL    string     `json:"deployment_url"`
	Status           string     `json:"status"`
	LastDeploymentAt *time.Time `json:"last_deployment_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ProjectUpdate carries partial changes to a project. Zero-valued string
// fields leave the stored value untouched; nil times are not written.
type ProjectUpdate struct {
	Name             string
	Description      string
	Branch           string
	Framework        string
	Status           string
	DeploymentURL    string
	LastDeploymentAt *time.Time
}
