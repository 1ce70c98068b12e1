package domain

import "time"

// Deployment status values. A record starts in_progress and moves exactly
// once to completed or failed.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DeploymentRecord captures a single build-and-deploy attempt against the
// configured AEM project.
type DeploymentRecord struct {
	ID               string     `json:"deployment_id"`
	Status           string     `json:"status"`
	Success          *bool      `json:"success,omitempty"`
	Message          string     `json:"message"`
	MavenCommand     string     `json:"maven_command,omitempty"`
	BuildDuration    float64    `json:"build_duration,omitempty"`
	DeployDuration   float64    `json:"deploy_duration,omitempty"`
	Duration         float64    `json:"duration,omitempty"`
	DeployedPackages []string   `json:"deployed_packages,omitempty"`
	Error            string     `json:"error,omitempty"`
	BuildLog         string     `json:"build_log,omitempty"`
	Step             string     `json:"step,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the record has reached a final state.
func (r DeploymentRecord) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// DeploymentOutcome carries the terminal mutation applied to a record when
// its subprocess exits.
type DeploymentOutcome struct {
	Success          bool
	Message          string
	BuildDuration    float64
	DeployDuration   float64
	Duration         float64
	DeployedPackages []string
	Error            string
	BuildLog         string
	Step             string
}

// ModuleBuildResult summarizes a single-module build and deploy.
type ModuleBuildResult struct {
	Success      bool   `json:"success"`
	Module       string `json:"module"`
	BuildOutput  string `json:"build_output,omitempty"`
	DeployOutput string `json:"deploy_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ServerStatus reports AEM author reachability.
type ServerStatus struct {
	ServerAvailable bool   `json:"server_available"`
	ServerURL       string `json:"server_url"`
	Response        string `json:"response,omitempty"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message"`
}

// ValidationResult reports project-structure and toolchain preconditions.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
