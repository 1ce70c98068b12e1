package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the deployment API for tooling and the CLI.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Minute},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, v any) error {
	resp, err := c.roundTrip(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	return decodeInto(resp.Body, v)
}

// doResult is for the sync deploy and module build endpoints, where a failed
// run comes back as 400 with the result document in the body rather than an
// error envelope.
func (c *Client) doResult(ctx context.Context, method, path string, v any) error {
	resp, err := c.roundTrip(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	return decodeInto(resp.Body, v)
}

func (c *Client) roundTrip(ctx context.Context, method, path string) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	return resp, nil
}

func decodeInto(body io.Reader, v any) error {
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// DispatchAck is the acknowledgement for a background deployment.
type DispatchAck struct {
	Message        string `json:"message"`
	DeploymentID   string `json:"deployment_id"`
	Status         string `json:"status"`
	MavenCommand   string `json:"maven_command,omitempty"`
	CheckStatusURL string `json:"check_status_url"`
}

// DeploymentRecord mirrors the API deployment status document.
type DeploymentRecord struct {
	ID               string     `json:"deployment_id"`
	Status           string     `json:"status"`
	Success          *bool      `json:"success,omitempty"`
	Message          string     `json:"message,omitempty"`
	MavenCommand     string     `json:"maven_command,omitempty"`
	BuildDuration    float64    `json:"build_duration,omitempty"`
	DeployDuration   float64    `json:"deploy_duration,omitempty"`
	Duration         float64    `json:"duration,omitempty"`
	DeployedPackages []string   `json:"deployed_packages,omitempty"`
	Error            string     `json:"error,omitempty"`
	BuildLog         string     `json:"build_log,omitempty"`
	Step             string     `json:"step,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the deployment has finished either way.
func (r DeploymentRecord) Terminal() bool {
	return r.Status == "completed" || r.Status == "failed"
}

// ModuleBuildResult mirrors the single module build response.
type ModuleBuildResult struct {
	Success      bool   `json:"success"`
	Module       string `json:"module"`
	BuildOutput  string `json:"build_output,omitempty"`
	DeployOutput string `json:"deploy_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ServerStatus mirrors the target server reachability report.
type ServerStatus struct {
	ServerAvailable bool   `json:"server_available"`
	ServerURL       string `json:"server_url"`
	Response        string `json:"response,omitempty"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message"`
}

// History is the deployment history listing, keyed by deployment id.
type History struct {
	Deployments      map[string]DeploymentRecord `json:"deployments"`
	TotalDeployments int                         `json:"total_deployments"`
}

// ValidationResult mirrors the project validation report.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Deploy starts a full build and deploy in the background.
func (c *Client) Deploy(ctx context.Context) (DispatchAck, error) {
	var ack DispatchAck
	if err := c.do(ctx, http.MethodPost, "/deploy", &ack); err != nil {
		return DispatchAck{}, err
	}
	return ack, nil
}

// DeploySimpleBackground starts the fixed-command build and deploy in the
// background.
func (c *Client) DeploySimpleBackground(ctx context.Context) (DispatchAck, error) {
	var ack DispatchAck
	if err := c.do(ctx, http.MethodPost, "/deploy/simple-bg", &ack); err != nil {
		return DispatchAck{}, err
	}
	return ack, nil
}

// DeploySync runs a full build and deploy, blocking until it finishes. A
// failed run is returned as a record with Success=false, not as an error.
func (c *Client) DeploySync(ctx context.Context) (DeploymentRecord, error) {
	var rec DeploymentRecord
	if err := c.doResult(ctx, http.MethodPost, "/deploy/sync", &rec); err != nil {
		return DeploymentRecord{}, err
	}
	return rec, nil
}

// DeploySimple runs the fixed-command build and deploy, blocking until it
// finishes.
func (c *Client) DeploySimple(ctx context.Context) (DeploymentRecord, error) {
	var rec DeploymentRecord
	if err := c.doResult(ctx, http.MethodPost, "/deploy/simple", &rec); err != nil {
		return DeploymentRecord{}, err
	}
	return rec, nil
}

// Status fetches the current record for a deployment.
func (c *Client) Status(ctx context.Context, deploymentID string) (DeploymentRecord, error) {
	path := fmt.Sprintf("/deploy/status/%s", url.PathEscape(deploymentID))
	var rec DeploymentRecord
	if err := c.do(ctx, http.MethodGet, path, &rec); err != nil {
		return DeploymentRecord{}, err
	}
	return rec, nil
}

// History lists all tracked deployments.
func (c *Client) History(ctx context.Context) (History, error) {
	var hist History
	if err := c.do(ctx, http.MethodGet, "/deploy/history", &hist); err != nil {
		return History{}, err
	}
	return hist, nil
}

// DeleteResult clears a deployment record. Deleting an unknown id succeeds.
func (c *Client) DeleteResult(ctx context.Context, deploymentID string) error {
	path := fmt.Sprintf("/deploy/results/%s", url.PathEscape(deploymentID))
	return c.do(ctx, http.MethodDelete, path, nil)
}

// BuildModule builds one module and deploys it when it produces a package.
func (c *Client) BuildModule(ctx context.Context, module string) (ModuleBuildResult, error) {
	path := fmt.Sprintf("/build/%s", url.PathEscape(module))
	var result ModuleBuildResult
	if err := c.doResult(ctx, http.MethodPost, path, &result); err != nil {
		return ModuleBuildResult{}, err
	}
	return result, nil
}

// ServerStatus reports whether the target server is reachable.
func (c *Client) ServerStatus(ctx context.Context) (ServerStatus, error) {
	var status ServerStatus
	if err := c.do(ctx, http.MethodGet, "/server/status", &status); err != nil {
		return ServerStatus{}, err
	}
	return status, nil
}

// Config returns the non-sensitive service configuration.
func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	var cfg map[string]any
	if err := c.do(ctx, http.MethodGet, "/config", &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the project layout and toolchain without building.
func (c *Client) Validate(ctx context.Context) (ValidationResult, error) {
	var result ValidationResult
	if err := c.do(ctx, http.MethodPost, "/validate", &result); err != nil {
		return ValidationResult{}, err
	}
	return result, nil
}
