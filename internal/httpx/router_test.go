package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/domain"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/store"
)

// fakeDeployer scripts dispatcher behavior against a real store.
type fakeDeployer struct {
	st         *store.Store
	nextID     string
	syncResult domain.DeploymentRecord
	moduleRes  domain.ModuleBuildResult
	validation domain.ValidationResult
	status     domain.ServerStatus
	healthErr  error
}

func (f *fakeDeployer) DispatchAsync() domain.DeploymentRecord {
	f.st.Create(domain.DeploymentRecord{ID: f.nextID, Message: "Deployment started"})
	rec, _ := f.st.Get(f.nextID)
	return rec
}

func (f *fakeDeployer) DispatchSimpleAsync() domain.DeploymentRecord {
	f.st.Create(domain.DeploymentRecord{
		ID:           f.nextID,
		Message:      "Simple build and deploy started",
		MavenCommand: "mvn clean install -PautoInstallPackage -DskipTests -Padobe-public",
	})
	rec, _ := f.st.Get(f.nextID)
	return rec
}

func (f *fakeDeployer) DeploySync(context.Context) domain.DeploymentRecord   { return f.syncResult }
func (f *fakeDeployer) DeploySimple(context.Context) domain.DeploymentRecord { return f.syncResult }
func (f *fakeDeployer) BuildModule(_ context.Context, module string) domain.ModuleBuildResult {
	res := f.moduleRes
	res.Module = module
	return res
}
func (f *fakeDeployer) Validate() domain.ValidationResult                 { return f.validation }
func (f *fakeDeployer) ServerStatus(context.Context) domain.ServerStatus  { return f.status }
func (f *fakeDeployer) Health(context.Context) error                      { return f.healthErr }
func (f *fakeDeployer) Settings() map[string]any {
	return map[string]any{
		"project_path":   "/srv/project",
		"aem_server_url": "http://localhost:4502",
		"aem_username":   "admin",
		"maven_profiles": "adobe-public,autoInstallPackage",
		"skip_tests":     true,
	}
}

func newTestRouter(t *testing.T, deployer *fakeDeployer) (*Router, *store.Store) {
	t.Helper()
	if deployer.st == nil {
		deployer.st = store.New()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, deployer, deployer.st, nil, nil)
	t.Cleanup(r.Close)
	return r, deployer.st
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
	return body
}

func TestDeployAsyncEndpoint(t *testing.T) {
	r, st := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/deploy", nil))

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["deployment_id"] != "deploy_1" {
		t.Fatalf("unexpected deployment_id %v", body["deployment_id"])
	}
	if body["status"] != domain.StatusInProgress {
		t.Fatalf("unexpected status %v", body["status"])
	}
	if body["check_status_url"] != "/deploy/status/deploy_1" {
		t.Fatalf("unexpected check_status_url %v", body["check_status_url"])
	}
	if _, err := st.Get("deploy_1"); err != nil {
		t.Fatalf("expected record in store: %v", err)
	}
}

func TestDeploySimpleBGIncludesMavenCommand(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{nextID: "simple_deploy_1"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/deploy/simple-bg", nil))

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["maven_command"] != "mvn clean install -PautoInstallPackage -DskipTests -Padobe-public" {
		t.Fatalf("unexpected maven_command %v", body["maven_command"])
	}
}

func TestDeployStatusLifecycle(t *testing.T) {
	r, st := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/deploy", nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/deploy/status/deploy_1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["status"] != domain.StatusInProgress {
		t.Fatalf("unexpected status %v", body["status"])
	}

	if err := st.Complete("deploy_1", domain.DeploymentOutcome{
		Success:          true,
		Message:          "Build and deploy completed successfully",
		DeployedPackages: []string{"foo.zip"},
	}); err != nil {
		t.Fatal(err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/deploy/status/deploy_1", nil))
	body := decodeBody(t, resp)
	if body["status"] != domain.StatusCompleted {
		t.Fatalf("unexpected status %v", body["status"])
	}
	if body["success"] != true {
		t.Fatalf("unexpected success %v", body["success"])
	}
	packages, ok := body["deployed_packages"].([]any)
	if !ok || len(packages) != 1 || packages[0] != "foo.zip" {
		t.Fatalf("unexpected packages %v", body["deployed_packages"])
	}
}

func TestDeployStatusUnknownIDIs404(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/deploy/status/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeploySyncFailureIsModeledNot5xx(t *testing.T) {
	success := false
	r, _ := newTestRouter(t, &fakeDeployer{
		nextID: "deploy_1",
		syncResult: domain.DeploymentRecord{
			ID:      "deploy_1",
			Status:  domain.StatusFailed,
			Success: &success,
			Message: "Project build failed",
			Error:   "Maven build failed with return code 1",
		},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/deploy/sync", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("unexpected success %v", body["success"])
	}
	if body["error"] == "" {
		t.Fatal("expected error detail")
	}
}

func TestDeployHistoryAndDelete(t *testing.T) {
	r, st := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})
	st.Create(domain.DeploymentRecord{ID: "deploy_a"})
	st.Create(domain.DeploymentRecord{ID: "deploy_b"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/deploy/history", nil))
	body := decodeBody(t, resp)
	if body["total_deployments"] != float64(2) {
		t.Fatalf("expected 2 deployments, got %v", body["total_deployments"])
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/deploy/results/deploy_a", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// Idempotent: deleting again still succeeds.
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/deploy/results/deploy_a", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected idempotent delete to return 200, got %d", resp.Code)
	}

	if st.Len() != 1 {
		t.Fatalf("expected 1 record left, got %d", st.Len())
	}
}

func TestBuildModuleEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{
		nextID:    "deploy_1",
		moduleRes: domain.ModuleBuildResult{Success: true, BuildOutput: "BUILD SUCCESS"},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/build/ui.apps", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["module"] != "ui.apps" {
		t.Fatalf("unexpected module %v", body["module"])
	}
}

func TestBuildModuleFailureIs400(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{
		nextID:    "deploy_1",
		moduleRes: domain.ModuleBuildResult{Success: false, Error: "Module build failed with return code 1"},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/build/core", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/config", nil))
	body := decodeBody(t, resp)
	for _, key := range []string{"project_path", "aem_server_url", "aem_username", "maven_profiles", "skip_tests"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing config key %q", key)
		}
	}
}

func TestServerStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{
		nextID: "deploy_1",
		status: domain.ServerStatus{ServerAvailable: true, ServerURL: "http://localhost:4502"},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/server/status", nil))
	body := decodeBody(t, resp)
	if body["server_available"] != true {
		t.Fatalf("unexpected server_available %v", body["server_available"])
	}
}

func TestMethodGuards(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/deploy"},
		{http.MethodGet, "/deploy/sync"},
		{http.MethodPost, "/deploy/history"},
		{http.MethodGet, "/validate"},
		{http.MethodPost, "/server/status"},
		{http.MethodGet, "/build/ui.apps"},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestHealthzDegraded(t *testing.T) {
	r, _ := newTestRouter(t, &fakeDeployer{nextID: "deploy_1"})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected healthy 200, got %d", resp.Code)
	}

	degraded, _ := newTestRouter(t, &fakeDeployer{nextID: "deploy_1", healthErr: errHealth})
	resp = httptest.NewRecorder()
	degraded.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

var errHealth = errTest("maven unavailable")

type errTest string

func (e errTest) Error() string { return string(e) }
