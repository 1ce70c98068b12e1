package deploy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/domain"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/store"
	"github.com/Vinodh-Projects/dxp-component-builder/pkg/config"
)

// SimpleMavenCommand is the fixed one-shot build-and-install invocation.
// It is part of the documented contract and never parameterized by callers.
const SimpleMavenCommand = "mvn clean install -PautoInstallPackage -DskipTests -Padobe-public"

var simpleMavenArgs = []string{"clean", "install", "-PautoInstallPackage", "-DskipTests", "-Padobe-public"}

// deployableModules are the reactor modules that produce an installable
// content package.
var deployableModules = map[string]struct{}{
	"all":        {},
	"ui.apps":    {},
	"ui.content": {},
}

const aemRequestTimeout = 10 * time.Second

// Broadcaster publishes build output lines to streaming subscribers.
type Broadcaster interface {
	Broadcast(deploymentID string, payload []byte)
}

// Service dispatches Maven builds against the configured AEM project and
// records their outcomes in the status store.
type Service struct {
	cfg    config.ServerConfig
	store  *store.Store
	runner Runner
	logger *slog.Logger
	hub    Broadcaster
	aem    *http.Client
}

// New returns a deployment service.
func New(st *store.Store, runner Runner, hub Broadcaster, logger *slog.Logger, cfg config.ServerConfig) Service {
	return Service{
		cfg:    cfg,
		store:  st,
		runner: runner,
		logger: logger,
		hub:    hub,
		aem: &http.Client{
			Timeout: aemRequestTimeout,
			Transport: &http.Transport{
				// Local author instances commonly run with self-signed certs.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// DispatchAsync starts the full build-and-deploy pipeline in the background
// and returns the in-progress tracking record immediately.
func (s Service) DispatchAsync() domain.DeploymentRecord {
	id := newDeploymentID("deploy")
	s.store.Create(domain.DeploymentRecord{ID: id, Message: "Deployment started"})
	s.logger.Info("deployment dispatched", "deployment_id", id, "mode", "full")
	go s.finish(id, s.runFull)
	rec, _ := s.store.Get(id)
	return rec
}

// DispatchSimpleAsync starts the fixed-command pipeline in the background.
func (s Service) DispatchSimpleAsync() domain.DeploymentRecord {
	id := newDeploymentID("simple_deploy")
	s.store.Create(domain.DeploymentRecord{
		ID:           id,
		Message:      "Simple build and deploy started",
		MavenCommand: SimpleMavenCommand,
	})
	s.logger.Info("deployment dispatched", "deployment_id", id, "mode", "simple")
	go s.finish(id, s.runSimple)
	rec, _ := s.store.Get(id)
	return rec
}

// DeploySync runs the full pipeline and blocks until the subprocess exits.
// Unsuitable for interactive paths; builds run for minutes.
func (s Service) DeploySync(ctx context.Context) domain.DeploymentRecord {
	id := newDeploymentID("deploy")
	s.store.Create(domain.DeploymentRecord{ID: id, Message: "Deployment started"})
	s.complete(id, s.runFull(ctx, id))
	rec, _ := s.store.Get(id)
	return rec
}

// DeploySimple runs the fixed command and blocks until it exits.
func (s Service) DeploySimple(ctx context.Context) domain.DeploymentRecord {
	id := newDeploymentID("simple_deploy")
	s.store.Create(domain.DeploymentRecord{
		ID:           id,
		Message:      "Simple build and deploy started",
		MavenCommand: SimpleMavenCommand,
	})
	s.complete(id, s.runSimple(ctx, id))
	rec, _ := s.store.Get(id)
	return rec
}

// finish owns the single terminal write for the deployment. The background
// run is detached from the originating request on purpose: a dispatched
// build always runs to completion.
func (s Service) finish(id string, run func(context.Context, string) domain.DeploymentOutcome) {
	s.complete(id, run(context.Background(), id))
}

func (s Service) complete(id string, outcome domain.DeploymentOutcome) {
	if err := s.store.Complete(id, outcome); err != nil {
		s.logger.Warn("deployment completion rejected", "deployment_id", id, "error", err)
		return
	}
	fields := []any{"deployment_id", id, "success", outcome.Success}
	if outcome.Error != "" {
		fields = append(fields, "error", outcome.Error)
	}
	s.logger.Info("deployment finished", fields...)
}

// Validate checks toolchain availability and the AEM project structure.
func (s Service) Validate() domain.ValidationResult {
	if _, err := s.runner.LookPath("mvn"); err != nil {
		return domain.ValidationResult{
			Valid: false,
			Error: "Maven is not installed or not available in PATH. Please install Maven to use AEM deployment features.",
		}
	}
	info, err := os.Stat(s.cfg.ProjectPath)
	if err != nil || !info.IsDir() {
		return domain.ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("Project root directory does not exist: %s", s.cfg.ProjectPath),
		}
	}
	var missing []string
	for _, rel := range []string{"pom.xml", filepath.Join("ui.apps", "pom.xml")} {
		if _, err := os.Stat(filepath.Join(s.cfg.ProjectPath, rel)); err != nil {
			missing = append(missing, rel)
		}
	}
	if len(missing) > 0 {
		return domain.ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("Missing required files: %s. Please ensure you have a valid AEM Maven project structure.", strings.Join(missing, ", ")),
		}
	}
	return domain.ValidationResult{Valid: true}
}

// Health reports whether the service could dispatch a build right now.
func (s Service) Health(ctx context.Context) error {
	if v := s.Validate(); !v.Valid {
		return errors.New(v.Error)
	}
	return nil
}

// BuildModule builds a single reactor module and, for package-producing
// modules, installs the resulting package on the author instance.
func (s Service) BuildModule(ctx context.Context, module string) domain.ModuleBuildResult {
	module = strings.TrimSpace(module)
	if module == "" || module != filepath.Base(module) || module == ".." || module == "." {
		return domain.ModuleBuildResult{Success: false, Module: module, Error: "invalid module name"}
	}
	if _, err := s.runner.LookPath("mvn"); err != nil {
		return domain.ModuleBuildResult{
			Success: false,
			Module:  module,
			Error:   "Maven is not installed or not available in PATH. Please install Maven to use AEM deployment features.",
		}
	}
	moduleDir := filepath.Join(s.cfg.ProjectPath, module)
	if info, err := os.Stat(moduleDir); err != nil || !info.IsDir() {
		return domain.ModuleBuildResult{Success: false, Module: module, Error: fmt.Sprintf("Module '%s' not found", module)}
	}

	s.logger.Info("module build started", "module", module)
	output, code, err := s.runner.Run(ctx, moduleDir, nil, "mvn", s.buildArgs()...)
	if err != nil {
		return domain.ModuleBuildResult{Success: false, Module: module, BuildOutput: output, Error: startFailureMessage(err)}
	}
	if code != 0 {
		return domain.ModuleBuildResult{
			Success:     false,
			Module:      module,
			BuildOutput: output,
			Error:       fmt.Sprintf("Module build failed with return code %d", code),
		}
	}

	result := domain.ModuleBuildResult{Success: true, Module: module, BuildOutput: output}
	if _, ok := deployableModules[module]; !ok {
		return result
	}

	pkgPath, err := locatePackage(moduleDir)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("No package found for module '%s'", module)
		return result
	}
	deployLog, err := s.uploadPackage(ctx, pkgPath)
	result.DeployOutput = deployLog
	if err != nil {
		result.Success = false
		result.Error = err.Error()
	}
	return result
}

// Settings reports the fixed deployment configuration.
func (s Service) Settings() map[string]any {
	return map[string]any{
		"project_path":   s.cfg.ProjectPath,
		"aem_server_url": s.displayServerURL(),
		"aem_username":   s.cfg.AEMUsername,
		"maven_profiles": s.cfg.MavenProfiles,
		"skip_tests":     s.cfg.SkipTests,
	}
}

// runFull executes validation, build and package installation as separate
// steps so failures name the stage that broke.
func (s Service) runFull(ctx context.Context, id string) domain.DeploymentOutcome {
	if v := s.Validate(); !v.Valid {
		return domain.DeploymentOutcome{
			Message: "Project validation failed",
			Error:   v.Error,
			Step:    "validation",
		}
	}

	buildStart := time.Now()
	output, code, err := s.runner.Run(ctx, s.cfg.ProjectPath, s.lineEmitter(id), "mvn", s.buildArgs()...)
	buildDuration := time.Since(buildStart).Seconds()
	if err != nil {
		return domain.DeploymentOutcome{
			Message:  "Project build failed",
			Error:    startFailureMessage(err),
			Step:     "build",
			BuildLog: output,
		}
	}
	if code != 0 {
		return domain.DeploymentOutcome{
			Message:       "Project build failed",
			Error:         execFailureMessage("Maven build", code, output),
			Step:          "build",
			BuildDuration: buildDuration,
			BuildLog:      output,
		}
	}

	deployStart := time.Now()
	pkgPath, err := locatePackage(s.cfg.ProjectPath)
	if err != nil {
		return domain.DeploymentOutcome{
			Message:       "AEM deployment failed",
			Error:         err.Error(),
			Step:          "deployment",
			BuildDuration: buildDuration,
			BuildLog:      output,
		}
	}
	deployLog, err := s.uploadPackage(ctx, pkgPath)
	deployDuration := time.Since(deployStart).Seconds()
	if err != nil {
		return domain.DeploymentOutcome{
			Message:        "AEM deployment failed",
			Error:          err.Error(),
			Step:           "deployment",
			BuildDuration:  buildDuration,
			DeployDuration: deployDuration,
			BuildLog:       joinLogs(output, deployLog),
		}
	}

	return domain.DeploymentOutcome{
		Success:          true,
		Message:          "Successfully built and deployed AEM project",
		BuildDuration:    buildDuration,
		DeployDuration:   deployDuration,
		DeployedPackages: []string{filepath.Base(pkgPath)},
		BuildLog:         joinLogs(output, deployLog),
	}
}

// runSimple executes the fixed Maven command; build and install happen in
// one reactor pass via the autoInstallPackage profile.
func (s Service) runSimple(ctx context.Context, id string) domain.DeploymentOutcome {
	if _, err := s.runner.LookPath("mvn"); err != nil {
		return domain.DeploymentOutcome{
			Message: "Build and deploy failed",
			Error:   "Maven is not installed or not available in PATH. Please install Maven to use AEM deployment features.",
		}
	}
	if info, err := os.Stat(s.cfg.ProjectPath); err != nil || !info.IsDir() {
		return domain.DeploymentOutcome{
			Message: "Build and deploy failed",
			Error:   fmt.Sprintf("Project root directory does not exist: %s", s.cfg.ProjectPath),
		}
	}

	start := time.Now()
	output, code, err := s.runner.Run(ctx, s.cfg.ProjectPath, s.lineEmitter(id), "mvn", simpleMavenArgs...)
	duration := time.Since(start).Seconds()
	if err != nil {
		return domain.DeploymentOutcome{
			Message:  "Build and deploy process failed",
			Error:    startFailureMessage(err),
			Duration: duration,
			BuildLog: output,
		}
	}
	if code != 0 {
		return domain.DeploymentOutcome{
			Message:  "Build and deploy failed",
			Error:    execFailureMessage("Maven command", code, output),
			Duration: duration,
			BuildLog: output,
		}
	}
	return domain.DeploymentOutcome{
		Success:          true,
		Message:          "Build and deploy completed successfully",
		Duration:         duration,
		DeployedPackages: extractDeployedPackages(output),
		BuildLog:         output,
	}
}

func (s Service) buildArgs() []string {
	args := []string{"clean", "install", "-P" + s.cfg.MavenProfiles}
	if s.cfg.SkipTests {
		args = append(args, "-DskipTests")
	}
	return args
}

// lineEmitter forwards each subprocess output line to streaming subscribers.
func (s Service) lineEmitter(id string) func(string) {
	if s.hub == nil {
		return nil
	}
	return func(line string) {
		s.logger.Debug("maven output", "deployment_id", id, "line", line)
		payload, err := json.Marshal(map[string]string{
			"deployment_id": id,
			"line":          line,
			"timestamp":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return
		}
		s.hub.Broadcast(id, payload)
	}
}

// execFailureMessage folds the tail of the captured output into the error so
// the diagnostic survives even when callers only read the error field.
func execFailureMessage(what string, code int, output string) string {
	msg := fmt.Sprintf("%s failed with return code %d", what, code)
	tail := strings.TrimSpace(output)
	if tail == "" {
		return msg
	}
	const maxTail = 4000
	if len(tail) > maxTail {
		tail = tail[len(tail)-maxTail:]
	}
	return msg + ": " + tail
}

func startFailureMessage(err error) string {
	if errors.Is(err, exec.ErrNotFound) {
		return "Maven is not installed or not available in PATH. Please install Maven to use AEM deployment features."
	}
	return fmt.Sprintf("Build process failed: %v", err)
}

func joinLogs(buildLog, deployLog string) string {
	if strings.TrimSpace(deployLog) == "" {
		return buildLog
	}
	return buildLog + "\n" + deployLog
}

func newDeploymentID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().Unix(), uuid.NewString()[:8])
}
