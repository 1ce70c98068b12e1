package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/domain"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/store"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/ws"
)

// Deployer is the dispatcher surface the router drives.
type Deployer interface {
	DispatchAsync() domain.DeploymentRecord
	DispatchSimpleAsync() domain.DeploymentRecord
	DeploySync(ctx context.Context) domain.DeploymentRecord
	DeploySimple(ctx context.Context) domain.DeploymentRecord
	BuildModule(ctx context.Context, module string) domain.ModuleBuildResult
	Validate() domain.ValidationResult
	ServerStatus(ctx context.Context) domain.ServerStatus
	Health(ctx context.Context) error
	Settings() map[string]any
}

// Router wires HTTP endpoints to the dispatcher and status store.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	deploy   Deployer
	store    *store.Store
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	deployResults      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitDispatch  = 10
	rateLimitRead      = 120
	rateLimitStream    = 30
	healthCheckTimeout = 2 * time.Second
	sseHeartbeatEvery  = 15 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, deploySvc Deployer, st *store.Store, hub *ws.Hub, limiter RateLimiter) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		deploy: deploySvc,
		store:  st,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter: limiter,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/healthz", r.instrument("/healthz", rateLimitRead, r.handleHealthz))
	r.mux.HandleFunc("/deploy", r.instrument("/deploy", rateLimitDispatch, r.handleDeployAsync))
	r.mux.HandleFunc("/deploy/sync", r.instrument("/deploy/sync", rateLimitDispatch, r.handleDeploySync))
	r.mux.HandleFunc("/deploy/simple", r.instrument("/deploy/simple", rateLimitDispatch, r.handleDeploySimple))
	r.mux.HandleFunc("/deploy/simple-bg", r.instrument("/deploy/simple-bg", rateLimitDispatch, r.handleDeploySimpleAsync))
	r.mux.HandleFunc("/deploy/status/", r.instrument("/deploy/status/:id", rateLimitRead, r.handleDeployStatus))
	r.mux.HandleFunc("/deploy/history", r.instrument("/deploy/history", rateLimitRead, r.handleDeployHistory))
	r.mux.HandleFunc("/deploy/results/", r.instrument("/deploy/results/:id", rateLimitRead, r.handleDeployResultDelete))
	r.mux.HandleFunc("/deploy/logs/", r.instrument("/deploy/logs/:id/stream", rateLimitStream, r.handleDeployLogStream))
	r.mux.HandleFunc("/ws/deploy", r.audit(r.withRateLimit("/ws/deploy", rateLimitStream, rateWindowDefault, r.handleDeployWS)))
	r.mux.HandleFunc("/build/", r.instrument("/build/:module", rateLimitDispatch, r.handleBuildModule))
	r.mux.HandleFunc("/server/status", r.instrument("/server/status", rateLimitRead, r.handleServerStatus))
	r.mux.HandleFunc("/config", r.instrument("/config", rateLimitRead, r.handleConfig))
	r.mux.HandleFunc("/validate", r.instrument("/validate", rateLimitRead, r.handleValidate))
}

// instrument combines audit logging, metrics and rate limiting for a route.
func (r *Router) instrument(route string, limit int, next http.HandlerFunc) http.HandlerFunc {
	handler := r.withRateLimit(route, limit, rateWindowDefault, next)
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		handler(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)
		r.logRequest(req, status, recorder.bytes, duration)
	}
}

// audit logs the request without metrics; used for hijacked connections.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next(w, req)
		r.logRequest(req, 0, 0, time.Since(start))
	}
}

func (r *Router) logRequest(req *http.Request, status, bytes int, duration time.Duration) {
	fields := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"duration_ms", duration.Milliseconds(),
	}
	if status > 0 {
		fields = append(fields, "status", status, "bytes", bytes)
	}
	if ip := clientIP(req); ip != "" {
		fields = append(fields, "ip", ip)
	}
	if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
		fields = append(fields, "request_id", reqID)
	}
	r.logger.Info("http request", fields...)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()
	component := map[string]any{"status": "up"}
	status := "ok"
	if err := r.deploy.Health(ctx); err != nil {
		status = "degraded"
		component = map[string]any{
			"status": "down",
			"error":  err.Error(),
		}
	}
	payload := map[string]any{
		"status": status,
		"components": map[string]any{
			"deployment": component,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleDeployAsync(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	rec := r.deploy.DispatchAsync()
	r.recordDeployResult("full", "dispatched")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":          "AEM project deployment started",
		"deployment_id":    rec.ID,
		"status":           rec.Status,
		"check_status_url": "/deploy/status/" + rec.ID,
	})
}

func (r *Router) handleDeploySimpleAsync(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	rec := r.deploy.DispatchSimpleAsync()
	r.recordDeployResult("simple", "dispatched")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":          "Simple AEM build and deploy started",
		"deployment_id":    rec.ID,
		"status":           rec.Status,
		"maven_command":    rec.MavenCommand,
		"check_status_url": "/deploy/status/" + rec.ID,
	})
}

func (r *Router) handleDeploySync(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	rec := r.deploy.DeploySync(req.Context())
	r.writeDeploymentResult(w, "full", rec)
}

func (r *Router) handleDeploySimple(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	rec := r.deploy.DeploySimple(req.Context())
	r.writeDeploymentResult(w, "simple", rec)
}

// writeDeploymentResult maps a finished record onto the sync-response
// contract. A failed build is a modeled outcome, not a transport error, so
// it never becomes a 5xx.
func (r *Router) writeDeploymentResult(w http.ResponseWriter, mode string, rec domain.DeploymentRecord) {
	if rec.Success != nil && *rec.Success {
		r.recordDeployResult(mode, "success")
		writeJSON(w, http.StatusOK, rec)
		return
	}
	r.recordDeployResult(mode, "failure")
	writeJSON(w, http.StatusBadRequest, rec)
}

func (r *Router) handleDeployStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id := pathSuffix(req.URL.Path, "/deploy/status/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "deployment id required")
		return
	}
	rec, err := r.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (r *Router) handleDeployHistory(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	deployments := r.store.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"deployments":       deployments,
		"total_deployments": len(deployments),
	})
}

func (r *Router) handleDeployResultDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	id := pathSuffix(req.URL.Path, "/deploy/results/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "deployment id required")
		return
	}
	// Deleting an absent id succeeds; delete is idempotent.
	r.store.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Deployment result %s cleared", id),
	})
}

func (r *Router) handleBuildModule(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	module := pathSuffix(req.URL.Path, "/build/")
	if module == "" {
		writeError(w, http.StatusBadRequest, "module name required")
		return
	}
	result := r.deploy.BuildModule(req.Context(), module)
	if result.Success {
		r.recordDeployResult("module", "success")
		writeJSON(w, http.StatusOK, result)
		return
	}
	r.recordDeployResult("module", "failure")
	writeJSON(w, http.StatusBadRequest, result)
}

func (r *Router) handleServerStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.deploy.ServerStatus(req.Context()))
}

func (r *Router) handleConfig(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.deploy.Settings())
}

func (r *Router) handleValidate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.deploy.Validate())
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// pathSuffix extracts the final path element after prefix, tolerating a
// trailing "/stream" style segment being absent.
func pathSuffix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

// Flush passes through so SSE works behind the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
