package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/bpx-import-service/internal/config"
	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/core/ports"
	"github.com/kirillkom/bpx-import-service/internal/observability/metrics"
)

const (
	serviceName         = "api"
	maxImportBodyBytes  = 1 << 20
	importRoute         = "/v1/imports/bpx"
	defaultInFlightWait = 250 * time.Millisecond
)

type Router struct {
	importer ports.BPXImporter
	enqueuer ports.ImportEnqueuer
	metrics  *metrics.HTTPServerMetrics

	apiKey       string
	asyncEnabled bool

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	inFlightWait   time.Duration
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// NewRouter builds the import API. enqueuer may be nil when async imports
// are disabled.
func NewRouter(
	cfg config.Config,
	importer ports.BPXImporter,
	enqueuer ports.ImportEnqueuer,
	opts ...RouterOption,
) *Router {
	inFlightWait := time.Duration(cfg.APIInFlightWaitMS) * time.Millisecond
	if inFlightWait <= 0 {
		inFlightWait = defaultInFlightWait
	}
	rt := &Router{
		importer:       importer,
		enqueuer:       enqueuer,
		apiKey:         cfg.ImportServiceAPIKey,
		asyncEnabled:   cfg.AsyncImportsEnabled && enqueuer != nil,
		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
		maxInFlight:    cfg.APIMaxInFlight,
		inFlightWait:   inFlightWait,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	var importHandler http.Handler = http.HandlerFunc(rt.importBPX)
	importHandler = bearerAuthMiddleware(importHandler, rt.apiKey)
	importHandler = backpressureMiddleware(importHandler, rt.maxInFlight, rt.inFlightWait, rt.onReject)
	if rt.rateLimitRPS > 0 {
		burst := max(rt.rateLimitBurst, 1)
		importHandler = rateLimitMiddleware(importHandler, rate.NewLimiter(rate.Limit(rt.rateLimitRPS), burst), rt.onReject)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle(importRoute, importHandler)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type importRequest struct {
	ProjectID     string `json:"project_id"`
	ProfileID     string `json:"profile_id"`
	StorageBucket string `json:"storage_bucket"`
	StoragePath   string `json:"storage_path"`
	CreatedBy     string `json:"created_by"`
	Async         bool   `json:"async"`
}

type importResponse struct {
	OK bool `json:"ok"`
	*domain.ImportSummary
}

type queuedResponse struct {
	OK     bool   `json:"ok"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (rt *Router) importBPX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req importRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	job := domain.ImportJob{
		ProjectID:      req.ProjectID,
		PriorProfileID: req.ProfileID,
		StorageBucket:  req.StorageBucket,
		StoragePath:    req.StoragePath,
		CreatedBy:      req.CreatedBy,
	}

	if req.Async {
		rt.enqueueImport(w, r, job)
		return
	}

	summary, err := rt.importer.Import(r.Context(), job)
	if rt.metrics != nil {
		rt.metrics.RecordImport(serviceName, summary, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{OK: true, ImportSummary: summary})
}

func (rt *Router) enqueueImport(w http.ResponseWriter, r *http.Request, job domain.ImportJob) {
	if !rt.asyncEnabled {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "enqueue import", errors.New("async imports are disabled")))
		return
	}
	queued, err := rt.enqueuer.Enqueue(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{OK: true, JobID: queued.ID, Status: "queued"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
