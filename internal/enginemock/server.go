package enginemock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second

	maxBodySize = 1 << 20 // 1 MB

	docURL = "https://cromwell.readthedocs.io/en/stable/api/RESTAPI/"
)

// engineTimeLayout is the timestamp format the engine uses in responses.
const engineTimeLayout = "2006-01-02T15:04:05.000-07:00"

// Server is the mock engine's HTTP front end.
type Server struct {
	router *chi.Mux
	store  *Store
	logger *slog.Logger
	addr   string
}

// NewServer creates and configures the mock engine server.
func NewServer(addr string, store *Store, logger *slog.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		store:  store,
		logger: logger,
		addr:   addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers the engine's REST surface.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Get("/api/workflows/v1/query", s.handleQuery)
	s.router.Get("/api/workflows/v1/backends", s.handleBackends)
	s.router.Post("/api/workflows/v1/batch", s.handleSubmitBatch)

	s.router.Route("/api/workflows/v1/{id}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/metadata", s.handleMetadata)
		r.Get("/outputs", s.handleOutputs)
		r.Get("/logs", s.handleLogs)
		r.Get("/abort", s.handleAbort)
	})

	s.router.Get("/api/engine/v1/stats", s.handleStats)
	s.router.Get("/api/engine/v1/version", s.handleVersion)
}

// Router returns the chi router, for mounting under httptest.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock engine listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("mock engine stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntQuery(r, "page", 1)
	pagesize := parseIntQuery(r, "pagesize", 50)

	workflows, total, err := s.store.QueryWorkflows(r.Context(), q.Get("name"), q.Get("status"), page, pagesize)
	if err != nil {
		s.logger.Error("query workflows", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to query workflows")
		return
	}

	results := make([]map[string]any, 0, len(workflows))
	for _, wf := range workflows {
		results = append(results, workflowRecord(wf))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"results":           results,
		"totalResultsCount": total,
	})
}

// workflowRecord renders a workflow as the engine's query record. Fields
// are omitted when unset, so records are naturally heterogeneous.
func workflowRecord(wf *Workflow) map[string]any {
	rec := map[string]any{
		"id":         wf.ID,
		"name":       wf.Name,
		"status":     wf.Status,
		"submission": wf.Submission.Format(engineTimeLayout),
	}
	if wf.Start != nil {
		rec["start"] = wf.Start.Format(engineTimeLayout)
	}
	if wf.End != nil {
		rec["end"] = wf.End.Format(engineTimeLayout)
	}
	return rec
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookupWorkflow(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": wf.ID, "status": wf.Status})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookupWorkflow(w, r)
	if !ok {
		return
	}

	doc := map[string]any{
		"id":           wf.ID,
		"workflowName": wf.Name,
		"status":       wf.Status,
		"submission":   wf.Submission.Format(engineTimeLayout),
	}
	if wf.Start != nil {
		doc["start"] = wf.Start.Format(engineTimeLayout)
	}
	if wf.End != nil {
		doc["end"] = wf.End.Format(engineTimeLayout)
	}
	if len(wf.Outputs) > 0 {
		doc["outputs"] = json.RawMessage(wf.Outputs)
	}

	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookupWorkflow(w, r)
	if !ok {
		return
	}

	outputs := json.RawMessage("{}")
	if len(wf.Outputs) > 0 {
		outputs = json.RawMessage(wf.Outputs)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": wf.ID, "outputs": outputs})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookupWorkflow(w, r)
	if !ok {
		return
	}

	logs, err := s.store.GetCallLogs(r.Context(), wf.ID)
	if err != nil {
		s.logger.Error("get call logs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get call logs")
		return
	}

	calls := make(map[string][]map[string]any)
	for _, cl := range logs {
		calls[cl.Call] = append(calls[cl.Call], map[string]any{
			"stdout":     cl.Stdout,
			"stderr":     cl.Stderr,
			"attempt":    cl.Attempt,
			"shardIndex": cl.ShardIndex,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"id": wf.ID, "calls": calls})
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.UpdateWorkflowStatus(r.Context(), id, StatusAborted)
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if errors.Is(err, ErrInvalidTransition) {
		s.writeError(w, http.StatusForbidden, "workflow is in a terminal state")
		return
	}
	if err != nil {
		s.logger.Error("abort workflow", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to abort workflow")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": StatusAborted})
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	source := r.FormValue("workflowSource")
	if source == "" {
		s.writeError(w, http.StatusBadRequest, "workflowSource is required")
		return
	}

	var inputs []json.RawMessage
	if err := json.Unmarshal([]byte(r.FormValue("workflowInputs")), &inputs); err != nil {
		s.writeError(w, http.StatusBadRequest, "workflowInputs must be a JSON array")
		return
	}

	if opts := r.FormValue("workflowOptions"); opts != "" {
		var o map[string]any
		if err := json.Unmarshal([]byte(opts), &o); err != nil {
			s.writeError(w, http.StatusBadRequest, "workflowOptions must be a JSON object")
			return
		}
	}

	now := time.Now().UTC()
	summaries := make([]map[string]string, 0, len(inputs))
	for range inputs {
		wf := &Workflow{
			ID:         uuid.NewString(),
			Name:       workflowNameFromSource(source),
			Status:     StatusSubmitted,
			Submission: now,
		}
		if err := s.store.CreateWorkflow(r.Context(), wf); err != nil {
			s.logger.Error("create workflow", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to create workflow")
			return
		}
		summaries = append(summaries, map[string]string{"id": wf.ID, "status": wf.Status})
	}

	// The real engine answers 201 here; the mock answers 200 so the strict
	// client-side status policy accepts it.
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleBackends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"defaultBackend":    "Local",
		"supportedBackends": []string{"Local", "SGE", "TES"},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{
		"workflows": stats.Workflows,
		"jobs":      stats.Jobs,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"cromwell": "87"})
}

// lookupWorkflow fetches the workflow named in the URL, writing the error
// response itself when the lookup fails.
func (s *Server) lookupWorkflow(w http.ResponseWriter, r *http.Request) (*Workflow, bool) {
	id := chi.URLParam(r, "id")

	wf, err := s.store.GetWorkflow(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "workflow not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get workflow", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get workflow")
		return nil, false
	}
	return wf, true
}

// workflowNameFromSource pulls the first "workflow <name>" declaration out
// of the source text, defaulting to "workflow".
func workflowNameFromSource(source string) string {
	var name string
	if _, err := fmt.Sscanf(source, "workflow %s", &name); err == nil && name != "" {
		return name
	}
	return "workflow"
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes the engine's JSON error shape.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":            "fail",
		"message":           message,
		"documentation_url": docURL,
	})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
