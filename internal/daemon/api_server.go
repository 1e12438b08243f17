package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"shortsmith/internal/api"
	"shortsmith/internal/config"
	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

const maxRequestBytes = 8 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	jobs    *api.JobService
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.API.Bind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
		jobs:   d.jobs,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/voices", srv.handleVoices).Methods(http.MethodGet)
	r.HandleFunc("/api/plan", srv.handlePlan).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", srv.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", srv.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", srv.handleClear).Methods(http.MethodDelete)
	r.HandleFunc("/api/jobs/{id}", srv.handleDescribe).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/status", srv.handleJobStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/scenes", srv.handleEdit).Methods(http.MethodPut)
	r.HandleFunc("/api/jobs/{id}/retry", srv.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}/scenes/{index:[0-9]+}/videos", srv.handleReplaceVideos).Methods(http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusNotFound, "route not found", services.KindNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed", services.KindNone)
	})
	r.Use(srv.requestContext)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.API.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	srv.handler = c.Handler(authMiddleware(cfg.API.Token, r))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// requestContext stamps a correlation id onto every request.
func (s *apiServer) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:  status.Running,
		PID:      status.PID,
		Bind:     status.Bind,
		LockPath: status.LockPath,
		Database: api.DatabaseStatus{
			Path:          status.Database.DBPath,
			SchemaVersion: status.Database.SchemaVersion,
			Integrity:     status.Database.IntegrityCheck,
			TotalJobs:     status.Database.TotalJobs,
			Error:         status.Database.Error,
		},
		Workflow: api.FromStatusSummary(status.Workflow),
	})
}

func (s *apiServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.jobs.Voices(r.Context(), r.URL.Query().Get("language")))
}

func (s *apiServer) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	plan, err := s.jobs.Plan(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				statuses = append(statuses, trimmed)
			}
		}
	}
	jobs, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.jobs.Enqueue(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("job submitted",
		logging.JobID(id),
		logging.Int("scenes", len(req.Scenes)),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: id})
}

func (s *apiServer) handleDescribe(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Describe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.jobs.GetStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req api.EditRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.jobs.ReconcileEdit(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: id})
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.jobs.Retry(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: id})
}

func (s *apiServer) handleClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.jobs.ClearFinished(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleReplaceVideos(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scene index", services.KindValidation)
		return
	}
	if err := s.jobs.ReplaceVideos(r.Context(), vars["id"], index); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: vars["id"]})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), services.KindValidation)
		return false
	}
	return true
}

func (s *apiServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.Classify(err)
	code := statusFor(kind)
	if code >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("api request failed",
			logging.String("path", r.URL.Path),
			logging.Kind(kind),
			logging.Error(err),
		)
	}
	s.writeError(w, code, services.Message(err), kind)
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("api encode response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string, kind services.Kind) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: string(kind)})
}
