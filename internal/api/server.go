package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"topic2manim/internal/deps"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/workflow"
)

// Workflow is the slice of the manager the HTTP layer drives.
type Workflow interface {
	Submit(ctx context.Context, topic string, opts workflow.SubmitOptions) (string, error)
	Status(id string) (jobs.Record, bool)
	Jobs() []jobs.Record
	Health(ctx context.Context) workflow.StatusSummary
}

// Options configure the HTTP server.
type Options struct {
	Bind     string
	MediaDir string
	// NarrationDefault applies when a request omits enable_tts.
	NarrationDefault bool
	// DefaultProvider applies when a request omits llm_provider.
	DefaultProvider llm.Preference
	Requirements    []deps.Requirement
	AllowedOrigins  []string
	// APITimeout bounds each /api request. Media downloads are not bounded
	// so large videos can stream to slow clients. Zero uses DefaultAPITimeout.
	APITimeout time.Duration
}

// DefaultAPITimeout is the per-request deadline for JSON routes.
const DefaultAPITimeout = 60 * time.Second

// Server binds the workflow to HTTP routes.
type Server struct {
	opts     Options
	workflow Workflow
	logger   *slog.Logger
	handler  http.Handler

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router. Start must be called to accept connections.
func NewServer(wf Workflow, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		opts:     opts,
		workflow: wf,
		logger:   logging.NewComponentLogger(logger, "api-server"),
	}

	r := mux.NewRouter()
	apiTimeout := opts.APITimeout
	if apiTimeout <= 0 {
		apiTimeout = DefaultAPITimeout
	}
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, apiTimeout, `{"error":"request timed out"}`)
	})
	apiRouter.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	apiRouter.HandleFunc("/progress/{id}", s.handleProgress).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	apiRouter.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if strings.TrimSpace(opts.MediaDir) != "" {
		r.PathPrefix("/media/").Handler(
			http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir))),
		).Methods(http.MethodGet, http.MethodHead)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}), handlers.PrintRecoveryStack(false))
	s.handler = handlers.LoggingHandler(accessLogWriter(s.logger), recovery(cors(r)))
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx is done
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return services.Wrap(services.ErrConfiguration, "api", "listen", "api bind address is empty", nil)
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// No WriteTimeout: it would cut off /media downloads. API routes carry
	// their own deadline from the router.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	body := http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		s.writeError(w, http.StatusBadRequest, "Topic is required")
		return
	}
	pref := s.opts.DefaultProvider
	if pref == "" {
		pref = llm.PreferAuto
	}
	if strings.TrimSpace(req.LLMProvider) != "" {
		parsed, err := llm.ParsePreference(req.LLMProvider)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, services.Details(err).Message)
			return
		}
		pref = parsed
	}
	narration := s.opts.NarrationDefault
	if req.EnableTTS != nil {
		narration = *req.EnableTTS
	}

	id, err := s.workflow.Submit(r.Context(), req.Topic, workflow.SubmitOptions{Narration: narration, Provider: pref})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrValidation) {
			status = http.StatusBadRequest
		} else if errors.Is(err, workflow.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, services.Details(err).Message)
		return
	}
	s.writeJSON(w, http.StatusAccepted, GenerateResponse{
		JobID:   id,
		Status:  string(jobs.StatusQueued),
		Message: "Video generation started",
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := s.workflow.Status(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	list := s.workflow.Jobs()
	if list == nil {
		list = []jobs.Record{}
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: list})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary := s.workflow.Health(r.Context())
	statuses := deps.CheckBinaries(s.opts.Requirements)
	resp := HealthResponse{
		Status:       "healthy",
		Service:      ServiceName,
		Workflow:     FromStatusSummary(summary),
		Dependencies: statuses,
	}
	if !summary.Ready() || len(deps.Missing(statuses)) > 0 {
		resp.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// accessLogWriter feeds gorilla's combined access log lines into slog at
// debug level so frontend polling does not flood the info log.
func accessLogWriter(logger *slog.Logger) io.Writer {
	return slog.NewLogLogger(logger.Handler(), slog.LevelDebug).Writer()
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(args ...any) {
	l.logger.Error("api handler panicked", logging.String("panic", fmt.Sprint(args...)))
}
