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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"oepma/internal/api"
	"oepma/internal/config"
	"oepma/internal/logging"
	"oepma/internal/staging"
	"oepma/internal/workflow"
)

const defaultLogLimit = 200

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	router   *chi.Mux
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		router: chi.NewRouter(),
	}
	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(middleware.Recoverer)

	srv.router.Route("/api", func(r chi.Router) {
		r.Get("/status", srv.handleStatus)
		r.Post("/runs", srv.handleStartRun)
		r.Post("/runs/cancel", srv.handleCancelRun)
		r.Get("/logs", srv.handleLogs)
		r.Get("/staging", srv.handleStaging)
		r.Get("/events", d.events.ServeWS)
	})

	srv.server = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
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
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	_ = s.listener.Close()
	s.listener = nil
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		ImportDir:      status.ImportDir,
		LockFilePath:   status.LockFilePath,
		RepositoryPath: status.RepositoryPath,
		Processes:      status.Processes,
		Workflow:       api.FromWorkflowStatus(status.Workflow),
		Staging:        api.FromStagingSummary(status.Staging),
	})
}

func (s *apiServer) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req api.StartRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	phase, err := workflow.ParsePhase(req.Phase)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.daemon.StartRun(phase); err != nil {
		if errors.Is(err, workflow.ErrAlreadyRunning) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.StartRunResponse{Phase: string(phase), Started: true})
}

func (s *apiServer) handleCancelRun(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.CancelRunResponse{Cancelled: s.daemon.CancelRun()})
}

func (s *apiServer) handleStaging(w http.ResponseWriter, _ *http.Request) {
	summary, err := staging.Summarize(s.daemon.cfg.InputDir())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStagingSummary(summary))
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	archive := s.daemon.LogArchive()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	level := strings.TrimSpace(query.Get("level"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if tail && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		fetched, cursor, err := hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		events, next = fetched, cursor
		// the ring evicted events the client has not seen yet
		if archive != nil && since > 0 && len(events) > 0 && events[0].Sequence > since+1 {
			archived, archErr := archive.ReadSince(since, limit)
			if archErr != nil {
				s.logger.Warn("log archive read failed", logging.Error(archErr))
			} else if len(archived) > 0 {
				events = archived
				next = archived[len(archived)-1].Sequence
			}
		}
	}

	if level != "" {
		filtered := events[:0:0]
		for _, evt := range events {
			if strings.EqualFold(evt.Level, level) {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: api.FromLogEvents(events), Next: next})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
