package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

type apiServer struct {
	bind    string
	token   string
	logger  *slog.Logger
	daemon  *Daemon
	limiter *ipRateLimiter

	listener net.Listener
	server   *http.Server
	done     chan struct{}
	swept    chan struct{}
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	return &apiServer{
		bind:    bind,
		token:   strings.TrimSpace(cfg.Paths.APIToken),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		limiter: newIPRateLimiter(rate.Limit(apiRequestsPerSecond), apiBurst, cfg.TrustedProxyNets()...),
	}
}

func (s *apiServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.Use(authMiddleware(s.token))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, services.Wrap(services.ErrNotFound, "api", "route", r.URL.Path, nil))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONStatus(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
	})

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	a.HandleFunc("/anime", s.handleListAnime).Methods(http.MethodGet)
	a.HandleFunc("/anime", s.handleCreateAnime).Methods(http.MethodPost)
	a.HandleFunc("/anime/{id:[0-9]+}", s.handleGetAnime).Methods(http.MethodGet)
	a.HandleFunc("/anime/{id:[0-9]+}", s.handleDeleteAnime).Methods(http.MethodDelete)
	a.HandleFunc("/anime/{id:[0-9]+}/progress", s.handleProgress).Methods(http.MethodPost)
	a.HandleFunc("/anime/{id:[0-9]+}/rating", s.handleRating).Methods(http.MethodPost)
	a.HandleFunc("/anime/{id:[0-9]+}/next", s.handleNext).Methods(http.MethodGet)
	a.HandleFunc("/upcoming", s.handleUpcoming).Methods(http.MethodGet)
	a.HandleFunc("/behind", s.handleBehind).Methods(http.MethodGet)
	a.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	a.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()
	s.swept = make(chan struct{})
	go func() {
		defer close(s.swept)
		if s.limiter != nil {
			s.limiter.cleanup(ctx)
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	<-s.done
	<-s.swept
	s.server = nil
	s.listener = nil
}

// addr reports the bound address, useful when binding port 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := writeJSONStatus(w, status, payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// writeError answers with the status mapped from err's marker. Server side
// failures are logged; client mistakes are not.
func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	requestID, _ := services.RequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), RequestID: requestID})
}

func writeJSONStatus(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}
