package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/internal/telemetry"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/options"
)

const (
	shutdownTimeout = 5 * time.Second
	apiPrefix       = "/api/v1"
)

// CommandRequest is the body of POST /api/v1/commands.
type CommandRequest struct {
	Line string `json:"line"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type HttpServer struct {
	server  *http.Server
	options *options.HttpOptions
	api     API
	ready   func() bool
}

func NewHttpServer(opts *options.HttpOptions, api API, ready func() bool) *HttpServer {
	s := &HttpServer{options: opts, api: api, ready: ready}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: opts.Timeout,
	}
	return s
}

// Handler returns the routes of the server.
func (s *HttpServer) Handler() http.Handler {
	r := mux.NewRouter()

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness follows the scheduler loop
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.ready() {
			http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Registered on the root router so a method mismatch answers 405.
	r.HandleFunc(apiPrefix+"/commands", s.postCommand).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/tasks", s.getTasks).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/mission", s.getMission).Methods(http.MethodGet)
	return r
}

func (s *HttpServer) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	log.Info("Starting HTTP Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *HttpServer) postCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Line == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"line\": \"<command>\"}"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.options.Timeout)
	defer cancel()

	out, err := s.api.Submit(ctx, req.Line)
	ack := telemetry.ConsoleAck{Line: req.Line, Output: out}
	if err != nil {
		ack.Error = err.Error()
	}
	writeJSON(w, commandStatus(err), ack)
}

func commandStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, scheduler.ErrUnknownCommand), errors.Is(err, scheduler.ErrUnknownTask):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *HttpServer) getTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.options.Timeout)
	defer cancel()

	tasks, err := s.api.Tasks(ctx)
	if err != nil {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *HttpServer) getMission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.options.Timeout)
	defer cancel()

	st, err := s.api.Status(ctx)
	if err != nil {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to write response")
	}
}
