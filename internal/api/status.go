// Package api exposes the live run state over HTTP while a load test is in
// progress: the report accumulated so far and a health probe.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
)

// StatusServer is a read-only observer over the run: the controller appends
// stage results through the engine.RunObserver interface and HTTP clients
// poll the snapshot.
type StatusServer struct {
	logger *logging.Logger
	server *http.Server

	mu       sync.RWMutex
	report   engine.RunReport
	finished bool
}

func NewStatusServer(addr string, logger *logging.Logger) *StatusServer {
	s := &StatusServer{logger: logger}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *StatusServer) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(logging.Middleware(s.logger))
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return router
}

// StageCompleted implements engine.RunObserver.
func (s *StatusServer) StageCompleted(res engine.StageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Stages = append(s.report.Stages, res)
}

// RunFinished implements engine.RunObserver.
func (s *StatusServer) RunFinished(rep engine.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = rep
	s.finished = true
}

func (s *StatusServer) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snapshot := s.report
	snapshot.Stages = append([]engine.StageResult(nil), s.report.Stages...)
	finished := s.finished
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Finished bool             `json:"finished"`
		Report   engine.RunReport `json:"report"`
	}{Finished: finished, Report: snapshot})
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Start serves in the background until Shutdown.
func (s *StatusServer) Start() {
	go func() {
		s.logger.Info("Status server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Status server failed")
		}
	}()
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
