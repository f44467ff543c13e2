// Package actorserver serves actor tasks over HTTP from inside an actor replica.
// One server is one replica: it owns a single cache scope for its lifetime.
package actorserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kination/actorflow/pkg/sdk"
)

var log = ctrl.Log.WithName("actorserver")

// Server executes the tasks of one actor environment
type Server struct {
	registry *sdk.Registry
	env      string
	scope    *sdk.CacheScope
	router   *mux.Router
}

// New creates a server for the tasks of env
func New(registry *sdk.Registry, env string) (*Server, error) {
	if _, err := registry.Environment(env); err != nil {
		return nil, err
	}
	s := &Server{
		registry: registry,
		env:      env,
		scope:    sdk.NewCacheScope(),
		router:   mux.NewRouter(),
	}
	s.router.HandleFunc("/v1/tasks/{task}", s.handleInvoke).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Actor replica listening", "env", s.env, "addr", addr, "tasks", s.registry.TasksFor(s.env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["task"]

	task, err := s.registry.Task(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, InvokeResponse{Error: err.Error()})
		return
	}
	if env := task.Env(); env == nil || env.Name() != s.env {
		writeJSON(w, http.StatusBadRequest, InvokeResponse{
			Error: fmt.Sprintf("task %s does not run on actor environment %s", name, s.env),
		})
		return
	}

	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, InvokeResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	log.V(1).Info("Invoking task", "task", name, "run", req.RunID, "node", req.NodeID)
	out, err := s.invoke(r.Context(), task, req.Input)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sdk.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		log.Error(err, "Task failed", "task", name, "run", req.RunID, "node", req.NodeID)
		writeJSON(w, status, InvokeResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Output: out})
}

func (s *Server) invoke(ctx context.Context, task sdk.TaskDefinition, input []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name(), r)
		}
	}()
	return task.Handle(sdk.WithCacheScope(ctx, s.scope), input)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"env":    s.env,
		"tasks":  s.registry.TasksFor(s.env),
		"cached": s.scope.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(err, "Failed to write response")
	}
}
