// Package api exposes session and task history over HTTP.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/yabswannalearn/OpenPomo/internal/store"
)

// Server serves the REST API backed by the history store.
type Server struct {
	store *store.Store
	token string
}

// NewServer creates an API server. An empty token disables authentication.
func NewServer(st *store.Store, token string) *Server {
	return &Server{store: st, token: token}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/sessions", s.listSessionsHandler).Methods("GET")
	api.HandleFunc("/sessions", s.createSessionHandler).Methods("POST")
	api.HandleFunc("/tasks", s.listTasksHandler).Methods("GET")
	api.HandleFunc("/tasks", s.createTaskHandler).Methods("POST")
	api.HandleFunc("/tasks/{id}/done", s.completeTaskHandler).Methods("POST")
	api.HandleFunc("/stats/daily", s.dailyStatsHandler).Methods("GET")
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		// Best-effort response write.
		_ = err
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		provided := strings.TrimPrefix(header, "Bearer ")
		if header == provided || subtle.ConstantTimeCompare([]byte(provided), []byte(s.token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
