package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

type sessionJSON struct {
	ID              int64     `json:"id"`
	Mode            string    `json:"mode"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	TaskID          string    `json:"task_id,omitempty"`
	Completed       bool      `json:"completed"`
}

type taskJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}

func sessionToJSON(s model.Session) sessionJSON {
	return sessionJSON{
		ID:              s.ID,
		Mode:            string(s.Mode),
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationSeconds: s.DurationSeconds,
		TaskID:          s.TaskID,
		Completed:       s.Completed,
	}
}

func taskToJSON(t model.Task) taskJSON {
	return taskJSON{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt, Done: t.Done}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Best-effort response write.
		_ = err
	}
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := statsConfigFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), cfg)
	if err != nil {
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionToJSON(session))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid session payload", http.StatusBadRequest)
		return
	}
	mode := model.Mode(req.Mode)
	if !mode.Valid() {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > model.MaxDurationSeconds {
		http.Error(w, "duration out of range", http.StatusBadRequest)
		return
	}
	if req.EndedAt.IsZero() {
		req.EndedAt = time.Now()
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = req.EndedAt.Add(-time.Duration(req.DurationSeconds) * time.Second)
	}
	session := model.Session{
		Mode:            mode,
		StartedAt:       req.StartedAt,
		EndedAt:         req.EndedAt,
		DurationSeconds: req.DurationSeconds,
		TaskID:          req.TaskID,
		Completed:       req.Completed,
	}
	id, err := s.store.InsertSession(r.Context(), session)
	if err != nil {
		http.Error(w, "failed to store session", http.StatusInternalServerError)
		return
	}
	session.ID = id
	writeJSON(w, http.StatusCreated, sessionToJSON(session))
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	includeDone := r.URL.Query().Get("all") == "true"
	tasks, err := s.store.ListTasks(r.Context(), includeDone)
	if err != nil {
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	out := make([]taskJSON, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskToJSON(task))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid task payload", http.StatusBadRequest)
		return
	}
	task, err := s.store.CreateTask(r.Context(), req.Name)
	if err != nil {
		http.Error(w, "failed to create task", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, taskToJSON(task))
}

func (s *Server) completeTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "missing task id", http.StatusBadRequest)
		return
	}
	updated, err := s.store.CompleteTask(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to update task", http.StatusInternalServerError)
		return
	}
	if !updated {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load task", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, taskToJSON(task))
}

func (s *Server) dailyStatsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := statsConfigFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, err := s.store.DailyAggregates(r.Context(), cfg)
	if err != nil {
		http.Error(w, "failed to aggregate stats", http.StatusInternalServerError)
		return
	}
	type dayJSON struct {
		Date         string `json:"date"`
		FocusSeconds int    `json:"focus_seconds"`
		Sessions     int    `json:"sessions"`
	}
	out := make([]dayJSON, 0, len(days))
	for _, day := range days {
		out = append(out, dayJSON{Date: day.Date, FocusSeconds: day.FocusSeconds, Sessions: day.Sessions})
	}
	writeJSON(w, http.StatusOK, out)
}

func statsConfigFromQuery(r *http.Request) (model.StatsConfig, error) {
	var cfg model.StatsConfig
	query := r.URL.Query()
	if mode := query.Get("mode"); mode != "" {
		parsed := model.Mode(mode)
		if !parsed.Valid() {
			return model.StatsConfig{}, errBadQuery("unknown mode")
		}
		cfg.Mode = parsed
	}
	if since := query.Get("since"); since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, errBadQuery("invalid since date")
		}
		cfg.Since = &parsed
	}
	if last := query.Get("last"); last != "" {
		parsed, err := strconv.Atoi(last)
		if err != nil || parsed < 0 {
			return model.StatsConfig{}, errBadQuery("invalid last value")
		}
		cfg.Last = parsed
	}
	return cfg, nil
}

type errBadQuery string

func (e errBadQuery) Error() string {
	return string(e)
}
