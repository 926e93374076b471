// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yabswannalearn/OpenPomo/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session and task data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL,
			task_id TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_mode ON sessions(mode);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_name ON tasks(name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished countdown phase and returns its ID.
func (s *Store) InsertSession(ctx context.Context, session model.Session) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (mode, started_at, ended_at, duration_seconds, task_id, completed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(session.Mode),
		session.StartedAt.Format(time.RFC3339Nano),
		session.EndedAt.Format(time.RFC3339Nano),
		session.DurationSeconds,
		session.TaskID,
		boolToInt(session.Completed),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessions returns sessions filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.Session, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(cfg.Mode))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, mode, started_at, ended_at, duration_seconds, task_id, completed
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// DailyAggregates sums completed focus time per local day, oldest first.
func (s *Store) DailyAggregates(ctx context.Context, cfg model.StatsConfig) ([]model.DayAggregate, error) {
	focusCfg := cfg
	focusCfg.Mode = model.ModeFocus
	sessions, err := s.ListSessions(ctx, focusCfg)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*model.DayAggregate{}
	var order []string
	for _, session := range sessions {
		if !session.Completed {
			continue
		}
		day := session.EndedAt.Local().Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &model.DayAggregate{Date: day}
			byDay[day] = agg
			order = append(order, day)
		}
		agg.FocusSeconds += session.DurationSeconds
		agg.Sessions++
	}

	result := make([]model.DayAggregate, 0, len(order))
	for _, day := range order {
		result = append(result, *byDay[day])
	}
	return result, nil
}

// CreateTask inserts a new task with a generated ID.
func (s *Store) CreateTask(ctx context.Context, name string) (model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Task{}, fmt.Errorf("task name is empty")
	}
	task := model.Task{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, name, created_at, done) VALUES (?, ?, ?, 0)`,
		task.ID, task.Name, task.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// ResolveTask finds an open task by name, creating it when missing.
func (s *Store) ResolveTask(ctx context.Context, name string) (model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Task{}, fmt.Errorf("task name is empty")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, done FROM tasks WHERE name = ? AND done = 0 ORDER BY created_at ASC LIMIT 1`,
		name,
	)
	task, err := scanTask(row)
	if err == nil {
		return task, nil
	}
	if err != sql.ErrNoRows {
		return model.Task{}, err
	}
	return s.CreateTask(ctx, name)
}

// GetTask returns a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, done FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListTasks returns tasks, optionally including finished ones, oldest first.
func (s *Store) ListTasks(ctx context.Context, includeDone bool) ([]model.Task, error) {
	query := `SELECT id, name, created_at, done FROM tasks`
	if !includeDone {
		query += ` WHERE done = 0`
	}
	query += ` ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CompleteTask marks a task done. Reports whether a task was updated.
func (s *Store) CompleteTask(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET done = 1 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var session model.Session
	var mode, startedAt, endedAt string
	var completed int
	if err := row.Scan(&session.ID, &mode, &startedAt, &endedAt, &session.DurationSeconds, &session.TaskID, &completed); err != nil {
		return model.Session{}, err
	}
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return model.Session{}, err
	}
	ended, err := time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return model.Session{}, err
	}
	session.Mode = model.Mode(mode)
	session.StartedAt = started
	session.EndedAt = ended
	session.Completed = completed != 0
	return session, nil
}

func scanTask(row rowScanner) (model.Task, error) {
	var task model.Task
	var createdAt string
	var done int
	if err := row.Scan(&task.ID, &task.Name, &createdAt, &done); err != nil {
		return model.Task{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Task{}, err
	}
	task.CreatedAt = created
	task.Done = done != 0
	return task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
