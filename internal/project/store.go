package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reface/internal/config"
)

// Record is one persisted project row: the document snapshot plus the
// pipeline position it was saved at.
type Record struct {
	ProjectID    string
	State        State
	ViewedState  State
	Document     Document
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "projects.db")
	return OpenPath(dbPath)
}

// OpenPath opens a store at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts a project record. UpdatedAt is refreshed; CreatedAt is kept
// from the first save.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.ProjectID == "" {
		return errors.New("record has no project id")
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	docJSON, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO projects (id, state, viewed_state, document_json, total_cost, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             state = excluded.state,
             viewed_state = excluded.viewed_state,
             document_json = excluded.document_json,
             total_cost = excluded.total_cost,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at`,
		rec.ProjectID,
		string(rec.State),
		nullableString(string(rec.ViewedState)),
		string(docJSON),
		rec.Document.TotalCost,
		nullableString(rec.ErrorMessage),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

const recordColumns = "id, state, viewed_state, document_json, total_cost, error_message, created_at, updated_at"

// Get fetches a project record by identifier. Missing projects return nil.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM projects WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return rec, nil
}

// Latest returns the most recently updated project, or nil when the store is empty.
func (s *Store) Latest(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM projects ORDER BY updated_at DESC LIMIT 1`)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest project: %w", err)
	}
	return rec, nil
}

// List returns all project records ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Remove deletes a project by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all projects from the store.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects`)
	if err != nil {
		return 0, fmt.Errorf("clear projects: %w", err)
	}
	return res.RowsAffected()
}

// CheckHealth pings the database and verifies the projects table exists.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("project database connection unavailable")
	}
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		return fmt.Errorf("ping project database: %w", err)
	}

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'projects'")
	if err := row.Scan(&tableName); err != nil {
		return fmt.Errorf("projects table missing: %w", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id          string
		stateStr    string
		viewedState sql.NullString
		docJSON     string
		totalCost   float64
		errMessage  sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(&id, &stateStr, &viewedState, &docJSON, &totalCost, &errMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	rec := &Record{
		ProjectID:    id,
		State:        State(stateStr),
		ViewedState:  State(viewedState.String),
		ErrorMessage: errMessage.String,
	}
	if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
