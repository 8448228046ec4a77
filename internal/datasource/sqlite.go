// Package datasource persists generated timelines and assembles the working
// set the TUI starts with: the user's library of generated timelines in front
// of the curated timelines from disk or the embedded seed.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// ErrNotFound is returned when a timeline id is not in the library.
var ErrNotFound = errors.New("timeline not found in library")

const schema = `
CREATE TABLE IF NOT EXISTS timelines (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	events      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timelines_created ON timelines(created_at DESC);
`

// Library is the SQLite store of generated timelines.
type Library struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the library database at path.
func Open(path string) (*Library, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open library: %w", err)
	}
	// One writer; modernc serialises anyway and this avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init library schema: %w", err)
	}
	debug.Log("datasource: opened library %s", path)
	return &Library{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (l *Library) Path() string { return l.path }

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Save stores t, replacing any timeline with the same id. A replaced
// timeline moves to the front of List.
func (l *Library) Save(ctx context.Context, t model.Timeline) error {
	if err := t.Validate(); err != nil {
		return err
	}
	events, err := json.Marshal(t.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO timelines (id, title, description, category, events, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			events = excluded.events,
			created_at = excluded.created_at`,
		t.ID, t.Title, t.Description, string(t.Category), string(events), l.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save timeline %q: %w", t.ID, err)
	}
	return nil
}

// List returns every stored timeline, newest first.
func (l *Library) List(ctx context.Context) (model.WorkingSet, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, title, description, category, events
		FROM timelines
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ws model.WorkingSet
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			debug.Log("datasource: skipping unreadable row: %v", err)
			continue
		}
		ws = append(ws, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timelines: %w", err)
	}
	return ws, nil
}

// Get returns one stored timeline.
func (l *Library) Get(ctx context.Context, id string) (model.Timeline, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, events
		FROM timelines WHERE id = ?`, id)
	t, err := scanTimeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Timeline{}, ErrNotFound
	}
	return t, err
}

// Delete removes a timeline.
func (l *Library) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM timelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete timeline %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored timelines.
func (l *Library) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timelines`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimeline(s scanner) (model.Timeline, error) {
	var t model.Timeline
	var category, events string
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &category, &events); err != nil {
		return model.Timeline{}, err
	}
	t.Category = model.Category(category)
	t.IsGenerated = true
	if err := json.Unmarshal([]byte(events), &t.Events); err != nil {
		return model.Timeline{}, fmt.Errorf("decode events of %q: %w", t.ID, err)
	}
	return t, nil
}
