package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const stateKey = "curious_dates_admin_state"

type sqlitePersister struct {
	db *sql.DB
}

// OpenSQLiteStore returns a store persisted in a SQLite file at path.
// An empty password selects DefaultPassword.
func OpenSQLiteStore(path, password string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create admin state dir: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open admin state: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init admin schema: %w", err)
	}

	p := &sqlitePersister{db: db}
	initial, err := p.load()
	if err != nil {
		db.Close()
		return nil, err
	}
	return newService(password, p, initial), nil
}

func (p *sqlitePersister) load() (state, error) {
	var raw string
	err := p.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, stateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return state{}, nil
	}
	if err != nil {
		return state{}, fmt.Errorf("read admin state: %w", err)
	}
	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// A corrupt blob resets to defaults, as a fresh install would.
		return state{}, nil
	}
	return st, nil
}

func (p *sqlitePersister) save(st state) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, stateKey, string(raw))
	return err
}

func (p *sqlitePersister) close() error {
	return p.db.Close()
}
