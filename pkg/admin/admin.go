// Package admin tracks generative-AI usage and lets an operator pause all
// generation calls.
//
// State is three values: the pause flag, a lifetime call counter, and a
// bounded log of recent actions (newest first). A Store is created
// explicitly and handed to the services that need it; persistence is
// pluggable (memory only, or a SQLite file).
package admin

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
)

const (
	// MaxLogs is the number of log lines retained.
	MaxLogs = 100
	// StatsLogs is the number of log lines returned by Stats.
	StatsLogs = 50
	// DefaultPassword matches the demo credential shipped in the config defaults.
	DefaultPassword = "admin123"
)

var (
	// ErrSystemPaused is returned by CheckAvailable while generation is paused.
	ErrSystemPaused = errors.New("SYSTEM_PAUSED: the system is currently under maintenance, please try again later")
	// ErrUnauthorized is returned by Authorize for a wrong password.
	ErrUnauthorized = errors.New("unauthorized")
)

// Stats is a snapshot for the admin panel.
type Stats struct {
	IsPaused   bool     `json:"isPaused"`
	TotalCalls int      `json:"totalApiCalls"`
	RecentLogs []string `json:"recentLogs"`
}

// Store is the admin state used by the AI service and the admin panel.
type Store interface {
	Login(password string) bool
	Authorize(password string) error
	TogglePause() bool
	IsPaused() bool
	RecordCall(model, kind string)
	Stats() Stats
	CheckAvailable() error
	Close() error
}

// state is the persisted form.
type state struct {
	IsPaused   bool     `json:"isPaused"`
	TotalCalls int      `json:"totalApiCalls"`
	Logs       []string `json:"logs"`
}

// persister saves state after every mutation.
type persister interface {
	load() (state, error)
	save(state) error
	close() error
}

type nopPersister struct{}

func (nopPersister) load() (state, error) { return state{}, nil }
func (nopPersister) save(state) error     { return nil }
func (nopPersister) close() error         { return nil }

// Service implements Store.
type Service struct {
	mu       sync.Mutex
	st       state
	password string
	persist  persister
	now      func() time.Time
}

// NewMemoryStore returns a store that forgets everything on exit. An empty
// password selects DefaultPassword.
func NewMemoryStore(password string) *Service {
	return newService(password, nopPersister{}, state{})
}

func newService(password string, p persister, initial state) *Service {
	if password == "" {
		password = DefaultPassword
	}
	if len(initial.Logs) > MaxLogs {
		initial.Logs = initial.Logs[:MaxLogs]
	}
	return &Service{st: initial, password: password, persist: p, now: time.Now}
}

// Login reports whether password is the admin password.
func (s *Service) Login(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

// Authorize is Login as an error.
func (s *Service) Authorize(password string) error {
	if !s.Login(password) {
		return ErrUnauthorized
	}
	return nil
}

// TogglePause flips the pause flag and returns the new value.
func (s *Service) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.IsPaused = !s.st.IsPaused
	if s.st.IsPaused {
		s.logLocked("System Paused by Admin")
	} else {
		s.logLocked("System Resumed by Admin")
	}
	s.saveLocked()
	return s.st.IsPaused
}

// IsPaused reports the pause flag.
func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.IsPaused
}

// RecordCall counts one generation call.
func (s *Service) RecordCall(model, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.TotalCalls++
	s.logLocked(fmt.Sprintf("API Call: %s (%s)", kind, model))
	s.saveLocked()
}

// Stats returns the pause flag, call count and up to StatsLogs log lines.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(len(s.st.Logs), StatsLogs)
	logs := make([]string, n)
	copy(logs, s.st.Logs[:n])
	return Stats{IsPaused: s.st.IsPaused, TotalCalls: s.st.TotalCalls, RecentLogs: logs}
}

// CheckAvailable returns ErrSystemPaused while paused.
func (s *Service) CheckAvailable() error {
	if s.IsPaused() {
		return ErrSystemPaused
	}
	return nil
}

// Close releases the backing storage.
func (s *Service) Close() error {
	return s.persist.close()
}

func (s *Service) logLocked(msg string) {
	line := fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), msg)
	s.st.Logs = append([]string{line}, s.st.Logs...)
	if len(s.st.Logs) > MaxLogs {
		s.st.Logs = s.st.Logs[:MaxLogs]
	}
}

func (s *Service) saveLocked() {
	if err := s.persist.save(s.st); err != nil {
		debug.Log("admin: persist state: %v", err)
	}
}
