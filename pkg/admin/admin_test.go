package admin

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"
)

func fixedClock(s *Service) {
	s.now = func() time.Time { return time.Date(2024, 7, 20, 20, 17, 40, 0, time.UTC) }
}

func TestLogin(t *testing.T) {
	s := NewMemoryStore("")
	if !s.Login("admin123") {
		t.Error("default password rejected")
	}
	for _, pw := range []string{"admin1234", ""} {
		if s.Login(pw) {
			t.Errorf("Login(%q) accepted", pw)
		}
	}
	if err := s.Authorize("nope"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize = %v, want ErrUnauthorized", err)
	}

	custom := NewMemoryStore("hunter2")
	if !custom.Login("hunter2") || custom.Login("admin123") {
		t.Error("custom password not honoured")
	}
}

func TestTogglePause(t *testing.T) {
	s := NewMemoryStore("")
	fixedClock(s)

	if err := s.CheckAvailable(); err != nil {
		t.Fatalf("fresh store unavailable: %v", err)
	}
	if !s.TogglePause() || !s.IsPaused() {
		t.Fatal("first toggle should pause")
	}
	if err := s.CheckAvailable(); !errors.Is(err, ErrSystemPaused) {
		t.Errorf("CheckAvailable = %v, want ErrSystemPaused", err)
	}
	if s.TogglePause() {
		t.Fatal("second toggle should resume")
	}
	if err := s.CheckAvailable(); err != nil {
		t.Errorf("resumed store unavailable: %v", err)
	}

	want := []string{
		"[20:17:40] System Resumed by Admin",
		"[20:17:40] System Paused by Admin",
	}
	if got := s.Stats().RecentLogs; !slices.Equal(got, want) {
		t.Errorf("logs = %q, want %q", got, want)
	}
}

func TestRecordCall(t *testing.T) {
	s := NewMemoryStore("")
	fixedClock(s)

	s.RecordCall("llama3.2", "Chat")
	stats := s.Stats()
	if stats.TotalCalls != 1 {
		t.Errorf("total calls = %d, want 1", stats.TotalCalls)
	}
	if want := "[20:17:40] API Call: Chat (llama3.2)"; len(stats.RecentLogs) == 0 || stats.RecentLogs[0] != want {
		t.Errorf("logs = %q, want first %q", stats.RecentLogs, want)
	}
}

func TestLogRetention(t *testing.T) {
	s := NewMemoryStore("")
	for i := 0; i < 101; i++ {
		s.RecordCall("m", fmt.Sprintf("call-%d", i))
	}

	if len(s.st.Logs) != MaxLogs {
		t.Fatalf("retained %d logs, want %d", len(s.st.Logs), MaxLogs)
	}
	stats := s.Stats()
	if stats.TotalCalls != 101 {
		t.Errorf("total calls = %d, want 101", stats.TotalCalls)
	}
	if len(stats.RecentLogs) != StatsLogs {
		t.Fatalf("stats logs = %d, want %d", len(stats.RecentLogs), StatsLogs)
	}
	if !strings.Contains(stats.RecentLogs[0], "call-100") {
		t.Errorf("newest log = %q", stats.RecentLogs[0])
	}
	// The oldest line was evicted.
	if !strings.Contains(s.st.Logs[MaxLogs-1], "call-1 ") {
		t.Errorf("oldest kept log = %q, want call-1", s.st.Logs[MaxLogs-1])
	}

	pattern := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] API Call: `)
	for _, line := range stats.RecentLogs {
		if !pattern.MatchString(line) {
			t.Errorf("log line %q has the wrong shape", line)
		}
	}
}

func TestStatsIsACopy(t *testing.T) {
	s := NewMemoryStore("")
	s.RecordCall("m", "Chat")
	stats := s.Stats()
	stats.RecentLogs[0] = "tampered"
	if s.Stats().RecentLogs[0] == "tampered" {
		t.Error("Stats exposed the internal log slice")
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "admin.db")

	s, err := OpenSQLiteStore(path, "")
	if err != nil {
		t.Fatal(err)
	}
	s.RecordCall("llama3.2", "Generate Debate")
	if !s.TogglePause() {
		t.Fatal("toggle should pause")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	again, err := OpenSQLiteStore(path, "")
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	if !again.IsPaused() {
		t.Error("pause flag not persisted")
	}
	stats := again.Stats()
	if stats.TotalCalls != 1 {
		t.Errorf("total calls = %d, want 1", stats.TotalCalls)
	}
	if len(stats.RecentLogs) != 2 || !strings.Contains(stats.RecentLogs[0], "System Paused by Admin") {
		t.Errorf("logs = %q", stats.RecentLogs)
	}
}

func TestStoreInterface(t *testing.T) {
	var _ Store = NewMemoryStore("")
}
