// Package session holds per-user dashboard state. Each browser session owns
// one Session; nothing is shared between sessions except the staging
// directory on disk.
package session

import (
	"sync"
	"time"

	"github.com/JonMunkholm/datadash/internal/frame"
)

// Session is one user's state: the active table, its display filename and
// the staging file selected for the next load.
type Session struct {
	ID string

	mu       sync.Mutex
	table    *frame.Table
	filename string
	selected string
	flashes  []Flash
	lastSeen time.Time
}

// State is a consistent copy of a session's fields.
type State struct {
	ID       string
	Table    *frame.Table
	Filename string
	Selected string
	LastSeen time.Time
}

// Loaded reports whether an active table is present.
func (s State) Loaded() bool { return s.Table != nil }

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, lastSeen: now}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:       s.ID,
		Table:    s.table,
		Filename: s.filename,
		Selected: s.selected,
		LastSeen: s.lastSeen,
	}
}

// Table returns the active table, or nil.
func (s *Session) Table() *frame.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Set replaces the active table and its filename in one step.
func (s *Session) Set(t *frame.Table, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.filename = filename
}

// SelectFile records the staging file to load next. It does not load.
func (s *Session) SelectFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = name
}

// Clear drops the active table, filename and selection.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	s.filename = ""
	s.selected = ""
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
