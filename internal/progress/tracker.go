// Package progress records the steps of ingest and query requests so
// clients can poll them by session id.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	StatusInfo    = "info"
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Step is one recorded event of a session.
type Step struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
}

// Session is a snapshot of a session's steps.
type Session struct {
	ID     string `json:"session_id"`
	Active bool   `json:"active"`
	Steps  []Step `json:"steps"`
}

type session struct {
	active bool
	steps  []Step
}

// Tracker keeps the newest maxSessions sessions in memory.
type Tracker struct {
	mu          sync.Mutex
	sessions    map[string]*session
	order       []string
	maxSessions int
	now         func() time.Time
}

var _ port.ProgressRecorder = (*Tracker)(nil)

func NewTracker(maxSessions int) *Tracker {
	if maxSessions < 1 {
		maxSessions = 100
	}
	return &Tracker{
		sessions:    make(map[string]*session),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Start opens a new session and returns its id.
func (t *Tracker) Start() string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open(id)
	return id
}

func (t *Tracker) open(id string) *session {
	s := &session{active: true}
	t.sessions[id] = s
	t.order = append(t.order, id)
	for len(t.order) > t.maxSessions {
		delete(t.sessions, t.order[0])
		t.order = t.order[1:]
	}
	return s
}

// Step appends a step, opening the session if it is unknown.
func (t *Tracker) Step(sessionID, step, status, details string) {
	if sessionID == "" {
		return
	}
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		s = t.open(sessionID)
	}
	s.steps = append(s.steps, Step{
		Timestamp: t.now(),
		Step:      step,
		Status:    status,
		Details:   details,
	})
	t.mu.Unlock()

	slog.Debug("progress", "session", sessionID, "step", step, "status", status)
}

// Finish marks a session inactive. Its steps stay readable.
func (t *Tracker) Finish(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		s.active = false
	}
}

// Get returns a copy of the session.
func (t *Tracker) Get(sessionID string) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return Session{}, domain.ErrNotFound
	}
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return Session{ID: sessionID, Active: s.active, Steps: steps}, nil
}

// Len returns the number of retained sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

type sessionKey struct{}

// WithSession attaches a session id to ctx.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session attached to ctx, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
