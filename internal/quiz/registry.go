package quiz

import (
	"sync"

	"github.com/google/uuid"
)

type sessionKey struct {
	AssignmentID uuid.UUID
	StudentID    int
}

// Registry holds the live attempt sessions, one per assignment-student pair.
// Sessions are ephemeral: they exist only while a student is working through
// an attempt on this server instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[sessionKey]*Session),
	}
}

// GetOrCreate returns the live session for the pair, creating it with build
// on first use. build runs under the registry lock and must not block.
func (r *Registry) GetOrCreate(assignmentID uuid.UUID, studentID int, build func() *Session) *Session {
	key := sessionKey{AssignmentID: assignmentID, StudentID: studentID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := build()
	r.sessions[key] = s
	return s
}

// Get returns the live session for the pair, if any.
func (r *Registry) Get(assignmentID uuid.UUID, studentID int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionKey{AssignmentID: assignmentID, StudentID: studentID}]
	return s, ok
}

// Remove closes and drops the session for the pair. Closing releases the
// countdown timer, so removal is safe mid-attempt.
func (r *Registry) Remove(assignmentID uuid.UUID, studentID int) {
	key := sessionKey{AssignmentID: assignmentID, StudentID: studentID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.Close()
		delete(r.sessions, key)
	}
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
