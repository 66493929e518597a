package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/interviewace/interviewace/internal/model"
)

// Manager owns the live sessions. Each session gets its own Supplier so the
// recently-used question set is scoped to that assessment, plus a ticker
// goroutine that drives the countdown.
type Manager struct {
	newSupplier func() Supplier
	eval        Evaluator
	sink        ResultSink

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(newSupplier func() Supplier, eval Evaluator, sink ResultSink) *Manager {
	return &Manager{
		newSupplier: newSupplier,
		eval:        eval,
		sink:        sink,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new assessment for the user. Any previous session the user
// still has open is torn down first; one live assessment per user.
func (m *Manager) Create(userID int64, cfg model.SessionConfig) (*Session, error) {
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			s.Close()
			delete(m.sessions, id)
		}
	}
	s := New(uuid.NewString(), userID, m.newSupplier(), m.eval, m.sink)
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if err := s.Configure(cfg); err != nil {
		m.Remove(s.ID)
		return nil, err
	}
	go m.runTicker(s)
	return s, nil
}

// Get returns the session if it exists and belongs to the user.
func (m *Manager) Get(id string, userID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// Remove tears a session down and forgets it.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (m *Manager) runTicker(s *Session) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.Done():
			return
		case <-t.C:
			s.Tick()
		}
	}
}
