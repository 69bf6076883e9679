package domaintest

import (
	"sync"

	"github.com/pscheid92/signboard/internal/domain"
)

// RecordingSession records every notification it receives. Test use only.
type RecordingSession struct {
	id string

	mu       sync.Mutex
	received []domain.Notification
	err      error
}

func NewRecordingSession(id string) *RecordingSession {
	return &RecordingSession{id: id}
}

func (s *RecordingSession) ID() string { return s.id }

func (s *RecordingSession) Notify(n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, n)
	return nil
}

// FailWith makes every following Notify return err.
func (s *RecordingSession) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Received returns a copy of the notifications delivered so far.
func (s *RecordingSession) Received() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.received...)
}

// Methods returns the method names of the notifications delivered so far.
func (s *RecordingSession) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	methods := make([]string, 0, len(s.received))
	for _, n := range s.received {
		methods = append(methods, n.Method)
	}
	return methods
}
