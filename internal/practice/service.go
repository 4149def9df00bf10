package practice

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/engine"
)

var (
	ErrSessionNotFound = errors.New("practice session not found")
	ErrWrongMode       = errors.New("operation not supported for this exercise type")
	ErrNotReady        = errors.New("every question needs an answer before checking")
	ErrRejected        = errors.New("placement rejected")
)

// Service manages practice sessions held in memory
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	results *ResultStore
	logger  *slog.Logger
	opts    []engine.Option
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithResultStore records the score of each completed session
func WithResultStore(rs *ResultStore) Option {
	return func(s *Service) { s.results = rs }
}

// WithLogger sets the service logger; it is also handed to the engines
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEngineOptions passes options to every matching engine
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Service) { s.opts = append(s.opts, opts...) }
}

// NewService creates a practice service
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.opts = append([]engine.Option{engine.WithLogger(s.logger)}, s.opts...)
	return s
}

// OpenRequest describes the exercise to practice
type OpenRequest struct {
	Exercise     domain.Exercise
	ExerciseUUID string
	Source       string
}

// Open validates the exercise and starts a session for it. Matching
// exercises must also carry a complete answer key.
func (s *Service) Open(req OpenRequest) (*Session, error) {
	ex := req.Exercise
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	if err := ex.ValidateKey(); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = "local"
	}
	sess := newSession(ex, source, req.ExerciseUUID, s.now(), s.opts)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("practice session opened", "id", sess.ID, "type", ex.Type, "mode", sess.Mode)
	return sess, nil
}

// Get returns a session by ID
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns the IDs of open sessions, oldest first
func (s *Service) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return ids
}

// Place drops answer into slot of a matching session and reports whether it
// was correct. A rejected placement returns ErrRejected.
func (s *Service) Place(id string, slot, answer int) (bool, error) {
	sess, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if sess.Mode != ModeMatching {
		return false, fmt.Errorf("%w: place on %s", ErrWrongMode, sess.exercise.Type)
	}
	if !sess.matching.CanPlace(slot, answer) {
		return false, fmt.Errorf("%w: slot %d, answer %d", ErrRejected, slot, answer)
	}

	correct := sess.matching.Place(slot, answer)
	s.touch(sess)
	if sess.matching.IsComplete() {
		s.record(sess)
	}
	return correct, nil
}

// Answer records a value for slot of a scalar session
func (s *Service) Answer(id string, slot int, value string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if sess.Mode != ModeScalar {
		return fmt.Errorf("%w: answer on %s", ErrWrongMode, sess.exercise.Type)
	}
	if !sess.scalar.SetAnswer(slot, value) {
		return fmt.Errorf("%w: slot %d can not take an answer", ErrRejected, slot)
	}
	s.touch(sess)
	return nil
}

// Check grades a scalar session. It returns ErrNotReady while a slot is
// empty or once the session was already checked.
func (s *Service) Check(id string) (map[int]bool, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Mode != ModeScalar {
		return nil, fmt.Errorf("%w: check on %s", ErrWrongMode, sess.exercise.Type)
	}
	feedback, ok := sess.scalar.Check()
	if !ok {
		return nil, ErrNotReady
	}
	s.touch(sess)
	s.record(sess)
	return feedback, nil
}

// Reset clears every answer of a session so it can be attempted again
func (s *Service) Reset(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	switch sess.Mode {
	case ModeMatching:
		sess.matching.Reset()
	case ModeScalar:
		sess.scalar.Reset()
	}

	s.mu.Lock()
	sess.recorded = false
	s.mu.Unlock()
	s.touch(sess)
	return nil
}

// Status returns a snapshot of a session
func (s *Service) Status(id string) (*Status, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.status(), nil
}

// Close ends a session and cancels its pending reverts
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if sess.matching != nil {
		sess.matching.Reset()
	}
	s.logger.Info("practice session closed", "id", id)
	return nil
}

func (s *Service) touch(sess *Session) {
	s.mu.Lock()
	sess.UpdatedAt = s.now()
	s.mu.Unlock()
}

// record stores the score of a completed session once per attempt
func (s *Service) record(sess *Session) {
	s.mu.Lock()
	if sess.recorded {
		s.mu.Unlock()
		return
	}
	sess.recorded = true
	s.mu.Unlock()

	st := sess.status()
	s.logger.Info("practice session completed", "id", sess.ID, "correct", st.Correct, "total", st.Total)
	if s.results == nil {
		return
	}

	result := &Result{
		SessionID:    sess.ID,
		ExerciseUUID: sess.ExerciseUUID,
		Type:         sess.exercise.Type,
		Source:       sess.Source,
		Correct:      st.Correct,
		Total:        st.Total,
		StartedAt:    sess.CreatedAt,
		CompletedAt:  s.now(),
	}
	if err := s.results.Save(result); err != nil {
		s.logger.Warn("failed to record result", "id", sess.ID, "error", err)
	}
}
