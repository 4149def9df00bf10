package practice

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/storage/local"
)

const collectionResults = "results"

// ErrResultNotFound is returned for an unknown result id
var ErrResultNotFound = errors.New("result not found")

// Result is the score of a completed session
type Result struct {
	SessionID    string              `json:"sessionId"`
	ExerciseUUID string              `json:"exerciseUuid,omitempty"`
	Type         domain.ExerciseType `json:"type"`
	Source       string              `json:"source"`
	Correct      int                 `json:"correct"`
	Total        int                 `json:"total"`
	StartedAt    time.Time           `json:"startedAt"`
	CompletedAt  time.Time           `json:"completedAt"`
}

// ResultStore persists completed session results
type ResultStore struct {
	store *local.Store
}

// NewResultStore creates a result store under basePath
func NewResultStore(basePath string) (*ResultStore, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &ResultStore{store: store}, nil
}

// Save persists a result
func (s *ResultStore) Save(r *Result) error {
	return s.store.Save(collectionResults, r.SessionID, r)
}

// Get retrieves a result by session ID
func (s *ResultStore) Get(sessionID string) (*Result, error) {
	var r Result
	if err := s.store.Load(collectionResults, sessionID, &r); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &r, nil
}

// List returns all results, most recent first
func (s *ResultStore) List() ([]*Result, error) {
	ids, err := s.store.List(collectionResults)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, id := range ids {
		r, err := s.Get(id)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	return results, nil
}

// ForExercise returns the results recorded for one exercise uuid
func (s *ResultStore) ForExercise(exerciseUUID string) ([]*Result, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*Result
	for _, r := range all {
		if r.ExerciseUUID == exerciseUUID {
			out = append(out, r)
		}
	}
	return out, nil
}
