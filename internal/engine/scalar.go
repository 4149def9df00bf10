package engine

import (
	"strings"
	"sync"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// Comparator decides whether a user value matches the key
type Comparator func(user, key string) bool

// exactFold is used for TRUE/FALSE and single-letter choices
func exactFold(user, key string) bool {
	return strings.EqualFold(user, key)
}

// trimmedFold is used for free-text answers
func trimmedFold(user, key string) bool {
	return strings.EqualFold(strings.TrimSpace(user), strings.TrimSpace(key))
}

var comparators = map[domain.ExerciseType]Comparator{
	domain.TypeTrueFalse:     exactFold,
	domain.TypeABCD:          exactFold,
	domain.TypeOpenQuestions: trimmedFold,
}

// ComparatorFor returns the equality rule for t. Unknown types fall back to
// trimmed case-insensitive comparison.
func ComparatorFor(t domain.ExerciseType) Comparator {
	if c, ok := comparators[t]; ok {
		return c
	}
	return trimmedFold
}

// CheckAll grades every slot of ex in one pass. Slot i is compared against
// answers[i]; slots without a key are graded false.
func CheckAll(ex domain.Exercise, userAnswers map[int]string) map[int]bool {
	cmp := ComparatorFor(ex.Type)
	out := make(map[int]bool, len(ex.Questions))
	for i := range ex.Questions {
		if i >= len(ex.Answers) {
			out[i] = false
			continue
		}
		out[i] = cmp(userAnswers[i], ex.Answers[i])
	}
	return out
}

// Scalar holds the answers typed or chosen for True/False, ABCD and Open
// Questions exercises until the user checks them.
type Scalar struct {
	mu       sync.Mutex
	exercise domain.Exercise
	answers  map[int]string
	feedback map[int]bool
	checked  bool
}

// NewScalar creates the grader for a scalar exercise
func NewScalar(ex domain.Exercise) *Scalar {
	return &Scalar{
		exercise: ex,
		answers:  make(map[int]string),
	}
}

// Exercise returns the exercise being practiced
func (s *Scalar) Exercise() domain.Exercise {
	return s.exercise
}

// SetAnswer records the user value for slot. It is ignored after Check
// and for slots out of range.
func (s *Scalar) SetAnswer(slot int, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checked || slot < 0 || slot >= len(s.exercise.Questions) {
		return false
	}
	s.answers[slot] = value
	return true
}

// Answer returns the value recorded for slot
func (s *Scalar) Answer(slot int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers[slot]
}

// CanCheck reports whether every slot has a non-empty value
func (s *Scalar) CanCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canCheckLocked()
}

func (s *Scalar) canCheckLocked() bool {
	if s.checked || len(s.exercise.Questions) == 0 {
		return false
	}
	for i := range s.exercise.Questions {
		if strings.TrimSpace(s.answers[i]) == "" {
			return false
		}
	}
	return true
}

// Check grades all slots once. ok is false while any slot is empty or
// when the answers were already checked.
func (s *Scalar) Check() (feedback map[int]bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.canCheckLocked() {
		return nil, false
	}
	s.feedback = CheckAll(s.exercise, s.answers)
	s.checked = true
	return copyFeedback(s.feedback), true
}

// Feedback returns the result of the last Check
func (s *Scalar) Feedback() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFeedback(s.feedback)
}

// Checked reports whether Check has run since the last Reset
func (s *Scalar) Checked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked
}

// Score returns the number of correct slots after Check
func (s *Scalar) Score() (correct, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ok := range s.feedback {
		if ok {
			correct++
		}
	}
	return correct, len(s.exercise.Questions)
}

// Reset discards all values and feedback
func (s *Scalar) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = make(map[int]string)
	s.feedback = nil
	s.checked = false
}

func copyFeedback(in map[int]bool) map[int]bool {
	if in == nil {
		return nil
	}
	out := make(map[int]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
