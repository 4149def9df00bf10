package practice

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/engine"
)

// Mode is how a session is graded
type Mode string

const (
	ModeMatching Mode = "matching"
	ModeScalar   Mode = "scalar"
	ModeView     Mode = "view"
)

// ModeFor returns the grading mode of an exercise type
func ModeFor(t domain.ExerciseType) Mode {
	switch {
	case t.IsMatching():
		return ModeMatching
	case t.IsScalar():
		return ModeScalar
	default:
		return ModeView
	}
}

// Session is one attempt at an exercise
type Session struct {
	ID           string
	ExerciseUUID string
	Source       string
	Mode         Mode
	CreatedAt    time.Time
	UpdatedAt    time.Time

	exercise domain.Exercise
	matching *engine.Matching
	scalar   *engine.Scalar
	recorded bool
}

func newSession(ex domain.Exercise, source, exerciseUUID string, now time.Time, opts []engine.Option) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		ExerciseUUID: exerciseUUID,
		Source:       source,
		Mode:         ModeFor(ex.Type),
		CreatedAt:    now,
		UpdatedAt:    now,
		exercise:     ex,
	}
	switch s.Mode {
	case ModeMatching:
		s.matching = engine.NewMatching(ex, opts...)
	case ModeScalar:
		s.scalar = engine.NewScalar(ex)
	}
	return s
}

// Exercise returns the exercise being practiced
func (s *Session) Exercise() domain.Exercise {
	return s.exercise
}

// SlotStatus describes one question slot
type SlotStatus struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	State    string `json:"state"`
}

// AnswerStatus describes one answer in a matching session. ID is the
// answer's index in the exercise.
type AnswerStatus struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Placed bool   `json:"placed"`
}

// Status is a snapshot of a session
type Status struct {
	ID        string              `json:"id"`
	Type      domain.ExerciseType `json:"type"`
	Mode      Mode                `json:"mode"`
	Slots     []SlotStatus        `json:"slots"`
	Available []string            `json:"available,omitempty"`
	Answers   []AnswerStatus      `json:"answers,omitempty"`
	Checked   bool                `json:"checked"`
	Complete  bool                `json:"complete"`
	Correct   int                 `json:"correct"`
	Total     int                 `json:"total"`
}

func (s *Session) status() *Status {
	st := &Status{
		ID:    s.ID,
		Type:  s.exercise.Type,
		Mode:  s.Mode,
		Total: len(s.exercise.Questions),
	}

	switch s.Mode {
	case ModeMatching:
		for i, q := range s.exercise.Questions {
			slot := SlotStatus{Index: i, Question: q, State: s.matching.State(i).String()}
			if da, ok := s.matching.Assignment(i); ok {
				slot.Answer = da.AnswerText
			}
			if slot.State == engine.SlotCorrect.String() {
				st.Correct++
			}
			st.Slots = append(st.Slots, slot)
		}
		for i, a := range s.exercise.Answers {
			used := s.matching.IsUsed(i)
			st.Answers = append(st.Answers, AnswerStatus{ID: i, Text: a, Placed: used})
			if !used {
				st.Available = append(st.Available, a)
			}
		}
		st.Complete = s.matching.IsComplete()
		st.Checked = st.Complete

	case ModeScalar:
		feedback := s.scalar.Feedback()
		st.Checked = s.scalar.Checked()
		for i, q := range s.exercise.Questions {
			slot := SlotStatus{Index: i, Question: q, Answer: s.scalar.Answer(i), State: "unchecked"}
			if st.Checked {
				slot.State = "incorrect"
				if feedback[i] {
					slot.State = "correct"
				}
			}
			st.Slots = append(st.Slots, slot)
		}
		st.Correct, _ = s.scalar.Score()
		st.Complete = st.Checked

	default:
		for i, q := range s.exercise.Questions {
			st.Slots = append(st.Slots, SlotStatus{Index: i, Question: q, State: "view"})
		}
	}
	return st
}
