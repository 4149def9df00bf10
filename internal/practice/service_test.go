package practice

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/engine"
)

func matchingExercise() domain.Exercise {
	return domain.Exercise{
		Type:      domain.TypeFillTheGaps,
		Questions: []string{"The _____ is blue.", "Grass is _____."},
		Answers:   []string{"green", "sky"},
		Dictionary: []domain.DictionaryEntry{
			{Question: 0, Answer: 1},
			{Question: 1, Answer: 0},
		},
	}
}

func scalarExercise() domain.Exercise {
	return domain.Exercise{
		Type:       domain.TypeTrueFalse,
		Questions:  []string{"Water is wet.", "Fire is cold."},
		Answers:    []string{"True", "False"},
		Dictionary: []domain.DictionaryEntry{},
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithEngineOptions(engine.WithRevertDelay(time.Hour))}, opts...)
	return NewService(opts...)
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		typ  domain.ExerciseType
		want Mode
	}{
		{domain.TypeFillTheGaps, ModeMatching},
		{domain.TypeMatchTheSentence, ModeMatching},
		{domain.TypeTrueFalse, ModeScalar},
		{domain.TypeABCD, ModeScalar},
		{domain.TypeOpenQuestions, ModeScalar},
		{domain.TypeDialogue, ModeView},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.typ); got != tt.want {
			t.Errorf("ModeFor(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestOpen_Validates(t *testing.T) {
	svc := newTestService(t)

	bad := matchingExercise()
	bad.Questions = nil
	if _, err := svc.Open(OpenRequest{Exercise: bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Open(no questions) error = %v, want ErrValidation", err)
	}

	noKey := matchingExercise()
	noKey.Dictionary = noKey.Dictionary[:1]
	if _, err := svc.Open(OpenRequest{Exercise: noKey}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Open(incomplete key) error = %v, want ErrValidation", err)
	}

	if len(svc.List()) != 0 {
		t.Error("failed opens must not register sessions")
	}
}

func TestStatus_AnswersTrackedByID(t *testing.T) {
	svc := newTestService(t)
	ex := domain.Exercise{
		Type:      domain.TypeFillTheGaps,
		Questions: []string{"_____ cat.", "_____ dog.", "_____ bird."},
		Answers:   []string{"the", "the", "a"},
		Dictionary: []domain.DictionaryEntry{
			{Question: 0, Answer: 0},
			{Question: 1, Answer: 1},
			{Question: 2, Answer: 2},
		},
	}
	sess, err := svc.Open(OpenRequest{Exercise: ex})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := svc.Place(sess.ID, 0, 0); err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	st, _ := svc.Status(sess.ID)
	want := []AnswerStatus{
		{ID: 0, Text: "the", Placed: true},
		{ID: 1, Text: "the", Placed: false},
		{ID: 2, Text: "a", Placed: false},
	}
	if len(st.Answers) != len(want) {
		t.Fatalf("Answers = %+v, want %+v", st.Answers, want)
	}
	for i := range want {
		if st.Answers[i] != want[i] {
			t.Errorf("Answers[%d] = %+v, want %+v", i, st.Answers[i], want[i])
		}
	}
}

func TestMatchingSession(t *testing.T) {
	svc := newTestService(t)
	sess, err := svc.Open(OpenRequest{Exercise: matchingExercise(), ExerciseUUID: "ex-1", Source: "history"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.Mode != ModeMatching {
		t.Fatalf("Mode = %q, want matching", sess.Mode)
	}

	correct, err := svc.Place(sess.ID, 0, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if correct {
		t.Error("green in slot 0 should be incorrect")
	}

	st, _ := svc.Status(sess.ID)
	if st.Slots[0].State != "incorrect" || st.Slots[0].Answer != "green" {
		t.Errorf("slot 0 = %+v", st.Slots[0])
	}
	if len(st.Available) != 1 || st.Available[0] != "sky" {
		t.Errorf("Available = %v, want [sky]", st.Available)
	}

	if _, err := svc.Place(sess.ID, 1, 0); !errors.Is(err, ErrRejected) {
		t.Errorf("placing a used answer error = %v, want ErrRejected", err)
	}

	if ok, _ := svc.Place(sess.ID, 0, 1); !ok {
		t.Error("sky in slot 0 should be correct")
	}
	if ok, _ := svc.Place(sess.ID, 1, 0); !ok {
		t.Error("green in slot 1 should be correct")
	}

	st, _ = svc.Status(sess.ID)
	if !st.Complete || st.Correct != 2 || st.Total != 2 {
		t.Errorf("Status() = %+v, want complete 2/2", st)
	}
}

func TestMatchingSession_WrongMode(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.Open(OpenRequest{Exercise: matchingExercise()})

	if err := svc.Answer(sess.ID, 0, "x"); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Answer() error = %v, want ErrWrongMode", err)
	}
	if _, err := svc.Check(sess.ID); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Check() error = %v, want ErrWrongMode", err)
	}
}

func TestScalarSession(t *testing.T) {
	svc := newTestService(t)
	sess, err := svc.Open(OpenRequest{Exercise: scalarExercise()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := svc.Answer(sess.ID, 0, "true"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if _, err := svc.Check(sess.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("Check() with empty slot error = %v, want ErrNotReady", err)
	}
	if err := svc.Answer(sess.ID, 5, "true"); !errors.Is(err, ErrRejected) {
		t.Errorf("Answer(out of range) error = %v, want ErrRejected", err)
	}

	if err := svc.Answer(sess.ID, 1, "TRUE"); err != nil {
		t.Fatal(err)
	}
	feedback, err := svc.Check(sess.ID)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !feedback[0] || feedback[1] {
		t.Errorf("feedback = %v, want {0:true 1:false}", feedback)
	}

	st, _ := svc.Status(sess.ID)
	if !st.Checked || st.Correct != 1 || st.Slots[1].State != "incorrect" {
		t.Errorf("Status() = %+v", st)
	}

	if err := svc.Answer(sess.ID, 1, "False"); !errors.Is(err, ErrRejected) {
		t.Errorf("Answer() after check error = %v, want ErrRejected", err)
	}
	if _, err := svc.Check(sess.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("second Check() error = %v, want ErrNotReady", err)
	}
}

func TestScalarSession_WrongMode(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.Open(OpenRequest{Exercise: scalarExercise()})
	if _, err := svc.Place(sess.ID, 0, 0); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Place() error = %v, want ErrWrongMode", err)
	}
}

func TestViewSession(t *testing.T) {
	svc := newTestService(t)
	ex := domain.Exercise{
		Type:       domain.TypeDialogue,
		Questions:  []string{"A: Hi", "B: Hello"},
		Answers:    []string{"-"},
		Dictionary: []domain.DictionaryEntry{},
	}
	sess, err := svc.Open(OpenRequest{Exercise: ex})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	st, _ := svc.Status(sess.ID)
	if st.Mode != ModeView || len(st.Slots) != 2 || st.Slots[0].State != "view" {
		t.Errorf("Status() = %+v", st)
	}
	if err := svc.Answer(sess.ID, 0, "x"); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Answer() error = %v, want ErrWrongMode", err)
	}
}

func TestReset(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.Open(OpenRequest{Exercise: matchingExercise()})
	svc.Place(sess.ID, 0, 1)

	if err := svc.Reset(sess.ID); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	st, _ := svc.Status(sess.ID)
	if st.Slots[0].State != "unassigned" || len(st.Available) != 2 {
		t.Errorf("after Reset Status() = %+v", st)
	}
}

func TestClose(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.Open(OpenRequest{Exercise: scalarExercise()})

	if err := svc.Close(sess.ID); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := svc.Status(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Status() after Close error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.Close(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close() error = %v, want ErrSessionNotFound", err)
	}
}

func TestList(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.Add(time.Minute) }
	second, _ := svc.Open(OpenRequest{Exercise: scalarExercise()})
	svc.now = func() time.Time { return base }
	first, _ := svc.Open(OpenRequest{Exercise: scalarExercise()})

	ids := svc.List()
	if len(ids) != 2 || ids[0] != first.ID || ids[1] != second.ID {
		t.Errorf("List() = %v, want [%s %s]", ids, first.ID, second.ID)
	}
}

func TestResultsRecordedOnCompletion(t *testing.T) {
	rs, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, WithResultStore(rs))

	sess, _ := svc.Open(OpenRequest{Exercise: scalarExercise(), ExerciseUUID: "ex-9", Source: "public"})
	svc.Answer(sess.ID, 0, "True")
	svc.Answer(sess.ID, 1, "False")
	if _, err := svc.Check(sess.ID); err != nil {
		t.Fatal(err)
	}

	r, err := rs.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if r.Correct != 2 || r.Total != 2 || r.ExerciseUUID != "ex-9" || r.Source != "public" {
		t.Errorf("Result = %+v", r)
	}

	m, _ := svc.Open(OpenRequest{Exercise: matchingExercise(), ExerciseUUID: "ex-9"})
	svc.Place(m.ID, 0, 1)
	svc.Place(m.ID, 1, 0)

	results, err := rs.ForExercise("ex-9")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("ForExercise() = %d results, want 2", len(results))
	}
}
