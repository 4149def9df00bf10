package engine

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// fakeScheduler fires callbacks only when Advance moves the clock past them.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func gapsExercise() domain.Exercise {
	return domain.Exercise{
		Type:       domain.TypeFillTheGaps,
		Questions:  []string{"The _____ is blue."},
		Answers:    []string{"sky", "ocean"},
		Dictionary: []domain.DictionaryEntry{{Question: 0, Answer: 0}},
	}
}

func sentenceExercise() domain.Exercise {
	return domain.Exercise{
		Type:      domain.TypeMatchTheSentence,
		Questions: []string{"I _____ coffee.", "She _____ tea.", "They _____ home."},
		Answers:   []string{"drink", "drinks", "went"},
		Dictionary: []domain.DictionaryEntry{
			{Question: 0, Answer: 0},
			{Question: 1, Answer: 1},
			{Question: 2, Answer: 2},
		},
	}
}

func TestMatching_CorrectPlacementCompletes(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(gapsExercise(), WithScheduler(sched))

	if !m.Place(0, 0) {
		t.Fatal("Place(0, 0) = false, want true")
	}
	if correct, shown := m.Feedback(0); !correct || !shown {
		t.Errorf("Feedback(0) = %v, %v, want true, true", correct, shown)
	}
	if !m.IsComplete() {
		t.Error("IsComplete() = false after correct placement")
	}

	sched.Advance(DefaultRevertDelay * 2)
	if m.State(0) != SlotCorrect {
		t.Errorf("State(0) = %v, correct placement must not revert", m.State(0))
	}
}

func TestMatching_IncorrectPlacementReverts(t *testing.T) {
	sched := &fakeScheduler{}
	var reverted []int
	m := NewMatching(gapsExercise(), WithScheduler(sched), WithOnRevert(func(slot, answer int) {
		reverted = append(reverted, answer)
	}))

	if m.Place(0, 1) {
		t.Fatal("Place(0, 1) = true, want false")
	}
	if m.State(0) != SlotIncorrect {
		t.Errorf("State(0) = %v, want incorrect", m.State(0))
	}
	if !m.IsUsed(1) {
		t.Error("answer 1 should be used while displayed")
	}
	if m.IsComplete() {
		t.Error("IsComplete() = true with incorrect placement")
	}

	sched.Advance(DefaultRevertDelay - time.Millisecond)
	if m.State(0) != SlotIncorrect {
		t.Fatal("reverted before the delay elapsed")
	}

	sched.Advance(time.Millisecond)
	if m.State(0) != SlotUnassigned {
		t.Errorf("State(0) = %v after delay, want unassigned", m.State(0))
	}
	if m.IsUsed(1) {
		t.Error("answer 1 should be released after revert")
	}
	if _, shown := m.Feedback(0); shown {
		t.Error("feedback still shown after revert")
	}
	if len(reverted) != 1 || reverted[0] != 1 {
		t.Errorf("onRevert calls = %v, want [1]", reverted)
	}

	if !m.CanPlace(0, 1) {
		t.Error("answer 1 should be placeable again")
	}
}

func TestMatching_StaleRevertIsIgnored(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(sentenceExercise(), WithScheduler(sched))

	m.Place(0, 1) // wrong
	sched.Advance(time.Second)

	m.Place(0, 2) // wrong again, supersedes the first revert
	sched.Advance(600 * time.Millisecond)

	// First timer would have fired at 1500ms; the slot must still show answer 2.
	da, ok := m.Assignment(0)
	if !ok || da.AnswerIndex != 2 {
		t.Fatalf("Assignment(0) = %+v, %v, want answer 2", da, ok)
	}
	if m.IsUsed(1) {
		t.Error("answer 1 should have been released on replacement")
	}

	sched.Advance(900 * time.Millisecond)
	if m.State(0) != SlotUnassigned {
		t.Errorf("State(0) = %v, want unassigned after second delay", m.State(0))
	}
}

func TestMatching_ReplaceIncorrectWithCorrect(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(sentenceExercise(), WithScheduler(sched))

	m.Place(1, 0)
	if !m.Place(1, 1) {
		t.Fatal("Place(1, 1) = false, want true")
	}
	sched.Advance(DefaultRevertDelay)

	if m.State(1) != SlotCorrect {
		t.Errorf("State(1) = %v, pending revert should have been cancelled", m.State(1))
	}
	if m.IsUsed(0) {
		t.Error("answer 0 should be free")
	}
}

func TestMatching_Rejections(t *testing.T) {
	m := NewMatching(sentenceExercise(), WithScheduler(&fakeScheduler{}))
	m.Place(0, 0) // correct
	m.Place(1, 2) // wrong, answer 2 in use

	tests := []struct {
		name   string
		slot   int
		answer int
	}{
		{"slot below range", -1, 0},
		{"slot above range", 3, 0},
		{"answer above range", 2, 3},
		{"correct slot is final", 0, 1},
		{"answer used elsewhere", 2, 2},
		{"correct answer used elsewhere", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := m.Assignments()
			if m.CanPlace(tt.slot, tt.answer) {
				t.Errorf("CanPlace(%d, %d) = true", tt.slot, tt.answer)
			}
			if m.Place(tt.slot, tt.answer) {
				t.Errorf("Place(%d, %d) = true", tt.slot, tt.answer)
			}
			if after := m.Assignments(); len(after) != len(before) {
				t.Errorf("rejected placement changed state: %v -> %v", before, after)
			}
		})
	}

	if !m.CanPlace(1, 2) {
		t.Error("re-placing the same answer in its own slot should be allowed")
	}
}

func TestMatching_UsedAnswersAreUnique(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(sentenceExercise(), WithScheduler(sched))

	m.Place(0, 1)
	m.Place(1, 0)
	m.Place(2, 2)

	seen := map[int]int{}
	for _, da := range m.Assignments() {
		seen[da.AnswerIndex]++
	}
	for answer, n := range seen {
		if n > 1 {
			t.Errorf("answer %d placed %d times", answer, n)
		}
	}
}

func TestMatching_Reset(t *testing.T) {
	sched := &fakeScheduler{}
	reverts := 0
	m := NewMatching(sentenceExercise(), WithScheduler(sched), WithOnRevert(func(int, int) { reverts++ }))

	m.Place(0, 0)
	m.Place(1, 2)
	m.Reset()
	sched.Advance(DefaultRevertDelay)

	if got := m.Assignments(); len(got) != 0 {
		t.Errorf("Assignments() = %v after Reset", got)
	}
	if reverts != 0 {
		t.Errorf("pending revert fired after Reset")
	}
	if !m.CanPlace(0, 0) {
		t.Error("correct slot should be placeable after Reset")
	}
}

func TestMatching_IsComplete(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(sentenceExercise(), WithScheduler(sched))

	m.Place(0, 0)
	m.Place(1, 1)
	if m.IsComplete() {
		t.Error("IsComplete() = true with an empty slot")
	}
	m.Place(2, 2)
	if !m.IsComplete() {
		t.Error("IsComplete() = false with all slots correct")
	}

	empty := NewMatching(domain.Exercise{Type: domain.TypeFillTheGaps}, WithScheduler(sched))
	if !empty.IsComplete() {
		t.Error("exercise without questions should be complete")
	}
}

func TestMatching_MissingKeyIsIncorrect(t *testing.T) {
	ex := sentenceExercise()
	ex.Dictionary = ex.Dictionary[:1]
	m := NewMatching(ex, WithScheduler(&fakeScheduler{}))

	if m.Place(1, 1) {
		t.Error("slot without a dictionary entry graded correct")
	}
}

func TestMatching_CustomDelay(t *testing.T) {
	sched := &fakeScheduler{}
	m := NewMatching(gapsExercise(), WithScheduler(sched), WithRevertDelay(100*time.Millisecond))

	m.Place(0, 1)
	sched.Advance(100 * time.Millisecond)
	if m.State(0) != SlotUnassigned {
		t.Errorf("State(0) = %v, want unassigned", m.State(0))
	}
}

func TestMatching_RealScheduler(t *testing.T) {
	m := NewMatching(gapsExercise(), WithRevertDelay(10*time.Millisecond))
	done := make(chan struct{})
	m2 := NewMatching(gapsExercise(), WithRevertDelay(10*time.Millisecond), WithOnRevert(func(int, int) { close(done) }))

	m.Place(0, 0)
	m2.Place(0, 1)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("revert did not fire")
	}
	if m2.State(0) != SlotUnassigned {
		t.Errorf("State(0) = %v after real revert", m2.State(0))
	}
	if m.State(0) != SlotCorrect {
		t.Errorf("correct placement changed")
	}
}

func TestSlotState_String(t *testing.T) {
	if SlotUnassigned.String() != "unassigned" || SlotCorrect.String() != "correct" || SlotIncorrect.String() != "incorrect" {
		t.Error("unexpected SlotState strings")
	}
}
