package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// DefaultRevertDelay is how long an incorrect placement stays visible
const DefaultRevertDelay = 1500 * time.Millisecond

// SlotState is the grading state of one question slot
type SlotState int

const (
	SlotUnassigned SlotState = iota
	SlotCorrect
	SlotIncorrect
)

func (s SlotState) String() string {
	switch s {
	case SlotCorrect:
		return "correct"
	case SlotIncorrect:
		return "incorrect"
	default:
		return "unassigned"
	}
}

// Option configures a Matching engine
type Option func(*Matching)

// WithRevertDelay overrides DefaultRevertDelay
func WithRevertDelay(d time.Duration) Option {
	return func(m *Matching) { m.delay = d }
}

// WithScheduler replaces the timer source used for reverts
func WithScheduler(s Scheduler) Option {
	return func(m *Matching) { m.scheduler = s }
}

// WithLogger sets the logger for placement events
func WithLogger(l *slog.Logger) Option {
	return func(m *Matching) { m.logger = l }
}

// WithOnRevert registers a callback invoked after an incorrect placement
// has been cleared. It runs outside the engine lock.
func WithOnRevert(f func(slot, answer int)) Option {
	return func(m *Matching) { m.onRevert = f }
}

type pendingRevert struct {
	answer int
	seq    uint64
	timer  Timer
}

// Matching tracks answer placements for Fill The Gaps and Match The Sentence
// exercises and grades each placement against the dictionary.
type Matching struct {
	mu       sync.Mutex
	exercise domain.Exercise
	correct  map[int]int

	placed   map[int]domain.DroppedAnswer
	feedback map[int]bool
	shown    map[int]bool
	used     map[int]bool
	reverts  map[int]*pendingRevert
	seq      uint64

	delay     time.Duration
	scheduler Scheduler
	logger    *slog.Logger
	onRevert  func(slot, answer int)
}

// NewMatching creates an engine for ex. The correct-answer lookup is built
// once here.
func NewMatching(ex domain.Exercise, opts ...Option) *Matching {
	m := &Matching{
		exercise:  ex,
		correct:   ex.CorrectAnswers(),
		delay:     DefaultRevertDelay,
		scheduler: RealScheduler{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.clear()
	return m
}

func (m *Matching) clear() {
	m.placed = make(map[int]domain.DroppedAnswer)
	m.feedback = make(map[int]bool)
	m.shown = make(map[int]bool)
	m.used = make(map[int]bool)
	m.reverts = make(map[int]*pendingRevert)
}

// Exercise returns the exercise being practiced
func (m *Matching) Exercise() domain.Exercise {
	return m.exercise
}

// CanPlace reports whether Place(slot, answer) would be accepted
func (m *Matching) CanPlace(slot, answer int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canPlaceLocked(slot, answer)
}

func (m *Matching) canPlaceLocked(slot, answer int) bool {
	if slot < 0 || slot >= len(m.exercise.Questions) {
		return false
	}
	if answer < 0 || answer >= len(m.exercise.Answers) {
		return false
	}

	existing, occupied := m.placed[slot]
	// A correct placement is final until Reset.
	if occupied && m.feedback[slot] {
		return false
	}
	if m.used[answer] && !(occupied && existing.AnswerIndex == answer) {
		return false
	}
	return true
}

// Place puts answer into slot and returns whether it is correct. Rejected
// placements return false and leave the state untouched. An incorrect
// placement is cleared after the revert delay unless superseded first.
func (m *Matching) Place(slot, answer int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canPlaceLocked(slot, answer) {
		m.logger.Debug("placement rejected", "slot", slot, "answer", answer)
		return false
	}

	correctID, hasKey := m.correct[slot]
	isCorrect := hasKey && answer == correctID

	if existing, ok := m.placed[slot]; ok {
		delete(m.used, existing.AnswerIndex)
	}
	m.cancelRevertLocked(slot)

	m.placed[slot] = domain.DroppedAnswer{
		QuestionIndex: slot,
		AnswerIndex:   answer,
		AnswerText:    m.exercise.AnswerText(answer),
	}
	m.used[answer] = true
	m.feedback[slot] = isCorrect
	m.shown[slot] = true

	if !isCorrect {
		m.scheduleRevertLocked(slot, answer)
	}

	m.logger.Debug("answer placed", "slot", slot, "answer", answer, "correct", isCorrect)
	return isCorrect
}

func (m *Matching) scheduleRevertLocked(slot, answer int) {
	m.seq++
	seq := m.seq
	p := &pendingRevert{answer: answer, seq: seq}
	p.timer = m.scheduler.AfterFunc(m.delay, func() {
		m.revert(slot, answer, seq)
	})
	m.reverts[slot] = p
}

func (m *Matching) cancelRevertLocked(slot int) {
	if p, ok := m.reverts[slot]; ok {
		p.timer.Stop()
		delete(m.reverts, slot)
	}
}

// revert clears slot only if the (slot, answer, seq) placement it was
// scheduled for is still the current one.
func (m *Matching) revert(slot, answer int, seq uint64) {
	m.mu.Lock()
	p, ok := m.reverts[slot]
	if !ok || p.seq != seq || p.answer != answer {
		m.mu.Unlock()
		return
	}
	cur, occupied := m.placed[slot]
	if !occupied || cur.AnswerIndex != answer {
		delete(m.reverts, slot)
		m.mu.Unlock()
		return
	}

	delete(m.reverts, slot)
	delete(m.placed, slot)
	delete(m.used, answer)
	delete(m.feedback, slot)
	m.shown[slot] = false
	onRevert := m.onRevert
	m.mu.Unlock()

	m.logger.Debug("incorrect answer reverted", "slot", slot, "answer", answer)
	if onRevert != nil {
		onRevert(slot, answer)
	}
}

// IsComplete reports whether every slot holds a correct answer
func (m *Matching) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.placed) != len(m.exercise.Questions) {
		return false
	}
	for slot := range m.placed {
		if !m.feedback[slot] {
			return false
		}
	}
	return true
}

// Reset clears every placement, including correct ones, and cancels
// pending reverts.
func (m *Matching) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.reverts {
		p.timer.Stop()
	}
	m.clear()
}

// State returns the grading state of slot
func (m *Matching) State(slot int) SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.placed[slot]; !ok {
		return SlotUnassigned
	}
	if m.feedback[slot] {
		return SlotCorrect
	}
	return SlotIncorrect
}

// Feedback returns the last grade for slot and whether it is being shown
func (m *Matching) Feedback(slot int) (correct, shown bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedback[slot], m.shown[slot]
}

// Assignment returns the answer currently placed in slot
func (m *Matching) Assignment(slot int) (domain.DroppedAnswer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	da, ok := m.placed[slot]
	return da, ok
}

// Assignments returns all current placements ordered by slot
func (m *Matching) Assignments() []domain.DroppedAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.DroppedAnswer, 0, len(m.placed))
	for _, da := range m.placed {
		out = append(out, da)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

// IsUsed reports whether answer currently occupies a slot
func (m *Matching) IsUsed(answer int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[answer]
}
