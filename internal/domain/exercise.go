package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExerciseType identifies how an exercise is presented and graded
type ExerciseType string

const (
	TypeTrueFalse        ExerciseType = "True/False"
	TypeABCD             ExerciseType = "ABCD"
	TypeOpenQuestions    ExerciseType = "Open Questions"
	TypeDialogue         ExerciseType = "Dialogue"
	TypeFillTheGaps      ExerciseType = "Fill The Gaps"
	TypeMatchTheSentence ExerciseType = "Match The Sentence"
)

// AllExerciseTypes lists every known exercise type in display order
var AllExerciseTypes = []ExerciseType{
	TypeTrueFalse,
	TypeABCD,
	TypeOpenQuestions,
	TypeDialogue,
	TypeFillTheGaps,
	TypeMatchTheSentence,
}

// IsMatching reports whether answers are dragged into question slots
func (t ExerciseType) IsMatching() bool {
	return t == TypeFillTheGaps || t == TypeMatchTheSentence
}

// IsScalar reports whether answers[i] is the key for questions[i]
func (t ExerciseType) IsScalar() bool {
	return t == TypeTrueFalse || t == TypeABCD || t == TypeOpenQuestions
}

// Known reports whether t is one of the supported exercise types
func (t ExerciseType) Known() bool {
	for _, k := range AllExerciseTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Exercise is one practice activity as produced by generation or upload
type Exercise struct {
	Type        ExerciseType      `json:"type" validate:"required"`
	Questions   []string          `json:"questions" validate:"required,min=1"`
	Answers     []string          `json:"answers" validate:"required,min=1"`
	Dictionary  []DictionaryEntry `json:"dictionary" validate:"required"`
	CreatedText string            `json:"createdText,omitempty"`
}

// DictionaryEntry maps a question slot to the id of its correct answer
type DictionaryEntry struct {
	Question int `json:"question"`
	Answer   int `json:"answer"`
}

// UnmarshalJSON accepts slot and answer ids as numbers or numeric strings
func (d *DictionaryEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question json.RawMessage `json:"question"`
		Answer   json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	q, err := decodeIndex(raw.Question)
	if err != nil {
		return fmt.Errorf("dictionary question: %w", err)
	}
	a, err := decodeIndex(raw.Answer)
	if err != nil {
		return fmt.Errorf("dictionary answer: %w", err)
	}

	d.Question = q
	d.Answer = a
	return nil
}

func decodeIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing index")
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid index %s", string(raw))
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return n, nil
}

// DroppedAnswer records an answer currently placed in a question slot
type DroppedAnswer struct {
	QuestionIndex int    `json:"questionIndex"`
	AnswerIndex   int    `json:"answerIndex"`
	AnswerText    string `json:"answerText"`
}

// CorrectAnswers builds the slot -> correct answer id lookup from the dictionary.
// Later entries for the same slot win.
func (e *Exercise) CorrectAnswers() map[int]int {
	m := make(map[int]int, len(e.Dictionary))
	for _, entry := range e.Dictionary {
		m[entry.Question] = entry.Answer
	}
	return m
}

// AnswerText returns the answer at index i, or "" when out of range
func (e *Exercise) AnswerText(i int) string {
	if i < 0 || i >= len(e.Answers) {
		return ""
	}
	return e.Answers[i]
}
