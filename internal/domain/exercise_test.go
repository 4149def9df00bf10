package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExerciseType_Classification(t *testing.T) {
	tests := []struct {
		typ      ExerciseType
		matching bool
		scalar   bool
	}{
		{TypeFillTheGaps, true, false},
		{TypeMatchTheSentence, true, false},
		{TypeTrueFalse, false, true},
		{TypeABCD, false, true},
		{TypeOpenQuestions, false, true},
		{TypeDialogue, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.IsMatching(); got != tt.matching {
				t.Errorf("IsMatching() = %v, want %v", got, tt.matching)
			}
			if got := tt.typ.IsScalar(); got != tt.scalar {
				t.Errorf("IsScalar() = %v, want %v", got, tt.scalar)
			}
			if !tt.typ.Known() {
				t.Errorf("Known() = false for %q", tt.typ)
			}
		})
	}

	if ExerciseType("Crossword").Known() {
		t.Error("Known() = true for unsupported type")
	}
}

func TestDictionaryEntry_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DictionaryEntry
		wantErr bool
	}{
		{"numbers", `{"question":0,"answer":2}`, DictionaryEntry{0, 2}, false},
		{"numeric strings", `{"question":"1","answer":" 3 "}`, DictionaryEntry{1, 3}, false},
		{"missing answer", `{"question":1}`, DictionaryEntry{}, true},
		{"non numeric", `{"question":"a","answer":1}`, DictionaryEntry{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got DictionaryEntry
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExercise_CorrectAnswers(t *testing.T) {
	ex := Exercise{
		Type:      TypeMatchTheSentence,
		Questions: []string{"a", "b"},
		Answers:   []string{"x", "y", "z"},
		Dictionary: []DictionaryEntry{
			{Question: 0, Answer: 2},
			{Question: 1, Answer: 0},
		},
	}

	got := ex.CorrectAnswers()
	if got[0] != 2 || got[1] != 0 {
		t.Errorf("CorrectAnswers() = %v", got)
	}
	if ex.AnswerText(2) != "z" {
		t.Errorf("AnswerText(2) = %q, want z", ex.AnswerText(2))
	}
	if ex.AnswerText(5) != "" {
		t.Errorf("AnswerText(5) = %q, want empty", ex.AnswerText(5))
	}
}

func TestExercise_Validate(t *testing.T) {
	valid := Exercise{
		Type:       TypeFillTheGaps,
		Questions:  []string{"The _____ is blue."},
		Answers:    []string{"sky", "ocean"},
		Dictionary: []DictionaryEntry{{Question: 0, Answer: 0}},
	}

	tests := []struct {
		name      string
		mutate    func(e *Exercise)
		wantField string
	}{
		{"valid", func(e *Exercise) {}, ""},
		{"empty dictionary allowed", func(e *Exercise) { e.Dictionary = []DictionaryEntry{} }, ""},
		{"missing type", func(e *Exercise) { e.Type = "" }, "type"},
		{"empty questions", func(e *Exercise) { e.Questions = []string{} }, "questions"},
		{"nil answers", func(e *Exercise) { e.Answers = nil }, "answers"},
		{"nil dictionary", func(e *Exercise) { e.Dictionary = nil }, "dictionary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := valid
			ex.Questions = append([]string(nil), valid.Questions...)
			tt.mutate(&ex)

			err := ex.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
			var ve ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error type = %T", err)
			}
			if ve[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve[0].Field, tt.wantField)
			}
		})
	}
}

func TestExercise_ValidateKey(t *testing.T) {
	base := Exercise{
		Type:      TypeFillTheGaps,
		Questions: []string{"q0", "q1"},
		Answers:   []string{"a0", "a1", "a2"},
	}

	tests := []struct {
		name    string
		dict    []DictionaryEntry
		wantErr bool
	}{
		{"complete", []DictionaryEntry{{0, 1}, {1, 2}}, false},
		{"missing slot", []DictionaryEntry{{0, 1}}, true},
		{"answer out of range", []DictionaryEntry{{0, 1}, {1, 7}}, true},
		{"question out of range", []DictionaryEntry{{0, 1}, {1, 0}, {4, 0}}, true},
		{"duplicate slot", []DictionaryEntry{{0, 1}, {0, 2}, {1, 0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := base
			ex.Dictionary = tt.dict
			err := ex.ValidateKey()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	scalar := Exercise{Type: TypeTrueFalse, Questions: []string{"q"}, Answers: []string{"TRUE"}}
	if err := scalar.ValidateKey(); err != nil {
		t.Errorf("ValidateKey() on scalar type = %v, want nil", err)
	}
}
