package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

const sampleData = `{"type":"Fill The Gaps","questions":["The _____ is blue."],"answers":["sky","ocean"],"dictionary":[{"question":0,"answer":0}],"createdText":"Colors","metadata":{"source":"pdf-upload","fileName":"colors.pdf"}}`

func TestNormalizePublic(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string TRUE", "TRUE", false},
		{"string padded", " true", false},
		{"string True", "True", false},
		{"string false", "false", false},
		{"string 1", "1", false},
		{"number 1", float64(1), true},
		{"number 0", float64(0), false},
		{"number 2", float64(2), false},
		{"int 1", 1, true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePublic(tt.in); got != tt.want {
				t.Errorf("NormalizePublic(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDatabaseExercise_UnmarshalJSON_PublicVariants(t *testing.T) {
	rows := []string{
		`{"uuid":"a","isPublic":"true"}`,
		`{"uuid":"b","is_public":1}`,
		`{"uuid":"c","public":true}`,
	}

	for _, row := range rows {
		var d DatabaseExercise
		if err := json.Unmarshal([]byte(row), &d); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", row, err)
		}
		if !d.IsPublic {
			t.Errorf("Unmarshal(%s) IsPublic = false, want true", row)
		}
	}
}

func TestDatabaseExercise_UnmarshalJSON_Precedence(t *testing.T) {
	var d DatabaseExercise
	if err := json.Unmarshal([]byte(`{"isPublic":false,"public":true}`), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d.IsPublic {
		t.Error("isPublic should take precedence over public")
	}

	if err := json.Unmarshal([]byte(`{"isPublic":null,"is_public":"true"}`), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !d.IsPublic {
		t.Error("null isPublic should fall through to is_public")
	}
}

func TestDatabaseExercise_UnmarshalJSON_EmbeddedData(t *testing.T) {
	row := `{"id":7,"uuid":"u","exerciseData":` + sampleData + `,"timestamp":"2025-01-01T10:00:00","userId":3,"isCompleted":true}`

	var d DatabaseExercise
	if err := json.Unmarshal([]byte(row), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d.ID != 7 || d.UserID != 3 || !d.IsCompleted {
		t.Errorf("Unmarshal() = %+v", d)
	}

	ex, err := d.ToExercise()
	if err != nil {
		t.Fatalf("ToExercise() error = %v", err)
	}
	if ex.Type != TypeFillTheGaps || len(ex.Answers) != 2 {
		t.Errorf("ToExercise() = %+v", ex)
	}
}

func TestParseExerciseData(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		parsed, err := ParseExerciseData(sampleData)
		if err != nil {
			t.Fatalf("ParseExerciseData() error = %v", err)
		}
		if parsed.CreatedText != "Colors" {
			t.Errorf("CreatedText = %q", parsed.CreatedText)
		}
		if parsed.Metadata["source"] != "pdf-upload" {
			t.Errorf("Metadata = %v", parsed.Metadata)
		}
	})

	t.Run("type array keeps first", func(t *testing.T) {
		parsed, err := ParseExerciseData(`{"type":["ABCD","ABCD"],"questions":["q"],"answers":["A"],"dictionary":[]}`)
		if err != nil {
			t.Fatalf("ParseExerciseData() error = %v", err)
		}
		if parsed.Type != TypeABCD {
			t.Errorf("Type = %q, want ABCD", parsed.Type)
		}
	})

	failures := []struct {
		name    string
		payload string
	}{
		{"not json", `{"type":`},
		{"missing dictionary", `{"type":"ABCD","questions":["q"],"answers":["A"]}`},
		{"missing type", `{"questions":["q"],"answers":["A"],"dictionary":[]}`},
		{"missing questions", `{"type":"ABCD","answers":["A"],"dictionary":[]}`},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExerciseData(tt.payload)
			if !errors.Is(err, ErrParse) {
				t.Errorf("ParseExerciseData() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestDatabaseExercise_ToTableRow(t *testing.T) {
	d := &DatabaseExercise{
		ID:           1,
		UUID:         "3f1c1a52-8a9e-4c1b-9f61-5b1d2c3e4f50",
		ExerciseData: sampleData,
		IsPublic:     true,
	}

	row, err := d.ToTableRow("https://app.example/")
	if err != nil {
		t.Fatalf("ToTableRow() error = %v", err)
	}
	if row.QuestionsCount != 1 {
		t.Errorf("QuestionsCount = %d, want 1", row.QuestionsCount)
	}
	if row.Source != "pdf-upload" || row.FileName != "colors.pdf" {
		t.Errorf("metadata fields = %q %q", row.Source, row.FileName)
	}
	want := "https://app.example/public/exercise/3f1c1a52-8a9e-4c1b-9f61-5b1d2c3e4f50"
	if row.PublicURL != want {
		t.Errorf("PublicURL = %q, want %q", row.PublicURL, want)
	}

	d.IsPublic = false
	d.ExerciseData = `{"type":"ABCD","questions":["q"],"answers":["A"],"dictionary":[]}`
	row, err = d.ToTableRow("https://app.example")
	if err != nil {
		t.Fatalf("ToTableRow() error = %v", err)
	}
	if row.PublicURL != "" {
		t.Errorf("PublicURL = %q, want empty for private row", row.PublicURL)
	}
	if row.CreatedText != "No description" {
		t.Errorf("CreatedText = %q, want placeholder", row.CreatedText)
	}
}

func TestExerciseDataString(t *testing.T) {
	ex := Exercise{Type: TypeABCD, Questions: []string{"q"}, Answers: []string{"A"}, Dictionary: []DictionaryEntry{}}

	s, err := ExerciseDataString(ex, nil)
	if err != nil {
		t.Fatalf("ExerciseDataString() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	meta, ok := decoded["metadata"].(map[string]any)
	if !ok || len(meta) != 0 {
		t.Errorf("metadata = %v, want empty object", decoded["metadata"])
	}

	parsed, err := ParseExerciseData(s)
	if err != nil {
		t.Fatalf("ParseExerciseData() error = %v", err)
	}
	if parsed.Type != TypeABCD {
		t.Errorf("Type = %q", parsed.Type)
	}
}

func TestPublicURLHelpers(t *testing.T) {
	id := "3f1c1a52-8a9e-4c1b-9f61-5b1d2c3e4f50"
	url := PublicURL("http://localhost:3000", id)

	if !IsPublicURL(url) {
		t.Errorf("IsPublicURL(%q) = false", url)
	}
	got, ok := ExtractUUID(url)
	if !ok || got != id {
		t.Errorf("ExtractUUID() = %q, %v", got, ok)
	}

	if _, ok := ExtractUUID("http://localhost:3000/history"); ok {
		t.Error("ExtractUUID() matched a non-public url")
	}
	if _, ok := ExtractUUID("http://x/public/exercise/zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"); ok {
		t.Error("ExtractUUID() accepted a non-hex id")
	}
}
